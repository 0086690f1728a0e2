package slave

import (
	"context"
	"io"
	"io/ioutil"
	"log"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/testing/protocmp"

	bpb "github.com/distr1/soyuz/pb/builder"
)

const script = `
case "$SOYUZ_SOURCE" in
hello)
	echo "building $SOYUZ_SOURCE $SOYUZ_VERSION on $SOYUZ_ARCH"
	cp "$SOYUZ_DSC" "$SOYUZ_OUTPUT_DIR/copy.dsc"
	echo deb > "$SOYUZ_OUTPUT_DIR/hello_1.0-1_amd64.deb"
	;;
needy)
	echo "libfoo-dev (>= 2)" > "$SOYUZ_OUTPUT_DIR/missing-dependencies"
	exit 2
	;;
broken)
	echo "compile error"
	exit 1
	;;
sleepy)
	sleep 60
	;;
esac
`

func startSlave(t *testing.T) (*Slave, bpb.BuilderClient) {
	t.Helper()
	ctx, canc := context.WithCancel(context.Background())
	t.Cleanup(canc)
	s := &Slave{
		WorkDir:   soyuztest.TempRoot(t),
		Processor: "amd64",
		Command:   []string{"/bin/sh", "-c", script},
		Log:       log.New(ioutil.Discard, "", 0),
	}
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := grpc.NewServer()
	bpb.RegisterBuilderServer(srv, s)
	go srv.Serve(ln)
	t.Cleanup(srv.Stop)

	conn, err := bpb.Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return s, bpb.NewBuilderClient(conn)
}

func upload(t *testing.T, cl bpb.BuilderClient, path string, chunks ...string) {
	t.Helper()
	upcl, err := cl.Store(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		chunk := &bpb.Chunk{Chunk: []byte(c)}
		if i == 0 {
			chunk.Path = path
		}
		if err := upcl.Send(chunk); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := upcl.CloseAndRecv(); err != nil {
		t.Fatal(err)
	}
}

func retrieve(t *testing.T, cl bpb.BuilderClient, path string) (string, error) {
	t.Helper()
	stream, err := cl.Retrieve(context.Background(), &bpb.RetrieveRequest{Path: path})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		b.Write(chunk.GetChunk())
	}
	return b.String(), nil
}

func waitFor(t *testing.T, s *Slave, cl bpb.BuilderClient) *bpb.StatusResponse {
	t.Helper()
	s.Wait()
	st, err := cl.Status(context.Background(), &bpb.StatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestBuildOK(t *testing.T) {
	ctx := context.Background()
	s, cl := startSlave(t)
	upload(t, cl, "hello_1.0-1.dsc", "first-chunk\n", "second-chunk\n")

	got, err := ioutil.ReadFile(filepath.Join(s.WorkDir, "files", "hello_1.0-1.dsc"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("first-chunk\nsecond-chunk\n", string(got)); diff != "" {
		t.Fatalf("uploaded file differs: diff (-want +got):\n%s", diff)
	}

	if _, err := cl.Build(ctx, &bpb.BuildRequest{
		Cookie:  "c00kie",
		Source:  "hello",
		Version: "1.0-1",
		Files:   []string{"hello_1.0-1.dsc"},
		Arch:    "amd64",
		Suite:   "oracular",
	}); err != nil {
		t.Fatal(err)
	}
	st := waitFor(t, s, cl)
	want := &bpb.StatusResponse{
		State:     bpb.StateWaiting,
		Processor: "amd64",
		Cookie:    "c00kie",
		Logtail:   "building hello 1.0-1 on amd64\n",
		Result:    bpb.ResultOK,
		Files:     []string{"copy.dsc", "hello_1.0-1_amd64.deb"},
	}
	if diff := cmp.Diff(want, st, protocmp.Transform()); diff != "" {
		t.Errorf("Status: diff (-want +got):\n%s", diff)
	}

	deb, err := retrieve(t, cl, "hello_1.0-1_amd64.deb")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("deb\n", deb); diff != "" {
		t.Errorf("retrieved file: diff (-want +got):\n%s", diff)
	}
	buildlog, err := retrieve(t, cl, bpb.LogFilename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buildlog, "building hello") {
		t.Errorf("build log %q does not contain the build output", buildlog)
	}

	if _, err := cl.Clean(ctx, &bpb.CleanRequest{}); err != nil {
		t.Fatal(err)
	}
	st, err = cl.Status(ctx, &bpb.StatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := st.GetState(), bpb.StateIdle; got != want {
		t.Errorf("state after Clean = %q, want %q", got, want)
	}
}

func TestBuildResults(t *testing.T) {
	for _, tt := range []struct {
		source     string
		wantResult string
		wantDeps   string
	}{
		{"needy", bpb.ResultDepFail, "libfoo-dev (>= 2)"},
		{"broken", bpb.ResultPackageFail, ""},
	} {
		t.Run(tt.source, func(t *testing.T) {
			s, cl := startSlave(t)
			if _, err := cl.Build(context.Background(), &bpb.BuildRequest{Cookie: "x", Source: tt.source}); err != nil {
				t.Fatal(err)
			}
			st := waitFor(t, s, cl)
			if st.Result != tt.wantResult {
				t.Errorf("Result = %q, want %q", st.Result, tt.wantResult)
			}
			if st.Dependencies != tt.wantDeps {
				t.Errorf("Dependencies = %q, want %q", st.Dependencies, tt.wantDeps)
			}
		})
	}
}

func TestBusyAndAbort(t *testing.T) {
	ctx := context.Background()
	s, cl := startSlave(t)
	if _, err := cl.Build(ctx, &bpb.BuildRequest{Cookie: "one", Source: "sleepy"}); err != nil {
		t.Fatal(err)
	}
	_, err := cl.Build(ctx, &bpb.BuildRequest{Cookie: "two", Source: "hello"})
	if got, want := status.Code(err), codes.FailedPrecondition; got != want {
		t.Fatalf("second Build: got code %v, want %v", got, want)
	}
	_, err = cl.Abort(ctx, &bpb.AbortRequest{Cookie: "two"})
	if got, want := status.Code(err), codes.PermissionDenied; got != want {
		t.Fatalf("Abort with wrong cookie: got code %v, want %v", got, want)
	}
	if _, err := cl.Abort(ctx, &bpb.AbortRequest{Cookie: "one"}); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("build was not aborted")
	}
	st := waitFor(t, s, cl)
	if got, want := st.Result, bpb.ResultAborted; got != want {
		t.Errorf("Result = %q, want %q", got, want)
	}
}

func TestPathTraversal(t *testing.T) {
	ctx := context.Background()
	_, cl := startSlave(t)
	_, err := cl.Build(ctx, &bpb.BuildRequest{Cookie: "x", Files: []string{"../../etc/passwd"}})
	if got, want := status.Code(err), codes.InvalidArgument; got != want {
		t.Errorf("Build: got code %v, want %v", got, want)
	}
	_, err = cl.Build(ctx, &bpb.BuildRequest{Cookie: "x", Files: []string{"missing.dsc"}})
	if got, want := status.Code(err), codes.NotFound; got != want {
		t.Errorf("Build: got code %v, want %v", got, want)
	}
	_, err = retrieve(t, cl, "../files/x")
	if got, want := status.Code(err), codes.InvalidArgument; got != want {
		t.Errorf("Retrieve: got code %v, want %v", got, want)
	}
}

func TestExitResult(t *testing.T) {
	for code, want := range map[int]string{
		0:  bpb.ResultOK,
		1:  bpb.ResultPackageFail,
		2:  bpb.ResultDepFail,
		3:  bpb.ResultChrootFail,
		4:  bpb.ResultBuilderFail,
		42: bpb.ResultPackageFail,
	} {
		if got := ExitResult(code); got != want {
			t.Errorf("ExitResult(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 4}
	io.WriteString(tb, "ab")
	io.WriteString(tb, "cdef")
	if got, want := tb.String(), "cdef"; got != want {
		t.Errorf("tail = %q, want %q", got, want)
	}
}
