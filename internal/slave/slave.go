// Package slave implements the builder side of the buildd protocol: it
// caches uploaded source files, runs one build at a time and hands out the
// results.
package slave

import (
	"context"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	bpb "github.com/distr1/soyuz/pb/builder"
)

// MissingDependenciesFile is the name of the file in the output directory
// into which a build command writes unsatisfiable build dependencies before
// exiting with status 2.
const MissingDependenciesFile = "missing-dependencies"

// LogtailSize is the number of trailing log bytes reported by Status.
const LogtailSize = 4096

// ExitResult maps the exit code of the build command to a build result.
func ExitResult(code int) string {
	switch code {
	case 0:
		return bpb.ResultOK
	case 2:
		return bpb.ResultDepFail
	case 3:
		return bpb.ResultChrootFail
	case 4:
		return bpb.ResultBuilderFail
	default:
		return bpb.ResultPackageFail
	}
}

type Slave struct {
	// WorkDir holds the file cache (files/) and the build tree (build/).
	WorkDir   string
	Processor string
	// Command is the build command. It runs in the build tree with the job
	// described by SOYUZ_* environment variables.
	Command []string
	Log     *log.Logger

	mu      sync.Mutex
	state   string
	cookie  string
	result  string
	deps    string
	files   []string
	tail    *tailBuffer
	cancel  context.CancelFunc
	aborted bool
	done    chan struct{}
}

func (s *Slave) filesDir() string { return filepath.Join(s.WorkDir, "files") }
func (s *Slave) buildDir() string { return filepath.Join(s.WorkDir, "build") }
func (s *Slave) outDir() string   { return filepath.Join(s.WorkDir, "build", "out") }

// within joins rel to dir and verifies the result does not escape dir.
func within(dir, rel string) (string, error) {
	path := filepath.Join(dir, rel)
	if !strings.HasPrefix(path, filepath.Clean(dir)+"/") {
		return "", status.Errorf(codes.InvalidArgument, "path traversal detected")
	}
	return path, nil
}

func (s *Slave) Status(ctx context.Context, req *bpb.StatusRequest) (*bpb.StatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := &bpb.StatusResponse{
		State:     s.stateLocked(),
		Processor: s.Processor,
		Cookie:    s.cookie,
	}
	if s.tail != nil {
		resp.Logtail = s.tail.String()
	}
	if resp.State == bpb.StateWaiting {
		resp.Result = s.result
		resp.Files = append([]string(nil), s.files...)
		resp.Dependencies = s.deps
	}
	return resp, nil
}

func (s *Slave) stateLocked() string {
	if s.state == "" {
		return bpb.StateIdle
	}
	return s.state
}

func (s *Slave) Store(srv bpb.Builder_StoreServer) error {
	chunk, err := srv.Recv()
	if err != nil {
		return err
	}
	path, err := within(s.filesDir(), chunk.GetPath())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	// Write to a temporary file so that aborted uploads do not leave
	// truncated files in the cache.
	f, err := ioutil.TempFile(filepath.Dir(path), ".upload")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	defer f.Close()
	for {
		if _, err := f.Write(chunk.GetChunk()); err != nil {
			return err
		}

		chunk, err = srv.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return err
	}
	return srv.SendAndClose(&bpb.StoreResponse{})
}

func (s *Slave) Build(ctx context.Context, req *bpb.BuildRequest) (*bpb.BuildResponse, error) {
	if len(s.Command) == 0 {
		return nil, status.Errorf(codes.FailedPrecondition, "no build command configured")
	}
	if req.Cookie == "" {
		return nil, status.Errorf(codes.InvalidArgument, "cookie must not be empty")
	}
	var paths []string
	for _, fn := range req.Files {
		path, err := within(s.filesDir(), fn)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, status.Errorf(codes.NotFound, "%v", err)
			}
			return nil, err
		}
		paths = append(paths, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.stateLocked(); st != bpb.StateIdle {
		return nil, status.Errorf(codes.FailedPrecondition, "builder is %s", st)
	}

	if err := os.RemoveAll(s.buildDir()); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.outDir(), 0755); err != nil {
		return nil, err
	}
	logFile, err := os.Create(filepath.Join(s.buildDir(), bpb.LogFilename))
	if err != nil {
		return nil, err
	}

	buildCtx, canc := context.WithCancel(context.Background())
	build := exec.CommandContext(buildCtx, s.Command[0], s.Command[1:]...)
	build.Dir = s.buildDir()
	// Children of the build command may keep the output pipe open after
	// an abort.
	build.WaitDelay = 5 * time.Second
	dsc := ""
	if len(paths) > 0 {
		dsc = paths[0]
	}
	build.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"SOYUZ_COOKIE=" + req.Cookie,
		"SOYUZ_SOURCE=" + req.Source,
		"SOYUZ_VERSION=" + req.Version,
		"SOYUZ_DSC=" + dsc,
		"SOYUZ_FILES_DIR=" + s.filesDir(),
		"SOYUZ_OUTPUT_DIR=" + s.outDir(),
		"SOYUZ_CHROOT=" + req.Chroot,
		"SOYUZ_ARCHIVE_URL=" + req.ArchiveUrl,
		"SOYUZ_ARCH=" + req.Arch,
		"SOYUZ_SUITE=" + req.Suite,
		"SOYUZ_ARCH_INDEP=" + strconv.FormatBool(req.ArchIndep),
	}
	s.tail = &tailBuffer{max: LogtailSize}
	build.Stdout = io.MultiWriter(logFile, s.tail)
	build.Stderr = build.Stdout
	if err := build.Start(); err != nil {
		canc()
		logFile.Close()
		return nil, err
	}
	s.state = bpb.StateBuilding
	s.cookie = req.Cookie
	s.result = ""
	s.deps = ""
	s.files = nil
	s.aborted = false
	s.cancel = canc
	s.done = make(chan struct{})
	s.Log.Printf("building %s %s for %s (cookie %s)", req.Source, req.Version, req.Suite, req.Cookie)
	go s.wait(build, logFile, s.done)
	return &bpb.BuildResponse{}, nil
}

func (s *Slave) wait(build *exec.Cmd, logFile *os.File, done chan struct{}) {
	defer close(done)
	err := build.Wait()
	logFile.Close()

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if xerrors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = 4
		}
	}
	result := ExitResult(code)
	var deps string
	if result == bpb.ResultDepFail {
		b, err := ioutil.ReadFile(filepath.Join(s.outDir(), MissingDependenciesFile))
		if err != nil {
			s.Log.Printf("DEPFAIL without %s: %v", MissingDependenciesFile, err)
		}
		deps = strings.TrimSpace(string(b))
	}
	var files []string
	if result == bpb.ResultOK {
		fis, err := ioutil.ReadDir(s.outDir())
		if err != nil {
			s.Log.Printf("listing results: %v", err)
			result = bpb.ResultBuilderFail
		}
		for _, fi := range fis {
			if fi.Mode().IsRegular() {
				files = append(files, fi.Name())
			}
		}
		sort.Strings(files)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		result = bpb.ResultAborted
		files = nil
	}
	s.state = bpb.StateWaiting
	s.result = result
	s.deps = deps
	s.files = files
	s.cancel()
	s.Log.Printf("build %s finished: %s (exit code %d)", s.cookie, result, code)
}

func (s *Slave) Retrieve(req *bpb.RetrieveRequest, srv bpb.Builder_RetrieveServer) error {
	dir := s.outDir()
	if req.GetPath() == bpb.LogFilename {
		dir = s.buildDir()
	}
	fn, err := within(dir, req.GetPath())
	if err != nil {
		return err
	}

	f, err := os.Open(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return status.Errorf(codes.NotFound, "%v", err)
		}
		return err
	}
	defer f.Close()
	const chunkSize = 1 * 1024 * 1024 // 1 MiB
	buf := make([]byte, chunkSize)
	path := req.GetPath()
	for {
		n, err := f.Read(buf)
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if err := srv.Send(&bpb.Chunk{Path: path, Chunk: buf[:n]}); err != nil {
			return err
		}
		path = ""
	}
	return nil
}

func (s *Slave) Abort(ctx context.Context, req *bpb.AbortRequest) (*bpb.AbortResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stateLocked() != bpb.StateBuilding {
		return nil, status.Errorf(codes.FailedPrecondition, "builder is %s", s.stateLocked())
	}
	if req.Cookie != "" && req.Cookie != s.cookie {
		return nil, status.Errorf(codes.PermissionDenied, "cookie mismatch")
	}
	s.Log.Printf("aborting build %s", s.cookie)
	s.state = bpb.StateAborting
	s.aborted = true
	s.cancel()
	return &bpb.AbortResponse{}, nil
}

func (s *Slave) Clean(ctx context.Context, req *bpb.CleanRequest) (*bpb.CleanResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch st := s.stateLocked(); st {
	case bpb.StateIdle, bpb.StateWaiting:
	default:
		return nil, status.Errorf(codes.FailedPrecondition, "builder is %s", st)
	}
	if err := os.RemoveAll(s.buildDir()); err != nil {
		return nil, err
	}
	s.state = bpb.StateIdle
	s.cookie = ""
	s.result = ""
	s.deps = ""
	s.files = nil
	s.tail = nil
	return &bpb.CleanResponse{}, nil
}

// Wait blocks until the current build (if any) has finished.
func (s *Slave) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// tailBuffer retains the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
