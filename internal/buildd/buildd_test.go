package buildd

import (
	"context"
	"errors"
	"io/ioutil"
	"log"
	"net"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/queue"
	"github.com/distr1/soyuz/internal/slave"
	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"

	bpb "github.com/distr1/soyuz/pb/builder"
)

const buildScript = `
cat > "$SOYUZ_OUTPUT_DIR/binaries.control" <<EOT
Package: hello
Version: 1.0-1
Architecture: amd64
Depends: libc6 (>= 2.34)
Section: devel
Priority: optional
Description: says hello

Package: hello-doc
Version: 1.0-1
Architecture: all
Section: doc
Description: documentation for hello
EOT
echo "building $SOYUZ_SOURCE ($SOYUZ_SUITE, arch-indep: $SOYUZ_ARCH_INDEP)"
cp "$SOYUZ_DSC" "$SOYUZ_OUTPUT_DIR/received.dsc"
echo deb > "$SOYUZ_OUTPUT_DIR/hello_1.0-1_amd64.deb"
echo doc > "$SOYUZ_OUTPUT_DIR/hello-doc_1.0-1_all.deb"
`

func newManager(t *testing.T, f *soyuztest.Fixture) *Manager {
	return &Manager{
		Store: f.Store,
		Log:   log.New(ioutil.Discard, "", 0),
		Config: config.Buildd{
			StatusTimeout:       config.Duration{Duration: 5 * time.Second},
			BuilderFailureLimit: 2,
			JobFailureLimit:     2,
		},
		Librarian:   &librarian.Librarian{Dir: filepath.Join(f.Root, "librarian")},
		IncomingDir: filepath.Join(f.Root, "incoming"),
		Dial:        DialGRPC,
	}
}

func startSlave(t *testing.T) (*slave.Slave, string) {
	s := &slave.Slave{
		WorkDir:   soyuztest.TempRoot(t),
		Processor: "amd64",
		Command:   []string{"/bin/sh", "-c", buildScript},
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
	return s, ln.Addr().String()
}

func update(t *testing.T, f *soyuztest.Fixture, fn func(tx *store.Tx) error) {
	t.Helper()
	if err := f.Store.Update(context.Background(), fn); err != nil {
		t.Fatal(err)
	}
}

func TestDispatchAndCollect(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	m := newManager(t, f)
	s, addr := startSlave(t)

	dsc := filepath.Join(f.Root, "hello_1.0-1.dsc")
	if err := ioutil.WriteFile(dsc, []byte("Source: hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	h, err := m.Librarian.Add(dsc)
	if err != nil {
		t.Fatal(err)
	}
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{
		Name:     "hello",
		Version:  "1.0-1",
		ArchHint: "amd64 all",
		Binaries: "hello, hello-doc",
		Files: []*store.SourceFile{
			{Filename: "hello_1.0-1.dsc", Size: h.Size, MD5: h.MD5, SHA256: h.SHA256},
		},
	})
	qc := &queue.Ctx{Store: f.Store, Log: m.Log}
	if _, err := qc.CreateMissingBuilds(ctx, f.Dev); err != nil {
		t.Fatal(err)
	}
	update(t, f, func(tx *store.Tx) error {
		f.Bob.URL = addr
		if err := tx.EnsureBuilder(f.Bob); err != nil {
			return err
		}
		f.Alice.OK = false
		return tx.UpdateBuilderState(f.Alice)
	})

	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	var buildID int64
	err = f.Store.View(ctx, func(tx *store.Tx) error {
		q, err := tx.QueueEntryByBuilder(f.Bob.ID)
		if err != nil {
			return err
		}
		if q.Status != store.QueueRunning || q.Cookie == "" {
			t.Errorf("queue entry after dispatch: status %q, cookie %q", q.Status, q.Cookie)
		}
		b, err := tx.BuildByID(q.BuildID)
		if err != nil {
			return err
		}
		if b.Status != store.BuildBuilding {
			t.Errorf("build status = %q, want %q", b.Status, store.BuildBuilding)
		}
		buildID = b.ID
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"bob": bpb.StateIdle, "alice": "DISABLED"}, m.States()); diff != "" {
		t.Errorf("States: diff (-want +got):\n%s", diff)
	}

	s.Wait()
	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}

	err = f.Store.View(ctx, func(tx *store.Tx) error {
		b, err := tx.BuildByID(buildID)
		if err != nil {
			return err
		}
		if b.Status != store.BuildFullyBuilt {
			t.Errorf("build status = %q, want %q", b.Status, store.BuildFullyBuilt)
		}
		if _, err := os.Stat(b.LogFilename); err != nil {
			t.Errorf("build log: %v", err)
		}
		if _, err := tx.QueueEntryByBuild(buildID); err == nil {
			t.Errorf("queue entry of finished build still exists")
		}
		bprs, err := tx.BinariesOfBuild(buildID)
		if err != nil {
			return err
		}
		var got []string
		for _, bpr := range bprs {
			got = append(got, bpr.Name+" "+bpr.Arch+" "+bpr.Section+" "+bpr.Depends)
		}
		want := []string{
			"hello amd64 devel libc6 (>= 2.34)",
			"hello-doc all doc ",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("binaries: diff (-want +got):\n%s", diff)
		}
		pubs, err := tx.BinaryPublications(store.PubFilter{ArchiveID: f.Primary.ID, Statuses: []string{store.PubPending}})
		if err != nil {
			return err
		}
		got = nil
		for _, p := range pubs {
			das, err := tx.ArchSeriesByID(p.ArchSeriesID)
			if err != nil {
				return err
			}
			got = append(got, p.Name+"/"+das.Architecture)
		}
		sort.Strings(got)
		want = []string{"hello-doc/amd64", "hello-doc/i386", "hello/amd64"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("publications: diff (-want +got):\n%s", diff)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBuilderFailureDisables(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	m := newManager(t, f)
	m.Dial = func(ctx context.Context, addr string) (bpb.BuilderClient, func() error, error) {
		return nil, nil, errors.New("connection refused")
	}
	hello, _ := f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1", ArchHint: "amd64"})
	qc := &queue.Ctx{Store: f.Store, Log: m.Log}
	if _, err := qc.CreateMissingBuilds(ctx, f.Dev); err != nil {
		t.Fatal(err)
	}
	var build *store.Build
	update(t, f, func(tx *store.Tx) error {
		var err error
		build, err = tx.FindBuild(f.Primary.ID, f.Arch["amd64"].ID, hello.ID)
		if err != nil {
			return err
		}
		q, err := tx.QueueEntryByBuild(build.ID)
		if err != nil {
			return err
		}
		q.BuilderID = f.Bob.ID
		q.Status = store.QueueRunning
		q.Cookie = "c00kie"
		return tx.UpdateQueueEntry(q)
	})

	for i := 0; i < 2; i++ {
		if err := m.Scan(ctx); err != nil {
			t.Fatal(err)
		}
	}
	err := f.Store.View(ctx, func(tx *store.Tx) error {
		bob, err := tx.BuilderByID(f.Bob.ID)
		if err != nil {
			return err
		}
		if bob.OK {
			t.Errorf("bob still enabled after %d failures", bob.FailureCount)
		}
		if got, want := bob.FailNotes, "connection refused"; got != want {
			t.Errorf("FailNotes = %q, want %q", got, want)
		}
		q, err := tx.QueueEntryByBuild(build.ID)
		if err != nil {
			return err
		}
		if q.Status != store.QueueWaiting || q.BuilderID != 0 || q.Cookie != "" {
			t.Errorf("job not reset: status %q, builder %d, cookie %q", q.Status, q.BuilderID, q.Cookie)
		}
		b, err := tx.BuildByID(build.ID)
		if err != nil {
			return err
		}
		if got, want := b.FailureCount, int64(1); got != want {
			t.Errorf("build FailureCount = %d, want %d", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestResetJobGivesUp(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	m := newManager(t, f)
	hello, _ := f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1", ArchHint: "amd64"})
	qc := &queue.Ctx{Store: f.Store, Log: m.Log}
	if _, err := qc.CreateMissingBuilds(ctx, f.Dev); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		update(t, f, func(tx *store.Tx) error {
			b, err := tx.FindBuild(f.Primary.ID, f.Arch["amd64"].ID, hello.ID)
			if err != nil {
				return err
			}
			q, err := tx.QueueEntryByBuild(b.ID)
			if err != nil {
				return err
			}
			return m.resetJob(tx, q, true)
		})
	}
	err := f.Store.View(ctx, func(tx *store.Tx) error {
		b, err := tx.FindBuild(f.Primary.ID, f.Arch["amd64"].ID, hello.ID)
		if err != nil {
			return err
		}
		if b.Status != store.BuildFailed {
			t.Errorf("build status = %q, want %q", b.Status, store.BuildFailed)
		}
		if _, err := tx.QueueEntryByBuild(b.ID); err == nil {
			t.Errorf("queue entry of abandoned build still exists")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCompatible(t *testing.T) {
	virtual := &store.Builder{Processor: "amd64", Virtualized: true}
	metal := &store.Builder{Processor: "amd64"}
	for _, tt := range []struct {
		name    string
		builder *store.Builder
		cand    *store.Candidate
		want    bool
	}{
		{"PrimaryOnMetal", metal, &store.Candidate{Architecture: "amd64", ArchivePurpose: store.PurposePrimary}, true},
		{"PrimaryOnVirtual", virtual, &store.Candidate{Architecture: "amd64", ArchivePurpose: store.PurposePrimary}, false},
		{"PPAOnVirtual", virtual, &store.Candidate{Architecture: "amd64", ArchivePurpose: store.PurposePPA}, true},
		{"PPAOnMetal", metal, &store.Candidate{Architecture: "amd64", ArchivePurpose: store.PurposePPA}, false},
		{"VirtualizedPrimary", virtual, &store.Candidate{Architecture: "amd64", ArchivePurpose: store.PurposePrimary, ArchiveVirtualized: true}, true},
		{"WrongArch", metal, &store.Candidate{Architecture: "arm64", ArchivePurpose: store.PurposePrimary}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compatible(tt.builder, tt.cand); got != tt.want {
				t.Errorf("Compatible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindCandidateSkipsBlocked(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	m := newManager(t, f)
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1", ArchHint: "amd64", BuildDepends: "libfoo-dev", Urgency: "emergency"})
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "libfoo", Version: "1", ArchHint: "amd64", Binaries: "libfoo-dev", Urgency: "low"})
	qc := &queue.Ctx{Store: f.Store, Log: m.Log}
	if _, err := qc.CreateMissingBuilds(ctx, f.Dev); err != nil {
		t.Fatal(err)
	}
	err := f.Store.View(ctx, func(tx *store.Tx) error {
		c, err := FindCandidate(tx, f.Bob)
		if err != nil {
			return err
		}
		if c == nil || c.SourceName != "libfoo" {
			t.Errorf("FindCandidate = %+v, want libfoo", c)
		}
		c, err = FindCandidate(tx, f.Alice)
		if err != nil {
			return err
		}
		if c != nil {
			t.Errorf("FindCandidate(virtual builder) = %+v, want nil", c)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestFindCandidateWaitsForRunning(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	m := newManager(t, f)
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1", ArchHint: "amd64", BuildDepends: "libfoo-dev"})
	libfoo, _ := f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "libfoo", Version: "1", ArchHint: "amd64", Binaries: "libfoo-dev"})
	qc := &queue.Ctx{Store: f.Store, Log: m.Log}
	if _, err := qc.CreateMissingBuilds(ctx, f.Dev); err != nil {
		t.Fatal(err)
	}
	update(t, f, func(tx *store.Tx) error {
		b, err := tx.FindBuild(f.Primary.ID, f.Arch["amd64"].ID, libfoo.ID)
		if err != nil {
			return err
		}
		b.Status = store.BuildBuilding
		b.BuilderID = f.Bob.ID
		if err := tx.UpdateBuild(b); err != nil {
			return err
		}
		q, err := tx.QueueEntryByBuild(b.ID)
		if err != nil {
			return err
		}
		q.BuilderID = f.Bob.ID
		q.Status = store.QueueRunning
		q.Cookie = "c00kie"
		return tx.UpdateQueueEntry(q)
	})
	err := f.Store.View(ctx, func(tx *store.Tx) error {
		c, err := FindCandidate(tx, f.Bob)
		if err != nil {
			return err
		}
		if c != nil {
			t.Errorf("FindCandidate = %s %s, want nil (libfoo is still building)", c.SourceName, c.SourceVersion)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBuilderFailResultDisables(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	m := newManager(t, f)
	s, addr := startSlave(t)
	s.Command = []string{"/bin/sh", "-c", "exit 4"}
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1", ArchHint: "amd64"})
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "world", Version: "1", ArchHint: "amd64"})
	qc := &queue.Ctx{Store: f.Store, Log: m.Log}
	if _, err := qc.CreateMissingBuilds(ctx, f.Dev); err != nil {
		t.Fatal(err)
	}
	update(t, f, func(tx *store.Tx) error {
		f.Bob.URL = addr
		if err := tx.EnsureBuilder(f.Bob); err != nil {
			return err
		}
		f.Alice.OK = false
		return tx.UpdateBuilderState(f.Alice)
	})

	for i := 0; i < m.Config.BuilderFailureLimit; i++ {
		// dispatch
		if err := m.Scan(ctx); err != nil {
			t.Fatal(err)
		}
		s.Wait()
		// collect
		if err := m.Scan(ctx); err != nil {
			t.Fatal(err)
		}
	}

	err := f.Store.View(ctx, func(tx *store.Tx) error {
		bob, err := tx.BuilderByID(f.Bob.ID)
		if err != nil {
			return err
		}
		if bob.OK {
			t.Errorf("bob still enabled after %d BUILDERFAIL results", bob.FailureCount)
		}
		if got, want := bob.FailureCount, int64(m.Config.BuilderFailureLimit); got != want {
			t.Errorf("bob FailureCount = %d, want %d", got, want)
		}
		if _, err := tx.QueueEntryByBuilder(f.Bob.ID); err == nil {
			t.Errorf("disabled builder still has a job assigned")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCompletedJobClearsBuilderFailures(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	m := newManager(t, f)
	s, addr := startSlave(t)
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1", ArchHint: "amd64"})
	qc := &queue.Ctx{Store: f.Store, Log: m.Log}
	if _, err := qc.CreateMissingBuilds(ctx, f.Dev); err != nil {
		t.Fatal(err)
	}
	update(t, f, func(tx *store.Tx) error {
		f.Bob.URL = addr
		if err := tx.EnsureBuilder(f.Bob); err != nil {
			return err
		}
		f.Bob.FailureCount = 1
		f.Bob.FailNotes = "connection refused"
		if err := tx.UpdateBuilderState(f.Bob); err != nil {
			return err
		}
		f.Alice.OK = false
		return tx.UpdateBuilderState(f.Alice)
	})
	failures := func() int64 {
		t.Helper()
		var n int64
		err := f.Store.View(ctx, func(tx *store.Tx) error {
			bob, err := tx.BuilderByID(f.Bob.ID)
			if err != nil {
				return err
			}
			n = bob.FailureCount
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return n
	}

	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if got, want := failures(), int64(1); got != want {
		t.Errorf("after status poll: FailureCount = %d, want %d", got, want)
	}
	s.Wait()
	if err := m.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if got, want := failures(), int64(0); got != want {
		t.Errorf("after completed job: FailureCount = %d, want %d", got, want)
	}
}
