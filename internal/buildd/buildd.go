// Package buildd drives the build farm: it polls builders, collects the
// results of finished builds and dispatches the best candidate from the
// build queue to idle builders.
package buildd

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/store"
	"github.com/distr1/soyuz/internal/trace"
	"github.com/google/renameio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	bpb "github.com/distr1/soyuz/pb/builder"
)

// Dialer connects to the builder at addr. The returned function closes the
// connection.
type Dialer func(ctx context.Context, addr string) (bpb.BuilderClient, func() error, error)

// DialGRPC is the default Dialer.
func DialGRPC(ctx context.Context, addr string) (bpb.BuilderClient, func() error, error) {
	conn, err := bpb.Dial(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	return bpb.NewBuilderClient(conn), conn.Close, nil
}

type Manager struct {
	Store     *store.Store
	Log       *log.Logger
	Config    config.Buildd
	Librarian *librarian.Librarian
	// IncomingDir receives build results, in one subdirectory per build.
	IncomingDir string
	Dial        Dialer

	statesMu sync.Mutex
	states   map[string]string // builder name → last seen state
}

// Run scans all builders every interval until ctx is canceled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := m.Scan(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.Log.Printf("scan: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Scan polls every enabled builder in parallel, handling finished builds
// and dispatching new ones.
func (m *Manager) Scan(ctx context.Context) error {
	start := time.Now()
	defer func() { scanDuration.Observe(time.Since(start).Seconds()) }()

	var builders []*store.Builder
	err := m.Store.View(ctx, func(tx *store.Tx) error {
		var err error
		builders, err = tx.Builders()
		return err
	})
	if err != nil {
		return err
	}
	m.statesMu.Lock()
	m.states = make(map[string]string)
	m.statesMu.Unlock()

	eg, ctx := errgroup.WithContext(ctx)
	for i, b := range builders {
		i, b := i, b // copy
		if !b.OK {
			m.setState(b.Name, "DISABLED")
			continue
		}
		eg.Go(func() error {
			ev := trace.Event("scan", "buildd", uint64(i)).Arg("builder", b.Name)
			defer ev.Done()
			if err := m.scanBuilder(ctx, b); err != nil {
				m.Log.Printf("%s: %v", b.Name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	m.updateGauges(ctx)
	return nil
}

func (m *Manager) setState(builder, state string) {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()
	m.states[builder] = state
}

// States returns the builder states seen during the last scan.
func (m *Manager) States() map[string]string {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()
	res := make(map[string]string, len(m.states))
	for k, v := range m.states {
		res[k] = v
	}
	return res
}

func (m *Manager) updateGauges(ctx context.Context) {
	counts := make(map[string]int)
	for _, st := range m.States() {
		counts[st]++
	}
	buildersByState.Reset()
	for st, n := range counts {
		buildersByState.WithLabelValues(st).Set(float64(n))
	}
	var lengths map[string]int
	err := m.Store.View(ctx, func(tx *store.Tx) error {
		var err error
		lengths, err = tx.QueueLength()
		return err
	})
	if err != nil {
		m.Log.Printf("queue length: %v", err)
		return
	}
	queueSize.Reset()
	for arch, n := range lengths {
		queueSize.WithLabelValues(arch).Set(float64(n))
	}
}

func (m *Manager) scanBuilder(ctx context.Context, b *store.Builder) error {
	cl, closeFn, err := m.Dial(ctx, b.URL)
	if err != nil {
		m.setState(b.Name, "UNREACHABLE")
		return m.builderFailed(ctx, b, err)
	}
	defer closeFn()

	statusCtx, canc := context.WithTimeout(ctx, m.Config.StatusTimeout.Duration)
	st, err := cl.Status(statusCtx, &bpb.StatusRequest{})
	canc()
	if err != nil {
		m.setState(b.Name, "UNREACHABLE")
		return m.builderFailed(ctx, b, err)
	}
	m.setState(b.Name, st.State)

	q, err := m.currentJob(ctx, b)
	if err != nil {
		return err
	}

	switch st.State {
	case bpb.StateBuilding:
		if q == nil || q.Cookie != st.Cookie {
			m.Log.Printf("%s: building unknown job (cookie %q), aborting", b.Name, st.Cookie)
			_, err := cl.Abort(ctx, &bpb.AbortRequest{Cookie: st.Cookie})
			return err
		}
		return m.Store.Update(ctx, func(tx *store.Tx) error {
			q, err := tx.QueueEntryByID(q.ID)
			if err != nil {
				return err
			}
			q.Logtail = st.Logtail
			return tx.UpdateQueueEntry(q)
		})

	case bpb.StateAborting:
		return nil

	case bpb.StateWaiting:
		if q != nil && q.Cookie == st.Cookie {
			if err := m.HandleResult(ctx, cl, b, q, st); err != nil {
				return xerrors.Errorf("handling result of build %d: %w", q.BuildID, err)
			}
		} else {
			m.Log.Printf("%s: discarding result of unknown job (cookie %q)", b.Name, st.Cookie)
		}
		_, err := cl.Clean(ctx, &bpb.CleanRequest{})
		return err

	case bpb.StateIdle:
		if q != nil {
			// The builder lost the job, e.g. because it was restarted.
			m.Log.Printf("%s: idle, but assigned build %d; requeueing", b.Name, q.BuildID)
			if err := m.Store.Update(ctx, func(tx *store.Tx) error {
				return m.resetJob(tx, q, false)
			}); err != nil {
				return err
			}
		}
		if b.Manual {
			return nil
		}
		return m.Dispatch(ctx, cl, b)

	default:
		return xerrors.Errorf("unknown builder state %q", st.State)
	}
}

func (m *Manager) currentJob(ctx context.Context, b *store.Builder) (*store.QueueEntry, error) {
	var q *store.QueueEntry
	err := m.Store.View(ctx, func(tx *store.Tx) error {
		var err error
		q, err = tx.QueueEntryByBuilder(b.ID)
		if xerrors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	return q, err
}

// builderFailed records a failure to talk to b. Builders which fail too
// often are disabled and their job is requeued.
func (m *Manager) builderFailed(ctx context.Context, b *store.Builder, reason error) error {
	m.Log.Printf("%s: %v", b.Name, reason)
	return m.Store.Update(ctx, func(tx *store.Tx) error {
		cur, err := m.countBuilderFailure(tx, b.ID, reason.Error())
		if err != nil {
			return err
		}
		*b = *cur
		if cur.OK {
			return nil
		}
		q, err := tx.QueueEntryByBuilder(cur.ID)
		if xerrors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return m.resetJob(tx, q, true)
	})
}

// countBuilderFailure increments the failure counter of the builder with id
// builderID and disables it once BuilderFailureLimit is reached.
func (m *Manager) countBuilderFailure(tx *store.Tx, builderID int64, notes string) (*store.Builder, error) {
	cur, err := tx.BuilderByID(builderID)
	if err != nil {
		return nil, err
	}
	cur.FailureCount++
	cur.FailNotes = notes
	if cur.OK && cur.FailureCount >= int64(m.Config.BuilderFailureLimit) {
		m.Log.Printf("%s: failed %d times, disabling", cur.Name, cur.FailureCount)
		cur.OK = false
	}
	if err := tx.UpdateBuilderState(cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// clearBuilderFailures resets the failure counter of the builder with id
// builderID after it completed a job.
func clearBuilderFailures(tx *store.Tx, builderID int64) error {
	cur, err := tx.BuilderByID(builderID)
	if err != nil {
		return err
	}
	if cur.FailureCount == 0 {
		return nil
	}
	cur.FailureCount = 0
	cur.FailNotes = ""
	return tx.UpdateBuilderState(cur)
}

// resetJob puts q back into the queue. With countFailure, the job failure
// counter of the build is incremented and builds which failed too often
// are given up on.
func (m *Manager) resetJob(tx *store.Tx, q *store.QueueEntry, countFailure bool) error {
	build, err := tx.BuildByID(q.BuildID)
	if err != nil {
		return err
	}
	if countFailure {
		build.FailureCount++
		if build.FailureCount >= int64(m.Config.JobFailureLimit) {
			m.Log.Printf("build %d: failed %d times, giving up", build.ID, build.FailureCount)
			build.Status = store.BuildFailed
			build.DateFinished = tx.Now()
			if err := tx.UpdateBuild(build); err != nil {
				return err
			}
			return tx.DeleteQueueEntry(q.ID)
		}
	}
	build.Status = store.BuildNeedsBuild
	build.BuilderID = 0
	build.DateStarted = time.Time{}
	if err := tx.UpdateBuild(build); err != nil {
		return err
	}
	q.BuilderID = 0
	q.Status = store.QueueWaiting
	q.Cookie = ""
	q.DateStarted = time.Time{}
	q.Logtail = ""
	return tx.UpdateQueueEntry(q)
}

// fetch retrieves path from the builder into dest.
func fetch(ctx context.Context, cl bpb.BuilderClient, path, dest string) error {
	stream, err := cl.Retrieve(ctx, &bpb.RetrieveRequest{Path: path})
	if err != nil {
		return err
	}
	t, err := renameio.TempFile("", dest)
	if err != nil {
		return err
	}
	defer t.Cleanup()
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Errorf("retrieving %s: %w", path, err)
		}
		if _, err := t.Write(chunk.GetChunk()); err != nil {
			return err
		}
	}
	return t.CloseAtomicallyReplace()
}

// upload stores the file at src on the builder as path.
func upload(ctx context.Context, cl bpb.BuilderClient, src, path string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	upcl, err := cl.Store(ctx)
	if err != nil {
		return err
	}
	const chunkSize = 1 * 1024 * 1024 // 1 MiB
	buf := make([]byte, chunkSize)
	first := true
	for {
		n, err := f.Read(buf)
		if err != nil && err != io.EOF {
			return err
		}
		if n > 0 || first {
			chunk := &bpb.Chunk{Chunk: buf[:n]}
			if first {
				chunk.Path = path
				first = false
			}
			if err := upcl.Send(chunk); err != nil {
				return err
			}
		}
		if err == io.EOF {
			break
		}
	}
	_, err = upcl.CloseAndRecv()
	return err
}

// HandleResult collects the result of the finished job q from builder b
// and updates the build accordingly.
func (m *Manager) HandleResult(ctx context.Context, cl bpb.BuilderClient, b *store.Builder, q *store.QueueEntry, st *bpb.StatusResponse) error {
	dir := filepath.Join(m.IncomingDir, strconv.FormatInt(q.BuildID, 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	logPath := filepath.Join(dir, bpb.LogFilename)
	if err := fetch(ctx, cl, bpb.LogFilename, logPath); err != nil {
		m.Log.Printf("%s: build %d: %v", b.Name, q.BuildID, err)
		logPath = ""
	}
	result := st.Result
	var files []string
	if result == bpb.ResultOK {
		for _, fn := range st.Files {
			if filepath.Base(fn) != fn {
				return status.Errorf(codes.InvalidArgument, "invalid result file name %q", fn)
			}
			if err := fetch(ctx, cl, fn, filepath.Join(dir, fn)); err != nil {
				m.Log.Printf("%s: build %d: %v", b.Name, q.BuildID, err)
				result = bpb.ResultBuilderFail
				break
			}
			files = append(files, filepath.Join(dir, fn))
		}
	}
	resultsTotal.WithLabelValues(result).Inc()
	m.Log.Printf("%s: build %d finished: %s", b.Name, q.BuildID, result)

	return m.Store.Update(ctx, func(tx *store.Tx) error {
		build, err := tx.BuildByID(q.BuildID)
		if err != nil {
			return err
		}
		build.LogFilename = logPath
		if result != bpb.ResultBuilderFail {
			if err := clearBuilderFailures(tx, b.ID); err != nil {
				return err
			}
		}
		finish := func(status string) error {
			build.Status = status
			build.DateFinished = tx.Now()
			if err := tx.UpdateBuild(build); err != nil {
				return err
			}
			return tx.DeleteQueueEntry(q.ID)
		}
		switch result {
		case bpb.ResultOK:
			if err := m.importBinaries(tx, build, files); err != nil {
				m.Log.Printf("build %d: importing binaries: %v", build.ID, err)
				return finish(store.BuildFailedUpload)
			}
			return finish(store.BuildFullyBuilt)

		case bpb.ResultDepFail:
			build.Dependencies = st.Dependencies
			return finish(store.BuildDepWait)

		case bpb.ResultPackageFail:
			return finish(store.BuildFailed)

		case bpb.ResultChrootFail:
			return finish(store.BuildChrootWait)

		case bpb.ResultBuilderFail:
			notes := "build " + strconv.FormatInt(build.ID, 10) + " failed with BUILDERFAIL"
			cur, err := m.countBuilderFailure(tx, b.ID, notes)
			if err != nil {
				return err
			}
			*b = *cur
			if err := tx.UpdateBuild(build); err != nil {
				return err
			}
			return m.resetJob(tx, q, true)

		default: // GIVENBACK, ABORTED
			if err := tx.UpdateBuild(build); err != nil {
				return err
			}
			return m.resetJob(tx, q, false)
		}
	})
}

// Compatible reports whether builder b can build candidate c. PPAs and
// virtualized archives need virtualized builders, all other archives need
// non-virtualized builders.
func Compatible(b *store.Builder, c *store.Candidate) bool {
	if c.Architecture != b.Processor {
		return false
	}
	needVirtual := c.ArchiveVirtualized || c.ArchivePurpose == store.PurposePPA
	return needVirtual == b.Virtualized
}
