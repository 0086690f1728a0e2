package buildd

import (
	"context"
	"sort"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/queue"
	"github.com/distr1/soyuz/internal/score"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/uuid"
	"golang.org/x/xerrors"

	bpb "github.com/distr1/soyuz/pb/builder"
)

// job is everything needed to start a build on a builder.
type job struct {
	queue *store.QueueEntry
	req   *bpb.BuildRequest
	files []*store.SourceFile
}

// FindCandidate returns the highest scoring waiting candidate which b can
// build and which does not wait for another queued or running build, or nil.
func FindCandidate(tx *store.Tx, b *store.Builder) (*store.Candidate, error) {
	cands, err := tx.WaitingCandidates()
	if err != nil {
		return nil, err
	}
	running, err := tx.RunningCandidates()
	if err != nil {
		return nil, err
	}
	g, err := queue.NewGraph(cands, running, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cands, func(i, j int) bool { return score.Less(cands[j], cands[i]) })
	for _, c := range cands {
		if !Compatible(b, c) {
			continue
		}
		if g.Blocked(c.QueueID) {
			continue
		}
		return c, nil
	}
	return nil, nil
}

// claim assigns the best candidate to b, or returns nil if there is none.
func (m *Manager) claim(ctx context.Context, b *store.Builder) (*job, error) {
	var j *job
	err := m.Store.Update(ctx, func(tx *store.Tx) error {
		c, err := FindCandidate(tx, b)
		if err != nil || c == nil {
			return err
		}
		q, err := tx.QueueEntryByID(c.QueueID)
		if err != nil {
			return err
		}
		build, err := tx.BuildByID(c.BuildID)
		if err != nil {
			return err
		}
		das, err := tx.ArchSeriesByID(c.ArchSeriesID)
		if err != nil {
			return err
		}
		series, err := tx.SeriesByID(das.SeriesID)
		if err != nil {
			return err
		}
		spr, err := tx.SourceReleaseByID(c.SourceID)
		if err != nil {
			return err
		}
		files, err := tx.SourceFiles(spr.ID)
		if err != nil {
			return err
		}
		pocket, err := soyuz.ParsePocket(c.Pocket)
		if err != nil {
			return err
		}

		now := tx.Now()
		q.BuilderID = b.ID
		q.Status = store.QueueRunning
		q.DateStarted = now
		q.Cookie = uuid.New().String()
		if err := tx.UpdateQueueEntry(q); err != nil {
			return err
		}
		build.Status = store.BuildBuilding
		build.BuilderID = b.ID
		build.DateStarted = now
		if err := tx.UpdateBuild(build); err != nil {
			return err
		}

		// The .dsc goes first.
		sort.SliceStable(files, func(i, j int) bool {
			return files[i].Filename == spr.DscFilename && files[j].Filename != spr.DscFilename
		})
		var names []string
		for _, f := range files {
			names = append(names, f.Filename)
		}
		j = &job{
			queue: q,
			files: files,
			req: &bpb.BuildRequest{
				Cookie:     q.Cookie,
				Source:     spr.Name,
				Version:    spr.Version,
				Files:      names,
				Chroot:     series.Name + "-" + das.Architecture,
				ArchiveUrl: m.Config.ArchiveURL,
				Arch:       das.Architecture,
				Suite:      pocket.SuiteName(series.Name),
				ArchIndep:  das.Architecture == series.NominatedArchIndep && soyuz.ArchHintHasIndep(spr.ArchHint),
			},
		}
		return nil
	})
	return j, err
}

// Dispatch starts the best candidate for b on b. Any failure to start the
// build puts the job back into the queue.
func (m *Manager) Dispatch(ctx context.Context, cl bpb.BuilderClient, b *store.Builder) error {
	j, err := m.claim(ctx, b)
	if err != nil {
		return err
	}
	if j == nil {
		return nil // nothing to do
	}
	if err := m.start(ctx, cl, j); err != nil {
		dispatchesTotal.WithLabelValues("error").Inc()
		if rerr := m.Store.Update(ctx, func(tx *store.Tx) error {
			q, err := tx.QueueEntryByID(j.queue.ID)
			if err != nil {
				return err
			}
			return m.resetJob(tx, q, false)
		}); rerr != nil {
			return xerrors.Errorf("resetting job after dispatch failure (%v): %w", err, rerr)
		}
		return xerrors.Errorf("dispatching build %d: %w", j.queue.BuildID, err)
	}
	dispatchesTotal.WithLabelValues("ok").Inc()
	m.Log.Printf("%s: dispatched build %d (%s %s, %s/%s), cookie %s", b.Name, j.queue.BuildID, j.req.Source, j.req.Version, j.req.Suite, j.req.Arch, j.req.Cookie)
	return nil
}

func (m *Manager) start(ctx context.Context, cl bpb.BuilderClient, j *job) error {
	for _, f := range j.files {
		if err := upload(ctx, cl, m.Librarian.Path(f.SHA256), f.Filename); err != nil {
			return xerrors.Errorf("uploading %s: %w", f.Filename, err)
		}
	}
	_, err := cl.Build(ctx, j.req)
	return err
}
