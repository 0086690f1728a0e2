// Package publish writes archives to disk: it moves pending publications
// into the pool, dominates superseded versions, writes the Sources and
// Packages indices and finally the (signed) Release files.
//
// Each of the four phases commits on its own. A failing phase rolls back
// its own changes and aborts the run; a subsequent run picks up where the
// failed one left off.
package publish

import (
	"context"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/store"
	"github.com/distr1/soyuz/internal/trace"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/xerrors"
)

// Suite identifies a series and pocket.
type Suite struct {
	SeriesID int64
	Pocket   string
}

type Publisher struct {
	Store     *store.Store
	Log       *log.Logger
	Config    config.Publisher
	Librarian *librarian.Librarian
	Archive   *store.Archive
	// Root is the directory containing pool/ and dists/.
	Root string
	// Careful republishes every live publication and rewrites the indices
	// of every suite instead of only the changed ones.
	Careful bool
	// Signer signs Release files if non-nil.
	Signer *openpgp.Entity

	dirty map[Suite]bool
}

// ArchiveRoot returns the directory into which archive a is published
// below base.
func ArchiveRoot(base string, a *store.Archive) string {
	if a.Root != "" {
		return a.Root
	}
	if a.IsPPA() {
		return filepath.Join(base, "~"+a.Owner, a.Name)
	}
	if a.Distribution != "" && a.Purpose == store.PurposePrimary {
		return filepath.Join(base, a.Distribution)
	}
	return filepath.Join(base, a.Distribution+"-"+a.Name)
}

func (p *Publisher) stayOfExecution() time.Duration {
	if p.Archive.IsPPA() {
		return 0
	}
	return p.Config.StayOfExecution.Duration
}

// Run publishes the archive. Suites left dirty by an earlier, failed run
// are rewritten as well.
func (p *Publisher) Run(ctx context.Context) error {
	p.dirty = make(map[Suite]bool)
	if err := p.loadDirty(ctx); err != nil {
		return err
	}
	p.Log.Printf("publishing %s into %s (careful: %v)", p.Archive.Reference(), p.Root, p.Careful)
	for _, phase := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"publish", p.publish},
		{"dominate", p.dominate},
		{"index", p.index},
		{"release", p.release},
	} {
		start := time.Now()
		ev := trace.Event(phase.name, "publisher", 0).Arg("archive", p.Archive.Reference())
		err := phase.fn(ctx)
		ev.Done()
		if err != nil {
			return xerrors.Errorf("%s: phase %s: %w", p.Archive.Reference(), phase.name, err)
		}
		p.Log.Printf("%s: phase %s done in %v", p.Archive.Reference(), phase.name, time.Since(start))
	}
	return nil
}

func (p *Publisher) loadDirty(ctx context.Context) error {
	return p.Store.View(ctx, func(tx *store.Tx) error {
		suites, err := tx.DirtySuites(p.Archive.ID)
		if err != nil {
			return err
		}
		for _, s := range suites {
			p.dirty[Suite{s.SeriesID, s.Pocket}] = true
		}
		return nil
	})
}

// persistDirty records the dirty suites in tx, so that their indices are
// rewritten even if a later phase fails.
func (p *Publisher) persistDirty(tx *store.Tx) error {
	for _, s := range p.Dirty() {
		if err := tx.MarkSuiteDirty(p.Archive.ID, s.SeriesID, s.Pocket); err != nil {
			return err
		}
	}
	return nil
}

// Dirty returns the suites changed by the last Run, sorted.
func (p *Publisher) Dirty() []Suite {
	var suites []Suite
	for s := range p.dirty {
		suites = append(suites, s)
	}
	sort.Slice(suites, func(i, j int) bool {
		if suites[i].SeriesID != suites[j].SeriesID {
			return suites[i].SeriesID < suites[j].SeriesID
		}
		return suites[i].Pocket < suites[j].Pocket
	})
	return suites
}

// frozen reports whether publishing into pocket of series must be refused.
func (p *Publisher) frozen(series *store.Series, pocket string) bool {
	if pocket != soyuz.PocketRelease.String() || !series.ReleasePocketFrozen() {
		return false
	}
	switch p.Archive.Purpose {
	case store.PurposePPA, store.PurposeCopy:
		return false
	}
	return true
}

type txCache struct {
	tx      *store.Tx
	series  map[int64]*store.Series
	das     map[int64]*store.ArchSeries
	sources map[int64]*store.SourceRelease
	builds  map[int64]*store.Build
}

func newTxCache(tx *store.Tx) *txCache {
	return &txCache{
		tx:      tx,
		series:  make(map[int64]*store.Series),
		das:     make(map[int64]*store.ArchSeries),
		sources: make(map[int64]*store.SourceRelease),
		builds:  make(map[int64]*store.Build),
	}
}

func (c *txCache) Series(id int64) (*store.Series, error) {
	if s, ok := c.series[id]; ok {
		return s, nil
	}
	s, err := c.tx.SeriesByID(id)
	if err != nil {
		return nil, err
	}
	c.series[id] = s
	return s, nil
}

func (c *txCache) ArchSeries(id int64) (*store.ArchSeries, error) {
	if d, ok := c.das[id]; ok {
		return d, nil
	}
	d, err := c.tx.ArchSeriesByID(id)
	if err != nil {
		return nil, err
	}
	c.das[id] = d
	return d, nil
}

func (c *txCache) Source(id int64) (*store.SourceRelease, error) {
	if s, ok := c.sources[id]; ok {
		return s, nil
	}
	s, err := c.tx.SourceReleaseByID(id)
	if err != nil {
		return nil, err
	}
	c.sources[id] = s
	return s, nil
}

// SourceOfBinary returns the source release which bpr was built from.
func (c *txCache) SourceOfBinary(bpr *store.BinaryRelease) (*store.SourceRelease, error) {
	b, ok := c.builds[bpr.BuildID]
	if !ok {
		var err error
		b, err = c.tx.BuildByID(bpr.BuildID)
		if err != nil {
			return nil, err
		}
		c.builds[bpr.BuildID] = b
	}
	return c.Source(b.SourceID)
}

// publish is phase A: it copies the files of pending publications into the
// pool and marks them published.
func (p *Publisher) publish(ctx context.Context) error {
	pool := &Pool{Root: p.Root}
	statuses := []string{store.PubPending}
	if p.Careful {
		statuses = store.LiveStatuses
	}
	return p.Store.Update(ctx, func(tx *store.Tx) error {
		cache := newTxCache(tx)
		now := tx.Now()
		srcs, err := tx.SourcePublications(store.PubFilter{ArchiveID: p.Archive.ID, Statuses: statuses})
		if err != nil {
			return err
		}
		for _, pub := range srcs {
			series, err := cache.Series(pub.SeriesID)
			if err != nil {
				return err
			}
			if p.frozen(series, pub.Pocket) {
				p.Log.Printf("refusing to publish %s %s into frozen %s", pub.Name, pub.Version, series.Name)
				continue
			}
			files, err := tx.SourceFiles(pub.SourceID)
			if err != nil {
				return err
			}
			if err := p.addFiles(pool, pub.Component, pub.Name, files); err != nil {
				if xerrors.Is(err, ErrPoolConflict) {
					p.Log.Printf("skipping %s %s: %v", pub.Name, pub.Version, err)
					continue
				}
				return err
			}
			if pub.Status == store.PubPending {
				pub.Status = store.PubPublished
				pub.DatePublished = now
				if err := tx.UpdateSourcePublication(pub); err != nil {
					return err
				}
			}
			p.dirty[Suite{pub.SeriesID, pub.Pocket}] = true
		}

		bins, err := tx.BinaryPublications(store.PubFilter{ArchiveID: p.Archive.ID, Statuses: statuses})
		if err != nil {
			return err
		}
		for _, pub := range bins {
			das, err := cache.ArchSeries(pub.ArchSeriesID)
			if err != nil {
				return err
			}
			series, err := cache.Series(das.SeriesID)
			if err != nil {
				return err
			}
			if p.frozen(series, pub.Pocket) {
				p.Log.Printf("refusing to publish %s %s into frozen %s", pub.Name, pub.Version, series.Name)
				continue
			}
			bpr, err := tx.BinaryReleaseByID(pub.BinaryID)
			if err != nil {
				return err
			}
			err = pool.Add(pub.Component, pub.SourceName, bpr.Filename, p.Librarian.Path(bpr.SHA256), bpr.SHA256)
			if err != nil {
				if xerrors.Is(err, ErrPoolConflict) {
					p.Log.Printf("skipping %s %s/%s: %v", pub.Name, pub.Version, das.Architecture, err)
					continue
				}
				return err
			}
			if pub.Status == store.PubPending {
				pub.Status = store.PubPublished
				pub.DatePublished = now
				if err := tx.UpdateBinaryPublication(pub); err != nil {
					return err
				}
			}
			p.dirty[Suite{das.SeriesID, pub.Pocket}] = true
		}
		return p.persistDirty(tx)
	})
}

func (p *Publisher) addFiles(pool *Pool, component, source string, files []*store.SourceFile) error {
	for _, f := range files {
		if err := pool.Add(component, source, f.Filename, p.Librarian.Path(f.SHA256), f.SHA256); err != nil {
			return err
		}
	}
	return nil
}

// PendingPPAs returns the enabled PPAs which have pending publications or
// unscheduled deletions.
func PendingPPAs(tx *store.Tx) ([]*store.Archive, error) {
	ppas, err := tx.Archives(store.PurposePPA)
	if err != nil {
		return nil, err
	}
	var pending []*store.Archive
	for _, a := range ppas {
		if !a.Enabled || !a.Publish {
			continue
		}
		work, err := tx.HasPendingWork(a.ID)
		if err != nil {
			return nil, err
		}
		if work {
			pending = append(pending, a)
		}
	}
	return pending, nil
}
