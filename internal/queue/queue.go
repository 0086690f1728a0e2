// Package queue maintains the build queue: it creates builds for newly
// published sources, retries builds waiting on dependencies and rescores
// waiting entries.
package queue

import (
	"context"
	"log"
	"strings"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/score"
	"github.com/distr1/soyuz/internal/store"
	"golang.org/x/xerrors"
	"pault.ag/go/debian/dependency"
	"pault.ag/go/debian/version"
)

type Ctx struct {
	Store *store.Store
	Log   *log.Logger
}

// CreateMissingBuilds creates a build (and queue entry) for each live
// source publication in series which lacks one on an architecture its
// Architecture field allows. It returns the number of builds created.
func (c *Ctx) CreateMissingBuilds(ctx context.Context, series *store.Series) (int, error) {
	var created int
	err := c.Store.Update(ctx, func(tx *store.Tx) error {
		created = 0
		das, err := tx.ArchSeries(series.ID)
		if err != nil {
			return err
		}
		pubs, err := tx.SourcePublications(store.PubFilter{
			SeriesID:        series.ID,
			Statuses:        store.LiveStatuses,
			EnabledArchives: true,
		})
		if err != nil {
			return err
		}
		archives := make(map[int64]*store.Archive)
		for _, pub := range pubs {
			archive, ok := archives[pub.ArchiveID]
			if !ok {
				if archive, err = tx.ArchiveByID(pub.ArchiveID); err != nil {
					return err
				}
				archives[pub.ArchiveID] = archive
			}
			spr, err := tx.SourceReleaseByID(pub.SourceID)
			if err != nil {
				return err
			}
			for _, d := range buildArchs(spr.ArchHint, series, das) {
				_, err := tx.FindBuild(archive.ID, d.ID, spr.ID)
				if err == nil {
					continue // already exists
				}
				if !xerrors.Is(err, store.ErrNotFound) {
					return err
				}
				b := &store.Build{
					ArchiveID:    archive.ID,
					ArchSeriesID: d.ID,
					SourceID:     spr.ID,
					Pocket:       pub.Pocket,
				}
				if err := tx.CreateBuild(b); err != nil {
					return err
				}
				if err := enqueue(tx, b, archive, spr, pub.Component); err != nil {
					return err
				}
				c.Log.Printf("created build %d: %s %s on %s/%s in %s", b.ID, spr.Name, spr.Version, series.Name, d.Architecture, archive.Reference())
				created++
			}
		}
		return nil
	})
	return created, err
}

// buildArchs returns the architectures of das on which a source with
// Architecture field hint needs to be built.
func buildArchs(hint string, series *store.Series, das []*store.ArchSeries) []*store.ArchSeries {
	var archs []*store.ArchSeries
	for _, d := range das {
		if soyuz.ArchHintIndepOnly(hint) {
			if d.Architecture == series.NominatedArchIndep {
				archs = append(archs, d)
			}
			continue
		}
		if soyuz.ArchHintAllows(hint, d.Architecture) {
			archs = append(archs, d)
		}
	}
	return archs
}

func enqueue(tx *store.Tx, b *store.Build, archive *store.Archive, spr *store.SourceRelease, component string) error {
	q := &store.QueueEntry{BuildID: b.ID}
	q.LastScore = score.Score(&store.Candidate{
		ArchivePurpose:     archive.Purpose,
		ArchivePrivate:     archive.Private,
		RelativeBuildScore: archive.RelativeBuildScore,
		Pocket:             b.Pocket,
		Component:          component,
		Urgency:            spr.Urgency,
		DateQueued:         tx.Now(),
	}, tx.Now())
	return tx.CreateQueueEntry(q)
}

// RetryDepWait moves builds waiting for dependencies back into the queue
// once every missing dependency is published in the build's archive and
// architecture. It returns the number of retried builds.
func (c *Ctx) RetryDepWait(ctx context.Context) (int, error) {
	var retried int
	err := c.Store.Update(ctx, func(tx *store.Tx) error {
		retried = 0
		builds, err := tx.BuildsByStatus(store.BuildDepWait)
		if err != nil {
			return err
		}
		for _, b := range builds {
			ok, err := dependenciesSatisfied(tx, b)
			if err != nil {
				c.Log.Printf("build %d: %v", b.ID, err)
				continue
			}
			if !ok {
				continue
			}
			archive, err := tx.ArchiveByID(b.ArchiveID)
			if err != nil {
				return err
			}
			spr, err := tx.SourceReleaseByID(b.SourceID)
			if err != nil {
				return err
			}
			b.Status = store.BuildNeedsBuild
			b.Dependencies = ""
			b.BuilderID = 0
			if err := tx.UpdateBuild(b); err != nil {
				return err
			}
			if _, err := tx.QueueEntryByBuild(b.ID); err == nil {
				continue
			}
			if err := enqueue(tx, b, archive, spr, spr.Component); err != nil {
				return err
			}
			c.Log.Printf("build %d (%s %s): dependencies satisfied, retrying", b.ID, spr.Name, spr.Version)
			retried++
		}
		return nil
	})
	return retried, err
}

func dependenciesSatisfied(tx *store.Tx, b *store.Build) (bool, error) {
	if strings.TrimSpace(b.Dependencies) == "" {
		return true, nil
	}
	deps, err := dependency.Parse(b.Dependencies)
	if err != nil {
		return false, xerrors.Errorf("parsing dependencies %q: %w", b.Dependencies, err)
	}
	for _, rel := range deps.Relations {
		satisfied := false
		for _, poss := range rel.Possibilities {
			pubs, err := tx.BinaryPublications(store.PubFilter{
				ArchiveID:    b.ArchiveID,
				ArchSeriesID: b.ArchSeriesID,
				Name:         poss.Name,
				Statuses:     []string{store.PubPublished},
			})
			if err != nil {
				return false, err
			}
			for _, pub := range pubs {
				if poss.Version == nil {
					satisfied = true
					break
				}
				v, err := version.Parse(pub.Version)
				if err != nil {
					continue
				}
				if poss.Version.SatisfiedBy(v) {
					satisfied = true
					break
				}
			}
			if satisfied {
				break
			}
		}
		if !satisfied {
			return false, nil
		}
	}
	return true, nil
}

// Rescore recomputes the score of every waiting queue entry whose score was
// not set manually. It returns the number of rescored entries.
func (c *Ctx) Rescore(ctx context.Context) (int, error) {
	var rescored int
	err := c.Store.Update(ctx, func(tx *store.Tx) error {
		rescored = 0
		cands, err := tx.WaitingCandidates()
		if err != nil {
			return err
		}
		now := tx.Now()
		for _, cand := range cands {
			if cand.Manual {
				continue
			}
			s := score.Score(cand, now)
			if s == cand.LastScore {
				continue
			}
			if err := tx.SetScore(cand.QueueID, s); err != nil {
				return err
			}
			rescored++
		}
		return nil
	})
	return rescored, err
}
