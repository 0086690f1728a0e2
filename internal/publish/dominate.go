package publish

import (
	"context"
	"sort"
	"time"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/store"
)

// newestFirst orders by descending version. Equal versions are ordered by
// descending id, so that the most recent publication wins.
func newestFirst(versions []string, ids []int64) func(i, j int) bool {
	return func(i, j int) bool {
		if versions[i] == versions[j] {
			return ids[i] > ids[j]
		}
		return soyuz.VersionLess(versions[j], versions[i])
	}
}

// dominate is phase B: within every dirty suite, the newest published
// version of each package supersedes all older ones.
func (p *Publisher) dominate(ctx context.Context) error {
	return p.Store.Update(ctx, func(tx *store.Tx) error {
		now := tx.Now()
		deletion := now.Add(p.stayOfExecution())
		if err := p.scheduleDeletions(tx, deletion); err != nil {
			return err
		}
		for _, suite := range p.Dirty() {
			if err := p.dominateSources(tx, suite, now, deletion); err != nil {
				return err
			}
			dases, err := tx.ArchSeries(suite.SeriesID)
			if err != nil {
				return err
			}
			for _, das := range dases {
				if err := p.dominateBinaries(tx, suite, das, now, deletion); err != nil {
					return err
				}
			}
		}
		return p.persistDirty(tx)
	})
}

// scheduleDeletions gives explicitly deleted publications a scheduled
// deletion date and marks their suites dirty.
func (p *Publisher) scheduleDeletions(tx *store.Tx, deletion time.Time) error {
	srcs, err := tx.SourcePublications(store.PubFilter{ArchiveID: p.Archive.ID, Statuses: []string{store.PubDeleted}})
	if err != nil {
		return err
	}
	for _, pub := range srcs {
		if !pub.ScheduledDeletionDate.IsZero() {
			continue
		}
		pub.ScheduledDeletionDate = deletion
		if err := tx.UpdateSourcePublication(pub); err != nil {
			return err
		}
		p.dirty[Suite{pub.SeriesID, pub.Pocket}] = true
	}
	bins, err := tx.BinaryPublications(store.PubFilter{ArchiveID: p.Archive.ID, Statuses: []string{store.PubDeleted}})
	if err != nil {
		return err
	}
	for _, pub := range bins {
		if !pub.ScheduledDeletionDate.IsZero() {
			continue
		}
		pub.ScheduledDeletionDate = deletion
		if err := tx.UpdateBinaryPublication(pub); err != nil {
			return err
		}
		das, err := tx.ArchSeriesByID(pub.ArchSeriesID)
		if err != nil {
			return err
		}
		p.dirty[Suite{das.SeriesID, pub.Pocket}] = true
	}
	return nil
}

func (p *Publisher) dominateSources(tx *store.Tx, suite Suite, now, deletion time.Time) error {
	pubs, err := tx.SourcePublications(store.PubFilter{
		ArchiveID: p.Archive.ID,
		SeriesID:  suite.SeriesID,
		Pocket:    suite.Pocket,
		Statuses:  []string{store.PubPublished},
	})
	if err != nil {
		return err
	}
	byName := make(map[string][]*store.SourcePublication)
	for _, pub := range pubs {
		byName[pub.Name] = append(byName[pub.Name], pub)
	}
	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		versions := make([]string, len(group))
		ids := make([]int64, len(group))
		for i, pub := range group {
			versions[i], ids[i] = pub.Version, pub.ID
		}
		idx := make([]int, len(group))
		for i := range idx {
			idx[i] = i
		}
		less := newestFirst(versions, ids)
		sort.Slice(idx, func(i, j int) bool { return less(idx[i], idx[j]) })
		winner := group[idx[0]]
		for _, i := range idx[1:] {
			loser := group[i]
			loser.Status = store.PubSuperseded
			loser.SupersededBy = winner.SourceID
			loser.DateSuperseded = now
			loser.ScheduledDeletionDate = deletion
			if err := tx.UpdateSourcePublication(loser); err != nil {
				return err
			}
			p.Log.Printf("%s %s superseded by %s", loser.Name, loser.Version, winner.Version)
		}
	}
	return nil
}

func (p *Publisher) dominateBinaries(tx *store.Tx, suite Suite, das *store.ArchSeries, now, deletion time.Time) error {
	pubs, err := tx.BinaryPublications(store.PubFilter{
		ArchiveID:    p.Archive.ID,
		ArchSeriesID: das.ID,
		Pocket:       suite.Pocket,
		Statuses:     []string{store.PubPublished},
	})
	if err != nil {
		return err
	}
	byName := make(map[string][]*store.BinaryPublication)
	for _, pub := range pubs {
		byName[pub.Name] = append(byName[pub.Name], pub)
	}
	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		versions := make([]string, len(group))
		ids := make([]int64, len(group))
		for i, pub := range group {
			versions[i], ids[i] = pub.Version, pub.ID
		}
		idx := make([]int, len(group))
		for i := range idx {
			idx[i] = i
		}
		less := newestFirst(versions, ids)
		sort.Slice(idx, func(i, j int) bool { return less(idx[i], idx[j]) })
		winner := group[idx[0]]
		for _, i := range idx[1:] {
			loser := group[i]
			loser.Status = store.PubSuperseded
			loser.SupersededBy = winner.BinaryID
			loser.DateSuperseded = now
			loser.ScheduledDeletionDate = deletion
			if err := tx.UpdateBinaryPublication(loser); err != nil {
				return err
			}
			p.Log.Printf("%s %s/%s superseded by %s", loser.Name, loser.Version, das.Architecture, winner.Version)
		}
	}
	return nil
}
