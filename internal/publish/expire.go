package publish

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/store"
)

// Expirer marks the files of long-removed publications as expired and
// deletes librarian copies which nothing references anymore.
type Expirer struct {
	Store     *store.Store
	Log       *log.Logger
	Librarian *librarian.Librarian
	DryRun    bool
}

// Expire processes publications of archive removed more than age ago and
// returns how many publications were expired.
func (e *Expirer) Expire(ctx context.Context, archive *store.Archive, age time.Duration) (int, error) {
	txFn := e.Store.Update
	if e.DryRun {
		txFn = e.Store.View
	}
	var expired int
	var candidates []string
	err := txFn(ctx, func(tx *store.Tx) error {
		expired, candidates = 0, nil
		now := tx.Now()
		srcs, bins, err := tx.Expirable(archive.ID, now.Add(-age))
		if err != nil {
			return err
		}
		for _, pub := range srcs {
			files, err := tx.SourceFiles(pub.SourceID)
			if err != nil {
				return err
			}
			for _, f := range files {
				candidates = append(candidates, f.SHA256)
			}
			pub.DateExpired = now
			if err := tx.UpdateSourcePublication(pub); err != nil {
				return err
			}
			expired++
		}
		for _, pub := range bins {
			bpr, err := tx.BinaryReleaseByID(pub.BinaryID)
			if err != nil {
				return err
			}
			candidates = append(candidates, bpr.SHA256)
			pub.DateExpired = now
			if err := tx.UpdateBinaryPublication(pub); err != nil {
				return err
			}
			expired++
		}

		// Decide which librarian files go while the expiry is visible.
		var unreferenced []string
		for _, sum := range candidates {
			ref, err := tx.FileReferenced(sum)
			if err != nil {
				return err
			}
			if !ref {
				unreferenced = append(unreferenced, sum)
			}
		}
		candidates = unreferenced
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, sum := range candidates {
		if e.DryRun {
			e.Log.Printf("would expire %s", e.Librarian.Path(sum))
			continue
		}
		if err := os.Remove(e.Librarian.Path(sum)); err != nil && !os.IsNotExist(err) {
			return expired, err
		}
		e.Log.Printf("expired %s", e.Librarian.Path(sum))
	}
	return expired, nil
}
