package publish

import (
	"context"
	"log"

	"github.com/distr1/soyuz/internal/store"
)

// DeathRow removes the pool files of condemned publications: superseded or
// deleted publications whose stay of execution has passed.
type DeathRow struct {
	Store   *store.Store
	Log     *log.Logger
	Archive *store.Archive
	Root    string // archive root
	// DryRun only logs which files would be removed.
	DryRun bool
}

type poolFile struct {
	component, source, filename string
}

// Process removes condemned files which no live publication references
// and returns how many files were removed.
func (d *DeathRow) Process(ctx context.Context) (int, error) {
	txFn := d.Store.Update
	if d.DryRun {
		txFn = d.Store.View
	}
	var removed int
	err := txFn(ctx, func(tx *store.Tx) error {
		removed = 0
		now := tx.Now()
		srcs, bins, err := tx.Condemned(d.Archive.ID, now)
		if err != nil {
			return err
		}
		pool := &Pool{Root: d.Root}
		seen := make(map[poolFile]bool)
		remove := func(pf poolFile) error {
			if seen[pf] {
				return nil
			}
			seen[pf] = true
			inUse, err := tx.FileInUse(d.Archive.ID, pf.filename)
			if err != nil {
				return err
			}
			if inUse {
				return nil
			}
			if !pool.Exists(pf.component, pf.source, pf.filename) {
				return nil
			}
			removed++
			if d.DryRun {
				d.Log.Printf("would remove %s", pool.Path(pf.component, pf.source, pf.filename))
				return nil
			}
			d.Log.Printf("removing %s", pool.Path(pf.component, pf.source, pf.filename))
			return pool.Remove(pf.component, pf.source, pf.filename)
		}

		for _, pub := range srcs {
			files, err := tx.SourceFiles(pub.SourceID)
			if err != nil {
				return err
			}
			for _, f := range files {
				if err := remove(poolFile{pub.Component, pub.Name, f.Filename}); err != nil {
					return err
				}
			}
			pub.DateRemoved = now
			if err := tx.UpdateSourcePublication(pub); err != nil {
				return err
			}
		}
		for _, pub := range bins {
			if err := remove(poolFile{pub.Component, pub.SourceName, pub.Filename}); err != nil {
				return err
			}
			pub.DateRemoved = now
			if err := tx.UpdateBinaryPublication(pub); err != nil {
				return err
			}
		}
		return nil
	})
	return removed, err
}
