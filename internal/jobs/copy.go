package jobs

import (
	"context"
	"encoding/json"
	"log"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/queue"
	"github.com/distr1/soyuz/internal/store"
	"golang.org/x/xerrors"
)

// Job types registered by Register.
const (
	TypeCopyPackage  = "copy-package"
	TypeRetryDepWait = "retry-depwait"
)

var (
	// ErrAlreadyPublished is returned when the target already publishes the
	// copied version.
	ErrAlreadyPublished = xerrors.New("already published in target")
	// ErrFrozen is returned when copying into a frozen release pocket.
	ErrFrozen = xerrors.New("release pocket is frozen")
)

// CopyRequest is the payload of copy-package jobs.
type CopyRequest struct {
	Source  string `json:"source"`
	Version string `json:"version,omitempty"` // newest live version if empty

	FromArchive string `json:"from_archive"` // e.g. primary or ~alice/ppa
	ToArchive   string `json:"to_archive"`
	ToSeries    string `json:"to_series"`
	ToPocket    string `json:"to_pocket"`

	IncludeBinaries bool `json:"include_binaries"`
}

type Copier struct {
	Store *store.Store
	Log   *log.Logger
}

// Run is the copy-package Handler.
func (c *Copier) Run(ctx context.Context, job *store.Job) error {
	var req CopyRequest
	if err := json.Unmarshal([]byte(job.Payload), &req); err != nil {
		return xerrors.Errorf("decoding payload: %w", err)
	}
	return c.Copy(ctx, req)
}

// Copy publishes a source (and optionally its binaries) from one archive
// into another archive, series and pocket. The new publications are
// PENDING until the next publisher run.
func (c *Copier) Copy(ctx context.Context, req CopyRequest) error {
	pocket, err := soyuz.ParsePocket(req.ToPocket)
	if err != nil {
		return err
	}
	return c.Store.Update(ctx, func(tx *store.Tx) error {
		from, err := tx.ArchiveByReference(req.FromArchive)
		if err != nil {
			return err
		}
		to, err := tx.ArchiveByReference(req.ToArchive)
		if err != nil {
			return err
		}
		series, err := tx.SeriesByName(req.ToSeries)
		if err != nil {
			return err
		}
		if pocket == soyuz.PocketRelease && series.ReleasePocketFrozen() &&
			to.Purpose != store.PurposePPA && to.Purpose != store.PurposeCopy {
			return xerrors.Errorf("copying %s into %s: %w", req.Source, series.Name, ErrFrozen)
		}

		pubs, err := tx.SourcePublications(store.PubFilter{
			ArchiveID: from.ID,
			Name:      req.Source,
			Statuses:  store.LiveStatuses,
		})
		if err != nil {
			return err
		}
		var src *store.SourcePublication
		for _, pub := range pubs {
			if req.Version != "" && pub.Version != req.Version {
				continue
			}
			if src == nil || soyuz.VersionLess(src.Version, pub.Version) {
				src = pub
			}
		}
		if src == nil {
			return xerrors.Errorf("%s %s in %s: %w", req.Source, req.Version, from.Reference(), store.ErrNotFound)
		}

		existing, err := tx.SourcePublications(store.PubFilter{
			ArchiveID: to.ID,
			SeriesID:  series.ID,
			Pocket:    pocket.String(),
			Name:      req.Source,
			Statuses:  store.LiveStatuses,
		})
		if err != nil {
			return err
		}
		for _, pub := range existing {
			if pub.Version == src.Version {
				return xerrors.Errorf("%s %s in %s %s: %w", src.Name, src.Version, to.Reference(), pocket.SuiteName(series.Name), ErrAlreadyPublished)
			}
		}

		err = tx.CreateSourcePublication(&store.SourcePublication{
			ArchiveID: to.ID,
			SeriesID:  series.ID,
			Pocket:    pocket.String(),
			Component: src.Component,
			Section:   src.Section,
			SourceID:  src.SourceID,
		})
		if err != nil {
			return err
		}
		c.Log.Printf("copied %s %s from %s to %s %s", src.Name, src.Version, from.Reference(), to.Reference(), pocket.SuiteName(series.Name))
		if !req.IncludeBinaries {
			return nil
		}
		n, err := copyBinaries(tx, from, to, series, pocket.String(), src.SourceID)
		if err != nil {
			return err
		}
		c.Log.Printf("copied %d binary publications of %s %s", n, src.Name, src.Version)
		return nil
	})
}

func copyBinaries(tx *store.Tx, from, to *store.Archive, series *store.Series, pocket string, sprID int64) (int, error) {
	targets, err := tx.ArchSeries(series.ID)
	if err != nil {
		return 0, err
	}
	builds, err := tx.BuildsOfSource(from.ID, sprID)
	if err != nil {
		return 0, err
	}
	var copied int
	for _, b := range builds {
		if b.Status != store.BuildFullyBuilt {
			continue
		}
		das, err := tx.ArchSeriesByID(b.ArchSeriesID)
		if err != nil {
			return 0, err
		}
		bprs, err := tx.BinariesOfBuild(b.ID)
		if err != nil {
			return 0, err
		}
		for _, bpr := range bprs {
			for _, target := range targets {
				if !target.Enabled {
					continue
				}
				if bpr.Arch != soyuz.ArchIndep && target.Architecture != das.Architecture {
					continue
				}
				existing, err := tx.BinaryPublications(store.PubFilter{
					ArchiveID:    to.ID,
					ArchSeriesID: target.ID,
					Pocket:       pocket,
					Name:         bpr.Name,
					Statuses:     store.LiveStatuses,
				})
				if err != nil {
					return 0, err
				}
				dup := false
				for _, pub := range existing {
					dup = dup || pub.Version == bpr.Version
				}
				if dup {
					continue
				}
				err = tx.CreateBinaryPublication(&store.BinaryPublication{
					ArchiveID:    to.ID,
					ArchSeriesID: target.ID,
					Pocket:       pocket,
					Component:    bpr.Component,
					Section:      bpr.Section,
					Priority:     bpr.Priority,
					BinaryID:     bpr.ID,
				})
				if err != nil {
					return 0, err
				}
				copied++
			}
		}
	}
	return copied, nil
}

// Register registers the built-in job types with r.
func Register(r *Runner) {
	c := &Copier{Store: r.Store, Log: r.Log}
	r.Register(TypeCopyPackage, c.Run)
	q := &queue.Ctx{Store: r.Store, Log: r.Log}
	r.Register(TypeRetryDepWait, func(ctx context.Context, job *store.Job) error {
		n, err := q.RetryDepWait(ctx)
		if err != nil {
			return Retry(err)
		}
		r.Log.Printf("%d builds no longer wait for dependencies", n)
		return nil
	})
}
