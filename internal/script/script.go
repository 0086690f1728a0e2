// Package script runs cron scripts: at most one instance of each script
// runs at a time, and failures end up as OOPS reports.
package script

import (
	"context"
	"log"
	"os"

	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/oops"
	"github.com/distr1/soyuz/internal/store"
	"golang.org/x/xerrors"
)

// Env is passed to the script function.
type Env struct {
	Root   string
	Config *config.Config
	Store  *store.Store
	Log    *log.Logger
	Oops   *oops.Reporter
}

type Script struct {
	Name string
	Root string // defaults to env.Root
	// Log defaults to a logger on stderr prefixed with Name.
	Log *log.Logger
}

// Run runs fn with the lock of the script held. If another instance holds
// the lock, Run logs and returns nil. Errors and panics of fn are written
// as OOPS reports and returned.
func (s *Script) Run(ctx context.Context, fn func(context.Context, *Env) error) (err error) {
	root := s.Root
	if root == "" {
		root = env.Root
	}
	logger := s.Log
	if logger == nil {
		logger = log.New(os.Stderr, s.Name+": ", log.LstdFlags)
	}
	lock, err := Acquire(env.LockFile(root, s.Name))
	if err != nil {
		if xerrors.Is(err, ErrLocked) {
			logger.Printf("%v, exiting", err)
			return nil
		}
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	cfg, err := config.Load(env.ConfigPath(root))
	if err != nil {
		return err
	}
	st, err := store.Open(env.DatabasePath(root), logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := Sync(ctx, st, cfg); err != nil {
		return err
	}
	reporter := &oops.Reporter{Dir: env.OopsDir(root)}
	e := &Env{
		Root:   root,
		Config: cfg,
		Store:  st,
		Log:    logger,
		Oops:   reporter,
	}

	defer func() {
		if r := recover(); r != nil {
			rep, oerr := reporter.Panic(r, map[string]string{"script": s.Name})
			if oerr != nil {
				logger.Printf("writing OOPS: %v", oerr)
				err = xerrors.Errorf("panic: %v", r)
				return
			}
			err = xerrors.Errorf("%s: panic: %v", rep.ID, r)
		}
	}()
	if err := fn(ctx, e); err != nil {
		if ctx.Err() != nil {
			return err
		}
		rep, oerr := reporter.Error(err, map[string]string{"script": s.Name})
		if oerr != nil {
			logger.Printf("writing OOPS: %v", oerr)
			return err
		}
		return xerrors.Errorf("%s: %w", rep.ID, err)
	}
	return nil
}

// Sync creates or updates the series, archives and builders of cfg.
func Sync(ctx context.Context, st *store.Store, cfg *config.Config) error {
	return st.Update(ctx, func(tx *store.Tx) error {
		for _, s := range cfg.Series {
			series := &store.Series{
				Name:               s.Name,
				Status:             s.Status,
				NominatedArchIndep: s.NominatedArchIndep,
			}
			if err := tx.EnsureSeries(series, s.Architectures); err != nil {
				return err
			}
		}
		for _, a := range cfg.Archives {
			archive := &store.Archive{
				Name:               a.Name,
				Owner:              a.Owner,
				Purpose:            a.Purpose,
				Distribution:       cfg.Publisher.Distribution,
				Private:            a.Private,
				Virtualized:        a.Virtualized,
				RelativeBuildScore: int64(a.RelativeBuildScore),
				Enabled:            true,
				Publish:            true,
				Root:               a.Root,
			}
			if err := tx.EnsureArchive(archive); err != nil {
				return err
			}
		}
		for _, b := range cfg.Builders {
			builder := &store.Builder{
				Name:        b.Name,
				URL:         b.URL,
				Processor:   b.Processor,
				Virtualized: b.Virtualized,
				Manual:      b.Manual,
			}
			if err := tx.EnsureBuilder(builder); err != nil {
				return err
			}
		}
		return nil
	})
}
