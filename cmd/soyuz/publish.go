package main

import (
	"context"
	"flag"
	"time"

	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/publish"
	"github.com/distr1/soyuz/internal/script"
	"github.com/distr1/soyuz/internal/store"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/xerrors"
)

const publishFtpmasterHelp = `soyuz publish-ftpmaster [-flags]

Publish the distribution archives (primary, partner and copy archives):
move pending publications into the pool, dominate superseded versions,
write the Sources and Packages indices and the (signed) Release files, then
remove condemned files from the pool.

Example:
  % soyuz publish-ftpmaster -careful
`

func newPublisher(e *script.Env, a *store.Archive, careful bool, signer *openpgp.Entity) *publish.Publisher {
	return &publish.Publisher{
		Store:     e.Store,
		Log:       e.Log,
		Config:    e.Config.Publisher,
		Librarian: &librarian.Librarian{Dir: env.LibrarianDir(e.Root)},
		Archive:   a,
		Root:      publish.ArchiveRoot(env.ArchiveRoot(e.Root), a),
		Careful:   careful,
		Signer:    signer,
	}
}

func signer(e *script.Env) (*openpgp.Entity, error) {
	if e.Config.Publisher.SigningKey == "" {
		return nil, nil
	}
	return publish.LoadSigningKey(e.Config.Publisher.SigningKey)
}

func publishFtpmaster(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("publish-ftpmaster", flag.ExitOnError)
	var (
		careful      = fset.Bool("careful", false, "republish every live publication and rewrite the indices of all suites")
		archiveName  = fset.String("archive", "", "if non-empty, only publish this archive")
		skipDeathRow = fset.Bool("skip_death_row", false, "do not process death row after publishing")
	)
	fset.Usage = usage(fset, publishFtpmasterHelp)
	fset.Parse(args)

	return run(ctx, "publish-ftpmaster", func(ctx context.Context, e *script.Env) error {
		key, err := signer(e)
		if err != nil {
			return err
		}
		var archives []*store.Archive
		err = e.Store.View(ctx, func(tx *store.Tx) error {
			all, err := tx.Archives("")
			if err != nil {
				return err
			}
			for _, a := range all {
				if a.IsPPA() || !a.Enabled || !a.Publish {
					continue
				}
				if *archiveName != "" && a.Name != *archiveName {
					continue
				}
				archives = append(archives, a)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if *archiveName != "" && len(archives) == 0 {
			return xerrors.Errorf("archive %q: %w", *archiveName, store.ErrNotFound)
		}
		for _, a := range archives {
			p := newPublisher(e, a, *careful, key)
			if err := p.Run(ctx); err != nil {
				return err
			}
			if *skipDeathRow {
				continue
			}
			d := &publish.DeathRow{Store: e.Store, Log: e.Log, Archive: a, Root: p.Root}
			n, err := d.Process(ctx)
			if err != nil {
				return err
			}
			e.Log.Printf("%s: removed %d files from the pool", a.Reference(), n)
		}
		return nil
	})
}

const publishPPAHelp = `soyuz publish-ppa [-flags]

Publish every enabled PPA which has pending publications or pending
deletions, and process its death row.

Example:
  % soyuz publish-ppa
`

func publishPPA(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("publish-ppa", flag.ExitOnError)
	var (
		careful = fset.Bool("careful", false, "republish every live publication and rewrite the indices of all suites")
	)
	fset.Usage = usage(fset, publishPPAHelp)
	fset.Parse(args)

	return run(ctx, "publish-ppa", func(ctx context.Context, e *script.Env) error {
		key, err := signer(e)
		if err != nil {
			return err
		}
		var ppas []*store.Archive
		if err := e.Store.View(ctx, func(tx *store.Tx) error {
			var err error
			ppas, err = publish.PendingPPAs(tx)
			return err
		}); err != nil {
			return err
		}
		e.Log.Printf("%d PPAs with pending work", len(ppas))
		for _, a := range ppas {
			p := newPublisher(e, a, *careful, key)
			if err := p.Run(ctx); err != nil {
				// Keep publishing the remaining PPAs.
				rep, oerr := e.Oops.Error(err, map[string]string{"archive": a.Reference()})
				if oerr != nil {
					return err
				}
				e.Log.Printf("%s: %v (%s)", a.Reference(), err, rep.ID)
				continue
			}
			d := &publish.DeathRow{Store: e.Store, Log: e.Log, Archive: a, Root: p.Root}
			if _, err := d.Process(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

const deathRowHelp = `soyuz process-death-row [-flags]

Remove the pool files of superseded and deleted publications whose stay of
execution has passed, unless a live publication still references them.

Example:
  % soyuz process-death-row -archive=primary -dry_run
`

func archiveArg(ctx context.Context, e *script.Env, ref string) (*store.Archive, error) {
	var a *store.Archive
	err := e.Store.View(ctx, func(tx *store.Tx) error {
		var err error
		a, err = tx.ArchiveByReference(ref)
		return err
	})
	return a, err
}

func processDeathRow(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("process-death-row", flag.ExitOnError)
	var (
		archiveRef = fset.String("archive", "primary", "archive to process, e.g. primary or ~alice/ppa")
		dryRun     = fset.Bool("dry_run", false, "only log which files would be removed")
	)
	fset.Usage = usage(fset, deathRowHelp)
	fset.Parse(args)

	return run(ctx, "process-death-row", func(ctx context.Context, e *script.Env) error {
		a, err := archiveArg(ctx, e, *archiveRef)
		if err != nil {
			return err
		}
		d := &publish.DeathRow{
			Store:   e.Store,
			Log:     e.Log,
			Archive: a,
			Root:    publish.ArchiveRoot(env.ArchiveRoot(e.Root), a),
			DryRun:  *dryRun,
		}
		n, err := d.Process(ctx)
		if err != nil {
			return err
		}
		e.Log.Printf("%s: %d files removed (dry run: %v)", a.Reference(), n, *dryRun)
		return nil
	})
}

const expireHelp = `soyuz expire-archive-files [-flags]

Mark the files of PPA publications removed more than -age ago as expired
and delete their librarian copies once nothing references them anymore.

Example:
  % soyuz expire-archive-files -age=720h
`

func expireArchiveFiles(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("expire-archive-files", flag.ExitOnError)
	var (
		age    = fset.Duration("age", 0, "expire publications removed longer ago than this (defaults to publisher.ppa_expiry)")
		dryRun = fset.Bool("dry_run", false, "only log which publications would be expired")
	)
	fset.Usage = usage(fset, expireHelp)
	fset.Parse(args)

	return run(ctx, "expire-archive-files", func(ctx context.Context, e *script.Env) error {
		maxAge := *age
		if maxAge == 0 {
			maxAge = e.Config.Publisher.PPAExpiry.Duration
		}
		var ppas []*store.Archive
		if err := e.Store.View(ctx, func(tx *store.Tx) error {
			var err error
			ppas, err = tx.Archives(store.PurposePPA)
			return err
		}); err != nil {
			return err
		}
		ex := &publish.Expirer{
			Store:     e.Store,
			Log:       e.Log,
			Librarian: &librarian.Librarian{Dir: env.LibrarianDir(e.Root)},
			DryRun:    *dryRun,
		}
		start := time.Now()
		var total int
		for _, a := range ppas {
			n, err := ex.Expire(ctx, a, maxAge)
			if err != nil {
				return err
			}
			total += n
		}
		e.Log.Printf("expired %d publications in %d PPAs in %v", total, len(ppas), time.Since(start))
		return nil
	})
}
