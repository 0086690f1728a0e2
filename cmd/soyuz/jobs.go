package main

import (
	"context"
	"flag"
	"sort"

	"github.com/distr1/soyuz/internal/jobs"
	"github.com/distr1/soyuz/internal/script"
	"github.com/distr1/soyuz/internal/store"
	"golang.org/x/xerrors"
)

const runJobsHelp = `soyuz run-jobs [-flags] [job type...]

Run all runnable jobs of the given types (all known types if none are
given): waiting jobs whose scheduled start has passed and running jobs whose
lease expired. Failed jobs get an OOPS report.

Example:
  % soyuz run-jobs copy-package
`

func runJobs(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("run-jobs", flag.ExitOnError)
	fset.Usage = usage(fset, runJobsHelp)
	fset.Parse(args)

	return run(ctx, "run-jobs", func(ctx context.Context, e *script.Env) error {
		r := &jobs.Runner{
			Store:  e.Store,
			Log:    e.Log,
			Config: e.Config.Jobs,
			Oops:   e.Oops,
		}
		jobs.Register(r)
		types := fset.Args()
		if len(types) == 0 {
			types = r.Types()
			sort.Strings(types)
		}
		for _, t := range types {
			stats, err := r.RunAll(ctx, t)
			if err != nil {
				return err
			}
			e.Log.Printf("%s: %v", t, stats)
		}
		return nil
	})
}

const copyPackageHelp = `soyuz copy-package [-flags] <source>

Queue a copy-package job, which copies the publication of a source (and
optionally its binaries) into another archive, series and pocket. The job
runs with the next run-jobs.

Example:
  % soyuz copy-package -from=primary -to=~alice/ppa -series=oracular hello
`

func copyPackage(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("copy-package", flag.ExitOnError)
	var (
		version  = fset.String("version", "", "version to copy (defaults to the newest live version)")
		from     = fset.String("from", "primary", "archive to copy from")
		to       = fset.String("to", "", "archive to copy into")
		series   = fset.String("series", "", "series to copy into")
		pocket   = fset.String("pocket", "release", "pocket to copy into")
		binaries = fset.Bool("binaries", false, "copy the built binaries, too")
	)
	fset.Usage = usage(fset, copyPackageHelp)
	fset.Parse(args)
	if fset.NArg() != 1 {
		return xerrors.Errorf("syntax: copy-package [-flags] <source>")
	}
	if *to == "" || *series == "" {
		return xerrors.Errorf("-to and -series must be specified")
	}
	req := jobs.CopyRequest{
		Source:          fset.Arg(0),
		Version:         *version,
		FromArchive:     *from,
		ToArchive:       *to,
		ToSeries:        *series,
		ToPocket:        *pocket,
		IncludeBinaries: *binaries,
	}
	return run(ctx, "copy-package", func(ctx context.Context, e *script.Env) error {
		return e.Store.Update(ctx, func(tx *store.Tx) error {
			j, err := jobs.Enqueue(tx, jobs.TypeCopyPackage, req, e.Config.Jobs.MaxRetries)
			if err != nil {
				return err
			}
			e.Log.Printf("queued job %d: copy %s from %s to %s/%s", j.ID, req.Source, req.FromArchive, req.ToArchive, req.ToSeries)
			return nil
		})
	})
}
