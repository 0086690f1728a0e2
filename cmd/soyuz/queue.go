package main

import (
	"context"
	"flag"
	"net"
	"net/http"

	"github.com/distr1/soyuz/internal/addrfd"
	"github.com/distr1/soyuz/internal/buildd"
	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/queue"
	"github.com/distr1/soyuz/internal/script"
	"github.com/distr1/soyuz/internal/status"
	"github.com/distr1/soyuz/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const queueBuilderHelp = `soyuz queue-builder [-flags]

Create builds (and build queue entries) for source publications which lack
them, retry builds waiting on dependencies and rescore the build queue.
Obsolete series are skipped.

Example:
  % soyuz queue-builder -series=oracular
`

func queueBuilder(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("queue-builder", flag.ExitOnError)
	var (
		seriesName = fset.String("series", "", "if non-empty, only create builds in this series")
	)
	fset.Usage = usage(fset, queueBuilderHelp)
	fset.Parse(args)

	return run(ctx, "queue-builder", func(ctx context.Context, e *script.Env) error {
		var series []*store.Series
		err := e.Store.View(ctx, func(tx *store.Tx) error {
			if *seriesName != "" {
				s, err := tx.SeriesByName(*seriesName)
				if err != nil {
					return err
				}
				series = []*store.Series{s}
				return nil
			}
			all, err := tx.AllSeries()
			if err != nil {
				return err
			}
			for _, s := range all {
				if s.Status != store.SeriesObsolete {
					series = append(series, s)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		q := &queue.Ctx{Store: e.Store, Log: e.Log}
		for _, s := range series {
			n, err := q.CreateMissingBuilds(ctx, s)
			if err != nil {
				return err
			}
			e.Log.Printf("%s: created %d builds", s.Name, n)
		}
		retried, err := q.RetryDepWait(ctx)
		if err != nil {
			return err
		}
		rescored, err := q.Rescore(ctx)
		if err != nil {
			return err
		}
		e.Log.Printf("retried %d dependency waits, rescored %d queue entries", retried, rescored)
		return nil
	})
}

const slaveScannerHelp = `soyuz slave-scanner [-flags]

Poll all builders: collect the results of finished builds and dispatch the
best candidates from the build queue to idle builders. Runs until
interrupted unless -once is given.

Example:
  % soyuz slave-scanner -listen=localhost:8222
`

func slaveScanner(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("slave-scanner", flag.ExitOnError)
	var (
		once   = fset.Bool("once", false, "scan all builders once, then exit")
		listen = fset.String("listen", "", "if non-empty, [host]:port on which to serve Prometheus metrics")
	)
	addrfd := addrfd.RegisterFlags(fset)
	fset.Usage = usage(fset, slaveScannerHelp)
	fset.Parse(args)

	return run(ctx, "slave-scanner", func(ctx context.Context, e *script.Env) error {
		m := &buildd.Manager{
			Store:       e.Store,
			Log:         e.Log,
			Config:      e.Config.Buildd,
			Librarian:   &librarian.Librarian{Dir: env.LibrarianDir(e.Root)},
			IncomingDir: env.IncomingDir(e.Root),
			Dial:        buildd.DialGRPC,
		}
		if *once {
			return m.Scan(ctx)
		}
		eg, ctx := errgroup.WithContext(ctx)
		if *listen != "" {
			ln, err := net.Listen("tcp", *listen)
			if err != nil {
				return err
			}
			addrfd.MustWrite(ln.Addr().String())
			e.Log.Printf("serving metrics on http://%s/metrics", ln.Addr())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			eg.Go(func() error { return status.Serve(ctx, ln, mux, 0) })
		}
		eg.Go(func() error {
			err := m.Run(ctx, e.Config.Buildd.ScanInterval.Duration)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
		return eg.Wait()
	})
}
