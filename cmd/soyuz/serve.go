package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"

	"github.com/distr1/soyuz/internal/addrfd"
	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/status"
	"github.com/distr1/soyuz/internal/store"
	"github.com/mattn/go-isatty"
)

const exportHelp = `soyuz export [-flags]

Serve the published archives (pool/ and dists/ of every archive) over HTTP,
e.g. for builders fetching build dependencies or for mirrors.

Example:
  ws % soyuz export -listen=:7080
  builder % apt-get update  # with deb http://ws:7080/ubuntu oracular main
`

func serverLog() *log.Logger {
	logger := log.New(os.Stderr, "", 0)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		// Outside of a terminal, journald adds timestamps.
		logger.SetFlags(log.LstdFlags)
	}
	return logger
}

func exportArchive(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("export", flag.ExitOnError)
	var (
		listen   = fset.String("listen", ":7080", "[host]:port listen address for exporting the archives")
		gzip     = fset.Bool("gzip", true, "serve .gz files (if they exist). Typically desired on all networks but local loopback")
		maxConns = fset.Int("max_conns", 256, "maximum number of concurrent connections (0 for no limit)")
		dir      = fset.String("dir", "", "directory to serve (defaults to $SOYUZROOT/archive)")
	)
	addrfd := addrfd.RegisterFlags(fset)
	fset.Usage = usage(fset, exportHelp)
	fset.Parse(args)

	serveDir := *dir
	if serveDir == "" {
		serveDir = env.ArchiveRoot(*root)
	}
	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	serverLog().Printf("exporting %s on %s", serveDir, addr)
	addrfd.MustWrite(addr)
	return status.Serve(ctx, ln, status.ArchiveHandler(serveDir, *gzip), *maxConns)
}

const statusHelp = `soyuz status [-flags]

Serve the build farm status page: builders with their state and current
job, the build queue, the next candidates and the free disk space. Metrics
are served on /metrics and the archives on /archive/.

Example:
  % soyuz status -listen=localhost:8080
`

func statusPage(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("status", flag.ExitOnError)
	var (
		listen     = fset.String("listen", "localhost:8080", "[host]:port listen address")
		candidates = fset.Int("candidates", 20, "number of next build candidates to show")
		maxConns   = fset.Int("max_conns", 64, "maximum number of concurrent connections (0 for no limit)")
	)
	addrfd := addrfd.RegisterFlags(fset)
	fset.Usage = usage(fset, statusHelp)
	fset.Parse(args)

	logger := serverLog()
	// Read-only: no script lock, no config sync.
	if _, err := config.Load(env.ConfigPath(*root)); err != nil {
		return err
	}
	st, err := store.Open(env.DatabasePath(*root), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	logger.Printf("serving status on http://%s/", addr)
	addrfd.MustWrite(addr)
	s := &status.Server{
		Store:      st,
		Log:        logger,
		Root:       env.ArchiveRoot(*root),
		Candidates: *candidates,
	}
	return status.Serve(ctx, ln, s.Handler(true), *maxConns)
}
