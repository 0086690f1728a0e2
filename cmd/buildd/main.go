// Binary buildd runs a builder: it accepts build jobs from the buildd
// scanner over gRPC and runs them one at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/addrfd"
	"github.com/distr1/soyuz/internal/slave"
	"github.com/mattn/go-isatty"
	"google.golang.org/grpc"

	bpb "github.com/distr1/soyuz/pb/builder"
)

const help = `buildd [-flags] <build command> [args...]

buildd runs a builder. The buildd scanner uploads source files to it and
starts builds, which run the build command in a fresh build tree. The
command learns about the job from SOYUZ_* environment variables and signals
its result by exit code:

	0	OK
	1	PACKAGEFAIL
	2	DEPFAIL (missing dependencies in $SOYUZ_OUTPUT_DIR/missing-dependencies)
	3	CHROOTFAIL
	4	BUILDERFAIL

Files written to $SOYUZ_OUTPUT_DIR are the build results.
`

func logic(ctx context.Context) error {
	fset := flag.NewFlagSet("buildd", flag.ExitOnError)
	var (
		listenAddr = fset.String("listen",
			"localhost:8221",
			"[host]:port to serve gRPC requests on (unauthenticated)")

		workDir = fset.String("work_dir",
			"",
			"directory in which to cache uploaded files and run builds")

		processor = fset.String("processor",
			"amd64",
			"processor (architecture) this builder builds for")
	)
	addrfd := addrfd.RegisterFlags(fset)
	fset.Usage = func() {
		fmt.Fprintln(os.Stderr, help)
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", fset.Name())
		fset.PrintDefaults()
	}
	fset.Parse(os.Args[1:])
	if fset.NArg() < 1 {
		fset.Usage()
		os.Exit(2)
	}
	if *workDir == "" {
		return fmt.Errorf("-work_dir must be specified")
	}
	if !soyuz.Architectures[*processor] {
		return fmt.Errorf("unknown -processor %q", *processor)
	}

	logger := log.New(os.Stderr, "", 0)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		// Outside of a terminal, journald adds timestamps.
		logger.SetFlags(log.LstdFlags)
	}
	logger.Printf("buildd for %s, work dir %q, listening on %q", *processor, *workDir, *listenAddr)

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		return err
	}
	addrfd.MustWrite(ln.Addr().String())
	srv := grpc.NewServer()
	s := &slave.Slave{
		WorkDir:   *workDir,
		Processor: *processor,
		Command:   fset.Args(),
		Log:       logger,
	}
	bpb.RegisterBuilderServer(srv, s)
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	return srv.Serve(ln)
}

func main() {
	ctx, canc := soyuz.InterruptibleContext()
	defer canc()
	if err := logic(ctx); err != nil {
		log.Fatal(err)
	}
}
