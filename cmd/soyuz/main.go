// Binary soyuz runs the archive management tasks: the build queue and
// builder scanner, the publisher, the job runner, uploads, recipe builds,
// replication scripts and the HTTP surfaces.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sort"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/script"
	"github.com/distr1/soyuz/internal/trace"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "path to store a CPU profile at")
	traceDir   = flag.String("trace_dir", "", "if non-empty, directory to write Chrome trace event files of publisher phases, jobs and builder scans into")
	root       = flag.String("root", env.Root, "soyuz root directory (configuration, database, archives), defaults to $SOYUZROOT")
)

// run runs fn as the locked cron script name.
func run(ctx context.Context, name string, fn func(context.Context, *script.Env) error) error {
	s := &script.Script{Name: name, Root: *root}
	return s.Run(ctx, fn)
}

type cmd struct {
	short string
	fn    func(ctx context.Context, args []string) error
}

var verbs = map[string]cmd{
	"init":                 {"create the soyuz root and a default configuration", initRoot},
	"env":                  {"print the soyuz environment", printenv},
	"queue-builder":        {"create builds for new sources and rescore the queue", queueBuilder},
	"slave-scanner":        {"poll builders, collect results and dispatch builds", slaveScanner},
	"publish-ftpmaster":    {"publish the distribution archives", publishFtpmaster},
	"publish-ppa":          {"publish PPAs with pending changes", publishPPA},
	"process-death-row":    {"remove condemned files from the pool", processDeathRow},
	"expire-archive-files": {"expire files of long-removed PPA publications", expireArchiveFiles},
	"run-jobs":             {"run queued jobs", runJobs},
	"copy-package":         {"queue a package copy job", copyPackage},
	"upload":               {"process a source upload (.dsc)", uploadCmd},
	"recipe-poll":          {"build recipes whose upstream changed", recipePoll},
	"slony":                {"generate slonik replication scripts", slony},
	"ls":                   {"list the binary packages of a published suite", ls},
	"export":               {"serve the published archives over HTTP", exportArchive},
	"status":               {"serve the build farm status page", statusPage},
}

func printVerbs() {
	names := make([]string, 0, len(verbs))
	for name := range verbs {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(os.Stderr, "Verbs:\n")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "\t%s - %s\n", name, verbs[name].short)
	}
}

func logic(ctx context.Context) error {
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		soyuz.RegisterAtExit(func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "syntax: soyuz <command> [options]\n\n")
		printVerbs()
		os.Exit(2)
	}
	verb, args := args[0], args[1:]

	if verb == "help" {
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "syntax: soyuz help <verb>\n\n")
			printVerbs()
			os.Exit(2)
		}
		verb = args[0]
		args = []string{"-help"}
	}
	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: soyuz <command> [options]\n")
		os.Exit(2)
	}

	if *traceDir != "" {
		closeTrace, err := trace.Enable(*traceDir, verb)
		if err != nil {
			return err
		}
		soyuz.RegisterAtExit(closeTrace)
	}

	if err := v.fn(ctx, args); err != nil {
		return fmt.Errorf("%s: %+v", verb, err)
	}
	return nil
}

func main() {
	flag.Parse()
	if abs, err := filepath.Abs(*root); err == nil {
		*root = abs
	}
	ctx, canc := soyuz.InterruptibleContext()
	err := logic(ctx)
	canc()
	if aerr := soyuz.RunAtExit(); aerr != nil && err == nil {
		err = aerr
	}
	if err != nil {
		log.Fatal(err)
	}
}
