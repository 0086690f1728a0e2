package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/distr1/soyuz/internal/replication"
	"golang.org/x/xerrors"
)

const slonyHelp = `soyuz slony [-flags] <script>

Print a slonik script for the Slony-I cluster described in
$SOYUZROOT/replication.yaml. Scripts: init, create-set, subscribe, drop.

Example:
  % soyuz slony init | slonik
  % soyuz slony create-set | slonik
  % soyuz slony subscribe | slonik
`

func slony(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("slony", flag.ExitOnError)
	var (
		cfg = fset.String("config", "", "path to the cluster configuration (defaults to $SOYUZROOT/replication.yaml)")
	)
	fset.Usage = usage(fset, slonyHelp)
	fset.Parse(args)
	if fset.NArg() != 1 {
		return xerrors.Errorf("syntax: slony <%s>", strings.Join(replication.Scripts, "|"))
	}
	path := *cfg
	if path == "" {
		path = filepath.Join(*root, "replication.yaml")
	}
	c, err := replication.Load(path)
	if err != nil {
		return err
	}
	return replication.Generate(os.Stdout, c, fset.Arg(0))
}
