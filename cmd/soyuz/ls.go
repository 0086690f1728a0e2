package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/repo"
	"golang.org/x/xerrors"
)

const lsHelp = `soyuz ls [-flags] <suite>

List the binary packages of a published suite by reading its Packages
index, either from the local archive root or from a mirror.

Example:
  % soyuz ls -arch=i386 oracular-updates
  % soyuz ls -repo=http://ws:7080/ubuntu oracular
`

func ls(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("ls", flag.ExitOnError)
	var (
		repoPath  = fset.String("repo", "", "archive root directory or http(s) URL (defaults to the primary archive below $SOYUZROOT/archive/ubuntu)")
		component = fset.String("component", "main", "component to list")
		arch      = fset.String("arch", "amd64", "architecture to list")
	)
	fset.Usage = usage(fset, lsHelp)
	fset.Parse(args)
	if fset.NArg() != 1 {
		return xerrors.Errorf("syntax: ls [-flags] <suite>")
	}
	base := *repoPath
	if base == "" {
		base = filepath.Join(env.ArchiveRoot(*root), "ubuntu")
	}
	pkgs, err := repo.Packages(ctx, base, fset.Arg(0), *component, *arch)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
	for _, p := range pkgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.Package, p.Version, p.Architecture, p.Size)
	}
	return tw.Flush()
}
