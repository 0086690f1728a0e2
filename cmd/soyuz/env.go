package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/distr1/soyuz/internal/env"
)

const envHelp = `soyuz env [-flags]

Print the paths soyuz uses, in shell syntax.
`

func printenv(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("env", flag.ExitOnError)
	fset.Usage = usage(fset, envHelp)
	fset.Parse(args)
	for _, v := range []struct{ name, value string }{
		{"SOYUZROOT", *root},
		{"CONFIG", env.ConfigPath(*root)},
		{"DATABASE", env.DatabasePath(*root)},
		{"ARCHIVEROOT", env.ArchiveRoot(*root)},
		{"LIBRARIAN", env.LibrarianDir(*root)},
		{"INCOMING", env.IncomingDir(*root)},
		{"RECIPES", env.RecipeDir(*root)},
		{"OOPSDIR", env.OopsDir(*root)},
		{"LOCKDIR", env.LockDir(*root)},
	} {
		fmt.Printf("%s=%q\n", v.name, v.value)
	}
	return nil
}
