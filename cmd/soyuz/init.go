package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/script"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/renameio"
	"gopkg.in/yaml.v3"
)

const initHelp = `soyuz init [-flags]

Create the soyuz root directory layout, write a default soyuz.yaml (unless
one exists) and create or migrate the database.

Example:
  % SOYUZROOT=/srv/soyuz soyuz init
`

func initRoot(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("init", flag.ExitOnError)
	fset.Usage = usage(fset, initHelp)
	fset.Parse(args)

	for _, dir := range []string{
		*root,
		env.LockDir(*root),
		env.OopsDir(*root),
		env.LibrarianDir(*root),
		env.IncomingDir(*root),
		env.ArchiveRoot(*root),
		env.RecipeDir(*root),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	cfgPath := env.ConfigPath(*root)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		b, err := yaml.Marshal(config.Default())
		if err != nil {
			return err
		}
		if err := renameio.WriteFile(cfgPath, b, 0644); err != nil {
			return err
		}
		log.Printf("wrote default configuration to %s", cfgPath)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	st, err := store.Open(env.DatabasePath(*root), log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		return err
	}
	defer st.Close()
	if err := script.Sync(ctx, st, cfg); err != nil {
		return err
	}
	fmt.Printf("soyuz root %s initialized\n", *root)
	return nil
}
