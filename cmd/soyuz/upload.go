package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/recipe"
	"github.com/distr1/soyuz/internal/script"
	"github.com/distr1/soyuz/internal/upload"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/xerrors"
)

const uploadHelp = `soyuz upload [-flags] <file.dsc>...

Process source uploads: verify the files listed in each .dsc (which must be
next to it), store them in the librarian and create a pending source
publication in the target archive, series and pocket.

Example:
  % soyuz upload -archive=~alice/ppa -series=oracular hello_1.0-1.dsc
`

func readKeyring(path string) (*openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	kr, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return &kr, nil
}

func uploadCmd(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("upload", flag.ExitOnError)
	var (
		archive   = fset.String("archive", "primary", "archive to upload into, e.g. primary or ~alice/ppa")
		series    = fset.String("series", "", "series to upload into")
		pocket    = fset.String("pocket", "release", "pocket to upload into")
		component = fset.String("component", "main", "component of the source")
		section   = fset.String("section", "", "section of the source (defaults to misc)")
		keyring   = fset.String("keyring", "", "if non-empty, path to an armored keyring: uploads must be signed by one of its keys")
	)
	fset.Usage = usage(fset, uploadHelp)
	fset.Parse(args)
	if fset.NArg() == 0 || *series == "" {
		fset.Usage()
		return xerrors.Errorf("syntax: upload -series=<series> <file.dsc>...")
	}

	var kr *openpgp.EntityList
	if *keyring != "" {
		var err error
		if kr, err = readKeyring(*keyring); err != nil {
			return err
		}
	}
	target := upload.Target{
		Archive:   *archive,
		Series:    *series,
		Pocket:    *pocket,
		Component: *component,
		Section:   *section,
	}
	return run(ctx, "upload", func(ctx context.Context, e *script.Env) error {
		u := &upload.Uploader{
			Store:     e.Store,
			Log:       e.Log,
			Librarian: &librarian.Librarian{Dir: env.LibrarianDir(e.Root)},
			Keyring:   kr,
		}
		for _, path := range fset.Args() {
			spr, err := u.ProcessDsc(ctx, path, target)
			if err != nil {
				return err
			}
			e.Log.Printf("accepted %s %s into %s/%s", spr.Name, spr.Version, *archive, *series)
		}
		return nil
	})
}

const recipePollHelp = `soyuz recipe-poll [-flags]

Check the upstream GitHub repository of every recipe in the recipe
directory and register a new source release (and pending publication) for
each recipe whose branch head or newest release tag changed.

Set $GITHUB_TOKEN to raise the API rate limit.

Example:
  % soyuz recipe-poll -loop
`

func recipePoll(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("recipe-poll", flag.ExitOnError)
	var (
		dir      = fset.String("dir", "", "directory containing recipe .textproto files (defaults to $SOYUZROOT/recipes)")
		loop     = fset.Bool("loop", false, "poll every -interval until interrupted")
		interval = fset.Duration("interval", recipe.Interval, "poll interval with -loop")
	)
	fset.Usage = usage(fset, recipePollHelp)
	fset.Parse(args)

	return run(ctx, "recipe-poll", func(ctx context.Context, e *script.Env) error {
		recipeDir := *dir
		if recipeDir == "" {
			recipeDir = env.RecipeDir(e.Root)
		}
		p := &recipe.Poller{
			Store:     e.Store,
			Log:       e.Log,
			Librarian: &librarian.Librarian{Dir: env.LibrarianDir(e.Root)},
			GitHub:    recipe.NewGitHubClient(ctx, os.Getenv("GITHUB_TOKEN")),
			Dir:       recipeDir,
		}
		for {
			n, err := p.Poll(ctx)
			if err != nil {
				return err
			}
			e.Log.Printf("registered %d recipe builds", n)
			if !*loop {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(*interval):
			}
		}
	})
}
