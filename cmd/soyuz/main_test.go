package main

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/env"
	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func withRoot(t *testing.T) string {
	t.Helper()
	dir := soyuztest.TempRoot(t)
	old := *root
	*root = dir
	t.Cleanup(func() { *root = old })
	return dir
}

func TestInitRoot(t *testing.T) {
	ctx := context.Background()
	dir := withRoot(t)
	if err := initRoot(ctx, nil); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{
		env.ConfigPath(dir),
		env.DatabasePath(dir),
		env.LockDir(dir),
		env.RecipeDir(dir),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("after init: %v", err)
		}
	}
	cfg, err := config.Load(env.ConfigPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(config.Default(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("written config: diff (-want +got):\n%s", diff)
	}

	// A second init keeps an edited configuration.
	const edited = "publisher:\n  origin: Example\n"
	if err := ioutil.WriteFile(env.ConfigPath(dir), []byte(edited), 0644); err != nil {
		t.Fatal(err)
	}
	if err := initRoot(ctx, nil); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(env.ConfigPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != edited {
		t.Errorf("config after second init = %q, want %q", got, edited)
	}
}

func TestQueueBuilderEmpty(t *testing.T) {
	ctx := context.Background()
	withRoot(t)
	if err := initRoot(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := queueBuilder(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := runJobs(ctx, nil); err != nil {
		t.Fatal(err)
	}
}

func TestSlonyVerb(t *testing.T) {
	dir := withRoot(t)
	const cluster = `name: sl
nodes:
  - {id: 1, name: master, conninfo: dbname=soyuz}
`
	if err := ioutil.WriteFile(filepath.Join(dir, "replication.yaml"), []byte(cluster), 0644); err != nil {
		t.Fatal(err)
	}
	if err := slony(context.Background(), []string{"bogus"}); err == nil {
		t.Errorf("slony bogus = nil, want error")
	}
}
