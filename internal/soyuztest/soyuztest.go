// Package soyuztest contains helpers shared by the tests of several
// packages.
package soyuztest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/distr1/soyuz/internal/store"
)

// Epoch is the fixed clock of Fixture stores.
var Epoch = time.Date(2024, 4, 25, 12, 0, 0, 0, time.UTC)

// RemoveAll wraps os.RemoveAll and fails the test on failure.
func RemoveAll(t testing.TB, path string) {
	if err := os.RemoveAll(path); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

// TempRoot returns a temporary SOYUZROOT which is removed when the test
// finishes.
func TempRoot(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "soyuztest")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { RemoveAll(t, dir) })
	return dir
}

// NewStore opens an empty store in a temporary directory.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(TempRoot(t), "soyuz.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// SetClock makes store transactions see now until the test finishes.
func SetClock(t testing.TB, now func() time.Time) {
	old := store.Now
	store.Now = now
	t.Cleanup(func() { store.Now = old })
}

// Fixture is a store with a primary archive, a PPA, a development series
// (oracular: amd64, i386) and a stable series (noble: amd64) plus two
// builders.
type Fixture struct {
	Store *store.Store
	Root  string

	Primary *store.Archive
	PPA     *store.Archive

	Dev    *store.Series
	Stable *store.Series
	// Arch maps architecture tags to oracular's arch series.
	Arch map[string]*store.ArchSeries

	Bob   *store.Builder // amd64, non-virtual
	Alice *store.Builder // amd64, virtual
}

// NewFixture returns a populated store whose clock is fixed at Epoch.
func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	SetClock(t, func() time.Time { return Epoch })
	root := TempRoot(t)
	st, err := store.Open(filepath.Join(root, "soyuz.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	f := &Fixture{
		Store: st,
		Root:  root,
		Primary: &store.Archive{
			Name:         "primary",
			Purpose:      store.PurposePrimary,
			Distribution: "ubuntu",
			Enabled:      true,
			Publish:      true,
		},
		PPA: &store.Archive{
			Name:        "ppa",
			Owner:       "alice",
			Purpose:     store.PurposePPA,
			Virtualized: true,
			Enabled:     true,
			Publish:     true,
		},
		Dev:    &store.Series{Name: "oracular", Status: store.SeriesDevelopment, NominatedArchIndep: "amd64"},
		Stable: &store.Series{Name: "noble", Status: store.SeriesCurrent, NominatedArchIndep: "amd64"},
		Arch:   make(map[string]*store.ArchSeries),
		Bob:    &store.Builder{Name: "bob", URL: "localhost:1", Processor: "amd64"},
		Alice:  &store.Builder{Name: "alice", URL: "localhost:2", Processor: "amd64", Virtualized: true},
	}
	err = st.Update(context.Background(), func(tx *store.Tx) error {
		for _, a := range []*store.Archive{f.Primary, f.PPA} {
			if err := tx.EnsureArchive(a); err != nil {
				return err
			}
		}
		if err := tx.EnsureSeries(f.Dev, []string{"amd64", "i386"}); err != nil {
			return err
		}
		if err := tx.EnsureSeries(f.Stable, []string{"amd64"}); err != nil {
			return err
		}
		das, err := tx.ArchSeries(f.Dev.ID)
		if err != nil {
			return err
		}
		for _, d := range das {
			f.Arch[d.Architecture] = d
		}
		for _, b := range []*store.Builder{f.Bob, f.Alice} {
			if err := tx.EnsureBuilder(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// Source describes a source upload for AddSource.
type Source struct {
	Name         string
	Version      string
	ArchHint     string // defaults to any
	Component    string // defaults to main
	Urgency      string
	BuildDepends string
	Binaries     string // defaults to Name
	Pocket       string // defaults to release
	Status       string // publication status, defaults to PENDING
	Format       string // defaults to store.DefaultSourceFormat
	Files        []*store.SourceFile
}

// AddSource creates a source release with a publication in archive and
// series.
func (f *Fixture) AddSource(t testing.TB, archive *store.Archive, series *store.Series, src Source) (*store.SourceRelease, *store.SourcePublication) {
	t.Helper()
	if src.ArchHint == "" {
		src.ArchHint = "any"
	}
	if src.Component == "" {
		src.Component = "main"
	}
	if src.Urgency == "" {
		src.Urgency = "medium"
	}
	if src.Binaries == "" {
		src.Binaries = src.Name
	}
	if src.Pocket == "" {
		src.Pocket = "release"
	}
	spr := &store.SourceRelease{
		UploadArchive: archive.ID,
		Name:          src.Name,
		Version:       src.Version,
		Component:     src.Component,
		Section:       "misc",
		Urgency:       src.Urgency,
		ArchHint:      src.ArchHint,
		BuildDepends:  src.BuildDepends,
		Binaries:      src.Binaries,
		Maintainer:    "Soyuz Test <test@example.com>",
		Format:        src.Format,
	}
	spph := &store.SourcePublication{
		ArchiveID: archive.ID,
		SeriesID:  series.ID,
		Pocket:    src.Pocket,
		Component: src.Component,
		Section:   "misc",
		Status:    src.Status,
	}
	err := f.Store.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.CreateSourceRelease(spr, src.Files); err != nil {
			return err
		}
		spph.SourceID = spr.ID
		if spph.Status == store.PubPublished {
			spph.DatePublished = tx.Now()
		}
		return tx.CreateSourcePublication(spph)
	})
	if err != nil {
		t.Fatal(err)
	}
	return spr, spph
}
