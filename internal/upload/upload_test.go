package upload

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"
)

// writeUpload writes hello_1.0-1.dsc and the files it lists into dir and
// returns the .dsc path.
func writeUpload(t *testing.T, dir string) string {
	t.Helper()
	files := map[string]string{
		"hello_1.0.orig.tar.gz":     "upstream tarball\n",
		"hello_1.0-1.debian.tar.xz": "packaging\n",
	}
	var md5s, sha256s string
	for _, fn := range []string{"hello_1.0.orig.tar.gz", "hello_1.0-1.debian.tar.xz"} {
		path := filepath.Join(dir, fn)
		if err := ioutil.WriteFile(path, []byte(files[fn]), 0644); err != nil {
			t.Fatal(err)
		}
		h, err := librarian.HashFile(path)
		if err != nil {
			t.Fatal(err)
		}
		md5s += fmt.Sprintf("\n %s %d %s", h.MD5, h.Size, fn)
		sha256s += fmt.Sprintf("\n %s %d %s", h.SHA256, h.Size, fn)
	}
	dsc := "Format: 3.0 (quilt)\n" +
		"Source: hello\n" +
		"Binary: hello, hello-doc\n" +
		"Architecture: any all\n" +
		"Version: 1.0-1\n" +
		"Maintainer: Soyuz Test <test@example.com>\n" +
		"Build-Depends: debhelper-compat (= 13), libfoo-dev (>= 1.2) [amd64]\n" +
		"Checksums-Sha256:" + sha256s + "\n" +
		"Files:" + md5s + "\n"
	path := filepath.Join(dir, "hello_1.0-1.dsc")
	if err := ioutil.WriteFile(path, []byte(dsc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newUploader(f *soyuztest.Fixture) *Uploader {
	return &Uploader{
		Store:     f.Store,
		Log:       log.New(ioutil.Discard, "", 0),
		Librarian: &librarian.Librarian{Dir: filepath.Join(f.Root, "librarian")},
	}
}

func TestProcessDsc(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	u := newUploader(f)
	path := writeUpload(t, soyuztest.TempRoot(t))

	target := Target{Archive: "~alice/ppa", Series: "oracular"}
	spr, err := u.ProcessDsc(ctx, path, target)
	if err != nil {
		t.Fatal(err)
	}
	var (
		files []*store.SourceFile
		pubs  []*store.SourcePublication
	)
	err = f.Store.View(ctx, func(tx *store.Tx) error {
		got, err := tx.SourceRelease(f.PPA.ID, "hello", "1.0-1")
		if err != nil {
			return err
		}
		if diff := cmp.Diff(spr, got); diff != "" {
			t.Errorf("SourceRelease: diff (-want +got):\n%s", diff)
		}
		if files, err = tx.SourceFiles(spr.ID); err != nil {
			return err
		}
		pubs, err = tx.SourcePublications(store.PubFilter{ArchiveID: f.PPA.ID})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := spr.ArchHint, "any all"; got != want {
		t.Errorf("ArchHint: got %q, want %q", got, want)
	}
	if got, want := spr.Binaries, "hello, hello-doc"; got != want {
		t.Errorf("Binaries: got %q, want %q", got, want)
	}
	if got, want := spr.Format, "3.0 (quilt)"; got != want {
		t.Errorf("Format: got %q, want %q", got, want)
	}
	var names []string
	for _, sf := range files {
		names = append(names, sf.Filename)
		if _, err := os.Stat(u.Librarian.Path(sf.SHA256)); err != nil {
			t.Errorf("%s not in librarian: %v", sf.Filename, err)
		}
	}
	wantNames := []string{"hello_1.0-1.debian.tar.xz", "hello_1.0-1.dsc", "hello_1.0.orig.tar.gz"}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Errorf("source files: diff (-want +got):\n%s", diff)
	}
	if len(pubs) != 1 || pubs[0].Status != store.PubPending || pubs[0].Pocket != "release" || pubs[0].Component != "main" {
		t.Errorf("unexpected publications %+v", pubs)
	}

	if _, err := u.ProcessDsc(ctx, path, target); !xerrors.Is(err, ErrDuplicate) {
		t.Errorf("second upload: got %v, want %v", err, ErrDuplicate)
	}
	// The same version may be uploaded into a different archive.
	if _, err := u.ProcessDsc(ctx, path, Target{Archive: "primary", Series: "oracular", Pocket: "proposed"}); err != nil {
		t.Errorf("upload into primary: %v", err)
	}
	if _, err := u.ProcessDsc(ctx, path, Target{Archive: "primary", Series: "noble"}); err == nil {
		t.Errorf("upload into the frozen noble release pocket succeeded")
	}
}

func TestProcessDscVerifiesFiles(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	u := newUploader(f)
	dir := soyuztest.TempRoot(t)
	path := writeUpload(t, dir)

	tarball := filepath.Join(dir, "hello_1.0.orig.tar.gz")
	if err := ioutil.WriteFile(tarball, []byte("tampered tarball\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := u.ProcessDsc(ctx, path, Target{Archive: "primary", Series: "oracular"}); !xerrors.Is(err, ErrChecksum) {
		t.Errorf("tampered upload: got %v, want %v", err, ErrChecksum)
	}

	if err := os.Remove(tarball); err != nil {
		t.Fatal(err)
	}
	if _, err := u.ProcessDsc(ctx, path, Target{Archive: "primary", Series: "oracular"}); err == nil {
		t.Errorf("incomplete upload succeeded")
	}

	err := f.Store.View(ctx, func(tx *store.Tx) error {
		_, err := tx.SourceRelease(f.Primary.ID, "hello", "1.0-1")
		return err
	})
	if !xerrors.Is(err, store.ErrNotFound) {
		t.Errorf("rejected upload was recorded: %v", err)
	}
}

func TestParseDscRejectsBadBuildDepends(t *testing.T) {
	fn := filepath.Join(soyuztest.TempRoot(t), "bad_1.dsc")
	dsc := "Source: bad\nVersion: 1\nBuild-Depends: foo (>= \nFiles:\n d41d8cd98f00b204e9800998ecf8427e 0 bad_1.tar.gz\n"
	if err := ioutil.WriteFile(fn, []byte(dsc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseDsc(fn, nil); err == nil {
		t.Errorf("ParseDsc(%q) succeeded unexpectedly", dsc)
	}
}
