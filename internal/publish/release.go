package publish

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/renameio"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/clearsign"
	"golang.org/x/xerrors"
)

// LoadSigningKey reads the first entity with a private key from the armored
// key ring at path.
func LoadSigningKey(path string) (*openpgp.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	el, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	for _, e := range el {
		if e.PrivateKey != nil {
			if e.PrivateKey.Encrypted {
				return nil, xerrors.Errorf("%s: private key is passphrase-protected", path)
			}
			return e, nil
		}
	}
	return nil, xerrors.Errorf("%s: no private key found", path)
}

type indexFile struct {
	Path string // relative to dists/<suite>/
	librarian.Hashes
}

// indexFiles hashes every index below dir, sorted by path.
func indexFiles(dir string) ([]indexFile, error) {
	var files []indexFile
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if !strings.Contains(rel, string(filepath.Separator)) {
			return nil // Release, InRelease, Release.gpg
		}
		h, err := librarian.HashFile(path)
		if err != nil {
			return err
		}
		files = append(files, indexFile{Path: filepath.ToSlash(rel), Hashes: h})
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

func (p *Publisher) origin() (origin, label string) {
	if p.Archive.IsPPA() {
		o := "PPA-" + p.Archive.Owner + "-" + p.Archive.Name
		return o, o
	}
	return p.Config.Origin, p.Config.Label
}

// release is phase D: it writes (and signs) the Release file of every
// dirty suite and clears the dirty marks.
func (p *Publisher) release(ctx context.Context) error {
	return p.Store.Update(ctx, func(tx *store.Tx) error {
		cache := newTxCache(tx)
		for _, suite := range p.Dirty() {
			series, err := cache.Series(suite.SeriesID)
			if err != nil {
				return err
			}
			name, err := suiteName(series, suite.Pocket)
			if err != nil {
				return err
			}
			dases, err := tx.ArchSeries(series.ID)
			if err != nil {
				return err
			}
			var archs []string
			for _, das := range dases {
				if das.Enabled {
					archs = append(archs, das.Architecture)
				}
			}
			sort.Strings(archs)
			if err := p.writeRelease(tx.Now(), filepath.Join(p.Root, "dists", name), name, series.Name, archs); err != nil {
				return xerrors.Errorf("%s: %w", name, err)
			}
			if err := tx.ClearDirtySuite(p.Archive.ID, suite.SeriesID, suite.Pocket); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Publisher) writeRelease(now time.Time, dir, suite, codename string, archs []string) error {
	files, err := indexFiles(dir)
	if err != nil {
		return err
	}
	var md5s, sha1s, sha256s strings.Builder
	for _, f := range files {
		fmt.Fprintf(&md5s, "\n%s %16d %s", f.MD5, f.Size, f.Path)
		fmt.Fprintf(&sha1s, "\n%s %16d %s", f.SHA1, f.Size, f.Path)
		fmt.Fprintf(&sha256s, "\n%s %16d %s", f.SHA256, f.Size, f.Path)
	}
	origin, label := p.origin()
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	paragraph{}.
		add("Origin", origin).
		add("Label", label).
		add("Suite", suite).
		add("Codename", codename).
		add("Date", now.Format("Mon, 02 Jan 2006 15:04:05 UTC")).
		add("Architectures", strings.Join(archs, " ")).
		add("Components", strings.Join(p.Config.Components, " ")).
		add("MD5Sum", md5s.String()).
		add("SHA1", sha1s.String()).
		add("SHA256", sha256s.String()).
		writeTo(bw)
	if err := bw.Flush(); err != nil {
		return err
	}
	release := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	if err := renameio.WriteFile(filepath.Join(dir, "Release"), release, 0644); err != nil {
		return err
	}
	if p.Signer == nil {
		return nil
	}
	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, p.Signer, bytes.NewReader(release), nil); err != nil {
		return xerrors.Errorf("signing Release: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, "Release.gpg"), sig.Bytes(), 0644); err != nil {
		return err
	}
	var inrelease bytes.Buffer
	w, err := clearsign.Encode(&inrelease, p.Signer.PrivateKey, nil)
	if err != nil {
		return xerrors.Errorf("clearsigning Release: %w", err)
	}
	if _, err := w.Write(release); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(dir, "InRelease"), inrelease.Bytes(), 0644)
}
