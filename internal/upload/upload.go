// Package upload processes source uploads into an archive.
package upload

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/store"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/xerrors"
	"pault.ag/go/debian/control"
	"pault.ag/go/debian/dependency"
	"pault.ag/go/debian/version"
)

var (
	// ErrDuplicate is returned when the archive already contains the
	// uploaded source version.
	ErrDuplicate = xerrors.New("source version already uploaded")
	// ErrChecksum is returned when a file does not match the .dsc.
	ErrChecksum = xerrors.New("checksum mismatch")
)

// Dsc is a Debian source control file.
type Dsc struct {
	control.Paragraph

	Format          string
	Source          string
	Version         version.Version
	Binary          string
	Architecture    string
	Maintainer      string
	BuildDepends    string                   `control:"Build-Depends"`
	Files           []control.MD5FileHash    `control:"Files" delim:"\n" strip:"\n\r\t "`
	ChecksumsSha256 []control.SHA256FileHash `control:"Checksums-Sha256" delim:"\n" strip:"\n\r\t "`
}

// ParseDsc reads the .dsc at path. If keyring is non-nil, the file must be
// signed by one of its keys.
func ParseDsc(path string, keyring *openpgp.EntityList) (*Dsc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := control.NewDecoder(f, keyring)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	var d Dsc
	if err := dec.Decode(&d); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	if d.Source == "" {
		return nil, xerrors.Errorf("%s: missing Source field", path)
	}
	if d.Version.Version == "" {
		return nil, xerrors.Errorf("%s: missing Version field", path)
	}
	if len(d.Files) == 0 {
		return nil, xerrors.Errorf("%s: missing Files field", path)
	}
	if d.BuildDepends != "" {
		if _, err := dependency.Parse(d.BuildDepends); err != nil {
			return nil, xerrors.Errorf("%s: Build-Depends: %w", path, err)
		}
	}
	return &d, nil
}

// Target is where an upload is published.
type Target struct {
	Archive   string // archive reference, e.g. primary or ~alice/ppa
	Series    string
	Pocket    string // defaults to release
	Component string // defaults to main
	Section   string
}

type Uploader struct {
	Store     *store.Store
	Log       *log.Logger
	Librarian *librarian.Librarian
	// Keyring, if non-nil, restricts uploads to .dsc files signed by one of
	// its keys.
	Keyring *openpgp.EntityList
}

// verify checks the files listed in d, which are expected next to the .dsc,
// and returns them with their hashes.
func verify(dir string, d *Dsc) ([]*store.SourceFile, error) {
	sha256s := make(map[string]string)
	for _, h := range d.ChecksumsSha256 {
		sha256s[h.Filename] = h.Hash
	}
	var files []*store.SourceFile
	for _, want := range d.Files {
		if want.Filename != filepath.Base(want.Filename) {
			return nil, xerrors.Errorf("invalid file name %q", want.Filename)
		}
		got, err := librarian.HashFile(filepath.Join(dir, want.Filename))
		if err != nil {
			return nil, err
		}
		if got.Size != want.Size || got.MD5 != strings.ToLower(want.Hash) {
			return nil, xerrors.Errorf("%s: %w: got %d bytes, md5 %s; want %d bytes, md5 %s", want.Filename, ErrChecksum, got.Size, got.MD5, want.Size, want.Hash)
		}
		if sum, ok := sha256s[want.Filename]; ok && got.SHA256 != strings.ToLower(sum) {
			return nil, xerrors.Errorf("%s: %w: got sha256 %s, want %s", want.Filename, ErrChecksum, got.SHA256, sum)
		}
		files = append(files, &store.SourceFile{
			Filename: want.Filename,
			Size:     got.Size,
			MD5:      got.MD5,
			SHA256:   got.SHA256,
		})
	}
	return files, nil
}

// ProcessDsc accepts the source package described by the .dsc at path into
// target. The .dsc and its files are copied into the librarian, and the new
// source release gets a PENDING publication.
func (u *Uploader) ProcessDsc(ctx context.Context, path string, target Target) (*store.SourceRelease, error) {
	if target.Pocket == "" {
		target.Pocket = soyuz.PocketRelease.String()
	}
	if target.Component == "" {
		target.Component = "main"
	}
	pocket, err := soyuz.ParsePocket(target.Pocket)
	if err != nil {
		return nil, err
	}
	d, err := ParseDsc(path, u.Keyring)
	if err != nil {
		return nil, err
	}
	files, err := verify(filepath.Dir(path), d)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", filepath.Base(path), err)
	}
	dscHashes, err := u.Librarian.Add(path)
	if err != nil {
		return nil, err
	}
	files = append([]*store.SourceFile{{
		Filename: filepath.Base(path),
		Size:     dscHashes.Size,
		MD5:      dscHashes.MD5,
		SHA256:   dscHashes.SHA256,
	}}, files...)
	for _, f := range files[1:] {
		if _, err := u.Librarian.Add(filepath.Join(filepath.Dir(path), f.Filename)); err != nil {
			return nil, err
		}
	}

	spr := &store.SourceRelease{
		Name:         d.Source,
		Version:      d.Version.String(),
		Component:    target.Component,
		Section:      target.Section,
		ArchHint:     d.Architecture,
		BuildDepends: d.BuildDepends,
		Binaries:     d.Binary,
		Maintainer:   d.Maintainer,
		DscFilename:  filepath.Base(path),
		Format:       d.Format,
	}
	err = u.Store.Update(ctx, func(tx *store.Tx) error {
		archive, err := tx.ArchiveByReference(target.Archive)
		if err != nil {
			return err
		}
		series, err := tx.SeriesByName(target.Series)
		if err != nil {
			return err
		}
		if pocket == soyuz.PocketRelease && series.ReleasePocketFrozen() && !archive.IsPPA() {
			return xerrors.Errorf("upload to %s: release pocket is frozen", series.Name)
		}
		if _, err := tx.SourceRelease(archive.ID, spr.Name, spr.Version); err == nil {
			return xerrors.Errorf("%s %s in %s: %w", spr.Name, spr.Version, archive.Reference(), ErrDuplicate)
		} else if !xerrors.Is(err, store.ErrNotFound) {
			return err
		}
		spr.UploadArchive = archive.ID
		if err := tx.CreateSourceRelease(spr, files); err != nil {
			return err
		}
		return tx.CreateSourcePublication(&store.SourcePublication{
			ArchiveID: archive.ID,
			SeriesID:  series.ID,
			Pocket:    pocket.String(),
			Component: target.Component,
			Section:   target.Section,
			SourceID:  spr.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	u.Log.Printf("accepted %s %s into %s %s", spr.Name, spr.Version, target.Archive, pocket.SuiteName(target.Series))
	return spr, nil
}
