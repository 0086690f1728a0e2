package publish

import (
	"io"
	"os"
	"path/filepath"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// ErrPoolConflict is returned when a pool file already exists with
// different content.
var ErrPoolConflict = xerrors.New("pool conflict")

// Pool is the pool/ directory of an archive.
type Pool struct {
	Root string // archive root, containing pool/ and dists/
}

// Path returns the archive-relative path of filename, e.g.
// pool/main/h/hello/hello_1.0-1.dsc.
func (p *Pool) Path(component, source, filename string) string {
	return filepath.Join(soyuz.PoolDir(component, source), filename)
}

// Add places the file at src (with the given sha256 hash) into the pool.
// Adding an identical file again is a no-op.
func (p *Pool) Add(component, source, filename, src, sha256 string) error {
	dest := filepath.Join(p.Root, p.Path(component, source, filename))
	if _, err := os.Stat(dest); err == nil {
		h, err := librarian.HashFile(dest)
		if err != nil {
			return err
		}
		if h.SHA256 != sha256 {
			return xerrors.Errorf("%s: %w (have sha256 %s, want %s)", dest, ErrPoolConflict, h.SHA256, sha256)
		}
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	t, err := renameio.TempFile("", dest)
	if err != nil {
		return err
	}
	defer t.Cleanup()
	h, err := librarian.HashReader(io.TeeReader(in, t))
	if err != nil {
		return err
	}
	if h.SHA256 != sha256 {
		return xerrors.Errorf("%s: sha256 mismatch: got %s, want %s", src, h.SHA256, sha256)
	}
	return t.CloseAtomicallyReplace()
}

// Remove deletes a pool file and the source directory if it became empty.
// Removing a missing file is not an error.
func (p *Pool) Remove(component, source, filename string) error {
	fn := filepath.Join(p.Root, p.Path(component, source, filename))
	if err := os.Remove(fn); err != nil && !os.IsNotExist(err) {
		return err
	}
	os.Remove(filepath.Dir(fn)) // only succeeds if empty
	return nil
}

// Exists reports whether the pool file is present.
func (p *Pool) Exists(component, source, filename string) bool {
	_, err := os.Stat(filepath.Join(p.Root, p.Path(component, source, filename)))
	return err == nil
}
