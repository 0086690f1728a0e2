// Package librarian stores uploaded and built files by content hash until
// they are published into an archive pool.
package librarian

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// Hashes describes the content of a file.
type Hashes struct {
	Size   int64
	MD5    string
	SHA1   string
	SHA256 string
}

// HashReader hashes everything read from r.
func HashReader(r io.Reader) (Hashes, error) {
	m, s1, s256 := md5.New(), sha1.New(), sha256.New()
	n, err := io.Copy(io.MultiWriter(m, s1, s256), r)
	if err != nil {
		return Hashes{}, err
	}
	return Hashes{
		Size:   n,
		MD5:    hex.EncodeToString(m.Sum(nil)),
		SHA1:   hex.EncodeToString(s1.Sum(nil)),
		SHA256: hex.EncodeToString(s256.Sum(nil)),
	}, nil
}

// HashFile hashes the file at path.
func HashFile(path string) (Hashes, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hashes{}, err
	}
	defer f.Close()
	return HashReader(f)
}

type Librarian struct {
	Dir string
}

// Path returns the location of the file with the given sha256 hash.
func (l *Librarian) Path(sha256 string) string {
	return filepath.Join(l.Dir, sha256)
}

// Add copies the file at path into the librarian and returns its hashes.
// Adding a file which is already present is a no-op.
func (l *Librarian) Add(path string) (Hashes, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hashes{}, err
	}
	defer f.Close()
	h, err := HashReader(f)
	if err != nil {
		return Hashes{}, xerrors.Errorf("hashing %s: %w", path, err)
	}
	dest := l.Path(h.SHA256)
	if _, err := os.Stat(dest); err == nil {
		return h, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Hashes{}, err
	}
	if err := os.MkdirAll(l.Dir, 0755); err != nil {
		return Hashes{}, err
	}
	t, err := renameio.TempFile("", dest)
	if err != nil {
		return Hashes{}, err
	}
	defer t.Cleanup()
	if _, err := io.Copy(t, f); err != nil {
		return Hashes{}, err
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return Hashes{}, err
	}
	return h, nil
}

// Open opens the file with the given sha256 hash.
func (l *Librarian) Open(sha256 string) (*os.File, error) {
	return os.Open(l.Path(sha256))
}
