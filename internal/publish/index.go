package publish

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/renameio"
	"github.com/klauspost/pgzip"
	"golang.org/x/xerrors"
)

type field struct {
	Key   string
	Value string
}

// paragraph is a Debian control file paragraph with a fixed field order.
type paragraph []field

func (p paragraph) add(key, value string) paragraph {
	return append(p, field{key, value})
}

// writeTo writes p followed by an empty line. Fields with empty values are
// omitted. Continuation lines are indented by one space, and empty
// continuation lines are written as “ .”.
func (p paragraph) writeTo(w *bufio.Writer) {
	for _, f := range p {
		if f.Value == "" {
			continue
		}
		lines := strings.Split(f.Value, "\n")
		if lines[0] == "" {
			w.WriteString(f.Key + ":\n")
		} else {
			w.WriteString(f.Key + ": " + lines[0] + "\n")
		}
		for _, l := range lines[1:] {
			if strings.TrimSpace(l) == "" {
				l = "."
			}
			w.WriteString(" " + l + "\n")
		}
	}
	w.WriteString("\n")
}

// indexWriter writes an index file and its .gz variant next to each other,
// replacing both atomically.
type indexWriter struct {
	plain, gz *renameio.PendingFile
	zw        *pgzip.Writer
	bw        *bufio.Writer
}

func newIndexWriter(path string) (*indexWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	plain, err := renameio.TempFile("", path)
	if err != nil {
		return nil, err
	}
	gz, err := renameio.TempFile("", path+".gz")
	if err != nil {
		plain.Cleanup()
		return nil, err
	}
	zw := pgzip.NewWriter(gz)
	return &indexWriter{
		plain: plain,
		gz:    gz,
		zw:    zw,
		bw:    bufio.NewWriter(io.MultiWriter(plain, zw)),
	}, nil
}

func (iw *indexWriter) Cleanup() {
	iw.plain.Cleanup()
	iw.gz.Cleanup()
}

func (iw *indexWriter) Commit() error {
	if err := iw.bw.Flush(); err != nil {
		return err
	}
	if err := iw.zw.Close(); err != nil {
		return err
	}
	if err := iw.plain.CloseAtomicallyReplace(); err != nil {
		return err
	}
	return iw.gz.CloseAtomicallyReplace()
}

// suites returns the suites whose indices are written: all series and
// pockets in careful mode, the dirty suites otherwise.
func (p *Publisher) suites(tx *store.Tx) ([]Suite, error) {
	if !p.Careful {
		return p.Dirty(), nil
	}
	all, err := tx.AllSeries()
	if err != nil {
		return nil, err
	}
	for _, series := range all {
		for _, pocket := range soyuz.Pockets {
			p.dirty[Suite{series.ID, pocket.String()}] = true
		}
	}
	return p.Dirty(), nil
}

// suiteName returns the dists/ directory name of suite.
func suiteName(series *store.Series, pocket string) (string, error) {
	pk, err := soyuz.ParsePocket(pocket)
	if err != nil {
		return "", err
	}
	return pk.SuiteName(series.Name), nil
}

// index is phase C: it writes the Sources and Packages indices of every
// dirty suite.
func (p *Publisher) index(ctx context.Context) error {
	return p.Store.View(ctx, func(tx *store.Tx) error {
		suites, err := p.suites(tx)
		if err != nil {
			return err
		}
		cache := newTxCache(tx)
		for _, suite := range suites {
			series, err := cache.Series(suite.SeriesID)
			if err != nil {
				return err
			}
			name, err := suiteName(series, suite.Pocket)
			if err != nil {
				return err
			}
			dir := filepath.Join(p.Root, "dists", name)
			dases, err := tx.ArchSeries(series.ID)
			if err != nil {
				return err
			}
			for _, component := range p.Config.Components {
				if err := p.writeSources(cache, suite, component, dir); err != nil {
					return xerrors.Errorf("%s/%s: %w", name, component, err)
				}
				for _, das := range dases {
					if !das.Enabled {
						continue
					}
					if err := p.writePackages(cache, suite, das, component, dir); err != nil {
						return xerrors.Errorf("%s/%s/%s: %w", name, component, das.Architecture, err)
					}
				}
			}
		}
		return nil
	})
}

func (p *Publisher) writeSources(cache *txCache, suite Suite, component, dir string) error {
	pubs, err := cache.tx.SourcePublications(store.PubFilter{
		ArchiveID: p.Archive.ID,
		SeriesID:  suite.SeriesID,
		Pocket:    suite.Pocket,
		Statuses:  []string{store.PubPublished},
	})
	if err != nil {
		return err
	}
	sort.SliceStable(pubs, func(i, j int) bool {
		if pubs[i].Name != pubs[j].Name {
			return pubs[i].Name < pubs[j].Name
		}
		return soyuz.VersionLess(pubs[i].Version, pubs[j].Version)
	})
	iw, err := newIndexWriter(filepath.Join(dir, component, "source", "Sources"))
	if err != nil {
		return err
	}
	defer iw.Cleanup()
	for _, pub := range pubs {
		if pub.Component != component {
			continue
		}
		spr, err := cache.Source(pub.SourceID)
		if err != nil {
			return err
		}
		files, err := cache.tx.SourceFiles(spr.ID)
		if err != nil {
			return err
		}
		var md5s, sha256s strings.Builder
		for _, f := range files {
			fmt.Fprintf(&md5s, "\n%s %d %s", f.MD5, f.Size, f.Filename)
			fmt.Fprintf(&sha256s, "\n%s %d %s", f.SHA256, f.Size, f.Filename)
		}
		section := pub.Section
		if section == "" {
			section = spr.Section
		}
		format := spr.Format
		if format == "" {
			format = store.DefaultSourceFormat
		}
		paragraph{}.
			add("Package", spr.Name).
			add("Binary", spr.Binaries).
			add("Version", spr.Version).
			add("Maintainer", spr.Maintainer).
			add("Build-Depends", spr.BuildDepends).
			add("Architecture", spr.ArchHint).
			add("Format", format).
			add("Directory", soyuz.PoolDir(component, spr.Name)).
			add("Files", md5s.String()).
			add("Checksums-Sha256", sha256s.String()).
			add("Section", section).
			writeTo(iw.bw)
	}
	return iw.Commit()
}

func (p *Publisher) writePackages(cache *txCache, suite Suite, das *store.ArchSeries, component, dir string) error {
	pubs, err := cache.tx.BinaryPublications(store.PubFilter{
		ArchiveID:    p.Archive.ID,
		ArchSeriesID: das.ID,
		Pocket:       suite.Pocket,
		Statuses:     []string{store.PubPublished},
	})
	if err != nil {
		return err
	}
	sort.SliceStable(pubs, func(i, j int) bool {
		if pubs[i].Name != pubs[j].Name {
			return pubs[i].Name < pubs[j].Name
		}
		return soyuz.VersionLess(pubs[i].Version, pubs[j].Version)
	})
	iw, err := newIndexWriter(filepath.Join(dir, component, "binary-"+das.Architecture, "Packages"))
	if err != nil {
		return err
	}
	defer iw.Cleanup()
	for _, pub := range pubs {
		if pub.Component != component {
			continue
		}
		bpr, err := cache.tx.BinaryReleaseByID(pub.BinaryID)
		if err != nil {
			return err
		}
		spr, err := cache.SourceOfBinary(bpr)
		if err != nil {
			return err
		}
		source := spr.Name
		if spr.Version != bpr.Version {
			source += " (" + spr.Version + ")"
		}
		if spr.Name == bpr.Name && spr.Version == bpr.Version {
			source = ""
		}
		section, priority := pub.Section, pub.Priority
		if section == "" {
			section = bpr.Section
		}
		if priority == "" {
			priority = bpr.Priority
		}
		paragraph{}.
			add("Package", bpr.Name).
			add("Source", source).
			add("Version", bpr.Version).
			add("Architecture", bpr.Arch).
			add("Maintainer", spr.Maintainer).
			add("Depends", bpr.Depends).
			add("Section", section).
			add("Priority", priority).
			add("Filename", soyuz.PoolDir(component, spr.Name)+"/"+bpr.Filename).
			add("Size", strconv.FormatInt(bpr.Size, 10)).
			add("MD5sum", bpr.MD5).
			add("SHA1", bpr.SHA1).
			add("SHA256", bpr.SHA256).
			add("Description", bpr.Description).
			writeTo(iw.bw)
	}
	return iw.Commit()
}
