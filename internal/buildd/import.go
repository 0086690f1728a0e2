package buildd

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/store"
	"golang.org/x/xerrors"
	"pault.ag/go/debian/control"

	bpb "github.com/distr1/soyuz/pb/builder"
)

// binaryControl is one paragraph of the binaries.control result file.
type binaryControl struct {
	control.Paragraph

	Package      string
	Version      string
	Architecture string
	Depends      string
	Section      string
	Priority     string
	Description  string
}

func readBinaryControl(path string) (map[string]*binaryControl, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := control.NewDecoder(f, nil)
	if err != nil {
		return nil, err
	}
	res := make(map[string]*binaryControl)
	for {
		var bc binaryControl
		if err := dec.Decode(&bc); err != nil {
			if err == io.EOF {
				break
			}
			return nil, xerrors.Errorf("%s: %w", path, err)
		}
		res[bc.Package] = &bc
	}
	return res, nil
}

// importBinaries registers the binary packages among files as releases of
// build and creates pending publications for them in the build's archive.
// Architecture-independent binaries are published on every architecture of
// the series.
func (m *Manager) importBinaries(tx *store.Tx, build *store.Build, files []string) error {
	spr, err := tx.SourceReleaseByID(build.SourceID)
	if err != nil {
		return err
	}
	das, err := tx.ArchSeriesByID(build.ArchSeriesID)
	if err != nil {
		return err
	}
	allDas, err := tx.ArchSeries(das.SeriesID)
	if err != nil {
		return err
	}

	controls := make(map[string]*binaryControl)
	for _, fn := range files {
		if filepath.Base(fn) == bpb.ControlFilename {
			if controls, err = readBinaryControl(fn); err != nil {
				return err
			}
		}
	}

	var imported int
	for _, fn := range files {
		pf, ok := soyuz.ParsePackageFile(filepath.Base(fn))
		if !ok || !isBinaryExt(pf.Ext) {
			continue
		}
		if pf.Arch != soyuz.ArchIndep && pf.Arch != das.Architecture {
			return xerrors.Errorf("%s: built for %s, but build is for %s", filepath.Base(fn), pf.Arch, das.Architecture)
		}
		h, err := m.Librarian.Add(fn)
		if err != nil {
			return err
		}
		bpr := &store.BinaryRelease{
			BuildID:   build.ID,
			Name:      pf.Name,
			Version:   pf.Version,
			Arch:      pf.Arch,
			Component: spr.Component,
			Section:   spr.Section,
			Filename:  filepath.Base(fn),
			Size:      h.Size,
			MD5:       h.MD5,
			SHA1:      h.SHA1,
			SHA256:    h.SHA256,
		}
		if bc, ok := controls[pf.Name]; ok {
			if bc.Version != "" {
				bpr.Version = bc.Version
			}
			bpr.Depends = bc.Depends
			bpr.Description = bc.Description
			if bc.Section != "" {
				bpr.Section = bc.Section
			}
			bpr.Priority = bc.Priority
		}
		if err := tx.CreateBinaryRelease(bpr); err != nil {
			return err
		}
		targets := []*store.ArchSeries{das}
		if pf.Arch == soyuz.ArchIndep {
			targets = allDas
		}
		for _, d := range targets {
			pub := &store.BinaryPublication{
				ArchiveID:    build.ArchiveID,
				ArchSeriesID: d.ID,
				Pocket:       build.Pocket,
				Component:    bpr.Component,
				Section:      bpr.Section,
				Priority:     bpr.Priority,
				BinaryID:     bpr.ID,
			}
			if err := tx.CreateBinaryPublication(pub); err != nil {
				return err
			}
		}
		imported++
	}
	if imported == 0 {
		return xerrors.Errorf("build produced no binary packages")
	}
	return nil
}

func isBinaryExt(ext string) bool {
	switch strings.TrimPrefix(ext, ".") {
	case "deb", "udeb", "ddeb":
		return true
	}
	return false
}
