package store

import (
	"strings"

	"golang.org/x/xerrors"
	"zombiezen.com/go/sqlite"
)

// Archive purposes.
const (
	PurposePrimary = "primary"
	PurposePartner = "partner"
	PurposeCopy    = "copy"
	PurposePPA     = "ppa"
)

type Archive struct {
	ID                 int64
	Name               string
	Owner              string // empty for distribution archives
	Purpose            string
	Distribution       string
	Private            bool
	Virtualized        bool
	RelativeBuildScore int64
	Enabled            bool
	Publish            bool
	Root               string
}

// IsPPA reports whether a is a personal package archive.
func (a *Archive) IsPPA() bool { return a.Purpose == PurposePPA }

// Reference returns a human-readable identifier, e.g. ~alice/ppa or primary.
func (a *Archive) Reference() string {
	if a.Owner != "" {
		return "~" + a.Owner + "/" + a.Name
	}
	return a.Name
}

const archiveColumns = `id, name, owner, purpose, distribution, private, virtualized, relative_build_score, enabled, publish, root`

func scanArchive(stmt *sqlite.Stmt) *Archive {
	return &Archive{
		ID:                 stmt.GetInt64("id"),
		Name:               stmt.GetText("name"),
		Owner:              stmt.GetText("owner"),
		Purpose:            stmt.GetText("purpose"),
		Distribution:       stmt.GetText("distribution"),
		Private:            stmt.GetBool("private"),
		Virtualized:        stmt.GetBool("virtualized"),
		RelativeBuildScore: stmt.GetInt64("relative_build_score"),
		Enabled:            stmt.GetBool("enabled"),
		Publish:            stmt.GetBool("publish"),
		Root:               stmt.GetText("root"),
	}
}

// EnsureArchive creates or updates the archive identified by (Owner, Name)
// and sets a.ID.
func (tx *Tx) EnsureArchive(a *Archive) error {
	err := tx.exec(`INSERT INTO archive (name, owner, purpose, distribution, private, virtualized, relative_build_score, enabled, publish, root)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (owner, name) DO UPDATE SET
  purpose = excluded.purpose,
  distribution = excluded.distribution,
  private = excluded.private,
  virtualized = excluded.virtualized,
  relative_build_score = excluded.relative_build_score,
  enabled = excluded.enabled,
  publish = excluded.publish,
  root = excluded.root`,
		[]interface{}{a.Name, a.Owner, a.Purpose, a.Distribution, boolInt(a.Private), boolInt(a.Virtualized), a.RelativeBuildScore, boolInt(a.Enabled), boolInt(a.Publish), a.Root},
		nil)
	if err != nil {
		return xerrors.Errorf("ensure archive %s: %w", a.Reference(), err)
	}
	got, err := tx.ArchiveByName(a.Owner, a.Name)
	if err != nil {
		return err
	}
	a.ID = got.ID
	return nil
}

func (tx *Tx) ArchiveByName(owner, name string) (*Archive, error) {
	var a *Archive
	err := tx.exec(`SELECT `+archiveColumns+` FROM archive WHERE owner = ? AND name = ?`,
		[]interface{}{owner, name},
		func(stmt *sqlite.Stmt) error {
			a = scanArchive(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, xerrors.Errorf("archive %q/%q: %w", owner, name, ErrNotFound)
	}
	return a, nil
}

// ArchiveByReference looks up an archive by the format returned by
// Archive.Reference.
func (tx *Tx) ArchiveByReference(ref string) (*Archive, error) {
	if strings.HasPrefix(ref, "~") {
		idx := strings.IndexByte(ref, '/')
		if idx == -1 {
			return nil, xerrors.Errorf("malformed archive reference %q, want ~owner/name", ref)
		}
		return tx.ArchiveByName(ref[1:idx], ref[idx+1:])
	}
	return tx.ArchiveByName("", ref)
}

func (tx *Tx) ArchiveByID(id int64) (*Archive, error) {
	var a *Archive
	err := tx.exec(`SELECT `+archiveColumns+` FROM archive WHERE id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			a = scanArchive(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, xerrors.Errorf("archive %d: %w", id, ErrNotFound)
	}
	return a, nil
}

// Archives returns all archives, optionally restricted to purpose.
func (tx *Tx) Archives(purpose string) ([]*Archive, error) {
	var archives []*Archive
	query := `SELECT ` + archiveColumns + ` FROM archive`
	var args []interface{}
	if purpose != "" {
		query += ` WHERE purpose = ?`
		args = append(args, purpose)
	}
	query += ` ORDER BY id`
	err := tx.exec(query, args, func(stmt *sqlite.Stmt) error {
		archives = append(archives, scanArchive(stmt))
		return nil
	})
	return archives, err
}

// Series statuses.
const (
	SeriesDevelopment = "development"
	SeriesFrozen      = "frozen"
	SeriesCurrent     = "current"
	SeriesSupported   = "supported"
	SeriesObsolete    = "obsolete"
)

type Series struct {
	ID                 int64
	Name               string
	Status             string
	NominatedArchIndep string
}

// ReleasePocketFrozen reports whether uploads to the release pocket of s
// must be refused, which is the case once a series has been released.
func (s *Series) ReleasePocketFrozen() bool {
	switch s.Status {
	case SeriesCurrent, SeriesSupported, SeriesObsolete:
		return true
	}
	return false
}

type ArchSeries struct {
	ID           int64
	SeriesID     int64
	Architecture string
	Enabled      bool
}

func scanSeries(stmt *sqlite.Stmt) *Series {
	return &Series{
		ID:                 stmt.GetInt64("id"),
		Name:               stmt.GetText("name"),
		Status:             stmt.GetText("status"),
		NominatedArchIndep: stmt.GetText("nominated_arch_indep"),
	}
}

// EnsureSeries creates or updates series s and its architectures. Existing
// architectures which are not listed are disabled.
func (tx *Tx) EnsureSeries(s *Series, archs []string) error {
	err := tx.exec(`INSERT INTO distroseries (name, status, nominated_arch_indep) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET status = excluded.status, nominated_arch_indep = excluded.nominated_arch_indep`,
		[]interface{}{s.Name, s.Status, s.NominatedArchIndep}, nil)
	if err != nil {
		return xerrors.Errorf("ensure series %s: %w", s.Name, err)
	}
	got, err := tx.SeriesByName(s.Name)
	if err != nil {
		return err
	}
	s.ID = got.ID
	if err := tx.exec(`UPDATE distroarchseries SET enabled = 0 WHERE distroseries = ?`, []interface{}{s.ID}, nil); err != nil {
		return err
	}
	for _, arch := range archs {
		err := tx.exec(`INSERT INTO distroarchseries (distroseries, architecture, enabled) VALUES (?, ?, 1)
ON CONFLICT (distroseries, architecture) DO UPDATE SET enabled = 1`,
			[]interface{}{s.ID, arch}, nil)
		if err != nil {
			return xerrors.Errorf("ensure series %s/%s: %w", s.Name, arch, err)
		}
	}
	return nil
}

func (tx *Tx) SeriesByName(name string) (*Series, error) {
	var s *Series
	err := tx.exec(`SELECT id, name, status, nominated_arch_indep FROM distroseries WHERE name = ?`,
		[]interface{}{name},
		func(stmt *sqlite.Stmt) error {
			s = scanSeries(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, xerrors.Errorf("series %q: %w", name, ErrNotFound)
	}
	return s, nil
}

func (tx *Tx) SeriesByID(id int64) (*Series, error) {
	var s *Series
	err := tx.exec(`SELECT id, name, status, nominated_arch_indep FROM distroseries WHERE id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			s = scanSeries(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, xerrors.Errorf("series %d: %w", id, ErrNotFound)
	}
	return s, nil
}

// AllSeries returns every series which is not obsolete.
func (tx *Tx) AllSeries() ([]*Series, error) {
	var series []*Series
	err := tx.exec(`SELECT id, name, status, nominated_arch_indep FROM distroseries WHERE status != ? ORDER BY id`,
		[]interface{}{SeriesObsolete},
		func(stmt *sqlite.Stmt) error {
			series = append(series, scanSeries(stmt))
			return nil
		})
	return series, err
}

func scanArchSeries(stmt *sqlite.Stmt) *ArchSeries {
	return &ArchSeries{
		ID:           stmt.GetInt64("id"),
		SeriesID:     stmt.GetInt64("distroseries"),
		Architecture: stmt.GetText("architecture"),
		Enabled:      stmt.GetBool("enabled"),
	}
}

// ArchSeries returns the enabled architectures of series.
func (tx *Tx) ArchSeries(seriesID int64) ([]*ArchSeries, error) {
	var das []*ArchSeries
	err := tx.exec(`SELECT id, distroseries, architecture, enabled FROM distroarchseries WHERE distroseries = ? AND enabled = 1 ORDER BY architecture`,
		[]interface{}{seriesID},
		func(stmt *sqlite.Stmt) error {
			das = append(das, scanArchSeries(stmt))
			return nil
		})
	return das, err
}

func (tx *Tx) ArchSeriesByID(id int64) (*ArchSeries, error) {
	var das *ArchSeries
	err := tx.exec(`SELECT id, distroseries, architecture, enabled FROM distroarchseries WHERE id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			das = scanArchSeries(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if das == nil {
		return nil, xerrors.Errorf("distroarchseries %d: %w", id, ErrNotFound)
	}
	return das, nil
}

type Builder struct {
	ID           int64
	Name         string
	URL          string
	Processor    string
	Virtualized  bool
	Manual       bool
	OK           bool
	FailNotes    string
	FailureCount int64
}

const builderColumns = `id, name, url, processor, virtualized, manual, builderok, failnotes, failure_count`

func scanBuilder(stmt *sqlite.Stmt) *Builder {
	return &Builder{
		ID:           stmt.GetInt64("id"),
		Name:         stmt.GetText("name"),
		URL:          stmt.GetText("url"),
		Processor:    stmt.GetText("processor"),
		Virtualized:  stmt.GetBool("virtualized"),
		Manual:       stmt.GetBool("manual"),
		OK:           stmt.GetBool("builderok"),
		FailNotes:    stmt.GetText("failnotes"),
		FailureCount: stmt.GetInt64("failure_count"),
	}
}

// EnsureBuilder creates or updates the configuration of builder b. Runtime
// state (builderok, failure counts) of existing builders is retained.
func (tx *Tx) EnsureBuilder(b *Builder) error {
	err := tx.exec(`INSERT INTO builder (name, url, processor, virtualized, manual, builderok) VALUES (?, ?, ?, ?, ?, 1)
ON CONFLICT (name) DO UPDATE SET url = excluded.url, processor = excluded.processor, virtualized = excluded.virtualized, manual = excluded.manual`,
		[]interface{}{b.Name, b.URL, b.Processor, boolInt(b.Virtualized), boolInt(b.Manual)}, nil)
	if err != nil {
		return xerrors.Errorf("ensure builder %s: %w", b.Name, err)
	}
	got, err := tx.BuilderByName(b.Name)
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

func (tx *Tx) BuilderByName(name string) (*Builder, error) {
	var b *Builder
	err := tx.exec(`SELECT `+builderColumns+` FROM builder WHERE name = ?`,
		[]interface{}{name},
		func(stmt *sqlite.Stmt) error {
			b = scanBuilder(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, xerrors.Errorf("builder %q: %w", name, ErrNotFound)
	}
	return b, nil
}

func (tx *Tx) BuilderByID(id int64) (*Builder, error) {
	var b *Builder
	err := tx.exec(`SELECT `+builderColumns+` FROM builder WHERE id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			b = scanBuilder(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, xerrors.Errorf("builder %d: %w", id, ErrNotFound)
	}
	return b, nil
}

func (tx *Tx) Builders() ([]*Builder, error) {
	var builders []*Builder
	err := tx.exec(`SELECT `+builderColumns+` FROM builder ORDER BY name`, nil,
		func(stmt *sqlite.Stmt) error {
			builders = append(builders, scanBuilder(stmt))
			return nil
		})
	return builders, err
}

// UpdateBuilderState stores the runtime state of b.
func (tx *Tx) UpdateBuilderState(b *Builder) error {
	return tx.exec(`UPDATE builder SET builderok = ?, failnotes = ?, failure_count = ? WHERE id = ?`,
		[]interface{}{boolInt(b.OK), b.FailNotes, b.FailureCount, b.ID}, nil)
}
