package store

import (
	"strings"
	"time"

	"golang.org/x/xerrors"
	"zombiezen.com/go/sqlite"
)

// Publication statuses.
const (
	PubPending    = "PENDING"
	PubPublished  = "PUBLISHED"
	PubSuperseded = "SUPERSEDED"
	PubDeleted    = "DELETED"
	PubObsolete   = "OBSOLETE"
)

// LiveStatuses are the statuses of publications whose files must stay in
// the pool.
var LiveStatuses = []string{PubPending, PubPublished}

// SourcePublication places a source release in an archive, series, pocket
// and component (sourcepackagepublishinghistory).
type SourcePublication struct {
	ID                    int64
	ArchiveID             int64
	SeriesID              int64
	Pocket                string
	Component             string
	Section               string
	SourceID              int64
	Status                string
	DateCreated           time.Time
	DatePublished         time.Time
	DateSuperseded        time.Time
	SupersededBy          int64
	ScheduledDeletionDate time.Time
	DateRemoved           time.Time
	DateExpired           time.Time

	// Joined from the source release.
	Name    string
	Version string
}

// BinaryPublication places a binary release in an archive, architecture
// series and pocket (binarypackagepublishinghistory).
type BinaryPublication struct {
	ID                    int64
	ArchiveID             int64
	ArchSeriesID          int64
	Pocket                string
	Component             string
	Section               string
	Priority              string
	BinaryID              int64
	Status                string
	DateCreated           time.Time
	DatePublished         time.Time
	DateSuperseded        time.Time
	SupersededBy          int64
	ScheduledDeletionDate time.Time
	DateRemoved           time.Time
	DateExpired           time.Time

	// Joined from the binary release, its build and source.
	Name       string
	Version    string
	Arch       string
	Filename   string
	SourceName string
}

// PubFilter restricts publication queries. Zero fields match everything.
type PubFilter struct {
	ArchiveID    int64
	SeriesID     int64
	ArchSeriesID int64 // binaries only
	Pocket       string
	Name         string
	Statuses     []string
	// EnabledArchives skips publications in disabled archives.
	EnabledArchives bool
}

func (f PubFilter) where(alias string, seriesCol string) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.ArchiveID != 0 {
		conds = append(conds, alias+".archive = ?")
		args = append(args, f.ArchiveID)
	}
	if f.SeriesID != 0 {
		conds = append(conds, seriesCol+" = ?")
		args = append(args, f.SeriesID)
	}
	if f.ArchSeriesID != 0 && alias == "bpph" {
		conds = append(conds, "bpph.distroarchseries = ?")
		args = append(args, f.ArchSeriesID)
	}
	if f.Pocket != "" {
		conds = append(conds, alias+".pocket = ?")
		args = append(args, f.Pocket)
	}
	if f.Name != "" {
		conds = append(conds, "r.name = ?")
		args = append(args, f.Name)
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, alias+".status IN ("+placeholders(len(f.Statuses))+")")
		args = append(args, stringArgs(f.Statuses)...)
	}
	if f.EnabledArchives {
		conds = append(conds, "a.enabled = 1")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const spphColumns = `spph.id, spph.archive, spph.distroseries, spph.pocket, spph.component, spph.section, spph.sourcepackagerelease, spph.status,
  spph.date_created, spph.date_published, spph.date_superseded, spph.superseded_by, spph.scheduled_deletion_date, spph.date_removed, spph.date_expired,
  r.name, r.version`

func scanSourcePublication(stmt *sqlite.Stmt) *SourcePublication {
	return &SourcePublication{
		ID:                    stmt.GetInt64("id"),
		ArchiveID:             stmt.GetInt64("archive"),
		SeriesID:              stmt.GetInt64("distroseries"),
		Pocket:                stmt.GetText("pocket"),
		Component:             stmt.GetText("component"),
		Section:               stmt.GetText("section"),
		SourceID:              stmt.GetInt64("sourcepackagerelease"),
		Status:                stmt.GetText("status"),
		DateCreated:           getTime(stmt, "date_created"),
		DatePublished:         getTime(stmt, "date_published"),
		DateSuperseded:        getTime(stmt, "date_superseded"),
		SupersededBy:          stmt.GetInt64("superseded_by"),
		ScheduledDeletionDate: getTime(stmt, "scheduled_deletion_date"),
		DateRemoved:           getTime(stmt, "date_removed"),
		DateExpired:           getTime(stmt, "date_expired"),
		Name:                  stmt.GetText("name"),
		Version:               stmt.GetText("version"),
	}
}

func (tx *Tx) CreateSourcePublication(p *SourcePublication) error {
	if p.DateCreated.IsZero() {
		p.DateCreated = tx.Now()
	}
	if p.Status == "" {
		p.Status = PubPending
	}
	err := tx.exec(`INSERT INTO sourcepackagepublishinghistory (archive, distroseries, pocket, component, section, sourcepackagerelease, status, date_created)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		[]interface{}{p.ArchiveID, p.SeriesID, p.Pocket, p.Component, p.Section, p.SourceID, p.Status, millis(p.DateCreated)},
		nil)
	if err != nil {
		return xerrors.Errorf("publish source %d: %w", p.SourceID, err)
	}
	p.ID = tx.lastInsertID()
	return nil
}

// SourcePublications returns the source publications matching f, ordered
// by id.
func (tx *Tx) SourcePublications(f PubFilter) ([]*SourcePublication, error) {
	where, args := f.where("spph", "spph.distroseries")
	var pubs []*SourcePublication
	err := tx.exec(`SELECT `+spphColumns+`
FROM sourcepackagepublishinghistory spph
JOIN sourcepackagerelease r ON r.id = spph.sourcepackagerelease
JOIN archive a ON a.id = spph.archive`+where+` ORDER BY spph.id`,
		args,
		func(stmt *sqlite.Stmt) error {
			pubs = append(pubs, scanSourcePublication(stmt))
			return nil
		})
	return pubs, err
}

func (tx *Tx) SourcePublicationByID(id int64) (*SourcePublication, error) {
	var p *SourcePublication
	err := tx.exec(`SELECT `+spphColumns+`
FROM sourcepackagepublishinghistory spph
JOIN sourcepackagerelease r ON r.id = spph.sourcepackagerelease
WHERE spph.id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			p = scanSourcePublication(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, xerrors.Errorf("source publication %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// UpdateSourcePublication stores the lifecycle fields of p.
func (tx *Tx) UpdateSourcePublication(p *SourcePublication) error {
	err := tx.exec(`UPDATE sourcepackagepublishinghistory SET status = ?, date_published = ?, date_superseded = ?, superseded_by = ?, scheduled_deletion_date = ?, date_removed = ?, date_expired = ? WHERE id = ?`,
		[]interface{}{p.Status, millis(p.DatePublished), millis(p.DateSuperseded), nullID(p.SupersededBy), millis(p.ScheduledDeletionDate), millis(p.DateRemoved), millis(p.DateExpired), p.ID},
		nil)
	if err != nil {
		return xerrors.Errorf("update source publication %d: %w", p.ID, err)
	}
	return nil
}

const bpphColumns = `bpph.id, bpph.archive, bpph.distroarchseries, bpph.pocket, bpph.component, bpph.section, bpph.priority, bpph.binarypackagerelease, bpph.status,
  bpph.date_created, bpph.date_published, bpph.date_superseded, bpph.superseded_by, bpph.scheduled_deletion_date, bpph.date_removed, bpph.date_expired,
  r.name, r.version, r.architecture, r.filename, spr.name AS source_name`

const bpphJoins = `
FROM binarypackagepublishinghistory bpph
JOIN binarypackagerelease r ON r.id = bpph.binarypackagerelease
JOIN build b ON b.id = r.build
JOIN sourcepackagerelease spr ON spr.id = b.sourcepackagerelease
JOIN distroarchseries das ON das.id = bpph.distroarchseries
JOIN archive a ON a.id = bpph.archive`

func scanBinaryPublication(stmt *sqlite.Stmt) *BinaryPublication {
	return &BinaryPublication{
		ID:                    stmt.GetInt64("id"),
		ArchiveID:             stmt.GetInt64("archive"),
		ArchSeriesID:          stmt.GetInt64("distroarchseries"),
		Pocket:                stmt.GetText("pocket"),
		Component:             stmt.GetText("component"),
		Section:               stmt.GetText("section"),
		Priority:              stmt.GetText("priority"),
		BinaryID:              stmt.GetInt64("binarypackagerelease"),
		Status:                stmt.GetText("status"),
		DateCreated:           getTime(stmt, "date_created"),
		DatePublished:         getTime(stmt, "date_published"),
		DateSuperseded:        getTime(stmt, "date_superseded"),
		SupersededBy:          stmt.GetInt64("superseded_by"),
		ScheduledDeletionDate: getTime(stmt, "scheduled_deletion_date"),
		DateRemoved:           getTime(stmt, "date_removed"),
		DateExpired:           getTime(stmt, "date_expired"),
		Name:                  stmt.GetText("name"),
		Version:               stmt.GetText("version"),
		Arch:                  stmt.GetText("architecture"),
		Filename:              stmt.GetText("filename"),
		SourceName:            stmt.GetText("source_name"),
	}
}

func (tx *Tx) CreateBinaryPublication(p *BinaryPublication) error {
	if p.DateCreated.IsZero() {
		p.DateCreated = tx.Now()
	}
	if p.Status == "" {
		p.Status = PubPending
	}
	if p.Priority == "" {
		p.Priority = "optional"
	}
	err := tx.exec(`INSERT INTO binarypackagepublishinghistory (archive, distroarchseries, pocket, component, section, priority, binarypackagerelease, status, date_created)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		[]interface{}{p.ArchiveID, p.ArchSeriesID, p.Pocket, p.Component, p.Section, p.Priority, p.BinaryID, p.Status, millis(p.DateCreated)},
		nil)
	if err != nil {
		return xerrors.Errorf("publish binary %d: %w", p.BinaryID, err)
	}
	p.ID = tx.lastInsertID()
	return nil
}

// BinaryPublications returns the binary publications matching f, ordered
// by id. f.SeriesID matches all architectures of a series.
func (tx *Tx) BinaryPublications(f PubFilter) ([]*BinaryPublication, error) {
	where, args := f.where("bpph", "das.distroseries")
	var pubs []*BinaryPublication
	err := tx.exec(`SELECT `+bpphColumns+bpphJoins+where+` ORDER BY bpph.id`,
		args,
		func(stmt *sqlite.Stmt) error {
			pubs = append(pubs, scanBinaryPublication(stmt))
			return nil
		})
	return pubs, err
}

func (tx *Tx) BinaryPublicationByID(id int64) (*BinaryPublication, error) {
	var p *BinaryPublication
	err := tx.exec(`SELECT `+bpphColumns+bpphJoins+` WHERE bpph.id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			p = scanBinaryPublication(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, xerrors.Errorf("binary publication %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// UpdateBinaryPublication stores the lifecycle fields of p.
func (tx *Tx) UpdateBinaryPublication(p *BinaryPublication) error {
	err := tx.exec(`UPDATE binarypackagepublishinghistory SET status = ?, date_published = ?, date_superseded = ?, superseded_by = ?, scheduled_deletion_date = ?, date_removed = ?, date_expired = ? WHERE id = ?`,
		[]interface{}{p.Status, millis(p.DatePublished), millis(p.DateSuperseded), nullID(p.SupersededBy), millis(p.ScheduledDeletionDate), millis(p.DateRemoved), millis(p.DateExpired), p.ID},
		nil)
	if err != nil {
		return xerrors.Errorf("update binary publication %d: %w", p.ID, err)
	}
	return nil
}

// Condemned returns the publications of archiveID whose stay of execution
// has passed and which have not been removed from disk yet.
func (tx *Tx) Condemned(archiveID int64, now time.Time) ([]*SourcePublication, []*BinaryPublication, error) {
	args := []interface{}{archiveID, PubSuperseded, PubDeleted, now.UnixMilli()}
	var srcs []*SourcePublication
	err := tx.exec(`SELECT `+spphColumns+`
FROM sourcepackagepublishinghistory spph
JOIN sourcepackagerelease r ON r.id = spph.sourcepackagerelease
WHERE spph.archive = ? AND spph.status IN (?, ?) AND spph.scheduled_deletion_date <= ? AND spph.date_removed IS NULL
ORDER BY spph.id`,
		args,
		func(stmt *sqlite.Stmt) error {
			srcs = append(srcs, scanSourcePublication(stmt))
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	var bins []*BinaryPublication
	err = tx.exec(`SELECT `+bpphColumns+bpphJoins+`
WHERE bpph.archive = ? AND bpph.status IN (?, ?) AND bpph.scheduled_deletion_date <= ? AND bpph.date_removed IS NULL
ORDER BY bpph.id`,
		args,
		func(stmt *sqlite.Stmt) error {
			bins = append(bins, scanBinaryPublication(stmt))
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	return srcs, bins, nil
}

// FileInUse reports whether a live publication in archiveID still
// references the pool file filename.
func (tx *Tx) FileInUse(archiveID int64, filename string) (bool, error) {
	live := placeholders(len(LiveStatuses))
	args := []interface{}{archiveID}
	args = append(args, stringArgs(LiveStatuses)...)
	args = append(args, filename, archiveID)
	args = append(args, stringArgs(LiveStatuses)...)
	args = append(args, filename)
	var n int64
	err := tx.exec(`SELECT
  (SELECT COUNT(*) FROM sourcepackagepublishinghistory spph
   JOIN sourcepackagefile f ON f.sourcepackagerelease = spph.sourcepackagerelease
   WHERE spph.archive = ? AND spph.status IN (`+live+`) AND f.filename = ?)
+ (SELECT COUNT(*) FROM binarypackagepublishinghistory bpph
   JOIN binarypackagerelease r ON r.id = bpph.binarypackagerelease
   WHERE bpph.archive = ? AND bpph.status IN (`+live+`) AND r.filename = ?) AS n`,
		args,
		func(stmt *sqlite.Stmt) error {
			n = stmt.GetInt64("n")
			return nil
		})
	return n > 0, err
}

// Expirable returns the removed, unexpired publications of archiveID whose
// files were removed before cutoff.
func (tx *Tx) Expirable(archiveID int64, cutoff time.Time) ([]*SourcePublication, []*BinaryPublication, error) {
	args := []interface{}{archiveID, cutoff.UnixMilli()}
	var srcs []*SourcePublication
	err := tx.exec(`SELECT `+spphColumns+`
FROM sourcepackagepublishinghistory spph
JOIN sourcepackagerelease r ON r.id = spph.sourcepackagerelease
WHERE spph.archive = ? AND spph.date_removed < ? AND spph.date_expired IS NULL
ORDER BY spph.id`,
		args,
		func(stmt *sqlite.Stmt) error {
			srcs = append(srcs, scanSourcePublication(stmt))
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	var bins []*BinaryPublication
	err = tx.exec(`SELECT `+bpphColumns+bpphJoins+`
WHERE bpph.archive = ? AND bpph.date_removed < ? AND bpph.date_expired IS NULL
ORDER BY bpph.id`,
		args,
		func(stmt *sqlite.Stmt) error {
			bins = append(bins, scanBinaryPublication(stmt))
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	return srcs, bins, nil
}

// HasPendingWork reports whether archiveID has pending publications,
// deletions which have not been scheduled yet or suites whose indices were
// not rewritten after a change.
func (tx *Tx) HasPendingWork(archiveID int64) (bool, error) {
	var n int64
	err := tx.exec(`SELECT
  (SELECT COUNT(*) FROM sourcepackagepublishinghistory WHERE archive = ? AND (status = ? OR (status = ? AND scheduled_deletion_date IS NULL)))
+ (SELECT COUNT(*) FROM binarypackagepublishinghistory WHERE archive = ? AND (status = ? OR (status = ? AND scheduled_deletion_date IS NULL)))
+ (SELECT COUNT(*) FROM dirtysuite WHERE archive = ?) AS n`,
		[]interface{}{archiveID, PubPending, PubDeleted, archiveID, PubPending, PubDeleted, archiveID},
		func(stmt *sqlite.Stmt) error {
			n = stmt.GetInt64("n")
			return nil
		})
	return n > 0, err
}

// FileReferenced reports whether any unexpired publication in any archive
// references the file with the given sha256 hash.
func (tx *Tx) FileReferenced(sha256 string) (bool, error) {
	var n int64
	err := tx.exec(`SELECT
  (SELECT COUNT(*) FROM sourcepackagepublishinghistory spph
   JOIN sourcepackagefile f ON f.sourcepackagerelease = spph.sourcepackagerelease
   WHERE f.sha256 = ? AND spph.date_expired IS NULL)
+ (SELECT COUNT(*) FROM binarypackagepublishinghistory bpph
   JOIN binarypackagerelease r ON r.id = bpph.binarypackagerelease
   WHERE r.sha256 = ? AND bpph.date_expired IS NULL) AS n`,
		[]interface{}{sha256, sha256},
		func(stmt *sqlite.Stmt) error {
			n = stmt.GetInt64("n")
			return nil
		})
	return n > 0, err
}

// DirtySuite is a series and pocket of an archive whose indices and Release
// file need to be rewritten.
type DirtySuite struct {
	SeriesID int64
	Pocket   string
}

// MarkSuiteDirty records that the indices of seriesID/pocket in archiveID
// are out of date.
func (tx *Tx) MarkSuiteDirty(archiveID, seriesID int64, pocket string) error {
	err := tx.exec(`INSERT INTO dirtysuite (archive, distroseries, pocket) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		[]interface{}{archiveID, seriesID, pocket}, nil)
	if err != nil {
		return xerrors.Errorf("mark %d/%s dirty: %w", seriesID, pocket, err)
	}
	return nil
}

// DirtySuites returns the suites of archiveID marked by MarkSuiteDirty.
func (tx *Tx) DirtySuites(archiveID int64) ([]DirtySuite, error) {
	var suites []DirtySuite
	err := tx.exec(`SELECT distroseries, pocket FROM dirtysuite WHERE archive = ? ORDER BY distroseries, pocket`,
		[]interface{}{archiveID},
		func(stmt *sqlite.Stmt) error {
			suites = append(suites, DirtySuite{
				SeriesID: stmt.GetInt64("distroseries"),
				Pocket:   stmt.GetText("pocket"),
			})
			return nil
		})
	return suites, err
}

// ClearDirtySuite removes the mark of seriesID/pocket in archiveID.
func (tx *Tx) ClearDirtySuite(archiveID, seriesID int64, pocket string) error {
	return tx.exec(`DELETE FROM dirtysuite WHERE archive = ? AND distroseries = ? AND pocket = ?`,
		[]interface{}{archiveID, seriesID, pocket}, nil)
}
