package store

import (
	"time"

	"golang.org/x/xerrors"
	"zombiezen.com/go/sqlite"
)

// Build statuses.
const (
	BuildNeedsBuild   = "NEEDSBUILD"
	BuildBuilding     = "BUILDING"
	BuildFullyBuilt   = "FULLYBUILT"
	BuildFailed       = "FAILEDTOBUILD"
	BuildDepWait      = "DEPWAIT"
	BuildChrootWait   = "CHROOTWAIT"
	BuildSuperseded   = "SUPERSEDED"
	BuildFailedUpload = "FAILEDTOUPLOAD"
	BuildCancelled    = "CANCELLED"
)

type Build struct {
	ID           int64
	ArchiveID    int64
	ArchSeriesID int64
	SourceID     int64
	Pocket       string
	Status       string
	BuilderID    int64
	DateCreated  time.Time
	DateStarted  time.Time
	DateFinished time.Time
	LogFilename  string
	FailureCount int64
	// Dependencies holds the unsatisfied build dependencies of a DEPWAIT
	// build, in Build-Depends syntax.
	Dependencies string
}

const buildColumns = `id, archive, distroarchseries, sourcepackagerelease, pocket, status, builder, date_created, date_started, date_finished, log_filename, failure_count, dependencies`

func scanBuild(stmt *sqlite.Stmt) *Build {
	return &Build{
		ID:           stmt.GetInt64("id"),
		ArchiveID:    stmt.GetInt64("archive"),
		ArchSeriesID: stmt.GetInt64("distroarchseries"),
		SourceID:     stmt.GetInt64("sourcepackagerelease"),
		Pocket:       stmt.GetText("pocket"),
		Status:       stmt.GetText("status"),
		BuilderID:    stmt.GetInt64("builder"),
		DateCreated:  getTime(stmt, "date_created"),
		DateStarted:  getTime(stmt, "date_started"),
		DateFinished: getTime(stmt, "date_finished"),
		LogFilename:  stmt.GetText("log_filename"),
		FailureCount: stmt.GetInt64("failure_count"),
		Dependencies: stmt.GetText("dependencies"),
	}
}

func (tx *Tx) CreateBuild(b *Build) error {
	if b.DateCreated.IsZero() {
		b.DateCreated = tx.Now()
	}
	if b.Status == "" {
		b.Status = BuildNeedsBuild
	}
	err := tx.exec(`INSERT INTO build (archive, distroarchseries, sourcepackagerelease, pocket, status, date_created) VALUES (?, ?, ?, ?, ?, ?)`,
		[]interface{}{b.ArchiveID, b.ArchSeriesID, b.SourceID, b.Pocket, b.Status, millis(b.DateCreated)}, nil)
	if err != nil {
		return xerrors.Errorf("create build: %w", err)
	}
	b.ID = tx.lastInsertID()
	return nil
}

func (tx *Tx) BuildByID(id int64) (*Build, error) {
	var b *Build
	err := tx.exec(`SELECT `+buildColumns+` FROM build WHERE id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			b = scanBuild(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, xerrors.Errorf("build %d: %w", id, ErrNotFound)
	}
	return b, nil
}

// FindBuild returns the build of sprID on archSeriesID in archiveID.
func (tx *Tx) FindBuild(archiveID, archSeriesID, sprID int64) (*Build, error) {
	var b *Build
	err := tx.exec(`SELECT `+buildColumns+` FROM build WHERE archive = ? AND distroarchseries = ? AND sourcepackagerelease = ?`,
		[]interface{}{archiveID, archSeriesID, sprID},
		func(stmt *sqlite.Stmt) error {
			b = scanBuild(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, xerrors.Errorf("build of source %d: %w", sprID, ErrNotFound)
	}
	return b, nil
}

// BuildsByStatus returns all builds in status, oldest first.
func (tx *Tx) BuildsByStatus(status string) ([]*Build, error) {
	var builds []*Build
	err := tx.exec(`SELECT `+buildColumns+` FROM build WHERE status = ? ORDER BY id`,
		[]interface{}{status},
		func(stmt *sqlite.Stmt) error {
			builds = append(builds, scanBuild(stmt))
			return nil
		})
	return builds, err
}

// BuildsOfSource returns all builds of sprID in archiveID.
func (tx *Tx) BuildsOfSource(archiveID, sprID int64) ([]*Build, error) {
	var builds []*Build
	err := tx.exec(`SELECT `+buildColumns+` FROM build WHERE archive = ? AND sourcepackagerelease = ? ORDER BY id`,
		[]interface{}{archiveID, sprID},
		func(stmt *sqlite.Stmt) error {
			builds = append(builds, scanBuild(stmt))
			return nil
		})
	return builds, err
}

// UpdateBuild stores the mutable fields of b.
func (tx *Tx) UpdateBuild(b *Build) error {
	err := tx.exec(`UPDATE build SET status = ?, builder = ?, date_started = ?, date_finished = ?, log_filename = ?, failure_count = ?, dependencies = ? WHERE id = ?`,
		[]interface{}{b.Status, nullID(b.BuilderID), millis(b.DateStarted), millis(b.DateFinished), b.LogFilename, b.FailureCount, b.Dependencies, b.ID},
		nil)
	if err != nil {
		return xerrors.Errorf("update build %d: %w", b.ID, err)
	}
	return nil
}
