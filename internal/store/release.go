package store

import (
	"time"

	"golang.org/x/xerrors"
	"zombiezen.com/go/sqlite"
)

// SourceRelease is an uploaded source package version (sourcepackagerelease).
type SourceRelease struct {
	ID            int64
	UploadArchive int64
	Name          string
	Version       string
	Component     string
	Section       string
	Urgency       string
	ArchHint      string
	BuildDepends  string
	Binaries      string // comma-separated binary package names
	Maintainer    string
	DscFilename   string
	Format        string // Format field of the .dsc
	DateUploaded  time.Time
}

// SourceFile is one file making up a SourceRelease.
type SourceFile struct {
	ID       int64
	SourceID int64
	Filename string
	Size     int64
	MD5      string
	SHA256   string
}

// DefaultSourceFormat is assumed for sources without a Format field.
const DefaultSourceFormat = "3.0 (quilt)"

const sourceColumns = `id, upload_archive, name, version, component, section, urgency, architecture_hint, build_depends, binaries, maintainer, dsc_filename, format, date_uploaded`

func scanSource(stmt *sqlite.Stmt) *SourceRelease {
	return &SourceRelease{
		ID:            stmt.GetInt64("id"),
		UploadArchive: stmt.GetInt64("upload_archive"),
		Name:          stmt.GetText("name"),
		Version:       stmt.GetText("version"),
		Component:     stmt.GetText("component"),
		Section:       stmt.GetText("section"),
		Urgency:       stmt.GetText("urgency"),
		ArchHint:      stmt.GetText("architecture_hint"),
		BuildDepends:  stmt.GetText("build_depends"),
		Binaries:      stmt.GetText("binaries"),
		Maintainer:    stmt.GetText("maintainer"),
		DscFilename:   stmt.GetText("dsc_filename"),
		Format:        stmt.GetText("format"),
		DateUploaded:  getTime(stmt, "date_uploaded"),
	}
}

// CreateSourceRelease inserts spr and its files, setting the IDs.
func (tx *Tx) CreateSourceRelease(spr *SourceRelease, files []*SourceFile) error {
	if spr.DateUploaded.IsZero() {
		spr.DateUploaded = tx.Now()
	}
	if spr.Urgency == "" {
		spr.Urgency = "medium"
	}
	if spr.Format == "" {
		spr.Format = DefaultSourceFormat
	}
	err := tx.exec(`INSERT INTO sourcepackagerelease (upload_archive, name, version, component, section, urgency, architecture_hint, build_depends, binaries, maintainer, dsc_filename, format, date_uploaded)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		[]interface{}{spr.UploadArchive, spr.Name, spr.Version, spr.Component, spr.Section, spr.Urgency, spr.ArchHint, spr.BuildDepends, spr.Binaries, spr.Maintainer, spr.DscFilename, spr.Format, millis(spr.DateUploaded)},
		nil)
	if err != nil {
		return xerrors.Errorf("create source %s %s: %w", spr.Name, spr.Version, err)
	}
	spr.ID = tx.lastInsertID()
	for _, f := range files {
		f.SourceID = spr.ID
		err := tx.exec(`INSERT INTO sourcepackagefile (sourcepackagerelease, filename, size, md5, sha256) VALUES (?, ?, ?, ?, ?)`,
			[]interface{}{f.SourceID, f.Filename, f.Size, f.MD5, f.SHA256}, nil)
		if err != nil {
			return xerrors.Errorf("create source file %s: %w", f.Filename, err)
		}
		f.ID = tx.lastInsertID()
	}
	return nil
}

func (tx *Tx) SourceReleaseByID(id int64) (*SourceRelease, error) {
	var spr *SourceRelease
	err := tx.exec(`SELECT `+sourceColumns+` FROM sourcepackagerelease WHERE id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			spr = scanSource(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if spr == nil {
		return nil, xerrors.Errorf("source %d: %w", id, ErrNotFound)
	}
	return spr, nil
}

// SourceRelease returns the release name/version uploaded to archiveID.
func (tx *Tx) SourceRelease(archiveID int64, name, version string) (*SourceRelease, error) {
	var spr *SourceRelease
	err := tx.exec(`SELECT `+sourceColumns+` FROM sourcepackagerelease WHERE upload_archive = ? AND name = ? AND version = ?`,
		[]interface{}{archiveID, name, version},
		func(stmt *sqlite.Stmt) error {
			spr = scanSource(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if spr == nil {
		return nil, xerrors.Errorf("source %s %s: %w", name, version, ErrNotFound)
	}
	return spr, nil
}

func (tx *Tx) SourceFiles(sprID int64) ([]*SourceFile, error) {
	var files []*SourceFile
	err := tx.exec(`SELECT id, sourcepackagerelease, filename, size, md5, sha256 FROM sourcepackagefile WHERE sourcepackagerelease = ? ORDER BY filename`,
		[]interface{}{sprID},
		func(stmt *sqlite.Stmt) error {
			files = append(files, &SourceFile{
				ID:       stmt.GetInt64("id"),
				SourceID: stmt.GetInt64("sourcepackagerelease"),
				Filename: stmt.GetText("filename"),
				Size:     stmt.GetInt64("size"),
				MD5:      stmt.GetText("md5"),
				SHA256:   stmt.GetText("sha256"),
			})
			return nil
		})
	return files, err
}

// BinaryRelease is a binary package produced by a build
// (binarypackagerelease).
type BinaryRelease struct {
	ID          int64
	BuildID     int64
	Name        string
	Version     string
	Arch        string // architecture tag or "all"
	Component   string
	Section     string
	Priority    string
	Depends     string
	Description string
	Filename    string
	Size        int64
	MD5         string
	SHA1        string
	SHA256      string
}

const binaryColumns = `id, build, name, version, architecture, component, section, priority, depends, description, filename, size, md5, sha1, sha256`

func scanBinary(stmt *sqlite.Stmt) *BinaryRelease {
	return &BinaryRelease{
		ID:          stmt.GetInt64("id"),
		BuildID:     stmt.GetInt64("build"),
		Name:        stmt.GetText("name"),
		Version:     stmt.GetText("version"),
		Arch:        stmt.GetText("architecture"),
		Component:   stmt.GetText("component"),
		Section:     stmt.GetText("section"),
		Priority:    stmt.GetText("priority"),
		Depends:     stmt.GetText("depends"),
		Description: stmt.GetText("description"),
		Filename:    stmt.GetText("filename"),
		Size:        stmt.GetInt64("size"),
		MD5:         stmt.GetText("md5"),
		SHA1:        stmt.GetText("sha1"),
		SHA256:      stmt.GetText("sha256"),
	}
}

func (tx *Tx) CreateBinaryRelease(bpr *BinaryRelease) error {
	if bpr.Priority == "" {
		bpr.Priority = "optional"
	}
	err := tx.exec(`INSERT INTO binarypackagerelease (build, name, version, architecture, component, section, priority, depends, description, filename, size, md5, sha1, sha256)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		[]interface{}{bpr.BuildID, bpr.Name, bpr.Version, bpr.Arch, bpr.Component, bpr.Section, bpr.Priority, bpr.Depends, bpr.Description, bpr.Filename, bpr.Size, bpr.MD5, bpr.SHA1, bpr.SHA256},
		nil)
	if err != nil {
		return xerrors.Errorf("create binary %s %s: %w", bpr.Name, bpr.Version, err)
	}
	bpr.ID = tx.lastInsertID()
	return nil
}

func (tx *Tx) BinaryReleaseByID(id int64) (*BinaryRelease, error) {
	var bpr *BinaryRelease
	err := tx.exec(`SELECT `+binaryColumns+` FROM binarypackagerelease WHERE id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			bpr = scanBinary(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if bpr == nil {
		return nil, xerrors.Errorf("binary %d: %w", id, ErrNotFound)
	}
	return bpr, nil
}

// BinariesOfBuild returns the binary packages produced by buildID.
func (tx *Tx) BinariesOfBuild(buildID int64) ([]*BinaryRelease, error) {
	var bprs []*BinaryRelease
	err := tx.exec(`SELECT `+binaryColumns+` FROM binarypackagerelease WHERE build = ? ORDER BY name`,
		[]interface{}{buildID},
		func(stmt *sqlite.Stmt) error {
			bprs = append(bprs, scanBinary(stmt))
			return nil
		})
	return bprs, err
}
