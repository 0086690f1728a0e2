package store

import (
	"time"

	"golang.org/x/xerrors"
	"zombiezen.com/go/sqlite"
)

// Build queue entry statuses.
const (
	QueueWaiting   = "WAITING"
	QueueRunning   = "RUNNING"
	QueueSuspended = "SUSPENDED"
)

// QueueEntry is a build which is waiting for or running on a builder
// (buildqueue).
type QueueEntry struct {
	ID          int64
	BuildID     int64
	BuilderID   int64
	LastScore   int64
	Manual      bool
	Status      string
	DateQueued  time.Time
	DateStarted time.Time
	Cookie      string
	Logtail     string
}

const queueColumns = `id, build, builder, lastscore, manual, status, date_queued, date_started, cookie, logtail`

func scanQueueEntry(stmt *sqlite.Stmt) *QueueEntry {
	return &QueueEntry{
		ID:          stmt.GetInt64("id"),
		BuildID:     stmt.GetInt64("build"),
		BuilderID:   stmt.GetInt64("builder"),
		LastScore:   stmt.GetInt64("lastscore"),
		Manual:      stmt.GetBool("manual"),
		Status:      stmt.GetText("status"),
		DateQueued:  getTime(stmt, "date_queued"),
		DateStarted: getTime(stmt, "date_started"),
		Cookie:      stmt.GetText("cookie"),
		Logtail:     stmt.GetText("logtail"),
	}
}

func (tx *Tx) CreateQueueEntry(q *QueueEntry) error {
	if q.DateQueued.IsZero() {
		q.DateQueued = tx.Now()
	}
	if q.Status == "" {
		q.Status = QueueWaiting
	}
	err := tx.exec(`INSERT INTO buildqueue (build, lastscore, manual, status, date_queued) VALUES (?, ?, ?, ?, ?)`,
		[]interface{}{q.BuildID, q.LastScore, boolInt(q.Manual), q.Status, millis(q.DateQueued)}, nil)
	if err != nil {
		return xerrors.Errorf("queue build %d: %w", q.BuildID, err)
	}
	q.ID = tx.lastInsertID()
	return nil
}

func (tx *Tx) queueEntry(where string, arg interface{}) (*QueueEntry, error) {
	var q *QueueEntry
	err := tx.exec(`SELECT `+queueColumns+` FROM buildqueue WHERE `+where,
		[]interface{}{arg},
		func(stmt *sqlite.Stmt) error {
			q = scanQueueEntry(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, xerrors.Errorf("buildqueue %s %v: %w", where, arg, ErrNotFound)
	}
	return q, nil
}

func (tx *Tx) QueueEntryByID(id int64) (*QueueEntry, error) {
	return tx.queueEntry("id = ?", id)
}

func (tx *Tx) QueueEntryByBuild(buildID int64) (*QueueEntry, error) {
	return tx.queueEntry("build = ?", buildID)
}

// QueueEntryByBuilder returns the entry currently assigned to builderID.
func (tx *Tx) QueueEntryByBuilder(builderID int64) (*QueueEntry, error) {
	return tx.queueEntry("builder = ?", builderID)
}

func (tx *Tx) UpdateQueueEntry(q *QueueEntry) error {
	err := tx.exec(`UPDATE buildqueue SET builder = ?, lastscore = ?, manual = ?, status = ?, date_started = ?, cookie = ?, logtail = ? WHERE id = ?`,
		[]interface{}{nullID(q.BuilderID), q.LastScore, boolInt(q.Manual), q.Status, millis(q.DateStarted), q.Cookie, q.Logtail, q.ID},
		nil)
	if err != nil {
		return xerrors.Errorf("update buildqueue %d: %w", q.ID, err)
	}
	return nil
}

func (tx *Tx) DeleteQueueEntry(id int64) error {
	return tx.exec(`DELETE FROM buildqueue WHERE id = ?`, []interface{}{id}, nil)
}

// Candidate is a waiting build queue entry joined with everything needed to
// score it and to match it against a builder.
type Candidate struct {
	QueueID    int64
	BuildID    int64
	LastScore  int64
	Manual     bool
	DateQueued time.Time

	ArchiveID          int64
	ArchivePurpose     string
	ArchivePrivate     bool
	ArchiveVirtualized bool
	RelativeBuildScore int64

	ArchSeriesID int64
	Architecture string
	Pocket       string

	SourceID      int64
	SourceName    string
	SourceVersion string
	Component     string
	Urgency       string
	BuildDepends  string
	Binaries      string
}

// WaitingCandidates returns all waiting queue entries, highest score first
// and older entries first among equal scores.
func (tx *Tx) WaitingCandidates() ([]*Candidate, error) {
	return tx.candidates(QueueWaiting)
}

// RunningCandidates returns the queue entries which are currently assigned
// to a builder.
func (tx *Tx) RunningCandidates() ([]*Candidate, error) {
	return tx.candidates(QueueRunning)
}

func (tx *Tx) candidates(status string) ([]*Candidate, error) {
	var cands []*Candidate
	err := tx.exec(`SELECT
  q.id AS queue_id, q.build AS build_id, q.lastscore, q.manual, q.date_queued,
  a.id AS archive_id, a.purpose, a.private, a.virtualized, a.relative_build_score,
  das.id AS das_id, das.architecture, b.pocket,
  spr.id AS spr_id, spr.name, spr.version, spr.component, spr.urgency, spr.build_depends, spr.binaries
FROM buildqueue q
JOIN build b ON b.id = q.build
JOIN archive a ON a.id = b.archive
JOIN distroarchseries das ON das.id = b.distroarchseries
JOIN sourcepackagerelease spr ON spr.id = b.sourcepackagerelease
WHERE q.status = ? AND a.enabled = 1
ORDER BY q.lastscore DESC, q.id ASC`,
		[]interface{}{status},
		func(stmt *sqlite.Stmt) error {
			cands = append(cands, &Candidate{
				QueueID:            stmt.GetInt64("queue_id"),
				BuildID:            stmt.GetInt64("build_id"),
				LastScore:          stmt.GetInt64("lastscore"),
				Manual:             stmt.GetBool("manual"),
				DateQueued:         getTime(stmt, "date_queued"),
				ArchiveID:          stmt.GetInt64("archive_id"),
				ArchivePurpose:     stmt.GetText("purpose"),
				ArchivePrivate:     stmt.GetBool("private"),
				ArchiveVirtualized: stmt.GetBool("virtualized"),
				RelativeBuildScore: stmt.GetInt64("relative_build_score"),
				ArchSeriesID:       stmt.GetInt64("das_id"),
				Architecture:       stmt.GetText("architecture"),
				Pocket:             stmt.GetText("pocket"),
				SourceID:           stmt.GetInt64("spr_id"),
				SourceName:         stmt.GetText("name"),
				SourceVersion:      stmt.GetText("version"),
				Component:          stmt.GetText("component"),
				Urgency:            stmt.GetText("urgency"),
				BuildDepends:       stmt.GetText("build_depends"),
				Binaries:           stmt.GetText("binaries"),
			})
			return nil
		})
	return cands, err
}

// SetScore updates the score of a queue entry.
func (tx *Tx) SetScore(queueID, score int64) error {
	return tx.exec(`UPDATE buildqueue SET lastscore = ? WHERE id = ?`, []interface{}{score, queueID}, nil)
}

// QueueLength returns the number of waiting queue entries per architecture.
func (tx *Tx) QueueLength() (map[string]int, error) {
	lengths := make(map[string]int)
	err := tx.exec(`SELECT das.architecture, COUNT(*) AS n
FROM buildqueue q
JOIN build b ON b.id = q.build
JOIN distroarchseries das ON das.id = b.distroarchseries
WHERE q.status = ?
GROUP BY das.architecture`,
		[]interface{}{QueueWaiting},
		func(stmt *sqlite.Stmt) error {
			lengths[stmt.GetText("architecture")] = int(stmt.GetInt64("n"))
			return nil
		})
	return lengths, err
}
