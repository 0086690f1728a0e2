package store

import (
	"time"

	"golang.org/x/xerrors"
	"zombiezen.com/go/sqlite"
)

// Job statuses.
const (
	JobWaiting   = "WAITING"
	JobRunning   = "RUNNING"
	JobCompleted = "COMPLETED"
	JobFailed    = "FAILED"
	JobSuspended = "SUSPENDED"
)

type Job struct {
	ID             int64
	Type           string
	Status         string
	Payload        string // JSON
	AttemptCount   int64
	MaxRetries     int64
	LeaseExpires   time.Time
	ScheduledStart time.Time
	DateCreated    time.Time
	DateStarted    time.Time
	DateFinished   time.Time
	LastError      string
	OopsID         string
}

const jobColumns = `id, job_type, status, payload, attempt_count, max_retries, lease_expires, scheduled_start, date_created, date_started, date_finished, last_error, oops_id`

func scanJob(stmt *sqlite.Stmt) *Job {
	return &Job{
		ID:             stmt.GetInt64("id"),
		Type:           stmt.GetText("job_type"),
		Status:         stmt.GetText("status"),
		Payload:        stmt.GetText("payload"),
		AttemptCount:   stmt.GetInt64("attempt_count"),
		MaxRetries:     stmt.GetInt64("max_retries"),
		LeaseExpires:   getTime(stmt, "lease_expires"),
		ScheduledStart: getTime(stmt, "scheduled_start"),
		DateCreated:    getTime(stmt, "date_created"),
		DateStarted:    getTime(stmt, "date_started"),
		DateFinished:   getTime(stmt, "date_finished"),
		LastError:      stmt.GetText("last_error"),
		OopsID:         stmt.GetText("oops_id"),
	}
}

func (tx *Tx) CreateJob(j *Job) error {
	if j.DateCreated.IsZero() {
		j.DateCreated = tx.Now()
	}
	if j.Status == "" {
		j.Status = JobWaiting
	}
	if j.Payload == "" {
		j.Payload = "{}"
	}
	err := tx.exec(`INSERT INTO job (job_type, status, payload, max_retries, scheduled_start, date_created) VALUES (?, ?, ?, ?, ?, ?)`,
		[]interface{}{j.Type, j.Status, j.Payload, j.MaxRetries, millis(j.ScheduledStart), millis(j.DateCreated)},
		nil)
	if err != nil {
		return xerrors.Errorf("create %s job: %w", j.Type, err)
	}
	j.ID = tx.lastInsertID()
	return nil
}

func (tx *Tx) JobByID(id int64) (*Job, error) {
	var j *Job
	err := tx.exec(`SELECT `+jobColumns+` FROM job WHERE id = ?`,
		[]interface{}{id},
		func(stmt *sqlite.Stmt) error {
			j = scanJob(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, xerrors.Errorf("job %d: %w", id, ErrNotFound)
	}
	return j, nil
}

// Jobs returns the jobs of jobType in status (any status if empty).
func (tx *Tx) Jobs(jobType, status string) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job WHERE job_type = ?`
	args := []interface{}{jobType}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	var jobs []*Job
	err := tx.exec(query+` ORDER BY id`, args, func(stmt *sqlite.Stmt) error {
		jobs = append(jobs, scanJob(stmt))
		return nil
	})
	return jobs, err
}

// ClaimJob leases the oldest runnable job of jobType until now+lease. A job
// is runnable when it is waiting and due, or running with an expired lease
// and attempts left (see AbandonedJobs). ErrNotFound is returned when there
// is nothing to run.
func (tx *Tx) ClaimJob(jobType string, lease time.Duration) (*Job, error) {
	now := tx.Now()
	var j *Job
	err := tx.exec(`SELECT `+jobColumns+` FROM job
WHERE job_type = ? AND (
  (status = ? AND (scheduled_start IS NULL OR scheduled_start <= ?)) OR
  (status = ? AND lease_expires < ? AND attempt_count <= max_retries))
ORDER BY id LIMIT 1`,
		[]interface{}{jobType, JobWaiting, now.UnixMilli(), JobRunning, now.UnixMilli()},
		func(stmt *sqlite.Stmt) error {
			j = scanJob(stmt)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, xerrors.Errorf("runnable %s job: %w", jobType, ErrNotFound)
	}
	j.Status = JobRunning
	j.AttemptCount++
	j.LeaseExpires = now.Add(lease)
	j.DateStarted = now
	if err := tx.updateJob(j); err != nil {
		return nil, err
	}
	return j, nil
}

// AbandonedJobs returns the running jobs of jobType whose lease expired
// after their last permitted attempt. ClaimJob does not return these.
func (tx *Tx) AbandonedJobs(jobType string) ([]*Job, error) {
	var jobs []*Job
	err := tx.exec(`SELECT `+jobColumns+` FROM job
WHERE job_type = ? AND status = ? AND lease_expires < ? AND attempt_count > max_retries
ORDER BY id`,
		[]interface{}{jobType, JobRunning, tx.Now().UnixMilli()},
		func(stmt *sqlite.Stmt) error {
			jobs = append(jobs, scanJob(stmt))
			return nil
		})
	return jobs, err
}

// CompleteJob marks job id as completed.
func (tx *Tx) CompleteJob(id int64) error {
	j, err := tx.JobByID(id)
	if err != nil {
		return err
	}
	j.Status = JobCompleted
	j.DateFinished = tx.Now()
	j.LeaseExpires = time.Time{}
	return tx.updateJob(j)
}

// FailJob marks job id as failed, recording the error and its OOPS id.
func (tx *Tx) FailJob(id int64, lastErr, oopsID string) error {
	j, err := tx.JobByID(id)
	if err != nil {
		return err
	}
	j.Status = JobFailed
	j.DateFinished = tx.Now()
	j.LeaseExpires = time.Time{}
	j.LastError = lastErr
	j.OopsID = oopsID
	return tx.updateJob(j)
}

// RetryJob puts job id back into the waiting state, due at start.
func (tx *Tx) RetryJob(id int64, start time.Time, lastErr string) error {
	j, err := tx.JobByID(id)
	if err != nil {
		return err
	}
	j.Status = JobWaiting
	j.LeaseExpires = time.Time{}
	j.ScheduledStart = start
	j.LastError = lastErr
	return tx.updateJob(j)
}

func (tx *Tx) updateJob(j *Job) error {
	err := tx.exec(`UPDATE job SET status = ?, attempt_count = ?, lease_expires = ?, scheduled_start = ?, date_started = ?, date_finished = ?, last_error = ?, oops_id = ? WHERE id = ?`,
		[]interface{}{j.Status, j.AttemptCount, millis(j.LeaseExpires), millis(j.ScheduledStart), millis(j.DateStarted), millis(j.DateFinished), j.LastError, j.OopsID, j.ID},
		nil)
	if err != nil {
		return xerrors.Errorf("update job %d: %w", j.ID, err)
	}
	return nil
}
