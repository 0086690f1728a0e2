// Package jobs runs the queued jobs of the job table.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/oops"
	"github.com/distr1/soyuz/internal/store"
	"github.com/distr1/soyuz/internal/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// RetryError asks the runner to run the job again later.
type RetryError struct {
	Err error
	// After overrides the exponential backoff if non-zero.
	After time.Duration
}

func (r *RetryError) Error() string { return "retry: " + r.Err.Error() }
func (r *RetryError) Unwrap() error { return r.Err }

// Retry wraps err so that the job is retried with exponential backoff.
func Retry(err error) error { return &RetryError{Err: err} }

// RetryAfter wraps err so that the job is retried after d.
func RetryAfter(d time.Duration, err error) error { return &RetryError{Err: err, After: d} }

// Backoff returns the delay before the given attempt is retried: one minute
// after the first attempt, doubling up to an hour.
func Backoff(attempt int64) time.Duration {
	d := time.Minute
	for i := int64(1); i < attempt && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}

// Handler runs one job. The payload is available as job.Payload.
type Handler func(ctx context.Context, job *store.Job) error

// Stats counts what RunAll did.
type Stats struct {
	Completed int
	Retried   int
	Failed    int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d completed, %d retried, %d failed", s.Completed, s.Retried, s.Failed)
}

type Runner struct {
	Store  *store.Store
	Log    *log.Logger
	Config config.Jobs
	Oops   *oops.Reporter

	handlers map[string]Handler
}

// Register makes jobs of jobType run h.
func (r *Runner) Register(jobType string, h Handler) {
	if r.handlers == nil {
		r.handlers = make(map[string]Handler)
	}
	r.handlers[jobType] = h
}

// Types returns the registered job types.
func (r *Runner) Types() []string {
	var types []string
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// Enqueue creates a waiting job of jobType with payload marshaled to JSON.
func Enqueue(tx *store.Tx, jobType string, payload interface{}, maxRetries int) (*store.Job, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	j := &store.Job{
		Type:       jobType,
		Status:     store.JobWaiting,
		Payload:    string(b),
		MaxRetries: int64(maxRetries),
	}
	if err := tx.CreateJob(j); err != nil {
		return nil, err
	}
	return j, nil
}

// RunAll runs runnable jobs of jobType on Config.Workers workers until none
// are left.
func (r *Runner) RunAll(ctx context.Context, jobType string) (Stats, error) {
	h, ok := r.handlers[jobType]
	if !ok {
		return Stats{}, xerrors.Errorf("unknown job type %q", jobType)
	}
	failed, err := r.failAbandoned(ctx, jobType)
	if err != nil {
		return Stats{}, err
	}
	workers := r.Config.Workers
	if workers < 1 {
		workers = 1
	}
	var (
		statsMu sync.Mutex
		stats   = Stats{Failed: failed}
	)
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			for ctx.Err() == nil {
				var job *store.Job
				err := r.Store.Update(ctx, func(tx *store.Tx) error {
					var err error
					job, err = tx.ClaimJob(jobType, r.Config.LeaseTimeout.Duration)
					return err
				})
				if err != nil {
					if xerrors.Is(err, store.ErrNotFound) {
						return nil
					}
					return err
				}
				ev := trace.Event(jobType, "jobs", uint64(i)).Arg("job", strconv.FormatInt(job.ID, 10))
				outcome, err := r.run(ctx, h, job)
				ev.Arg("outcome", outcome).Done()
				if err != nil {
					return err
				}
				statsMu.Lock()
				switch outcome {
				case store.JobCompleted:
					stats.Completed++
				case store.JobWaiting:
					stats.Retried++
				case store.JobFailed:
					stats.Failed++
				}
				statsMu.Unlock()
			}
			return ctx.Err()
		})
	}
	err = eg.Wait()
	return stats, err
}

// failAbandoned marks the jobs whose worker went away during their last
// attempt as failed, with an OOPS report each.
func (r *Runner) failAbandoned(ctx context.Context, jobType string) (int, error) {
	var failed int
	err := r.Store.Update(ctx, func(tx *store.Tx) error {
		failed = 0
		jobs, err := tx.AbandonedJobs(jobType)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			jerr := xerrors.Errorf("lease expired during attempt %d of %d", job.AttemptCount, job.MaxRetries+1)
			var oopsID string
			if r.Oops != nil {
				rep, err := r.Oops.Error(jerr, r.oopsContext(job))
				if err != nil {
					r.Log.Printf("writing OOPS: %v", err)
				} else {
					oopsID = rep.ID
				}
			}
			r.Log.Printf("%s job %d failed (%s): %v", job.Type, job.ID, oopsID, jerr)
			if err := tx.FailJob(job.ID, jerr.Error(), oopsID); err != nil {
				return err
			}
			failed++
		}
		return nil
	})
	return failed, err
}

// call runs h, converting panics into errors carrying an OOPS id.
func (r *Runner) call(ctx context.Context, h Handler, job *store.Job) (oopsID string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = xerrors.Errorf("panic: %v", rec)
			if r.Oops != nil {
				rep, oerr := r.Oops.Panic(rec, r.oopsContext(job))
				if oerr != nil {
					r.Log.Printf("writing OOPS: %v", oerr)
				} else {
					oopsID = rep.ID
				}
			}
		}
	}()
	lease := r.Config.LeaseTimeout.Duration
	if lease > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lease)
		defer cancel()
	}
	return "", h(ctx, job)
}

func (r *Runner) oopsContext(job *store.Job) map[string]string {
	return map[string]string{
		"job_id":   strconv.FormatInt(job.ID, 10),
		"job_type": job.Type,
		"attempt":  strconv.FormatInt(job.AttemptCount, 10),
		"payload":  job.Payload,
	}
}

// run runs job and records the outcome. It returns the new job status.
func (r *Runner) run(ctx context.Context, h Handler, job *store.Job) (string, error) {
	r.Log.Printf("running %s job %d (attempt %d)", job.Type, job.ID, job.AttemptCount)
	oopsID, herr := r.call(ctx, h, job)
	if ctx.Err() != nil {
		// Shutting down: the lease expires and the job is picked up again.
		return "", ctx.Err()
	}

	var retry *RetryError
	switch {
	case herr == nil:
		r.Log.Printf("%s job %d completed", job.Type, job.ID)
		return store.JobCompleted, r.Store.Update(ctx, func(tx *store.Tx) error {
			return tx.CompleteJob(job.ID)
		})

	case xerrors.As(herr, &retry) && job.AttemptCount <= job.MaxRetries:
		after := retry.After
		if after == 0 {
			after = Backoff(job.AttemptCount)
		}
		r.Log.Printf("%s job %d: %v, retrying in %v", job.Type, job.ID, herr, after)
		return store.JobWaiting, r.Store.Update(ctx, func(tx *store.Tx) error {
			return tx.RetryJob(job.ID, tx.Now().Add(after), herr.Error())
		})

	default:
		if oopsID == "" && r.Oops != nil {
			rep, err := r.Oops.Error(herr, r.oopsContext(job))
			if err != nil {
				r.Log.Printf("writing OOPS: %v", err)
			} else {
				oopsID = rep.ID
			}
		}
		r.Log.Printf("%s job %d failed (%s): %v", job.Type, job.ID, oopsID, herr)
		return store.JobFailed, r.Store.Update(ctx, func(tx *store.Tx) error {
			return tx.FailJob(job.ID, herr.Error(), oopsID)
		})
	}
}
