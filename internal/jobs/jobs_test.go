package jobs

import (
	"context"
	"errors"
	"io/ioutil"
	"log"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/distr1/soyuz/internal/config"
	"github.com/distr1/soyuz/internal/oops"
	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"
)

func newRunner(t *testing.T, f *soyuztest.Fixture) *Runner {
	return &Runner{
		Store: f.Store,
		Log:   log.New(ioutil.Discard, "", 0),
		Config: config.Jobs{
			Workers:      2,
			LeaseTimeout: config.Duration{Duration: time.Minute},
		},
		Oops: &oops.Reporter{
			Dir: soyuztest.TempRoot(t),
			Now: func() time.Time { return soyuztest.Epoch },
		},
	}
}

func enqueue(t *testing.T, f *soyuztest.Fixture, jobType string, payload interface{}, maxRetries int) *store.Job {
	t.Helper()
	var j *store.Job
	err := f.Store.Update(context.Background(), func(tx *store.Tx) error {
		var err error
		j, err = Enqueue(tx, jobType, payload, maxRetries)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func job(t *testing.T, f *soyuztest.Fixture, id int64) *store.Job {
	t.Helper()
	var j *store.Job
	err := f.Store.View(context.Background(), func(tx *store.Tx) error {
		var err error
		j, err = tx.JobByID(id)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func TestBackoff(t *testing.T) {
	for _, tt := range []struct {
		attempt int64
		want    time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{7, time.Hour},
		{100, time.Hour},
	} {
		if got := Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	r := newRunner(t, f)

	type payload struct {
		Action string `json:"action"`
	}
	r.Register("test", func(ctx context.Context, j *store.Job) error {
		switch j.Payload {
		case `{"action":"ok"}`:
			return nil
		case `{"action":"flaky"}`:
			if j.AttemptCount == 1 {
				return Retry(errors.New("try again"))
			}
			return nil
		case `{"action":"always-retry"}`:
			return Retry(errors.New("try again"))
		case `{"action":"panic"}`:
			panic("boom")
		}
		return errors.New("permanent failure")
	})
	ok := enqueue(t, f, "test", payload{"ok"}, 0)
	flaky := enqueue(t, f, "test", payload{"flaky"}, 3)
	exhausted := enqueue(t, f, "test", payload{"always-retry"}, 1)
	failing := enqueue(t, f, "test", payload{"fail"}, 3)
	panicking := enqueue(t, f, "test", payload{"panic"}, 3)
	other := enqueue(t, f, "other", payload{"ok"}, 0)

	stats, err := r.RunAll(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Stats{Completed: 1, Retried: 2, Failed: 2}, stats); diff != "" {
		t.Errorf("first RunAll: diff (-want +got):\n%s", diff)
	}
	if got := job(t, f, flaky.ID); got.Status != store.JobWaiting || !got.ScheduledStart.Equal(soyuztest.Epoch.Add(time.Minute)) {
		t.Errorf("flaky job: got %s scheduled at %v, want %s at %v", got.Status, got.ScheduledStart, store.JobWaiting, soyuztest.Epoch.Add(time.Minute))
	}

	soyuztest.SetClock(t, func() time.Time { return soyuztest.Epoch.Add(2 * time.Minute) })
	stats, err = r.RunAll(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Stats{Completed: 1, Failed: 1}, stats); diff != "" {
		t.Errorf("second RunAll: diff (-want +got):\n%s", diff)
	}

	for _, tt := range []struct {
		desc     string
		id       int64
		want     string
		wantOops bool
	}{
		{"ok", ok.ID, store.JobCompleted, false},
		{"flaky", flaky.ID, store.JobCompleted, false},
		{"exhausted", exhausted.ID, store.JobFailed, true},
		{"failing", failing.ID, store.JobFailed, true},
		{"panicking", panicking.ID, store.JobFailed, true},
		{"other type", other.ID, store.JobWaiting, false},
	} {
		got := job(t, f, tt.id)
		if got.Status != tt.want {
			t.Errorf("%s: got status %s, want %s", tt.desc, got.Status, tt.want)
		}
		if (got.OopsID != "") != tt.wantOops {
			t.Errorf("%s: got OOPS id %q, want OOPS: %v", tt.desc, got.OopsID, tt.wantOops)
		}
		if got.OopsID != "" {
			if _, err := os.Stat(r.Oops.Path(got.OopsID, soyuztest.Epoch)); err != nil {
				t.Errorf("%s: %v", tt.desc, err)
			}
		}
	}
	if got, want := job(t, f, failing.ID).LastError, "permanent failure"; got != want {
		t.Errorf("failing job: LastError = %q, want %q", got, want)
	}
}

func TestExpiredLease(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	r := newRunner(t, f)
	var runs int
	r.Register("test", func(ctx context.Context, j *store.Job) error {
		runs++
		return nil
	})
	r.Config.Workers = 1
	retried := enqueue(t, f, "test", nil, 1)
	exhausted := enqueue(t, f, "test", nil, 0)
	// Simulate a runner which died while holding the leases.
	err := f.Store.Update(ctx, func(tx *store.Tx) error {
		for i := 0; i < 2; i++ {
			if _, err := tx.ClaimJob("test", time.Minute); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.RunAll(ctx, "test"); err != nil {
		t.Fatal(err)
	}
	if runs != 0 {
		t.Fatalf("leased job ran before its lease expired")
	}
	soyuztest.SetClock(t, func() time.Time { return soyuztest.Epoch.Add(2 * time.Minute) })
	stats, err := r.RunAll(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}
	if runs != 1 {
		t.Errorf("jobs ran %d times, want 1", runs)
	}
	if diff := cmp.Diff(Stats{Completed: 1, Failed: 1}, stats); diff != "" {
		t.Errorf("RunAll: diff (-want +got):\n%s", diff)
	}
	if got := job(t, f, retried.ID); got.Status != store.JobCompleted || got.AttemptCount != 2 {
		t.Errorf("job with retries left: got %s after %d attempts, want %s after 2", got.Status, got.AttemptCount, store.JobCompleted)
	}
	got := job(t, f, exhausted.ID)
	if got.Status != store.JobFailed || got.AttemptCount != 1 {
		t.Errorf("job without retries left: got %s after %d attempts, want %s after 1", got.Status, got.AttemptCount, store.JobFailed)
	}
	if got.OopsID == "" {
		t.Errorf("abandoned job failed without an OOPS id")
	}
	if _, err := os.Stat(r.Oops.Path(got.OopsID, soyuztest.Epoch)); err != nil {
		t.Errorf("OOPS report: %v", err)
	}
}

func TestUnknownType(t *testing.T) {
	f := soyuztest.NewFixture(t)
	if _, err := newRunner(t, f).RunAll(context.Background(), "nope"); err == nil {
		t.Errorf("RunAll(unknown type) succeeded unexpectedly")
	}
}

// publications returns "name version status" of archive's live source and
// "name/arch version" of its binary publications.
func publications(t *testing.T, f *soyuztest.Fixture, a *store.Archive, series *store.Series, pocket string) (srcs, bins []string) {
	t.Helper()
	err := f.Store.View(context.Background(), func(tx *store.Tx) error {
		sp, err := tx.SourcePublications(store.PubFilter{ArchiveID: a.ID, SeriesID: series.ID, Pocket: pocket})
		if err != nil {
			return err
		}
		for _, p := range sp {
			srcs = append(srcs, p.Name+" "+p.Version+" "+p.Status)
		}
		bp, err := tx.BinaryPublications(store.PubFilter{ArchiveID: a.ID, SeriesID: series.ID, Pocket: pocket})
		if err != nil {
			return err
		}
		for _, p := range bp {
			das, err := tx.ArchSeriesByID(p.ArchSeriesID)
			if err != nil {
				return err
			}
			bins = append(bins, p.Name+"/"+das.Architecture+" "+p.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(bins)
	return srcs, bins
}

func TestCopyPackage(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	spr, _ := f.AddSource(t, f.PPA, f.Dev, soyuztest.Source{Name: "hello", Version: "1.0-1", Status: store.PubPublished})
	f.AddSource(t, f.PPA, f.Dev, soyuztest.Source{Name: "hello", Version: "0.9-1", Status: store.PubPublished})
	err := f.Store.Update(ctx, func(tx *store.Tx) error {
		b := &store.Build{
			ArchiveID:    f.PPA.ID,
			ArchSeriesID: f.Arch["amd64"].ID,
			SourceID:     spr.ID,
			Pocket:       "release",
			Status:       store.BuildFullyBuilt,
		}
		if err := tx.CreateBuild(b); err != nil {
			return err
		}
		for _, bpr := range []*store.BinaryRelease{
			{Name: "hello", Arch: "amd64", Filename: "hello_1.0-1_amd64.deb"},
			{Name: "hello-doc", Arch: "all", Filename: "hello-doc_1.0-1_all.deb"},
		} {
			bpr.BuildID = b.ID
			bpr.Version = "1.0-1"
			bpr.Component = "main"
			if err := tx.CreateBinaryRelease(bpr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	r := newRunner(t, f)
	Register(r)
	enqueue(t, f, TypeCopyPackage, CopyRequest{
		Source:          "hello",
		FromArchive:     "~alice/ppa",
		ToArchive:       "primary",
		ToSeries:        "oracular",
		ToPocket:        "proposed",
		IncludeBinaries: true,
	}, 0)
	stats, err := r.RunAll(ctx, TypeCopyPackage)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Completed != 1 {
		t.Fatalf("RunAll: %v, want 1 completed", stats)
	}
	srcs, bins := publications(t, f, f.Primary, f.Dev, "proposed")
	if diff := cmp.Diff([]string{"hello 1.0-1 PENDING"}, srcs); diff != "" {
		t.Errorf("copied sources: diff (-want +got):\n%s", diff)
	}
	wantBins := []string{"hello-doc/amd64 1.0-1", "hello-doc/i386 1.0-1", "hello/amd64 1.0-1"}
	if diff := cmp.Diff(wantBins, bins); diff != "" {
		t.Errorf("copied binaries: diff (-want +got):\n%s", diff)
	}

	c := &Copier{Store: f.Store, Log: r.Log}
	again := CopyRequest{Source: "hello", Version: "1.0-1", FromArchive: "~alice/ppa", ToArchive: "primary", ToSeries: "oracular", ToPocket: "proposed"}
	if err := c.Copy(ctx, again); !xerrors.Is(err, ErrAlreadyPublished) {
		t.Errorf("second copy: got %v, want %v", err, ErrAlreadyPublished)
	}
	frozen := CopyRequest{Source: "hello", FromArchive: "~alice/ppa", ToArchive: "primary", ToSeries: "noble", ToPocket: "release"}
	if err := c.Copy(ctx, frozen); !xerrors.Is(err, ErrFrozen) {
		t.Errorf("copy into frozen pocket: got %v, want %v", err, ErrFrozen)
	}
	missing := CopyRequest{Source: "hello", Version: "2.0", FromArchive: "~alice/ppa", ToArchive: "primary", ToSeries: "oracular", ToPocket: "proposed"}
	if err := c.Copy(ctx, missing); !xerrors.Is(err, store.ErrNotFound) {
		t.Errorf("copy of missing version: got %v, want %v", err, store.ErrNotFound)
	}

	older := CopyRequest{Source: "hello", Version: "0.9-1", FromArchive: "~alice/ppa", ToArchive: "primary", ToSeries: "noble", ToPocket: "updates", IncludeBinaries: true}
	if err := c.Copy(ctx, older); err != nil {
		t.Fatal(err)
	}
	srcs, bins = publications(t, f, f.Primary, f.Stable, "updates")
	if diff := cmp.Diff([]string{"hello 0.9-1 PENDING"}, srcs); diff != "" {
		t.Errorf("copied sources: diff (-want +got):\n%s", diff)
	}
	if len(bins) != 0 {
		t.Errorf("copied binaries of an unbuilt source: %v", bins)
	}
}

func TestRetryDepWaitJob(t *testing.T) {
	f := soyuztest.NewFixture(t)
	r := newRunner(t, f)
	Register(r)
	j := enqueue(t, f, TypeRetryDepWait, struct{}{}, 0)
	if _, err := r.RunAll(context.Background(), TypeRetryDepWait); err != nil {
		t.Fatal(err)
	}
	if got := job(t, f, j.ID).Status; got != store.JobCompleted {
		t.Errorf("retry-depwait job: got %s, want %s", got, store.JobCompleted)
	}
}
