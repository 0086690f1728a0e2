package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"
)

func TestUpdateRollback(t *testing.T) {
	ctx := context.Background()
	st := soyuztest.NewStore(t)
	errBoom := errors.New("boom")
	err := st.Update(ctx, func(tx *store.Tx) error {
		if err := tx.EnsureArchive(&store.Archive{Name: "primary", Purpose: store.PurposePrimary}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Update: got %v, want %v", err, errBoom)
	}
	err = st.View(ctx, func(tx *store.Tx) error {
		_, err := tx.ArchiveByName("", "primary")
		return err
	})
	if !xerrors.Is(err, store.ErrNotFound) {
		t.Fatalf("ArchiveByName after rollback: got %v, want ErrNotFound", err)
	}
}

func TestViewDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	st := soyuztest.NewStore(t)
	err := st.View(ctx, func(tx *store.Tx) error {
		return tx.EnsureArchive(&store.Archive{Name: "primary", Purpose: store.PurposePrimary})
	})
	if err != nil {
		t.Fatal(err)
	}
	err = st.View(ctx, func(tx *store.Tx) error {
		archives, err := tx.Archives("")
		if err != nil {
			return err
		}
		if len(archives) != 0 {
			t.Errorf("Archives: got %d archives, want none", len(archives))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEnsureBuilderKeepsState(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	err := f.Store.Update(ctx, func(tx *store.Tx) error {
		f.Bob.OK = false
		f.Bob.FailureCount = 5
		f.Bob.FailNotes = "unreachable"
		if err := tx.UpdateBuilderState(f.Bob); err != nil {
			return err
		}
		b := &store.Builder{Name: "bob", URL: "localhost:9", Processor: "amd64"}
		if err := tx.EnsureBuilder(b); err != nil {
			return err
		}
		want := &store.Builder{
			ID:           f.Bob.ID,
			Name:         "bob",
			URL:          "localhost:9",
			Processor:    "amd64",
			FailNotes:    "unreachable",
			FailureCount: 5,
		}
		if diff := cmp.Diff(want, b); diff != "" {
			t.Errorf("EnsureBuilder: diff (-want +got):\n%s", diff)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEnsureSeriesDisablesArchs(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	err := f.Store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.EnsureSeries(f.Dev, []string{"amd64", "arm64"}); err != nil {
			return err
		}
		das, err := tx.ArchSeries(f.Dev.ID)
		if err != nil {
			return err
		}
		var got []string
		for _, d := range das {
			got = append(got, d.Architecture)
		}
		if diff := cmp.Diff([]string{"amd64", "arm64"}, got); diff != "" {
			t.Errorf("ArchSeries: diff (-want +got):\n%s", diff)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWaitingCandidates(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	hello, _ := f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1.0-1"})
	world, _ := f.AddSource(t, f.PPA, f.Dev, soyuztest.Source{Name: "world", Version: "2.0-1", Component: "universe"})
	err := f.Store.Update(ctx, func(tx *store.Tx) error {
		for _, q := range []struct {
			archive *store.Archive
			spr     *store.SourceRelease
			score   int64
		}{
			{f.Primary, hello, 100},
			{f.PPA, world, 200},
		} {
			b := &store.Build{
				ArchiveID:    q.archive.ID,
				ArchSeriesID: f.Arch["amd64"].ID,
				SourceID:     q.spr.ID,
				Pocket:       "release",
			}
			if err := tx.CreateBuild(b); err != nil {
				return err
			}
			if err := tx.CreateQueueEntry(&store.QueueEntry{BuildID: b.ID, LastScore: q.score}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	err = f.Store.View(ctx, func(tx *store.Tx) error {
		cands, err := tx.WaitingCandidates()
		if err != nil {
			return err
		}
		var got []string
		for _, c := range cands {
			got = append(got, c.SourceName+"/"+c.ArchivePurpose+"/"+c.Component)
		}
		want := []string{"world/ppa/universe", "hello/primary/main"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("WaitingCandidates: diff (-want +got):\n%s", diff)
		}
		lengths, err := tx.QueueLength()
		if err != nil {
			return err
		}
		if diff := cmp.Diff(map[string]int{"amd64": 2}, lengths); diff != "" {
			t.Errorf("QueueLength: diff (-want +got):\n%s", diff)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestDuplicateBuildRefused(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	hello, _ := f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1.0-1"})
	err := f.Store.Update(ctx, func(tx *store.Tx) error {
		for i := 0; i < 2; i++ {
			b := &store.Build{
				ArchiveID:    f.Primary.ID,
				ArchSeriesID: f.Arch["amd64"].ID,
				SourceID:     hello.ID,
				Pocket:       "release",
			}
			if err := tx.CreateBuild(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		t.Fatal("CreateBuild succeeded twice for the same source, arch and archive")
	}
}

func TestClaimJob(t *testing.T) {
	ctx := context.Background()
	now := soyuztest.Epoch
	soyuztest.SetClock(t, func() time.Time { return now })
	st := soyuztest.NewStore(t)
	err := st.Update(ctx, func(tx *store.Tx) error {
		if err := tx.CreateJob(&store.Job{Type: "copy-package", ScheduledStart: now.Add(time.Hour)}); err != nil {
			return err
		}
		return tx.CreateJob(&store.Job{Type: "copy-package", MaxRetries: 3})
	})
	if err != nil {
		t.Fatal(err)
	}

	claim := func() (*store.Job, error) {
		var j *store.Job
		err := st.Update(ctx, func(tx *store.Tx) error {
			var err error
			j, err = tx.ClaimJob("copy-package", 10*time.Minute)
			return err
		})
		return j, err
	}

	j, err := claim()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := j.ID, int64(2); got != want {
		t.Errorf("claimed job %d, want %d (job 1 is not due)", got, want)
	}
	if got, want := j.AttemptCount, int64(1); got != want {
		t.Errorf("AttemptCount = %d, want %d", got, want)
	}
	if _, err := claim(); !xerrors.Is(err, store.ErrNotFound) {
		t.Fatalf("second claim: got %v, want ErrNotFound", err)
	}

	// Once the lease expires, the job can be claimed again.
	now = now.Add(11 * time.Minute)
	j, err = claim()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := j.AttemptCount, int64(2); got != want {
		t.Errorf("AttemptCount = %d, want %d", got, want)
	}

	err = st.Update(ctx, func(tx *store.Tx) error {
		if err := tx.FailJob(j.ID, "boom", "OOPS-1"); err != nil {
			return err
		}
		got, err := tx.JobByID(j.ID)
		if err != nil {
			return err
		}
		if got.Status != store.JobFailed || got.OopsID != "OOPS-1" || got.LastError != "boom" {
			t.Errorf("after FailJob: got status %q, oops %q, error %q", got.Status, got.OopsID, got.LastError)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestFileInUse(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	files := []*store.SourceFile{{Filename: "hello_1.0-1.dsc", Size: 1, MD5: "x", SHA256: "y"}}
	_, spph := f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1.0-1", Files: files})
	inUse := func() bool {
		var used bool
		err := f.Store.View(ctx, func(tx *store.Tx) error {
			var err error
			used, err = tx.FileInUse(f.Primary.ID, "hello_1.0-1.dsc")
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		return used
	}
	if !inUse() {
		t.Errorf("FileInUse = false for a pending publication")
	}
	err := f.Store.Update(ctx, func(tx *store.Tx) error {
		spph.Status = store.PubSuperseded
		return tx.UpdateSourcePublication(spph)
	})
	if err != nil {
		t.Fatal(err)
	}
	if inUse() {
		t.Errorf("FileInUse = true after supersession")
	}
}

func TestPublicationFilter(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1.0-1"})
	f.AddSource(t, f.Primary, f.Dev, soyuztest.Source{Name: "hello", Version: "1.0-2", Pocket: "updates"})
	f.AddSource(t, f.Primary, f.Stable, soyuztest.Source{Name: "hello", Version: "0.9-1", Status: store.PubPublished})
	f.AddSource(t, f.PPA, f.Dev, soyuztest.Source{Name: "world", Version: "1"})

	for _, tt := range []struct {
		name   string
		filter store.PubFilter
		want   []string
	}{
		{"All", store.PubFilter{}, []string{"hello 1.0-1", "hello 1.0-2", "hello 0.9-1", "world 1"}},
		{"Archive", store.PubFilter{ArchiveID: f.PPA.ID}, []string{"world 1"}},
		{"SeriesPocket", store.PubFilter{SeriesID: f.Dev.ID, Pocket: "updates"}, []string{"hello 1.0-2"}},
		{"Status", store.PubFilter{Statuses: []string{store.PubPublished}}, []string{"hello 0.9-1"}},
		{"Name", store.PubFilter{Name: "world"}, []string{"world 1"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Store.View(ctx, func(tx *store.Tx) error {
				pubs, err := tx.SourcePublications(tt.filter)
				if err != nil {
					return err
				}
				var got []string
				for _, p := range pubs {
					got = append(got, p.Name+" "+p.Version)
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("SourcePublications: diff (-want +got):\n%s", diff)
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestDirtySuites(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	err := f.Store.Update(ctx, func(tx *store.Tx) error {
		for _, pocket := range []string{"updates", "release", "updates"} {
			if err := tx.MarkSuiteDirty(f.PPA.ID, f.Dev.ID, pocket); err != nil {
				return err
			}
		}
		got, err := tx.DirtySuites(f.PPA.ID)
		if err != nil {
			return err
		}
		want := []store.DirtySuite{
			{SeriesID: f.Dev.ID, Pocket: "release"},
			{SeriesID: f.Dev.ID, Pocket: "updates"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("DirtySuites: diff (-want +got):\n%s", diff)
		}
		if work, err := tx.HasPendingWork(f.PPA.ID); err != nil || !work {
			t.Errorf("HasPendingWork = %v, %v, want true", work, err)
		}
		if work, err := tx.HasPendingWork(f.Primary.ID); err != nil || work {
			t.Errorf("HasPendingWork(primary) = %v, %v, want false", work, err)
		}
		for _, pocket := range []string{"release", "updates"} {
			if err := tx.ClearDirtySuite(f.PPA.ID, f.Dev.ID, pocket); err != nil {
				return err
			}
		}
		if work, err := tx.HasPendingWork(f.PPA.ID); err != nil || work {
			t.Errorf("HasPendingWork after clearing = %v, %v, want false", work, err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
