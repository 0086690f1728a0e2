package oops

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"
)

func TestError(t *testing.T) {
	now := time.Date(2024, 4, 25, 23, 30, 0, 0, time.UTC)
	r := &Reporter{
		Dir: soyuztest.TempRoot(t),
		Now: func() time.Time { return now },
	}
	cause := errors.New("disk full")
	rep, err := r.Error(xerrors.Errorf("writing index: %w", cause), map[string]string{"job": "42"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(rep.ID, "OOPS-") || len(rep.ID) != len("OOPS-")+12 {
		t.Errorf("unexpected id %q", rep.ID)
	}
	fn := r.Path(rep.ID, now)
	if !strings.Contains(fn, "/2024-04-25/") {
		t.Errorf("unexpected path %q", fn)
	}
	got, err := Read(fn)
	if err != nil {
		t.Fatal(err)
	}
	want := &Report{
		ID:      rep.ID,
		Time:    now,
		Type:    "*errors.errorString",
		Value:   "writing index: disk full",
		Context: map[string]string{"job": "42"},
		Stack:   rep.Stack,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read: diff (-want +got):\n%s", diff)
	}
}

func TestPanic(t *testing.T) {
	r := &Reporter{Dir: soyuztest.TempRoot(t)}
	var rep *Report
	func() {
		defer func() {
			var err error
			rep, err = r.Panic(recover(), nil)
			if err != nil {
				t.Fatal(err)
			}
		}()
		panic("boom")
	}()
	if got, want := rep.Value, "boom"; got != want {
		t.Errorf("Value: got %q, want %q", got, want)
	}
	if !strings.Contains(rep.Stack, "TestPanic") {
		t.Errorf("Stack does not mention the panicking function:\n%s", rep.Stack)
	}
}

func TestUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
