package librarian

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/google/go-cmp/cmp"
)

func TestAdd(t *testing.T) {
	tmp := soyuztest.TempRoot(t)
	src := filepath.Join(tmp, "hello.txt")
	if err := ioutil.WriteFile(src, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	l := &Librarian{Dir: filepath.Join(tmp, "librarian")}
	h, err := l.Add(src)
	if err != nil {
		t.Fatal(err)
	}
	want := Hashes{
		Size:   6,
		MD5:    "b1946ac92492d2347c6235b4d2611184",
		SHA1:   "f572d396fae9206628714fb2ce00f72e94f2258f",
		SHA256: "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03",
	}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Errorf("Add: diff (-want +got):\n%s", diff)
	}
	got, err := ioutil.ReadFile(l.Path(h.SHA256))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello\n" {
		t.Errorf("stored content = %q, want %q", got, "hello\n")
	}
	// Adding the same content again is fine.
	if _, err := l.Add(src); err != nil {
		t.Fatal(err)
	}
}
