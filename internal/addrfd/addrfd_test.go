package addrfd

import (
	"flag"
	"io/ioutil"
	"os"
	"strconv"
	"testing"
)

func TestWrite(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	fd := RegisterFlags(fset)
	if err := fset.Parse([]string{"-addrfd=" + strconv.Itoa(int(w.Fd()))}); err != nil {
		t.Fatal(err)
	}
	if err := fd.Write("localhost:1234"); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "localhost:1234"; got != want {
		t.Errorf("read %q, want %q", got, want)
	}
}

func TestWriteUnset(t *testing.T) {
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	fd := RegisterFlags(fset)
	if err := fset.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if err := fd.Write("localhost:1234"); err != nil {
		t.Fatalf("Write without -addrfd: %v", err)
	}
}
