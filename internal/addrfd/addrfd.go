// Package addrfd lets servers listening on a dynamically picked port tell
// their parent process (typically a test) which address they got.
package addrfd

import (
	"flag"
	"log"
	"os"
)

type FD struct {
	fd *int
}

// RegisterFlags registers the -addrfd flag on fset.
func RegisterFlags(fset *flag.FlagSet) *FD {
	return &FD{
		fd: fset.Int("addrfd", -1, "File descriptor on which to print the picked address"),
	}
}

// Write communicates listening address addr to the parent process via the
// file descriptor number passed to -addrfd, if any. It must be called at
// most once, as it closes the file descriptor.
func (a *FD) Write(addr string) error {
	if *a.fd == -1 {
		return nil
	}
	f := os.NewFile(uintptr(*a.fd), "addrfd")
	if _, err := f.Write([]byte(addr)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MustWrite is like Write, but exits the process on errors.
func (a *FD) MustWrite(addr string) {
	if err := a.Write(addr); err != nil {
		log.Fatal(err)
	}
}
