package main

import (
	"flag"
	"fmt"
	"os"
)

// usage prints helpText, followed by the flags of fset (if any) and the
// global flags which go before the verb.
func usage(fset *flag.FlagSet, helpText string) func() {
	return func() {
		fmt.Fprintln(os.Stderr, helpText)
		n := 0
		fset.VisitAll(func(*flag.Flag) { n++ })
		if n > 0 {
			fmt.Fprintf(os.Stderr, "Flags of soyuz %s:\n", fset.Name())
			fset.PrintDefaults()
			fmt.Fprintln(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "Global flags (soyuz [global flags] %s):\n", fset.Name())
		flag.PrintDefaults()
	}
}
