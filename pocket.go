package soyuz

import (
	"strings"

	"golang.org/x/xerrors"
)

// Pocket is a publishing target within a series.
type Pocket int

const (
	PocketRelease Pocket = iota
	PocketSecurity
	PocketUpdates
	PocketProposed
	PocketBackports
)

// Pockets lists all pockets in suite order.
var Pockets = []Pocket{
	PocketRelease,
	PocketSecurity,
	PocketUpdates,
	PocketProposed,
	PocketBackports,
}

var pocketNames = map[Pocket]string{
	PocketRelease:   "release",
	PocketSecurity:  "security",
	PocketUpdates:   "updates",
	PocketProposed:  "proposed",
	PocketBackports: "backports",
}

func (p Pocket) String() string {
	if n, ok := pocketNames[p]; ok {
		return n
	}
	return "unknown"
}

// ParsePocket parses the lower-case pocket name (as stored in the database).
func ParsePocket(name string) (Pocket, error) {
	for p, n := range pocketNames {
		if strings.EqualFold(n, name) {
			return p, nil
		}
	}
	return 0, xerrors.Errorf("unknown pocket %q", name)
}

// SuiteName returns the suite name of p in series, e.g. jammy-updates. The
// release pocket suite is named like the series.
func (p Pocket) SuiteName(series string) string {
	if p == PocketRelease {
		return series
	}
	return series + "-" + p.String()
}

// SuiteToSeriesPocket splits a suite name into series and pocket.
func SuiteToSeriesPocket(suite string) (series string, pocket Pocket, _ error) {
	if idx := strings.LastIndexByte(suite, '-'); idx > -1 {
		if p, err := ParsePocket(suite[idx+1:]); err == nil && p != PocketRelease {
			return suite[:idx], p, nil
		}
	}
	if suite == "" {
		return "", 0, xerrors.Errorf("empty suite name")
	}
	return suite, PocketRelease, nil
}
