package soyuz

import "strings"

// Architectures contains one entry for each known architecture tag.
var Architectures = map[string]bool{
	"amd64":   true,
	"i386":    true,
	"arm64":   true,
	"armhf":   true,
	"ppc64el": true,
	"s390x":   true,
	"riscv64": true,
}

const (
	// ArchIndep is the architecture tag of architecture-independent binaries.
	ArchIndep = "all"
	// ArchAny is the wildcard tag of sources which build on every architecture.
	ArchAny = "any"
)

// HasArchSuffix reports whether pkg ends in an architecture identifier
// (e.g. hello_2.10-1_amd64) and returns the identifier.
func HasArchSuffix(pkg string) (archIdentifier string, ok bool) {
	if strings.HasSuffix(pkg, "_"+ArchIndep) {
		return ArchIndep, true
	}
	for a := range Architectures {
		if strings.HasSuffix(pkg, "_"+a) {
			return a, true
		}
	}
	return "", false
}

// ArchHintAllows reports whether a source with the given Architecture field
// (e.g. "any", "all", "amd64 arm64", "linux-any") should be built on arch.
// The hint "all" does not allow any specific architecture: arch-independent
// builds are only created on the nominated architecture, see
// ArchHintIndepOnly.
func ArchHintAllows(hint, arch string) bool {
	for _, f := range strings.Fields(hint) {
		switch f {
		case ArchAny, "linux-any":
			return true
		case "any-" + arch, "linux-" + arch:
			return true
		case arch:
			return true
		}
	}
	return false
}

// ArchHintIndepOnly reports whether hint only lists “all”, i.e. the source
// produces nothing but architecture-independent binaries.
func ArchHintIndepOnly(hint string) bool {
	fields := strings.Fields(hint)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if f != ArchIndep {
			return false
		}
	}
	return true
}

// ArchHintHasIndep reports whether hint lists “all” besides other entries.
func ArchHintHasIndep(hint string) bool {
	for _, f := range strings.Fields(hint) {
		if f == ArchIndep {
			return true
		}
	}
	return false
}
