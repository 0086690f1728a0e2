package soyuz

import (
	"sort"
	"strings"

	"golang.org/x/xerrors"
	"pault.ag/go/debian/version"
)

// CompareVersions compares two Debian version strings (epoch, upstream
// version and revision, with “~” sorting before everything). The result is
// negative if a < b, 0 if a == b and positive if a > b.
func CompareVersions(a, b string) (int, error) {
	va, err := version.Parse(a)
	if err != nil {
		return 0, xerrors.Errorf("parsing version %q: %w", a, err)
	}
	vb, err := version.Parse(b)
	if err != nil {
		return 0, xerrors.Errorf("parsing version %q: %w", b, err)
	}
	return version.Compare(va, vb), nil
}

// VersionLess returns true if version a sorts before version b. Unparseable
// versions sort before all parseable versions and lexically among each other.
// This can be used with sort.Slice.
func VersionLess(a, b string) bool {
	va, errA := version.Parse(a)
	vb, errB := version.Parse(b)
	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return true
	case errB != nil:
		return false
	}
	return version.Compare(va, vb) < 0
}

// SortVersions sorts versions in descending order (newest first).
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return VersionLess(versions[j], versions[i])
	})
}

// UpstreamVersion strips the epoch and Debian revision from v, e.g.
// 1:2.10-3ubuntu1 becomes 2.10.
func UpstreamVersion(v string) string {
	if idx := strings.IndexByte(v, ':'); idx > -1 {
		v = v[idx+1:]
	}
	if idx := strings.LastIndexByte(v, '-'); idx > -1 {
		v = v[:idx]
	}
	return v
}

// PackageFile describes a file in the archive pool, e.g.
// hello_2.10-1_amd64.deb or hello_2.10-1.dsc.
type PackageFile struct {
	Name    string
	Version string // without epoch, as used in file names
	Arch    string // empty for source files
	Ext     string // e.g. deb, dsc, tar.xz, debian.tar.xz
}

func (pf PackageFile) String() string {
	if pf.Arch != "" {
		return pf.Name + "_" + pf.Version + "_" + pf.Arch + "." + pf.Ext
	}
	return pf.Name + "_" + pf.Version + "." + pf.Ext
}

var binaryExtensions = map[string]bool{
	"deb":   true,
	"udeb":  true,
	"ddeb":  true,
	"build": true, // build logs: <source>_<version>_<arch>.build
}

// ParsePackageFile parses a pool file name into its components. It returns
// false if filename does not follow the <name>_<version>[_<arch>].<ext>
// convention.
func ParsePackageFile(filename string) (PackageFile, bool) {
	if idx := strings.LastIndexByte(filename, '/'); idx > -1 {
		filename = filename[idx+1:]
	}
	parts := strings.Split(filename, "_")
	switch len(parts) {
	case 3:
		dot := strings.IndexByte(parts[2], '.')
		if dot == -1 {
			return PackageFile{}, false
		}
		arch, ext := parts[2][:dot], parts[2][dot+1:]
		if !binaryExtensions[ext] || (!Architectures[arch] && arch != ArchIndep && arch != "source") {
			return PackageFile{}, false
		}
		return PackageFile{Name: parts[0], Version: parts[1], Arch: arch, Ext: ext}, true

	case 2:
		// Source files: the version ends where the extension starts. Upstream
		// versions contain dots, so try known source extensions.
		for _, ext := range []string{
			"dsc",
			"debian.tar.xz", "debian.tar.gz", "debian.tar.bz2",
			"orig.tar.xz", "orig.tar.gz", "orig.tar.bz2",
			"tar.xz", "tar.gz", "tar.bz2",
			"diff.gz",
		} {
			if strings.HasSuffix(parts[1], "."+ext) {
				return PackageFile{
					Name:    parts[0],
					Version: strings.TrimSuffix(parts[1], "."+ext),
					Ext:     ext,
				}, true
			}
		}
	}
	return PackageFile{}, false
}

// StripEpoch returns v without its epoch (file names never contain epochs).
func StripEpoch(v string) string {
	if idx := strings.IndexByte(v, ':'); idx > -1 {
		return v[idx+1:]
	}
	return v
}

// PoolPrefix returns the pool directory prefix for source, e.g. “h” for
// hello and “libx” for libxcb.
func PoolPrefix(source string) string {
	if strings.HasPrefix(source, "lib") && len(source) > 3 {
		return source[:4]
	}
	if source == "" {
		return ""
	}
	return source[:1]
}

// PoolDir returns the pool directory for source in component, relative to
// the archive root, e.g. pool/main/h/hello.
func PoolDir(component, source string) string {
	return "pool/" + component + "/" + PoolPrefix(source) + "/" + source
}
