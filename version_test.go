package soyuz

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompareVersions(t *testing.T) {
	for _, tt := range []struct {
		a, b string
		want int
	}{
		{"1.0-1", "1.0-2", -1},
		{"1.0-2", "1.0-1", 1},
		{"1.0-1", "1.0-1", 0},
		{"1.0~rc1-1", "1.0-1", -1},
		{"1:0.9-1", "2.0-1", 1},
		{"2.10-1ubuntu1", "2.10-1", 1},
	} {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got, err := CompareVersions(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if sign(got) != tt.want {
				t.Fatalf("CompareVersions(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func sign(i int) int {
	switch {
	case i < 0:
		return -1
	case i > 0:
		return 1
	}
	return 0
}

func TestSortVersions(t *testing.T) {
	versions := []string{"1.0-1", "1:0.1-1", "1.0~beta1-1", "1.0-10", "1.0-2"}
	SortVersions(versions)
	want := []string{"1:0.1-1", "1.0-10", "1.0-2", "1.0-1", "1.0~beta1-1"}
	if diff := cmp.Diff(want, versions); diff != "" {
		t.Fatalf("SortVersions: diff (-want +got):\n%s", diff)
	}
}

func TestParsePackageFile(t *testing.T) {
	for _, tt := range []struct {
		filename string
		want     PackageFile
		ok       bool
	}{
		{
			filename: "hello_2.10-1_amd64.deb",
			want:     PackageFile{Name: "hello", Version: "2.10-1", Arch: "amd64", Ext: "deb"},
			ok:       true,
		},

		{
			filename: "pool/main/h/hello/hello-doc_2.10-1_all.deb",
			want:     PackageFile{Name: "hello-doc", Version: "2.10-1", Arch: "all", Ext: "deb"},
			ok:       true,
		},

		{
			filename: "hello_2.10-1.dsc",
			want:     PackageFile{Name: "hello", Version: "2.10-1", Ext: "dsc"},
			ok:       true,
		},

		{
			filename: "hello_2.10.orig.tar.gz",
			want:     PackageFile{Name: "hello", Version: "2.10", Ext: "orig.tar.gz"},
			ok:       true,
		},

		{
			filename: "hello_2.10-1_amd64.build",
			want:     PackageFile{Name: "hello", Version: "2.10-1", Arch: "amd64", Ext: "build"},
			ok:       true,
		},

		{
			filename: "README",
			ok:       false,
		},
	} {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := ParsePackageFile(tt.filename)
			if ok != tt.ok {
				t.Fatalf("ParsePackageFile(%q): ok = %v, want %v", tt.filename, ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParsePackageFile(%q): diff (-want +got):\n%s", tt.filename, diff)
			}
			if ok {
				if got, want := got.String(), tt.want.String(); got != want {
					t.Fatalf("String() = %q, want %q", got, want)
				}
			}
		})
	}
}

func TestPoolDir(t *testing.T) {
	for _, tt := range []struct {
		component, source string
		want              string
	}{
		{"main", "hello", "pool/main/h/hello"},
		{"universe", "libxcb", "pool/universe/libx/libxcb"},
		{"main", "lib", "pool/main/l/lib"},
	} {
		if got := PoolDir(tt.component, tt.source); got != tt.want {
			t.Errorf("PoolDir(%q, %q) = %q, want %q", tt.component, tt.source, got, tt.want)
		}
	}
}

func TestArchHint(t *testing.T) {
	for _, tt := range []struct {
		hint, arch string
		want       bool
	}{
		{"any", "amd64", true},
		{"linux-any", "arm64", true},
		{"amd64 i386", "i386", true},
		{"amd64 i386", "arm64", false},
		{"all", "amd64", false},
		{"any-amd64", "amd64", true},
	} {
		if got := ArchHintAllows(tt.hint, tt.arch); got != tt.want {
			t.Errorf("ArchHintAllows(%q, %q) = %v, want %v", tt.hint, tt.arch, got, tt.want)
		}
	}
	if !ArchHintIndepOnly("all") || ArchHintIndepOnly("any all") || ArchHintIndepOnly("") {
		t.Errorf("ArchHintIndepOnly: unexpected result")
	}
	if !ArchHintHasIndep("any all") || ArchHintHasIndep("any") {
		t.Errorf("ArchHintHasIndep: unexpected result")
	}
}

func TestSuiteToSeriesPocket(t *testing.T) {
	for _, tt := range []struct {
		suite  string
		series string
		pocket Pocket
	}{
		{"jammy", "jammy", PocketRelease},
		{"jammy-updates", "jammy", PocketUpdates},
		{"jammy-security", "jammy", PocketSecurity},
		{"lts-next", "lts-next", PocketRelease},
	} {
		series, pocket, err := SuiteToSeriesPocket(tt.suite)
		if err != nil {
			t.Fatal(err)
		}
		if series != tt.series || pocket != tt.pocket {
			t.Errorf("SuiteToSeriesPocket(%q) = %q, %v, want %q, %v", tt.suite, series, pocket, tt.series, tt.pocket)
		}
		if got := pocket.SuiteName(series); got != tt.suite {
			t.Errorf("SuiteName round-trip: got %q, want %q", got, tt.suite)
		}
	}
}
