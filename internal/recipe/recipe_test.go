package recipe

import (
	"context"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/soyuztest"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/go-github/v27/github"
)

const dailyRecipe = `# Daily builds of hello.
name: "hello-daily"
source: "hello"
github: {
  owner: "example"
  repo: "hello"
}
mode: "branch"
branch: "main"
base_version: "2.10"
archive: "~alice/ppa"
series: "oracular"
`

const releaseRecipe = `name: "tool"
github: {
  owner: "example"
  repo: "tool"
}
mode: "tag"
archive: "~alice/ppa"
series: "oracular"
last_revision: "0000000000000000000000000000000000000000"
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(dailyRecipe))
	if err != nil {
		t.Fatal(err)
	}
	want := &Recipe{
		Name:        "hello-daily",
		Source:      "hello",
		Owner:       "example",
		Repo:        "hello",
		Mode:        ModeBranch,
		Branch:      "main",
		BaseVersion: "2.10",
		Archive:     "~alice/ppa",
		Series:      "oracular",
		Pocket:      "release",
		ArchHint:    "any",
		Binaries:    "hello",
	}
	if diff := cmp.Diff(want, r, cmpopts.IgnoreUnexported(Recipe{})); diff != "" {
		t.Errorf("Parse: diff (-want +got):\n%s", diff)
	}

	r.SetLastRevision("6dcb09b5b57875f334f61aebed695e2e4193db5e")
	out := string(r.Format())
	if !strings.Contains(out, "# Daily builds of hello.") {
		t.Errorf("Format dropped the comment:\n%s", out)
	}
	reparsed, err := Parse([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := reparsed.LastRevision, "6dcb09b5b57875f334f61aebed695e2e4193db5e"; got != want {
		t.Errorf("last_revision after SetLastRevision: got %q, want %q", got, want)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, recipe := range []string{
		`name: "x"`,
		`name: "x" github: { owner: "o" repo: "r" } archive: "primary" series: "oracular" mode: "nightly"`,
		`name: "x" github: { owner: "o" repo: "r" } archive: "primary" series: "oracular" mode: "branch"`,
		`name: 42`,
	} {
		if _, err := Parse([]byte(recipe)); err == nil {
			t.Errorf("Parse(%q) succeeded unexpectedly", recipe)
		}
	}
}

func fakeGitHub(t *testing.T) *github.Client {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/example/hello/branches/main", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "name": "main",
  "commit": {
    "sha": "6dcb09b5b57875f334f61aebed695e2e4193db5e",
    "commit": {"committer": {"date": "2024-04-20T10:00:00Z"}}
  }
}`))
	})
	mux.HandleFunc("/repos/example/tool/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
  {"name": "v1.2.0", "commit": {"sha": "1200000000000000000000000000000000000000"}},
  {"name": "v1.10.0", "commit": {"sha": "1100000000000000000000000000000000000000"}},
  {"name": "v2.0.0-rc1", "commit": {"sha": "2000000000000000000000000000000000000000"}},
  {"name": "latest", "commit": {"sha": "ffff000000000000000000000000000000000000"}}
]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := github.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	client.BaseURL = u
	return client
}

func TestPoll(t *testing.T) {
	ctx := context.Background()
	f := soyuztest.NewFixture(t)
	dir := soyuztest.TempRoot(t)
	for fn, content := range map[string]string{
		"hello-daily.textproto": dailyRecipe,
		"tool.textproto":        releaseRecipe,
		"README":                "not a recipe",
	} {
		if err := ioutil.WriteFile(filepath.Join(dir, fn), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	p := &Poller{
		Store:     f.Store,
		Log:       log.New(ioutil.Discard, "", 0),
		Librarian: &librarian.Librarian{Dir: filepath.Join(f.Root, "librarian")},
		GitHub:    fakeGitHub(t),
		Dir:       dir,
	}
	n, err := p.Poll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Poll() = %d, want 2", n)
	}

	var got []string
	err = f.Store.View(ctx, func(tx *store.Tx) error {
		pubs, err := tx.SourcePublications(store.PubFilter{ArchiveID: f.PPA.ID, Statuses: []string{store.PubPending}})
		if err != nil {
			return err
		}
		for _, pub := range pubs {
			got = append(got, pub.Name+" "+pub.Version)
			files, err := tx.SourceFiles(pub.SourceID)
			if err != nil {
				return err
			}
			if len(files) != 1 || !strings.HasSuffix(files[0].Filename, ".dsc") {
				t.Errorf("%s: unexpected files %+v", pub.Name, files)
			}
			spr, err := tx.SourceReleaseByID(pub.SourceID)
			if err != nil {
				return err
			}
			if got, want := spr.Format, "3.0 (git)"; got != want {
				t.Errorf("%s: Format = %q, want %q", pub.Name, got, want)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"hello 2.10~git20240420.6dcb09b", "tool 1.10.0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pending publications: diff (-want +got):\n%s", diff)
	}

	r, err := Load(filepath.Join(dir, "tool.textproto"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := r.LastRevision, "1100000000000000000000000000000000000000"; got != want {
		t.Errorf("tool last_revision: got %q, want %q", got, want)
	}

	n, err = p.Poll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second Poll() = %d, want 0", n)
	}
}
