package recipe

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/distr1/soyuz"
	"github.com/distr1/soyuz/internal/librarian"
	"github.com/distr1/soyuz/internal/store"
	"github.com/google/go-github/v27/github"
	"golang.org/x/mod/semver"
	"golang.org/x/oauth2"
	"golang.org/x/xerrors"
)

// NewGitHubClient returns a GitHub API client, authenticated if token is
// non-empty.
func NewGitHubClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// Revision is a resolved upstream revision.
type Revision struct {
	SHA     string
	Version string
}

func maybeV(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

type Poller struct {
	Store     *store.Store
	Log       *log.Logger
	Librarian *librarian.Librarian
	GitHub    *github.Client
	// Dir contains one <name>.textproto file per recipe.
	Dir string
}

// Resolve returns the revision r should be built from.
func (p *Poller) Resolve(ctx context.Context, r *Recipe) (Revision, error) {
	switch r.Mode {
	case ModeTag:
		return p.resolveTag(ctx, r)
	default:
		return p.resolveBranch(ctx, r)
	}
}

func (p *Poller) resolveBranch(ctx context.Context, r *Recipe) (Revision, error) {
	branch, _, err := p.GitHub.Repositories.GetBranch(ctx, r.Owner, r.Repo, r.Branch)
	if err != nil {
		return Revision{}, xerrors.Errorf("%s/%s: branch %s: %w", r.Owner, r.Repo, r.Branch, err)
	}
	sha := branch.GetCommit().GetSHA()
	if len(sha) < 7 {
		return Revision{}, xerrors.Errorf("%s/%s: branch %s: malformed commit %q", r.Owner, r.Repo, r.Branch, sha)
	}
	date := branch.GetCommit().GetCommit().GetCommitter().GetDate()
	if date.IsZero() {
		date = store.Now()
	}
	return Revision{
		SHA:     sha,
		Version: fmt.Sprintf("%s~git%s.%s", r.BaseVersion, date.UTC().Format("20060102"), sha[:7]),
	}, nil
}

func (p *Poller) resolveTag(ctx context.Context, r *Recipe) (Revision, error) {
	var tags []*github.RepositoryTag
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := p.GitHub.Repositories.ListTags(ctx, r.Owner, r.Repo, opts)
		if err != nil {
			return Revision{}, xerrors.Errorf("%s/%s: tags: %w", r.Owner, r.Repo, err)
		}
		tags = append(tags, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	var valid []*github.RepositoryTag
	for _, t := range tags {
		if semver.IsValid(maybeV(t.GetName())) && semver.Prerelease(maybeV(t.GetName())) == "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return Revision{}, xerrors.Errorf("%s/%s: no release tags found", r.Owner, r.Repo)
	}
	sort.Slice(valid, func(i, j int) bool {
		return semver.Compare(maybeV(valid[i].GetName()), maybeV(valid[j].GetName())) > 0
	})
	newest := valid[0]
	return Revision{
		SHA:     newest.GetCommit().GetSHA(),
		Version: strings.TrimPrefix(newest.GetName(), "v"),
	}, nil
}

// Poll checks every recipe and registers a new source release for each
// recipe whose upstream revision changed. It returns the number of new
// source releases. Failing recipes are logged and skipped.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	fis, err := ioutil.ReadDir(p.Dir)
	if err != nil {
		return 0, err
	}
	var created int
	for _, fi := range fis {
		if !strings.HasSuffix(fi.Name(), ".textproto") {
			continue
		}
		r, err := Load(filepath.Join(p.Dir, fi.Name()))
		if err != nil {
			p.Log.Printf("%v", err)
			continue
		}
		ok, err := p.Poll1(ctx, r)
		if err != nil {
			if ctx.Err() != nil {
				return created, ctx.Err()
			}
			p.Log.Printf("recipe %s: %v", r.Name, err)
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// Poll1 processes a single recipe. It reports whether a new source release
// was registered.
func (p *Poller) Poll1(ctx context.Context, r *Recipe) (bool, error) {
	rev, err := p.Resolve(ctx, r)
	if err != nil {
		return false, err
	}
	if rev.SHA == r.LastRevision {
		return false, nil
	}
	p.Log.Printf("recipe %s: %s moved to %s, building %s %s", r.Name, r.Branch, rev.SHA, r.Source, rev.Version)
	created, err := p.register(ctx, r, rev)
	if err != nil {
		return false, err
	}
	r.SetLastRevision(rev.SHA)
	if err := r.Save(); err != nil {
		return false, err
	}
	return created, nil
}

// sourceFormat is the Format of the source packages built from recipes.
const sourceFormat = "3.0 (git)"

// dsc returns a source control file which points the builder at the
// upstream revision.
func dsc(r *Recipe, rev Revision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Format: %s\n", sourceFormat)
	fmt.Fprintf(&b, "Source: %s\n", r.Source)
	fmt.Fprintf(&b, "Binary: %s\n", r.Binaries)
	fmt.Fprintf(&b, "Architecture: %s\n", r.ArchHint)
	fmt.Fprintf(&b, "Version: %s\n", rev.Version)
	if r.BuildDepends != "" {
		fmt.Fprintf(&b, "Build-Depends: %s\n", r.BuildDepends)
	}
	fmt.Fprintf(&b, "Vcs-Git: https://github.com/%s/%s.git\n", r.Owner, r.Repo)
	fmt.Fprintf(&b, "Vcs-Git-Commit: %s\n", rev.SHA)
	return b.String()
}

func (p *Poller) register(ctx context.Context, r *Recipe, rev Revision) (bool, error) {
	pocket, err := soyuz.ParsePocket(r.Pocket)
	if err != nil {
		return false, err
	}
	fn := r.Source + "_" + soyuz.StripEpoch(rev.Version) + ".dsc"
	tmp, err := ioutil.TempFile("", "soyuz-recipe")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(dsc(r, rev)); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	h, err := p.Librarian.Add(tmp.Name())
	if err != nil {
		return false, err
	}

	var created bool
	err = p.Store.Update(ctx, func(tx *store.Tx) error {
		archive, err := tx.ArchiveByReference(r.Archive)
		if err != nil {
			return err
		}
		series, err := tx.SeriesByName(r.Series)
		if err != nil {
			return err
		}
		if _, err := tx.SourceRelease(archive.ID, r.Source, rev.Version); err == nil {
			p.Log.Printf("recipe %s: %s %s already exists in %s", r.Name, r.Source, rev.Version, archive.Reference())
			return nil
		} else if !xerrors.Is(err, store.ErrNotFound) {
			return err
		}
		spr := &store.SourceRelease{
			UploadArchive: archive.ID,
			Name:          r.Source,
			Version:       rev.Version,
			Component:     "main",
			ArchHint:      r.ArchHint,
			BuildDepends:  r.BuildDepends,
			Binaries:      r.Binaries,
			DscFilename:   fn,
			Format:        sourceFormat,
			DateUploaded:  tx.Now(),
		}
		files := []*store.SourceFile{{Filename: fn, Size: h.Size, MD5: h.MD5, SHA256: h.SHA256}}
		if err := tx.CreateSourceRelease(spr, files); err != nil {
			return err
		}
		created = true
		return tx.CreateSourcePublication(&store.SourcePublication{
			ArchiveID: archive.ID,
			SeriesID:  series.ID,
			Pocket:    pocket.String(),
			Component: spr.Component,
			SourceID:  spr.ID,
		})
	})
	return created, err
}

// Interval is the default delay between two polls of recipe-poll -loop.
const Interval = 30 * time.Minute
