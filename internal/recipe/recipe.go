// Package recipe builds source packages from GitHub repositories. Each
// recipe names a repository and a branch (daily builds) or follows its
// release tags.
package recipe

import (
	"io/ioutil"
	"strconv"

	"github.com/google/renameio"
	"github.com/protocolbuffers/txtpbfmt/ast"
	"github.com/protocolbuffers/txtpbfmt/parser"
	"golang.org/x/xerrors"
)

// Recipe modes.
const (
	ModeBranch = "branch"
	ModeTag    = "tag"
)

// Recipe is a parsed recipe.textproto file, e.g.:
//
//	name: "hello-daily"
//	source: "hello"
//	github: { owner: "example" repo: "hello" }
//	mode: "branch"
//	branch: "main"
//	base_version: "2.10"
//	archive: "~alice/ppa"
//	series: "oracular"
//	last_revision: "6dcb09b5b57875f334f61aebed695e2e4193db5e"
type Recipe struct {
	Name         string
	Source       string
	Owner        string
	Repo         string
	Mode         string
	Branch       string
	BaseVersion  string
	Archive      string
	Series       string
	Pocket       string
	ArchHint     string
	BuildDepends string
	Binaries     string
	LastRevision string

	path  string
	nodes []*ast.Node
}

func stringVal(nodes []*ast.Node, path ...string) (string, error) {
	found := ast.GetFromPath(nodes, path)
	if len(found) == 0 {
		return "", nil
	}
	if len(found) > 1 {
		return "", xerrors.Errorf("%v: got %d values, want at most 1", path, len(found))
	}
	values := found[0].Values
	if len(values) != 1 {
		return "", xerrors.Errorf("%v: got %d values, want 1", path, len(values))
	}
	unq, err := strconv.Unquote(values[0].Value)
	if err != nil {
		return "", xerrors.Errorf("%v: %v", path, err)
	}
	return unq, nil
}

// Parse parses the textproto representation of a recipe.
func Parse(b []byte) (*Recipe, error) {
	nodes, err := parser.Parse(b)
	if err != nil {
		return nil, err
	}
	r := &Recipe{nodes: nodes}
	for _, f := range []struct {
		dest *string
		path []string
	}{
		{&r.Name, []string{"name"}},
		{&r.Source, []string{"source"}},
		{&r.Owner, []string{"github", "owner"}},
		{&r.Repo, []string{"github", "repo"}},
		{&r.Mode, []string{"mode"}},
		{&r.Branch, []string{"branch"}},
		{&r.BaseVersion, []string{"base_version"}},
		{&r.Archive, []string{"archive"}},
		{&r.Series, []string{"series"}},
		{&r.Pocket, []string{"pocket"}},
		{&r.ArchHint, []string{"architecture"}},
		{&r.BuildDepends, []string{"build_depends"}},
		{&r.Binaries, []string{"binaries"}},
		{&r.LastRevision, []string{"last_revision"}},
	} {
		if *f.dest, err = stringVal(nodes, f.path...); err != nil {
			return nil, err
		}
	}
	if r.Mode == "" {
		r.Mode = ModeBranch
	}
	if r.Branch == "" {
		r.Branch = "main"
	}
	if r.Pocket == "" {
		r.Pocket = "release"
	}
	if r.ArchHint == "" {
		r.ArchHint = "any"
	}
	if r.Source == "" {
		r.Source = r.Name
	}
	if r.Binaries == "" {
		r.Binaries = r.Source
	}
	return r, r.validate()
}

func (r *Recipe) validate() error {
	switch {
	case r.Name == "":
		return xerrors.Errorf("recipe: name must not be empty")
	case r.Owner == "" || r.Repo == "":
		return xerrors.Errorf("recipe %s: github owner and repo are required", r.Name)
	case r.Archive == "" || r.Series == "":
		return xerrors.Errorf("recipe %s: archive and series are required", r.Name)
	case r.Mode != ModeBranch && r.Mode != ModeTag:
		return xerrors.Errorf("recipe %s: invalid mode %q", r.Name, r.Mode)
	case r.Mode == ModeBranch && r.BaseVersion == "":
		return xerrors.Errorf("recipe %s: branch recipes need a base_version", r.Name)
	}
	return nil
}

// Load reads the recipe file at path.
func Load(path string) (*Recipe, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(b)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	r.path = path
	return r, nil
}

// SetLastRevision updates last_revision, keeping the rest of the file
// (including comments) as is.
func (r *Recipe) SetLastRevision(rev string) {
	r.LastRevision = rev
	val := strconv.Quote(rev)
	if found := ast.GetFromPath(r.nodes, []string{"last_revision"}); len(found) > 0 {
		found[0].Values = []*ast.Value{{Value: val}}
		return
	}
	r.nodes = append(r.nodes, &ast.Node{
		Name:   "last_revision",
		Values: []*ast.Value{{Value: val}},
	})
}

// Format returns the textproto representation of r.
func (r *Recipe) Format() []byte {
	return []byte(parser.Pretty(r.nodes, 0))
}

// Save atomically rewrites the file r was loaded from.
func (r *Recipe) Save() error {
	if r.path == "" {
		return xerrors.Errorf("recipe %s was not loaded from a file", r.Name)
	}
	return renameio.WriteFile(r.path, r.Format(), 0644)
}
