// Package replication generates slonik scripts which set up and maintain
// Slony-I replication of the PostgreSQL database.
package replication

import (
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

type Node struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	ConnInfo string `yaml:"conninfo"`
}

type Set struct {
	ID        int      `yaml:"id"`
	Origin    int      `yaml:"origin"`
	Comment   string   `yaml:"comment"`
	Tables    []string `yaml:"tables"`
	Sequences []string `yaml:"sequences"`
}

type Subscription struct {
	Set      int  `yaml:"set"`
	Provider int  `yaml:"provider"`
	Receiver int  `yaml:"receiver"`
	Forward  bool `yaml:"forward"`
}

// Cluster describes a Slony cluster, usually loaded from replication.yaml.
type Cluster struct {
	Name          string         `yaml:"name"`
	Nodes         []Node         `yaml:"nodes"`
	Sets          []Set          `yaml:"sets"`
	Subscriptions []Subscription `yaml:"subscriptions"`
}

// Load reads and validates the cluster configuration at path.
func Load(path string) (*Cluster, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Cluster
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func qualified(name string) bool {
	parts := strings.Split(name, ".")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

// Validate checks ids for uniqueness and references, and that tables and
// sequences are schema-qualified and belong to at most one set.
func (c *Cluster) Validate() error {
	if c.Name == "" {
		return xerrors.Errorf("cluster name must not be empty")
	}
	if len(c.Nodes) == 0 {
		return xerrors.Errorf("cluster %s: no nodes", c.Name)
	}
	nodeIDs := make(map[int]bool)
	nodeNames := make(map[string]bool)
	for _, n := range c.Nodes {
		if n.ID <= 0 {
			return xerrors.Errorf("node %q: id must be positive", n.Name)
		}
		if nodeIDs[n.ID] {
			return xerrors.Errorf("node id %d used more than once", n.ID)
		}
		nodeIDs[n.ID] = true
		if nodeNames[n.Name] {
			return xerrors.Errorf("node name %q used more than once", n.Name)
		}
		nodeNames[n.Name] = true
		if n.ConnInfo == "" {
			return xerrors.Errorf("node %d: conninfo must not be empty", n.ID)
		}
	}
	setIDs := make(map[int]bool)
	objects := make(map[string]int)
	for _, s := range c.Sets {
		if s.ID <= 0 {
			return xerrors.Errorf("set id must be positive, got %d", s.ID)
		}
		if setIDs[s.ID] {
			return xerrors.Errorf("set id %d used more than once", s.ID)
		}
		setIDs[s.ID] = true
		if !nodeIDs[s.Origin] {
			return xerrors.Errorf("set %d: unknown origin node %d", s.ID, s.Origin)
		}
		for _, obj := range append(append([]string(nil), s.Tables...), s.Sequences...) {
			if !qualified(obj) {
				return xerrors.Errorf("set %d: %q is not fully qualified (schema.name)", s.ID, obj)
			}
			if other, ok := objects[obj]; ok {
				return xerrors.Errorf("set %d: %s is already replicated by set %d", s.ID, obj, other)
			}
			objects[obj] = s.ID
		}
	}
	for _, sub := range c.Subscriptions {
		if !setIDs[sub.Set] {
			return xerrors.Errorf("subscription: unknown set %d", sub.Set)
		}
		if !nodeIDs[sub.Provider] || !nodeIDs[sub.Receiver] {
			return xerrors.Errorf("subscription of set %d: unknown node %d or %d", sub.Set, sub.Provider, sub.Receiver)
		}
		if sub.Provider == sub.Receiver {
			return xerrors.Errorf("subscription of set %d: node %d cannot subscribe to itself", sub.Set, sub.Provider)
		}
	}
	return nil
}

// Master returns the node which originates the most sets, or the node with
// the lowest id when there are no sets.
func (c *Cluster) Master() Node {
	origins := make(map[int]int)
	for _, s := range c.Sets {
		origins[s.Origin]++
	}
	nodes := append([]Node(nil), c.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		if origins[nodes[i].ID] != origins[nodes[j].ID] {
			return origins[nodes[i].ID] > origins[nodes[j].ID]
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes[0]
}

type setObject struct {
	ID   int
	Name string
}

type scriptData struct {
	*Cluster
	Master Node
	Others []Node
}

// quote returns s as a slonik string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var funcs = template.FuncMap{
	"quote": quote,
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	// objects numbers tables (or sequences) across all sets, starting at 1.
	"objects": func(sets []Set, set Set, sequences bool) []setObject {
		id := 0
		var result []setObject
		for _, s := range sets {
			names := s.Tables
			if sequences {
				names = s.Sequences
			}
			for _, name := range names {
				id++
				if s.ID == set.ID {
					result = append(result, setObject{ID: id, Name: name})
				}
			}
		}
		return result
	},
}

var tmpl = template.Must(template.New("preamble").Funcs(funcs).Parse(`
{{- define "preamble" -}}
# slonik script for cluster {{ .Name }}, generated by soyuz.
cluster name = {{ .Name }};
{{ range .Nodes -}}
node {{ .ID }} admin conninfo = {{ quote .ConnInfo }};
{{ end -}}
{{ end -}}

{{- define "init" -}}
{{ template "preamble" . }}
init cluster (id = {{ .Master.ID }}, comment = {{ quote .Master.Name }});
{{ range .Others -}}
store node (id = {{ .ID }}, comment = {{ quote .Name }}, event node = {{ $.Master.ID }});
{{ end -}}
{{ range $a := .Nodes -}}
{{ range $b := $.Nodes -}}
{{ if ne $a.ID $b.ID -}}
store path (server = {{ $a.ID }}, client = {{ $b.ID }}, conninfo = {{ quote $a.ConnInfo }});
{{ end -}}
{{ end -}}
{{ end -}}
{{ end -}}

{{- define "create-set" -}}
{{ template "preamble" . }}
{{- range $set := .Sets }}
create set (id = {{ $set.ID }}, origin = {{ $set.Origin }}, comment = {{ quote $set.Comment }});
{{ range objects $.Sets $set false -}}
set add table (set id = {{ $set.ID }}, origin = {{ $set.Origin }}, id = {{ .ID }}, fully qualified name = {{ quote .Name }}, comment = {{ quote .Name }});
{{ end -}}
{{ range objects $.Sets $set true -}}
set add sequence (set id = {{ $set.ID }}, origin = {{ $set.Origin }}, id = {{ .ID }}, fully qualified name = {{ quote .Name }}, comment = {{ quote .Name }});
{{ end -}}
{{ end -}}
{{ end -}}

{{- define "subscribe" -}}
{{ template "preamble" . }}
{{- range .Subscriptions }}
subscribe set (id = {{ .Set }}, provider = {{ .Provider }}, receiver = {{ .Receiver }}, forward = {{ yesno .Forward }});
sync (id = {{ .Provider }});
wait for event (origin = {{ .Provider }}, confirmed = {{ .Receiver }}, wait on = {{ .Provider }});
{{ end -}}
{{ end -}}

{{- define "drop" -}}
{{ template "preamble" . }}
{{- range .Sets }}
drop set (id = {{ .ID }}, origin = {{ .Origin }});
{{ end -}}
{{ range .Others -}}
drop node (id = {{ .ID }}, event node = {{ $.Master.ID }});
{{ end -}}
{{ end -}}
`))

// Scripts lists the scripts Generate can produce.
var Scripts = []string{"init", "create-set", "subscribe", "drop"}

// Generate writes the slonik script named script (one of Scripts) for c.
func Generate(w io.Writer, c *Cluster, script string) error {
	if tmpl.Lookup(script) == nil || script == "preamble" {
		return xerrors.Errorf("unknown script %q, want one of %s", script, strings.Join(Scripts, ", "))
	}
	if err := c.Validate(); err != nil {
		return err
	}
	master := c.Master()
	data := scriptData{Cluster: c, Master: master}
	for _, n := range c.Nodes {
		if n.ID != master.ID {
			data.Others = append(data.Others, n)
		}
	}
	return tmpl.ExecuteTemplate(w, script, data)
}
