package queue

import (
	"log"
	"strings"

	"github.com/distr1/soyuz/internal/store"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"pault.ag/go/debian/dependency"
)

type node struct {
	id   int64
	cand *store.Candidate
	// running nodes only produce binaries; they are never candidates.
	running bool
}

func (n *node) ID() int64 { return n.id }

// Graph orders waiting candidates by their build dependencies. An edge from
// a to b means a build-depends on a binary which b produces in the same
// archive and architecture.
type Graph struct {
	g       *simple.DirectedGraph
	byQueue map[int64]*node
	// Bootstrapped lists the candidates whose outgoing edges were removed to
	// break dependency cycles.
	Bootstrapped []*store.Candidate
}

type producerKey struct {
	archive int64
	das     int64
	binary  string
}

// NewGraph builds the dependency graph of the waiting cands. The builds in
// running are still unbuilt, so waiting candidates which build-depend on
// their binaries are blocked as well.
func NewGraph(cands, running []*store.Candidate, logger *log.Logger) (*Graph, error) {
	g := simple.NewDirectedGraph()
	res := &Graph{
		g:       g,
		byQueue: make(map[int64]*node, len(cands)+len(running)),
	}
	producers := make(map[producerKey][]*node)
	add := func(c *store.Candidate, running bool) {
		n := &node{id: c.QueueID, cand: c, running: running}
		res.byQueue[c.QueueID] = n
		g.AddNode(n)
		for _, bin := range binaryNames(c.Binaries) {
			k := producerKey{c.ArchiveID, c.ArchSeriesID, bin}
			producers[k] = append(producers[k], n)
		}
	}
	for _, c := range running {
		add(c, true)
	}
	for _, c := range cands {
		add(c, false)
	}

	for _, n := range res.byQueue {
		if n.running {
			continue
		}
		c := n.cand
		if strings.TrimSpace(c.BuildDepends) == "" {
			continue
		}
		deps, err := dependency.Parse(c.BuildDepends)
		if err != nil {
			if logger != nil {
				logger.Printf("%s %s: unparseable Build-Depends: %v", c.SourceName, c.SourceVersion, err)
			}
			continue
		}
		for _, rel := range deps.Relations {
			for _, poss := range rel.Possibilities {
				for _, d := range producers[producerKey{c.ArchiveID, c.ArchSeriesID, poss.Name}] {
					if d == n {
						continue // skip self edges
					}
					g.SetEdge(g.NewEdge(n, d))
				}
			}
		}
	}

	// Break cycles
	if _, err := topo.Sort(g); err != nil {
		uo, ok := err.(topo.Unorderable)
		if !ok {
			return nil, err
		}
		for _, component := range uo {
			for _, n := range component {
				res.Bootstrapped = append(res.Bootstrapped, n.(*node).cand)
				from := g.From(n.ID())
				var to []int64
				for from.Next() {
					to = append(to, from.Node().ID())
				}
				for _, id := range to {
					g.RemoveEdge(n.ID(), id)
				}
			}
		}
		if _, err := topo.Sort(g); err != nil {
			return nil, xerrors.Errorf("could not break cycles: %v", err)
		}
	}
	return res, nil
}

func binaryNames(binaries string) []string {
	var names []string
	for _, f := range strings.FieldsFunc(binaries, func(r rune) bool { return r == ',' || r == ' ' }) {
		names = append(names, f)
	}
	return names
}

// Blocked reports whether the candidate with queue id queueID depends on
// another build which still waits in the queue or is being built.
func (g *Graph) Blocked(queueID int64) bool {
	n, ok := g.byQueue[queueID]
	if !ok || n.running {
		return false
	}
	return g.g.From(n.ID()).Len() > 0
}

// Dependencies returns the queue ids of the builds queueID waits for.
func (g *Graph) Dependencies(queueID int64) []int64 {
	n, ok := g.byQueue[queueID]
	if !ok {
		return nil
	}
	var ids []int64
	for from := g.g.From(n.ID()); from.Next(); {
		ids = append(ids, from.Node().ID())
	}
	return ids
}

// Order returns the candidates in an order which builds dependencies first.
func (g *Graph) Order() ([]*store.Candidate, error) {
	sorted, err := topo.Sort(g.g)
	if err != nil {
		return nil, err
	}
	cands := make([]*store.Candidate, 0, len(sorted))
	// topo.Sort places a node before the nodes its edges point to, i.e.
	// before its dependencies.
	for i := len(sorted) - 1; i >= 0; i-- {
		if n := sorted[i].(*node); !n.running {
			cands = append(cands, n.cand)
		}
	}
	return cands, nil
}

var _ graph.Node = (*node)(nil)
