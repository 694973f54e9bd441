// Package maxcut loads weighted MaxCut instances and turns them into the
// diagonal QAOA cost operator.
//
// Qubit j encodes the side of node j: bit j of a basis index z is 0 for one
// side of the cut and 1 for the other.
package maxcut

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/cwbudde/qaoasim/internal/operator"
)

// MaxQubits bounds the instance size. A state vector of 2^MaxQubits complex
// amplitudes takes 256 MiB.
const MaxQubits = 24

var (
	// ErrInvalidInstance is returned for malformed instance files.
	ErrInvalidInstance = errors.New("invalid maxcut instance")
	// ErrTooLarge is returned when an instance has more than MaxQubits nodes.
	ErrTooLarge = errors.New("instance too large")
)

type edge struct {
	u, v int
	w    float64
}

// Instance is a weighted undirected graph whose nodes are 0..NumQubits-1.
type Instance struct {
	graph *simple.WeightedUndirectedGraph
	edges []edge // sorted by (u, v) with u < v
	n     int
}

// NewInstance wraps g. Node IDs must be 0..n-1 with no gaps.
func NewInstance(g *simple.WeightedUndirectedGraph) (*Instance, error) {
	n := g.Nodes().Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: graph has no nodes", ErrInvalidInstance)
	}
	if n > MaxQubits {
		return nil, fmt.Errorf("%w: %d nodes, at most %d supported", ErrTooLarge, n, MaxQubits)
	}
	for id := int64(0); id < int64(n); id++ {
		if g.Node(id) == nil {
			return nil, fmt.Errorf("%w: node IDs must be 0..%d, %d is missing", ErrInvalidInstance, n-1, id)
		}
	}

	in := &Instance{graph: g, n: n}
	it := g.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		u, v := int(e.From().ID()), int(e.To().ID())
		if u > v {
			u, v = v, u
		}
		in.edges = append(in.edges, edge{u: u, v: v, w: e.Weight()})
	}
	sort.Slice(in.edges, func(i, j int) bool {
		if in.edges[i].u != in.edges[j].u {
			return in.edges[i].u < in.edges[j].u
		}
		return in.edges[i].v < in.edges[j].v
	})
	return in, nil
}

// Graph returns the underlying graph.
func (in *Instance) Graph() *simple.WeightedUndirectedGraph { return in.graph }

// NumQubits returns the number of nodes.
func (in *Instance) NumQubits() int { return in.n }

// NumEdges returns the number of edges.
func (in *Instance) NumEdges() int { return len(in.edges) }

// TotalWeight returns the sum of all edge weights, an upper bound on any cut.
func (in *Instance) TotalWeight() float64 {
	var sum float64
	for _, e := range in.edges {
		sum += e.w
	}
	return sum
}

// CutValue returns the total weight of edges whose endpoints lie on
// different sides of the partition z.
func (in *Instance) CutValue(z int) float64 {
	var cut float64
	for _, e := range in.edges {
		if (z>>e.u)&1 != (z>>e.v)&1 {
			cut += e.w
		}
	}
	return cut
}

// Cost returns the diagonal operator with entry -cut(z) at index z, so that
// minimizing its expectation maximizes the cut.
func (in *Instance) Cost() *operator.Diagonal {
	values := make([]float64, 1<<in.n)
	for z := range values {
		values[z] = -in.CutValue(z)
	}
	return operator.NewDiagonal(values)
}

// MaxCut returns the maximum cut value and the smallest partition index that
// attains it, by exhaustive enumeration.
func (in *Instance) MaxCut() (float64, int) {
	best, arg := -1.0, 0
	for z := 0; z < 1<<in.n; z++ {
		if c := in.CutValue(z); c > best {
			best, arg = c, z
		}
	}
	return best, arg
}

// Bitstring renders z with qubit 0 first.
func (in *Instance) Bitstring(z int) string {
	var sb strings.Builder
	sb.Grow(in.n)
	for j := 0; j < in.n; j++ {
		if (z>>j)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// ApproximationRatio returns the fraction of the maximum cut achieved by a
// cost expectation energy (which is the negated expected cut). A graph with
// no positive cut has ratio 1.
func ApproximationRatio(energy, maxCut float64) float64 {
	if maxCut <= 0 {
		return 1
	}
	return -energy / maxCut
}

func logInstance(in *Instance, source string) {
	slog.Info("Loaded MaxCut instance",
		"source", source,
		"nodes", in.n,
		"edges", len(in.edges),
		"total_weight", in.TotalWeight())
}
