package maxcut

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph/encoding/graph6"
	"gonum.org/v1/gonum/graph/simple"
)

// Format selects the instance file syntax.
type Format string

const (
	FormatAuto     Format = "auto"     // By file extension: .g6 is graph6, anything else an edge list
	FormatEdgeList Format = "edgelist" // One "u v [weight]" per line
	FormatGraph6   Format = "graph6"   // A single graph6 string, unit weights
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatEdgeList, FormatGraph6:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("unknown instance format %q (want auto, edgelist or graph6)", s)
	}
}

// LoadFile reads an instance from path.
func LoadFile(path string, format Format) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open instance: %w", err)
	}
	defer f.Close()

	if format == FormatAuto || format == "" {
		format = FormatEdgeList
		if strings.EqualFold(filepath.Ext(path), ".g6") {
			format = FormatGraph6
		}
	}

	in, err := Load(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logInstance(in, path)
	return in, nil
}

// Load reads an instance in the given format. FormatAuto is treated as an
// edge list.
func Load(r io.Reader, format Format) (*Instance, error) {
	switch format {
	case FormatGraph6:
		return loadGraph6(r)
	case FormatEdgeList, FormatAuto, "":
		return loadEdgeList(r)
	default:
		return nil, fmt.Errorf("unknown instance format %q", format)
	}
}

// loadEdgeList parses lines of "u v [weight]". Blank lines and text after '#'
// are ignored. Weights default to 1. The node count is one more than the
// largest ID seen.
func loadEdgeList(r io.Reader) (*Instance, error) {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	maxID := int64(-1)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("%w: line %d: expected \"u v [weight]\", got %d fields", ErrInvalidInstance, line, len(fields))
		}

		u, err := parseNode(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidInstance, line, err)
		}
		v, err := parseNode(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidInstance, line, err)
		}
		if u == v {
			return nil, fmt.Errorf("%w: line %d: self-loop on node %d", ErrInvalidInstance, line, u)
		}
		w := 1.0
		if len(fields) == 3 {
			w, err = strconv.ParseFloat(fields[2], 64)
			if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("%w: line %d: bad weight %q", ErrInvalidInstance, line, fields[2])
			}
		}
		if g.HasEdgeBetween(u, v) {
			return nil, fmt.Errorf("%w: line %d: duplicate edge %d-%d", ErrInvalidInstance, line, u, v)
		}
		if u >= MaxQubits || v >= MaxQubits {
			return nil, fmt.Errorf("%w: line %d: node ID %d, at most %d nodes supported", ErrTooLarge, line, max(u, v), MaxQubits)
		}

		g.SetWeightedEdge(g.NewWeightedEdge(node(g, u), node(g, v), w))
		maxID = max(maxID, u, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read instance: %w", err)
	}

	// Isolated nodes below the largest ID still take a qubit.
	for id := int64(0); id <= maxID; id++ {
		node(g, id)
	}
	return NewInstance(g)
}

// loadGraph6 reads the first non-blank, non-comment line as a graph6 string.
func loadGraph6(r io.Reader) (*Instance, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		text = strings.TrimPrefix(text, ">>graph6<<")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		return FromGraph6(text)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read instance: %w", err)
	}
	return nil, fmt.Errorf("%w: no graph6 string found", ErrInvalidInstance)
}

// FromGraph6 decodes a graph6 string into a unit-weight instance.
func FromGraph6(s string) (*Instance, error) {
	g6 := graph6.Graph(s)
	if s == "" || !graph6.IsValid(g6) {
		return nil, fmt.Errorf("%w: malformed graph6 string %q", ErrInvalidInstance, s)
	}
	n := int64(g6.Nodes().Len())
	if n > MaxQubits {
		return nil, fmt.Errorf("%w: %d nodes, at most %d supported", ErrTooLarge, n, MaxQubits)
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	for id := int64(0); id < n; id++ {
		g.AddNode(simple.Node(id))
	}
	for u := int64(0); u < n; u++ {
		for v := u + 1; v < n; v++ {
			if g6.HasEdgeBetween(u, v) {
				g.SetWeightedEdge(g.NewWeightedEdge(g.Node(u), g.Node(v), 1))
			}
		}
	}
	return NewInstance(g)
}

// Graph6 encodes the instance topology. Edge weights are dropped.
func (in *Instance) Graph6() string {
	return string(graph6.Encode(in.graph))
}

// Fingerprint is a SHA-256 digest of the node count and the sorted weighted
// edge list. It depends only on the graph, not on the file it came from or
// the order its edges were listed in.
func (in *Instance) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\n", in.n)
	for _, e := range in.edges {
		fmt.Fprintf(h, "%d %d %s\n", e.u, e.v, strconv.FormatFloat(e.w, 'g', -1, 64))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func parseNode(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad node ID %q", s)
	}
	if id < 0 {
		return 0, fmt.Errorf("negative node ID %d", id)
	}
	return id, nil
}

// node returns the node with id, adding it if absent.
func node(g *simple.WeightedUndirectedGraph, id int64) simple.Node {
	g.NodeWithID(id)
	return simple.Node(id)
}
