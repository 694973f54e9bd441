package maxcut

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const square = `# 4-cycle
0 1
1 2
2 3   # trailing comment
3 0
`

func mustLoad(t *testing.T, src string, format Format) *Instance {
	t.Helper()
	in, err := Load(strings.NewReader(src), format)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return in
}

func TestLoadEdgeList(t *testing.T) {
	in := mustLoad(t, square, FormatEdgeList)
	if in.NumQubits() != 4 || in.NumEdges() != 4 {
		t.Fatalf("got %d nodes, %d edges; want 4, 4", in.NumQubits(), in.NumEdges())
	}

	// Alternating partition cuts every edge of the cycle.
	if c := in.CutValue(0b0101); c != 4 {
		t.Errorf("CutValue(0101) = %f, want 4", c)
	}
	if c := in.CutValue(0b0011); c != 2 {
		t.Errorf("CutValue(0011) = %f, want 2", c)
	}
	best, z := in.MaxCut()
	if best != 4 || in.CutValue(z) != 4 {
		t.Errorf("MaxCut = (%f, %b), want 4", best, z)
	}
}

func TestLoadWeightedAndIsolated(t *testing.T) {
	in := mustLoad(t, "0 2 2.5\n\n2 3 -1\n", FormatEdgeList)
	if in.NumQubits() != 4 {
		t.Fatalf("NumQubits = %d, want 4 (node 1 is isolated)", in.NumQubits())
	}
	if w := in.TotalWeight(); w != 1.5 {
		t.Errorf("TotalWeight = %f, want 1.5", w)
	}
	// Separating 0 from {2,3} takes the positive edge and avoids the negative one.
	best, _ := in.MaxCut()
	if best != 2.5 {
		t.Errorf("MaxCut = %f, want 2.5", best)
	}
}

func TestLoadEdgeListErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"empty", "# nothing here\n", ErrInvalidInstance},
		{"one field", "0\n", ErrInvalidInstance},
		{"four fields", "0 1 2 3\n", ErrInvalidInstance},
		{"bad node", "0 x\n", ErrInvalidInstance},
		{"negative node", "-1 2\n", ErrInvalidInstance},
		{"self loop", "1 1\n", ErrInvalidInstance},
		{"bad weight", "0 1 heavy\n", ErrInvalidInstance},
		{"nan weight", "0 1 NaN\n", ErrInvalidInstance},
		{"duplicate", "0 1\n1 0 2\n", ErrInvalidInstance},
		{"too large", "0 40\n", ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src), FormatEdgeList)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadGraph6(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		nodes  int
		edges  int
		maxCut float64
	}{
		{name: "single edge", src: "A_\n", nodes: 2, edges: 1, maxCut: 1},
		{name: "triangle", src: "# K3\nBw\n", nodes: 3, edges: 3, maxCut: 2},
		{name: "header", src: ">>graph6<<Bw\n", nodes: 3, edges: 3, maxCut: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := mustLoad(t, tt.src, FormatGraph6)
			if in.NumQubits() != tt.nodes || in.NumEdges() != tt.edges {
				t.Fatalf("got %d nodes, %d edges; want %d, %d", in.NumQubits(), in.NumEdges(), tt.nodes, tt.edges)
			}
			if best, _ := in.MaxCut(); best != tt.maxCut {
				t.Errorf("MaxCut = %f, want %f", best, tt.maxCut)
			}
		})
	}

	for _, bad := range []string{"", "# only a comment\n", "B\n", "Bww\n"} {
		if _, err := Load(strings.NewReader(bad), FormatGraph6); !errors.Is(err, ErrInvalidInstance) {
			t.Errorf("%q: expected ErrInvalidInstance, got %v", bad, err)
		}
	}
}

func TestGraph6RoundTrip(t *testing.T) {
	in := mustLoad(t, square, FormatEdgeList)
	back, err := FromGraph6(in.Graph6())
	if err != nil {
		t.Fatalf("FromGraph6(%q) failed: %v", in.Graph6(), err)
	}
	for z := 0; z < 1<<in.NumQubits(); z++ {
		if in.CutValue(z) != back.CutValue(z) {
			t.Fatalf("CutValue(%b) = %f after round trip, want %f", z, back.CutValue(z), in.CutValue(z))
		}
	}
}

func TestFingerprint(t *testing.T) {
	in := mustLoad(t, square, FormatEdgeList)
	fp := in.Fingerprint()
	if len(fp) != 64 {
		t.Fatalf("Fingerprint() = %q, want 64 hex digits", fp)
	}

	tests := []struct {
		name string
		src  string
		same bool
	}{
		{"reordered and reversed edges", "3 0\n2 1\n0 1\n3 2\n", true},
		{"explicit unit weights", "0 1 1\n1 2 1\n2 3 1\n3 0 1.0\n", true},
		{"path of the same size", "0 1\n1 2\n2 3\n", false},
		{"different weight", "0 1 2\n1 2\n2 3\n3 0\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := mustLoad(t, tt.src, FormatEdgeList)
			if got := other.Fingerprint() == fp; got != tt.same {
				t.Errorf("same fingerprint = %v, want %v", got, tt.same)
			}
		})
	}

	// graph6 carries no weights, so a unit-weight graph matches its encoding.
	back, err := FromGraph6(in.Graph6())
	if err != nil {
		t.Fatalf("FromGraph6 failed: %v", err)
	}
	if back.Fingerprint() != fp {
		t.Error("graph6 round trip changed the fingerprint")
	}
}

func TestCostOperator(t *testing.T) {
	in := mustLoad(t, square, FormatEdgeList)
	cost := in.Cost()
	if cost.Len() != 16 {
		t.Fatalf("cost dimension = %d, want 16", cost.Len())
	}
	best, _ := in.MaxCut()
	if cost.TrueMinimum() != -best {
		t.Errorf("TrueMinimum = %f, want %f", cost.TrueMinimum(), -best)
	}
	if cost.TrueMaximum() != 0 {
		t.Errorf("TrueMaximum = %f, want 0", cost.TrueMaximum())
	}
	for z, v := range cost.Values() {
		if v != -in.CutValue(z) {
			t.Fatalf("cost[%b] = %f, want %f", z, v, -in.CutValue(z))
		}
	}
}

func TestLoadFileFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	g6 := filepath.Join(dir, "k3.g6")
	if err := os.WriteFile(g6, []byte("Bw\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err := LoadFile(g6, FormatAuto)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if in.NumEdges() != 3 {
		t.Errorf("NumEdges = %d, want 3", in.NumEdges())
	}

	txt := filepath.Join(dir, "square.txt")
	if err := os.WriteFile(txt, []byte(square), 0o644); err != nil {
		t.Fatal(err)
	}
	if in, err = LoadFile(txt, FormatAuto); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if in.NumEdges() != 4 {
		t.Errorf("NumEdges = %d, want 4", in.NumEdges())
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.txt"), FormatAuto); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "AUTO": FormatAuto, "graph6": FormatGraph6, "edgelist": FormatEdgeList} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("dimacs"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestBitstringAndRatio(t *testing.T) {
	in := mustLoad(t, "0 1\n1 2\n", FormatEdgeList)
	if s := in.Bitstring(0b011); s != "110" {
		t.Errorf("Bitstring(011) = %q, want 110", s)
	}
	if r := ApproximationRatio(-1.5, 2); math.Abs(r-0.75) > 1e-12 {
		t.Errorf("ApproximationRatio = %f, want 0.75", r)
	}
	if r := ApproximationRatio(0, 0); r != 1 {
		t.Errorf("ApproximationRatio with no cut = %f, want 1", r)
	}
}
