package render

import (
	"math"
	"strings"
	"testing"

	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/mip"
)

func renderDecomp(t *testing.T) *decomp.Partial {
	t.Helper()
	m := mip.NewModel("render")
	for _, name := range []string{"x", "y", "z"} {
		if _, err := m.AddVariable(mip.NewVariable(name, mip.VarBinary, 0, 1)); err != nil {
			t.Fatal(err)
		}
	}
	c0 := mip.NewConstraint("alpha", math.Inf(-1), 1)
	c0.Coefs = []mip.Coef{{Var: 0, Value: 1}, {Var: 1, Value: 1}}
	m.AddConstraint(c0)
	c1 := mip.NewConstraint("beta", math.Inf(-1), 1)
	c1.Coefs = []mip.Coef{{Var: 2, Value: 1}}
	m.AddConstraint(c1)

	mtx, err := decomp.Build(m)
	if err != nil {
		t.Fatal(err)
	}
	p := mtx.NewPartial()
	if err := p.EnsureBlocks(2); err != nil {
		t.Fatal(err)
	}
	for c, b := range map[int]int{0: 0, 1: 1} {
		if err := p.SetConsToBlock(c, b); err != nil {
			t.Fatal(err)
		}
	}
	for v, b := range map[int]int{0: 0, 1: 0, 2: 1} {
		if err := p.SetVarToBlock(v, b); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestToDOTStructure(t *testing.T) {
	dot := ToDOT(renderDecomp(t), Options{})

	for _, want := range []string{
		"graph decomposition {",
		"subgraph cluster_block0",
		"subgraph cluster_block1",
		`label="block 0"`,
		"c0 -- v0;",
		"c0 -- v1;",
		"c1 -- v2;",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "cluster_master") {
		t.Error("empty master should not produce a cluster")
	}
}

func TestToDOTShowNames(t *testing.T) {
	dot := ToDOT(renderDecomp(t), Options{ShowNames: true})
	for _, want := range []string{`"alpha"`, `"beta"`, `"x"`, `"z"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing label %q", want)
		}
	}
}

func TestToDOTOpenElementsDashed(t *testing.T) {
	p := renderDecomp(t)
	q := p.Matrix().NewPartial() // everything open

	dot := ToDOT(q, Options{})
	if !strings.Contains(dot, "style=dashed") {
		t.Error("open elements should be dashed")
	}
}

func TestToDOTMasterCluster(t *testing.T) {
	p := renderDecomp(t)
	q := p.Matrix().NewPartial()
	for c := 0; c < 2; c++ {
		if err := q.SetConsToMaster(c); err != nil {
			t.Fatal(err)
		}
	}

	dot := ToDOT(q, Options{})
	if !strings.Contains(dot, "cluster_master") {
		t.Error("master constraints should produce the master cluster")
	}
}
