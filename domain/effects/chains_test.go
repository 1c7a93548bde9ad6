package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/domain/pathgraph"
	"github.com/takjakim/method-studio/ports"
)

func TestEnumerate_SerialChainCount(t *testing.T) {
	for k := 1; k <= 5; k++ {
		mediators := make([]string, k)
		for i := range mediators {
			mediators[i] = string(rune('A' + i))
		}
		chains := Enumerate(design.Serial(), mediators)
		assert.Len(t, chains, k*(k+1)/2, "k=%d", k)

		seen := map[string]bool{}
		for _, c := range chains {
			assert.False(t, seen[c.Key()], "chains must be distinct")
			seen[c.Key()] = true
		}
	}
}

func TestEnumerate_SingleMediatorDegeneratesToSimple(t *testing.T) {
	serial := Enumerate(design.Serial(), []string{"M"})
	simple := Enumerate(design.Simple(), []string{"M"})
	assert.Equal(t, simple, serial)
	assert.Len(t, serial, 1)
	assert.Equal(t, Chain{"M"}, serial[0])
}

func TestEnumerate_Parallel(t *testing.T) {
	chains := Enumerate(design.Parallel(), []string{"M1", "M2", "M3"})
	assert.Equal(t, []Chain{{"M1"}, {"M2"}, {"M3"}}, chains)
}

func TestEnumerate_SerialOrdering(t *testing.T) {
	chains := Enumerate(design.Serial(), []string{"M1", "M2"})
	assert.Equal(t, []Chain{{"M1"}, {"M2"}, {"M1", "M2"}}, chains)
}

func serialGraph(t *testing.T) *pathgraph.Graph {
	t.Helper()
	roles := design.Roles{Predictor: "X", Mediators: []string{"M1", "M2"}, Outcome: "Y"}
	sys, err := design.Build(roles, design.Serial(), design.DefaultOptions())
	assert.NoError(t, err)

	fits := map[string]*ports.FitResult{
		"m:M1": {Terms: []string{"const", "X"},
			Coef: map[string]float64{"const": 0, "X": 2}},
		"m:M2": {Terms: []string{"const", "X", "M1"},
			Coef: map[string]float64{"const": 0, "X": 0.5, "M1": 3}},
		"outcome": {Terms: []string{"const", "X", "M1", "M2"},
			Coef: map[string]float64{"const": 0, "X": 0.1, "M1": 0.4, "M2": 5}},
	}
	g, err := pathgraph.Build(sys, fits)
	assert.NoError(t, err)
	return g
}

func TestEvaluate_ProductsAlongChain(t *testing.T) {
	g := serialGraph(t)

	v, err := Evaluate(g, "X", Chain{"M1"}, "Y")
	assert.NoError(t, err)
	assert.InDelta(t, 2*0.4, v, 1e-12)

	v, err = Evaluate(g, "X", Chain{"M1", "M2"}, "Y")
	assert.NoError(t, err)
	assert.InDelta(t, 2*3*5, v, 1e-12)

	v, err = Evaluate(g, "X", Chain{"M2"}, "Y")
	assert.NoError(t, err)
	assert.InDelta(t, 0.5*5, v, 1e-12)
}

func TestEvaluate_MissingEdgeIsDegenerate(t *testing.T) {
	g := serialGraph(t)
	_, err := Evaluate(g, "X", Chain{"M3"}, "Y")
	assert.True(t, core.IsDegenerateChain(err))
}

func TestTotalIndirect_SumsEvaluableChains(t *testing.T) {
	g := serialGraph(t)
	chains := Enumerate(design.Serial(), []string{"M1", "M2"})
	total, evaluated := TotalIndirect(g, "X", chains, "Y")
	assert.Equal(t, 3, evaluated)
	assert.InDelta(t, 0.8+2.5+30, total, 1e-12)

	withBogus := append(chains, Chain{"M9"})
	total2, evaluated2 := TotalIndirect(g, "X", withBogus, "Y")
	assert.Equal(t, 3, evaluated2, "unevaluable chain skipped, not fatal")
	assert.InDelta(t, total, total2, 1e-12)
}
