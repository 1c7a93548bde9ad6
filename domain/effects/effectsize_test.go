package effects

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takjakim/method-studio/domain/table"
)

func TestKappaSquared(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 200
	x := make([]float64, n)
	m := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		m[i] = 0.5*x[i] + rng.NormFloat64()
		y[i] = 0.6*m[i] + 0.2*x[i] + rng.NormFloat64()
	}
	tbl, err := table.FromColumns([]string{"X", "M", "Y"}, map[string][]float64{"X": x, "M": m, "Y": y})
	assert.NoError(t, err)

	es := KappaSquared(tbl, "X", "M", "Y", 0.5, 0.6)
	assert.NotNil(t, es.KappaSquared)
	assert.GreaterOrEqual(t, *es.KappaSquared, 0.0)
	assert.LessOrEqual(t, *es.KappaSquared, 1.0)
	assert.Contains(t, []string{"negligible", "small", "medium", "large"}, es.Interpretation)
}

func TestKappaSquared_ZeroIndirectUnavailable(t *testing.T) {
	tbl, _ := table.FromColumns([]string{"X", "M", "Y"}, map[string][]float64{
		"X": {1, 2, 3, 4, 5},
		"M": {5, 3, 4, 1, 2},
		"Y": {2, 4, 1, 5, 3},
	})
	es := KappaSquared(tbl, "X", "M", "Y", 0, 0.6)
	assert.Nil(t, es.KappaSquared)
	assert.Equal(t, "unavailable", es.Interpretation)
}

func TestInterpretKappaThresholds(t *testing.T) {
	assert.Equal(t, "negligible", interpretKappa(0.005))
	assert.Equal(t, "small", interpretKappa(0.05))
	assert.Equal(t, "medium", interpretKappa(0.1))
	assert.Equal(t, "large", interpretKappa(0.3))
}
