package ols

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takjakim/method-studio/domain/core"
)

func TestFit_ExactLinearRelation(t *testing.T) {
	// y = 1 + 2a + 3b, no noise: coefficients recovered exactly.
	n := 50
	rng := rand.New(rand.NewSource(1))
	a := make([]float64, n)
	b := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()
		y[i] = 1 + 2*a[i] + 3*b[i]
	}

	fit, err := New().Fit(y, []string{"a", "b"}, [][]float64{a, b})
	assert.NoError(t, err)

	assert.Equal(t, []string{"const", "a", "b"}, fit.Terms)
	assert.InDelta(t, 1, fit.Coef["const"], 1e-8)
	assert.InDelta(t, 2, fit.Coef["a"], 1e-8)
	assert.InDelta(t, 3, fit.Coef["b"], 1e-8)
	assert.InDelta(t, 1, fit.RSquared, 1e-10)
	assert.Equal(t, n-3, fit.DFResid)
}

func TestFit_NoisyRecoveryAndInference(t *testing.T) {
	n := 500
	rng := rand.New(rand.NewSource(2))
	a := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = rng.NormFloat64()
		y[i] = 0.5 + 2*a[i] + rng.NormFloat64()
	}

	fit, err := New().Fit(y, []string{"a"}, [][]float64{a})
	assert.NoError(t, err)

	assert.InDelta(t, 2, fit.Coef["a"], 0.15)
	assert.Greater(t, fit.SE["a"], 0.0)
	assert.Less(t, fit.P["a"], 1e-6)
	assert.Greater(t, fit.RSquared, 0.5)
	assert.Less(t, fit.AdjRSquared, fit.RSquared)

	assert.Greater(t, fit.FStat, 0.0)
	assert.Equal(t, 1, fit.FDF1)
	assert.Equal(t, n-2, fit.FDF2)
	assert.Less(t, fit.FP, 1e-6)

	// covariance diagonal matches reported SEs
	v, ok := fit.Var("a")
	assert.True(t, ok)
	assert.InDelta(t, fit.SE["a"]*fit.SE["a"], v, 1e-12)
	c, ok := fit.Covar("const", "a")
	assert.True(t, ok)
	assert.False(t, math.IsNaN(c))
}

func TestFit_SingularDesign(t *testing.T) {
	n := 20
	a := make([]float64, n)
	b := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = float64(i)
		b[i] = 2 * float64(i) // perfectly collinear
		y[i] = float64(i)
	}

	_, err := New().Fit(y, []string{"a", "b"}, [][]float64{a, b})
	assert.True(t, core.IsSingularDesign(err))
}

func TestFit_InsufficientRows(t *testing.T) {
	_, err := New().Fit([]float64{1, 2}, []string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestFit_Deterministic(t *testing.T) {
	y := []float64{1, 2.1, 2.9, 4.2, 5.1, 5.9, 7.3, 8.1}
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	f1, err1 := New().Fit(y, []string{"a"}, [][]float64{a})
	f2, err2 := New().Fit(y, []string{"a"}, [][]float64{a})
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, f1.Coef, f2.Coef)
	assert.Equal(t, f1.SE, f2.SE)
}
