// Package testkit generates synthetic datasets with known generating
// equations so tests can assert that estimated paths recover the true
// coefficients.
package testkit

import (
	"math"
	"math/rand"
)

// MediationData simulates X -> M -> Y with a = 2.0, b = 3.0 and a direct
// effect of 0.5, so the true indirect effect is 6.0.
func MediationData(n int, seed int64) map[string][]float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	m := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		m[i] = 2.0*x[i] + 0.5*rng.NormFloat64()
		y[i] = 3.0*m[i] + 0.5*x[i] + 0.5*rng.NormFloat64()
	}
	return map[string][]float64{"X": x, "M": m, "Y": y}
}

// ParallelMediationData simulates two parallel mediators with indirect
// effects 0.6*0.8 and 0.4*0.5.
func ParallelMediationData(n int, seed int64) map[string][]float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	m1 := make([]float64, n)
	m2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		m1[i] = 0.6*x[i] + 0.5*rng.NormFloat64()
		m2[i] = 0.4*x[i] + 0.5*rng.NormFloat64()
		y[i] = 0.8*m1[i] + 0.5*m2[i] + 0.3*x[i] + 0.5*rng.NormFloat64()
	}
	return map[string][]float64{"X": x, "M1": m1, "M2": m2, "Y": y}
}

// SerialMediationData simulates X -> M1 -> M2 -> Y. The full serial chain's
// true value is 0.6*0.7*0.8.
func SerialMediationData(n int, seed int64) map[string][]float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	m1 := make([]float64, n)
	m2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		m1[i] = 0.6*x[i] + 0.5*rng.NormFloat64()
		m2[i] = 0.7*m1[i] + 0.3*x[i] + 0.5*rng.NormFloat64()
		y[i] = 0.8*m2[i] + 0.4*m1[i] + 0.2*x[i] + 0.5*rng.NormFloat64()
	}
	return map[string][]float64{"X": x, "M1": m1, "M2": m2, "Y": y}
}

// ModeratedMediationData simulates a first-stage moderated model where the
// X -> M slope is 0.5 + 0.4*W, with b = 0.6. The true index of moderated
// mediation is therefore 0.4*0.6.
func ModeratedMediationData(n int, seed int64) map[string][]float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	w := make([]float64, n)
	m := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		w[i] = rng.NormFloat64()
		m[i] = (0.5+0.4*w[i])*x[i] + 0.3*w[i] + 0.5*rng.NormFloat64()
		y[i] = 0.6*m[i] + 0.3*x[i] + 0.5*rng.NormFloat64()
	}
	return map[string][]float64{"X": x, "W": w, "M": m, "Y": y}
}

// ModerationData simulates Y = 0.4X + 0.3W + 0.5XW + noise, a strong
// interaction with a Johnson-Neyman boundary inside the observed W range.
func ModerationData(n int, seed int64) map[string][]float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	w := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		w[i] = rng.NormFloat64()
		y[i] = 0.4*x[i] + 0.3*w[i] + 0.5*x[i]*w[i] + 0.5*rng.NormFloat64()
	}
	return map[string][]float64{"X": x, "W": w, "Y": y}
}

// WithMissing punches NaN holes into the named column at the given row
// indexes, for listwise-deletion tests.
func WithMissing(data map[string][]float64, column string, rows ...int) map[string][]float64 {
	out := make(map[string][]float64, len(data))
	for k, v := range data {
		c := make([]float64, len(v))
		copy(c, v)
		out[k] = c
	}
	col := out[column]
	for _, r := range rows {
		if r >= 0 && r < len(col) {
			col[r] = math.NaN()
		}
	}
	return out
}
