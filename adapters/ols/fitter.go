// Package ols fits ordinary least squares equations with gonum. It is the
// concrete ports.Fitter used everywhere an equation needs estimating, on the
// full sample and inside the bootstrap loop alike.
package ols

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/ports"
)

// Fitter solves each equation by QR decomposition and derives the coefficient
// covariance from the inverse normal matrix. Rank-deficient designs surface
// as core.ErrSingularDesign rather than silently-wrong estimates.
type Fitter struct{}

func New() *Fitter { return &Fitter{} }

var _ ports.Fitter = (*Fitter)(nil)

const constTerm = "const"

// Fit estimates response ~ const + terms. cols holds one column per term, in
// term order; the intercept column is added here.
func (f *Fitter) Fit(response []float64, terms []string, cols [][]float64) (*ports.FitResult, error) {
	n := len(response)
	p := len(terms) + 1
	if n == 0 {
		return nil, fmt.Errorf("ols: %w: empty response", core.ErrInsufficientData)
	}
	if n <= p {
		return nil, core.NewInsufficientDataError(n, p+1)
	}
	for i, c := range cols {
		if len(c) != n {
			return nil, fmt.Errorf("ols: term %s has %d rows, response has %d", terms[i], len(c), n)
		}
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}
	for j, c := range cols {
		for i, v := range c {
			x.Set(i, j+1, v)
		}
	}
	y := mat.NewVecDense(n, response)

	var qr mat.QR
	qr.Factorize(x)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return nil, core.NewSingularDesignError(fmt.Sprintf("%v ~ %v", "response", terms))
	}

	// (X'X)^-1 for the coefficient covariance.
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, core.NewSingularDesignError(fmt.Sprintf("%v ~ %v", "response", terms))
	}

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(x, &beta)

	rss := 0.0
	meanY := 0.0
	for _, v := range response {
		meanY += v
	}
	meanY /= float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		r := response[i] - fitted.AtVec(i)
		rss += r * r
		d := response[i] - meanY
		tss += d * d
	}

	dfResid := n - p
	sigma2 := rss / float64(dfResid)
	if math.IsNaN(sigma2) || math.IsInf(sigma2, 0) {
		return nil, core.NewSingularDesignError(fmt.Sprintf("%v ~ %v", "response", terms))
	}

	cov := make([][]float64, p)
	for i := range cov {
		cov[i] = make([]float64, p)
		for j := 0; j < p; j++ {
			cov[i][j] = sigma2 * xtxInv.At(i, j)
		}
	}

	allTerms := append([]string{constTerm}, terms...)
	res := &ports.FitResult{
		Terms:   allTerms,
		Coef:    make(map[string]float64, p),
		SE:      make(map[string]float64, p),
		T:       make(map[string]float64, p),
		P:       make(map[string]float64, p),
		Cov:     cov,
		DFResid: dfResid,
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dfResid)}
	for i, term := range allTerms {
		b := beta.AtVec(i)
		se := math.Sqrt(cov[i][i])
		res.Coef[term] = b
		res.SE[term] = se
		if se > 0 && !math.IsNaN(se) {
			t := b / se
			res.T[term] = t
			res.P[term] = 2 * tdist.Survival(math.Abs(t))
		} else {
			res.T[term] = math.NaN()
			res.P[term] = math.NaN()
		}
	}

	if tss > 0 {
		res.RSquared = 1 - rss/tss
		res.AdjRSquared = 1 - (1-res.RSquared)*float64(n-1)/float64(dfResid)
	}

	// Overall F test against the intercept-only model.
	res.FDF1 = p - 1
	res.FDF2 = dfResid
	if p > 1 && rss > 0 && tss > rss {
		res.FStat = ((tss - rss) / float64(p-1)) / sigma2
		fdist := distuv.F{D1: float64(p - 1), D2: float64(dfResid)}
		res.FP = fdist.Survival(res.FStat)
	} else {
		res.FStat = math.NaN()
		res.FP = math.NaN()
	}

	return res, nil
}
