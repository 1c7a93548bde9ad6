package ports

// FitResult is the output of a single OLS fit. Coefficient maps are keyed by
// term name; "const" is the intercept. Cov is the coefficient covariance
// matrix in Terms order. A FitResult is immutable once returned.
type FitResult struct {
	Terms []string // "const" followed by the design terms, in fit order

	Coef map[string]float64
	SE   map[string]float64
	T    map[string]float64
	P    map[string]float64

	RSquared    float64
	AdjRSquared float64
	FStat       float64
	FP          float64
	FDF1        int
	FDF2        int
	DFResid     int

	Cov [][]float64
}

// index returns the position of a term in the covariance ordering.
func (f *FitResult) index(term string) int {
	for i, t := range f.Terms {
		if t == term {
			return i
		}
	}
	return -1
}

// Var returns the sampling variance of a term's coefficient. The second
// return is false when the term was not part of the fit.
func (f *FitResult) Var(term string) (float64, bool) {
	i := f.index(term)
	if i < 0 || f.Cov == nil {
		return 0, false
	}
	return f.Cov[i][i], true
}

// Covar returns the sampling covariance between two terms' coefficients.
func (f *FitResult) Covar(a, b string) (float64, bool) {
	i, j := f.index(a), f.index(b)
	if i < 0 || j < 0 || f.Cov == nil {
		return 0, false
	}
	return f.Cov[i][j], true
}

// Has reports whether the term was part of the fit.
func (f *FitResult) Has(term string) bool {
	_, ok := f.Coef[term]
	return ok
}

// Fitter is the OLS primitive. Implementations must be deterministic for a
// given input and fail with core.ErrSingularDesign (wrapped) when the design
// matrix is rank-deficient. The intercept column is added by the fitter;
// cols[i] holds the values for terms[i].
type Fitter interface {
	Fit(response []float64, terms []string, cols [][]float64) (*FitResult, error)
}
