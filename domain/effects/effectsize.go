package effects

import (
	"math"

	mfstats "github.com/montanaflynn/stats"

	"github.com/takjakim/method-studio/domain/table"
)

// EffectSize reports kappa-squared for one mediator: the observed
// standardized indirect effect as a proportion of the largest indirect effect
// the X-M correlation structure could produce.
type EffectSize struct {
	KappaSquared   *float64 `json:"kappa_squared"`
	Interpretation string   `json:"interpretation"`
}

// KappaSquared computes the Preacher-Kelley effect size for an a*b route.
// The coefficients are standardized against the sample variances, then
// compared to the maximum attainable indirect effect given corr(X, M). A nil
// value means the bound is numerically zero and the ratio is undefined.
func KappaSquared(t *table.Table, x, m, y string, a, b float64) EffectSize {
	unavailable := EffectSize{Interpretation: "unavailable"}

	colX, okX := t.Column(x)
	colM, okM := t.Column(m)
	colY, okY := t.Column(y)
	if !okX || !okM || !okY {
		return unavailable
	}
	varX, errX := mfstats.SampleVariance(mfstats.Float64Data(colX))
	varM, errM := mfstats.SampleVariance(mfstats.Float64Data(colM))
	varY, errY := mfstats.SampleVariance(mfstats.Float64Data(colY))
	if errX != nil || errM != nil || errY != nil || varM <= 0 || varY <= 0 {
		return unavailable
	}

	aStd := a * math.Sqrt(varX) / math.Sqrt(varM)
	bStd := b * math.Sqrt(varM) / math.Sqrt(varY)
	indStd := aStd * bStd

	rXM, err := mfstats.Correlation(mfstats.Float64Data(colX), mfstats.Float64Data(colM))
	if err != nil || math.IsNaN(rXM) {
		return unavailable
	}

	maxInd := 0.0
	if indStd != 0 {
		maxInd = math.Abs(rXM) * math.Sqrt(1-rXM*rXM)
		if indStd < 0 {
			maxInd = -maxInd
		}
	}
	if math.Abs(maxInd) <= 1e-10 {
		return unavailable
	}

	kq := math.Min(math.Abs(indStd/maxInd), 1.0)
	return EffectSize{KappaSquared: &kq, Interpretation: interpretKappa(kq)}
}

func interpretKappa(kq float64) string {
	switch {
	case kq < 0.01:
		return "negligible"
	case kq < 0.09:
		return "small"
	case kq < 0.25:
		return "medium"
	default:
		return "large"
	}
}
