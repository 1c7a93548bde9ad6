package effects

import (
	"fmt"
	"math"

	mfstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/domain/table"
	"github.com/takjakim/method-studio/ports"
)

// StageCoefficients carries the moderated pieces of one X->M->Y route.
// A1 is the X-by-W slope on the first stage and B1 the M-by-W slope on the
// second; either is zero when its stage is not moderated.
type StageCoefficients struct {
	A0 float64
	A1 float64
	B0 float64
	B1 float64
}

// ConditionalIndirect evaluates (a0 + a1*w) * (b0 + b1*w) at moderator value w.
func (s StageCoefficients) ConditionalIndirect(w float64) float64 {
	return (s.A0 + s.A1*w) * (s.B0 + s.B1*w)
}

// IndexOfModeratedMediation is the slope of the conditional indirect effect
// in W. For a dual-stage model the exact derivative is quadratic in W, so the
// reported index is the cross-term a1*b1, the conventional single-number
// summary.
func (s StageCoefficients) IndexOfModeratedMediation(stage design.Stage) float64 {
	switch stage {
	case design.StageFirst:
		return s.A1 * s.B0
	case design.StageSecond:
		return s.A0 * s.B1
	default:
		return s.A1 * s.B1
	}
}

// ProbeValues resolves the moderator values at which conditional effects are
// reported. Explicit values are used as given; otherwise meanSD yields
// {mean-sd, mean, mean+sd} and percentile yields the 16th, 50th and 84th
// percentiles of the observed moderator.
func ProbeValues(t *table.Table, moderator string, spec design.ProbeSpec) ([]float64, error) {
	if spec.Method == design.ProbeExplicit {
		if len(spec.Values) == 0 {
			return nil, fmt.Errorf("probe: explicit method requires at least one value")
		}
		out := make([]float64, len(spec.Values))
		copy(out, spec.Values)
		return out, nil
	}

	col, ok := t.Column(moderator)
	if !ok {
		return nil, fmt.Errorf("probe: unknown moderator column %s", moderator)
	}
	switch spec.Method {
	case design.ProbePercentile:
		values := make([]float64, 0, 3)
		for _, p := range []float64{16, 50, 84} {
			v, err := mfstats.Percentile(mfstats.Float64Data(col), p)
			if err != nil {
				return nil, fmt.Errorf("probe: percentile %.0f of %s: %w", p, moderator, err)
			}
			values = append(values, v)
		}
		return values, nil
	default:
		mean, err := mfstats.Mean(mfstats.Float64Data(col))
		if err != nil {
			return nil, fmt.Errorf("probe: mean of %s: %w", moderator, err)
		}
		sd, err := mfstats.StandardDeviationSample(mfstats.Float64Data(col))
		if err != nil {
			return nil, fmt.Errorf("probe: sd of %s: %w", moderator, err)
		}
		return []float64{mean - sd, mean, mean + sd}, nil
	}
}

// SimpleSlope is the conditional effect of X on the response at one moderator
// value, with its delta-method standard error and t test.
type SimpleSlope struct {
	W           float64 `json:"w"`
	Slope       float64 `json:"slope"`
	SE          float64 `json:"se"`
	T           float64 `json:"t"`
	P           float64 `json:"p"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
	Significant bool    `json:"significant"`
}

// SimpleSlopeAt computes the conditional slope b_x + b_xw*w from a fitted
// equation containing both the focal term and its interaction with W.
func SimpleSlopeAt(fit *ports.FitResult, xTerm, xwTerm string, w, ciLevel float64) (SimpleSlope, error) {
	if !fit.Has(xTerm) || !fit.Has(xwTerm) {
		return SimpleSlope{}, fmt.Errorf("simple slope: fit lacks %s or %s", xTerm, xwTerm)
	}
	slope := fit.Coef[xTerm] + fit.Coef[xwTerm]*w
	varX, okX := fit.Var(xTerm)
	varXW, okXW := fit.Var(xwTerm)
	cov, okCov := fit.Covar(xTerm, xwTerm)
	if !okX || !okXW || !okCov {
		return SimpleSlope{}, fmt.Errorf("simple slope: fit carries no covariance for %s, %s", xTerm, xwTerm)
	}
	variance := varX + w*w*varXW + 2*w*cov
	if variance < 0 {
		variance = 0
	}
	se := math.Sqrt(variance)

	df := float64(fit.DFResid)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	var tval, p float64
	if se > 0 {
		tval = slope / se
		p = 2 * dist.Survival(math.Abs(tval))
	} else {
		p = math.NaN()
		tval = math.NaN()
	}
	tcrit := dist.Quantile(1 - (1-ciLevel)/2)
	return SimpleSlope{
		W:           w,
		Slope:       slope,
		SE:          se,
		T:           tval,
		P:           p,
		CILower:     slope - tcrit*se,
		CIUpper:     slope + tcrit*se,
		Significant: !math.IsNaN(p) && p < 1-ciLevel,
	}, nil
}

// JNRegion is the Johnson-Neyman solution for one fitted interaction.
// Bounds are nil when no finite boundary exists; Note explains the shape of
// the significance region in every case.
type JNRegion struct {
	Lower           *float64 `json:"lower,omitempty"`
	Upper           *float64 `json:"upper,omitempty"`
	PercentInRegion *float64 `json:"percent_in_region,omitempty"`
	Note            string   `json:"note"`
}

const jnQuadraticEps = 1e-12

// JohnsonNeyman solves for the moderator values where the conditional effect
// of X transitions between significance and non-significance at the given
// confidence level. wObserved is the observed moderator column, used both to
// resolve degenerate cases at its mean and to report the share of the sample
// inside the significance region.
func JohnsonNeyman(fit *ports.FitResult, xTerm, xwTerm string, wObserved []float64, ciLevel float64) (JNRegion, error) {
	if !fit.Has(xTerm) || !fit.Has(xwTerm) {
		return JNRegion{}, fmt.Errorf("johnson-neyman: fit lacks %s or %s", xTerm, xwTerm)
	}
	if len(wObserved) == 0 {
		return JNRegion{}, fmt.Errorf("johnson-neyman: empty moderator column")
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(fit.DFResid)}
	tcrit := dist.Quantile(1 - (1-ciLevel)/2)
	t2 := tcrit * tcrit

	bx := fit.Coef[xTerm]
	bxw := fit.Coef[xwTerm]
	varX, okX := fit.Var(xTerm)
	varXW, okXW := fit.Var(xwTerm)
	cov, okCov := fit.Covar(xTerm, xwTerm)
	if !okX || !okXW || !okCov {
		return JNRegion{}, fmt.Errorf("johnson-neyman: fit carries no covariance for %s, %s", xTerm, xwTerm)
	}
	a := bxw*bxw - t2*varXW
	b := 2*bx*bxw - 2*t2*cov
	c := bx*bx - t2*varX

	meanW, err := mfstats.Mean(mfstats.Float64Data(wObserved))
	if err != nil {
		return JNRegion{}, fmt.Errorf("johnson-neyman: moderator mean: %w", err)
	}
	sigAt := func(w float64) bool {
		slope, serr := SimpleSlopeAt(fit, xTerm, xwTerm, w, ciLevel)
		return serr == nil && slope.Significant
	}

	if math.Abs(a) < jnQuadraticEps {
		if sigAt(meanW) {
			return JNRegion{Note: "no finite boundary; effect significant across the observed moderator range"}, nil
		}
		return JNRegion{Note: "no finite boundary; effect not significant across the observed moderator range"}, nil
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		if sigAt(meanW) {
			return JNRegion{Note: "effect significant for all moderator values"}, nil
		}
		return JNRegion{Note: "effect not significant for any moderator value"}, nil
	}

	sq := math.Sqrt(disc)
	lo := (-b - sq) / (2 * a)
	hi := (-b + sq) / (2 * a)
	if lo > hi {
		lo, hi = hi, lo
	}

	// The region of significance is whichever side of the roots the
	// conditional test rejects on; probe the midpoint to find out.
	inside := sigAt((lo + hi) / 2)

	count := 0
	for _, w := range wObserved {
		between := w >= lo && w <= hi
		if between == inside {
			count++
		}
	}
	pct := 100 * float64(count) / float64(len(wObserved))

	note := "effect significant outside the boundaries"
	if inside {
		note = "effect significant between the boundaries"
	}
	return JNRegion{Lower: &lo, Upper: &hi, PercentInRegion: &pct, Note: note}, nil
}

// SobelSE is the first-order delta-method standard error of a two-path
// indirect effect a*b, used as the analytic fallback when bootstrapping is
// disabled.
func SobelSE(a, seA, b, seB float64) float64 {
	return math.Sqrt(b*b*seA*seA + a*a*seB*seB)
}

// SobelTest returns the z statistic, p value and normal-theory interval for
// the product a*b.
func SobelTest(a, seA, b, seB, ciLevel float64) (z, p, lower, upper float64) {
	se := SobelSE(a, seA, b, seB)
	norm := distuv.UnitNormal
	if se > 0 {
		z = a * b / se
		p = 2 * norm.Survival(math.Abs(z))
	} else {
		z = math.NaN()
		p = math.NaN()
	}
	zcrit := norm.Quantile(1 - (1-ciLevel)/2)
	return z, p, a*b - zcrit*se, a*b + zcrit*se
}
