package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/domain/effects"
	"github.com/takjakim/method-studio/internal/errors"
	"github.com/takjakim/method-studio/internal/resample"
)

// ModerationService runs a single-equation moderation analysis: the
// interaction model, simple slopes at probe values and the Johnson-Neyman
// significance region. The inference here is analytic, not bootstrapped.
type ModerationService struct {
	engine *Engine
}

func NewModerationService(engine *Engine) *ModerationService {
	return &ModerationService{engine: engine}
}

type ModerationRequest struct {
	Data    map[string][]float64
	Roles   design.Roles // Predictor, Moderator, Outcome, Covariates; Mediators unused
	Options design.Options
}

// CoefficientRow is one row of the reported coefficient table.
type CoefficientRow struct {
	Term     string  `json:"term"`
	Estimate float64 `json:"estimate"`
	StdError float64 `json:"std_error"`
	TValue   float64 `json:"t_value"`
	PValue   float64 `json:"p_value"`
	CILower  float64 `json:"ci_lower"`
	CIUpper  float64 `json:"ci_upper"`
}

// ModerationModel is the fitted interaction equation.
type ModerationModel struct {
	Formula     string           `json:"formula"`
	CoefTable   []CoefficientRow `json:"coef_table"`
	RSquared    float64          `json:"r_squared"`
	AdjRSquared float64          `json:"adj_r_squared"`
	FStat       float64          `json:"f_stat"`
	FDF1        int              `json:"f_df1"`
	FDF2        int              `json:"f_df2"`
	FP          float64          `json:"f_p"`
}

// ModerationResult is the composed report.
type ModerationResult struct {
	ID               core.AnalysisID `json:"id"`
	N                int             `json:"n"`
	Predictor        string          `json:"predictor"`
	Moderator        string          `json:"moderator"`
	Outcome          string          `json:"outcome"`
	InteractionTerm  string          `json:"interaction_term"`
	CenteringApplied bool            `json:"centering_applied"`

	Model         ModerationModel       `json:"model"`
	SimpleSlopes  []effects.SimpleSlope `json:"simple_slopes"`
	SlopeLabels   []string              `json:"slope_labels"`
	JohnsonNeyman effects.JNRegion      `json:"johnson_neyman"`

	Alpha          float64 `json:"alpha"`
	CILevel        float64 `json:"ci_level"`
	Interpretation string  `json:"interpretation"`
}

// Analyze fits Y ~ X + W + X*W (+ covariates), probes the moderator and
// solves the Johnson-Neyman boundaries.
func (s *ModerationService) Analyze(ctx context.Context, req ModerationRequest) (*ModerationResult, error) {
	opts := req.Options.Normalize()

	sys, err := design.BuildModeration(req.Roles, opts)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidDesign, err)
	}

	_, prepared, n, err := prepareTable(sys, req.Data)
	if err != nil {
		if core.IsDataError(err) {
			return nil, errors.WithCode(errors.CodeInsufficientData, err)
		}
		return nil, errors.WithCode(errors.CodeInvalidDesign, err)
	}

	fits, err := resample.FitSystem(s.engine.fitter, sys, prepared)
	if err != nil {
		return nil, errors.WithCode(errors.CodeEstimation, err)
	}
	fit := fits["moderation"]

	x, w, y := req.Roles.Predictor, req.Roles.Moderator, req.Roles.Outcome
	xw := sys.TermXW
	eq, _ := sys.Equation("moderation")

	tcrit := tCritical(fit.DFResid, opts.CILevel)
	rows := make([]CoefficientRow, 0, len(fit.Terms))
	for _, term := range fit.Terms {
		est := pathFrom(fit, term)
		rows = append(rows, CoefficientRow{
			Term:     term,
			Estimate: est.Coef,
			StdError: est.SE,
			TValue:   est.T,
			PValue:   est.P,
			CILower:  est.Coef - tcrit*est.SE,
			CIUpper:  est.Coef + tcrit*est.SE,
		})
	}

	result := &ModerationResult{
		ID:               core.AnalysisID(core.NewID()),
		N:                n,
		Predictor:        x,
		Moderator:        w,
		Outcome:          y,
		InteractionTerm:  xw,
		CenteringApplied: opts.Centering == design.CenterMean,
		Model: ModerationModel{
			Formula:     eq.Formula(),
			CoefTable:   rows,
			RSquared:    fit.RSquared,
			AdjRSquared: fit.AdjRSquared,
			FStat:       fit.FStat,
			FDF1:        fit.FDF1,
			FDF2:        fit.FDF2,
			FP:          fit.FP,
		},
		Alpha:   opts.Alpha(),
		CILevel: opts.CILevel,
	}

	probes, err := effects.ProbeValues(prepared, w, opts.Probe)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidDesign, err)
	}
	result.SlopeLabels = probeLabels(opts.Probe, len(probes))
	result.SimpleSlopes = make([]effects.SimpleSlope, 0, len(probes))
	for _, pw := range probes {
		slope, err := effects.SimpleSlopeAt(fit, x, xw, pw, opts.CILevel)
		if err != nil {
			return nil, errors.WithCode(errors.CodeEstimation, err)
		}
		result.SimpleSlopes = append(result.SimpleSlopes, slope)
	}

	wCol, _ := prepared.Column(w)
	jn, err := effects.JohnsonNeyman(fit, x, xw, wCol, opts.CILevel)
	if err != nil {
		return nil, errors.WithCode(errors.CodeEstimation, err)
	}
	result.JohnsonNeyman = jn

	result.Interpretation = s.interpret(result, fit.P[xw])

	if err := s.engine.save(ctx, result.ID, "moderation", result); err != nil {
		return result, err
	}
	return result, nil
}

func (s *ModerationService) interpret(r *ModerationResult, interactionP float64) string {
	parts := []string{
		fmt.Sprintf("Moderation analysis tested whether '%s' moderates the effect of '%s' on '%s'.",
			r.Moderator, r.Predictor, r.Outcome),
		fmt.Sprintf("N = %d complete cases used.", r.N),
	}
	if interactionP < r.Alpha {
		parts = append(parts, fmt.Sprintf("The %s interaction was significant (p %s %.4f), indicating the slope of '%s' varies with '%s'.",
			r.InteractionTerm, pCompare(interactionP, r.Alpha), r.Alpha, r.Predictor, r.Moderator))
	} else {
		parts = append(parts, fmt.Sprintf("The %s interaction was not significant (p %s %.4f).",
			r.InteractionTerm, pCompare(interactionP, r.Alpha), r.Alpha))
	}
	if r.JohnsonNeyman.Lower != nil && r.JohnsonNeyman.Upper != nil {
		parts = append(parts, fmt.Sprintf("Johnson-Neyman boundaries at %s = %s and %s; %s.",
			r.Moderator, fmtFloat(*r.JohnsonNeyman.Lower, 3), fmtFloat(*r.JohnsonNeyman.Upper, 3),
			r.JohnsonNeyman.Note))
	} else {
		parts = append(parts, fmt.Sprintf("Johnson-Neyman: %s.", r.JohnsonNeyman.Note))
	}
	return strings.Join(parts, " ")
}
