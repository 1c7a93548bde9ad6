package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/domain/effects"
	"github.com/takjakim/method-studio/domain/pathgraph"
	"github.com/takjakim/method-studio/domain/table"
	"github.com/takjakim/method-studio/internal/errors"
	"github.com/takjakim/method-studio/internal/resample"
	"github.com/takjakim/method-studio/ports"
)

// ModeratedMediationService estimates conditional indirect effects for
// first-stage, second-stage and dual-stage moderated mediation models.
type ModeratedMediationService struct {
	engine *Engine
}

func NewModeratedMediationService(engine *Engine) *ModeratedMediationService {
	return &ModeratedMediationService{engine: engine}
}

type ModeratedMediationRequest struct {
	Data    map[string][]float64
	Roles   design.Roles
	Stage   design.Stage
	Options design.Options
}

// ConditionalIndirect is the indirect effect evaluated at one moderator
// probe value.
type ConditionalIndirect struct {
	WValue float64 `json:"w_value"`
	WLabel string  `json:"w_label"`
	BootEstimate
}

// StageModel reports one stage's fitted equation with the coefficient rows
// the conditional algebra reads.
type StageModel struct {
	Formula      string                  `json:"formula"`
	Coefficients map[string]PathEstimate `json:"coefficients"`
	RSquared     float64                 `json:"r_squared"`
	AdjRSquared  float64                 `json:"adj_r_squared"`
}

// ModeratedMediationResult is the composed report.
type ModeratedMediationResult struct {
	ID         core.AnalysisID `json:"id"`
	N          int             `json:"n"`
	Stage      design.Stage    `json:"stage"`
	Predictor  string          `json:"predictor"`
	Mediator   string          `json:"mediator"`
	Moderator  string          `json:"moderator"`
	Outcome    string          `json:"outcome"`
	Covariates []string        `json:"covariates,omitempty"`

	CenteringApplied bool       `json:"centering_applied"`
	PathAModel       StageModel `json:"path_a_model"`
	PathBModel       StageModel `json:"path_b_model"`

	Conditional []ConditionalIndirect `json:"conditional_indirect"`
	Index       BootEstimate          `json:"index_of_moderated_mediation"`
	Direct      PathEstimate          `json:"direct"`

	CILevel        float64 `json:"ci_level"`
	NBoot          *int    `json:"n_boot,omitempty"`
	Interpretation string  `json:"interpretation"`
}

// Analyze fits the two-stage system, probes the moderator and bootstraps the
// conditional indirect effects and the index of moderated mediation.
func (s *ModeratedMediationService) Analyze(ctx context.Context, req ModeratedMediationRequest) (*ModeratedMediationResult, error) {
	opts := req.Options.Normalize()
	stage := req.Stage
	if stage == "" {
		stage = design.StageFirst
	}
	topo := design.Moderated(stage)

	sys, err := design.Build(req.Roles, topo, opts)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidDesign, err)
	}

	raw, prepared, n, err := prepareTable(sys, req.Data)
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

	x := req.Roles.Predictor
	m := req.Roles.Mediators[0]
	w := req.Roles.Moderator
	y := req.Roles.Outcome

	aFit := fits["m:"+m]
	bFit := fits["outcome"]

	// Probe values come from the prepared (possibly centered) moderator, so
	// conditional effects are reported on the same scale the model was fit on.
	probes, err := effects.ProbeValues(prepared, w, opts.Probe)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidDesign, err)
	}

	coefs := stageCoefficients(sys, aFit, bFit, x, m)

	result := &ModeratedMediationResult{
		ID:               core.AnalysisID(core.NewID()),
		N:                n,
		Stage:            stage,
		Predictor:        x,
		Mediator:         m,
		Moderator:        w,
		Outcome:          y,
		Covariates:       req.Roles.Covariates,
		CenteringApplied: opts.Centering == design.CenterMean,
		PathAModel:       stageModel(sys, "m:"+m, aFit),
		PathBModel:       stageModel(sys, "outcome", bFit),
		Direct:           pathFrom(bFit, x),
		CILevel:          opts.CILevel,
	}

	labels := probeLabels(opts.Probe, len(probes))
	result.Conditional = make([]ConditionalIndirect, len(probes))
	for i, pw := range probes {
		v := coefs.ConditionalIndirect(pw)
		result.Conditional[i] = ConditionalIndirect{WValue: pw, WLabel: labels[i]}
		result.Conditional[i].Effect = &v
	}
	imm := coefs.IndexOfModeratedMediation(stage)
	result.Index.Effect = &imm

	if opts.Bootstrap {
		if err := s.bootstrap(ctx, sys, raw, opts, x, m, stage, probes, result); err != nil {
			return nil, err
		}
		nb := opts.NBoot
		result.NBoot = &nb
	}

	result.Interpretation = s.interpret(result, opts)

	if err := s.engine.save(ctx, result.ID, "moderated_mediation", result); err != nil {
		return result, err
	}
	return result, nil
}

// stageCoefficients reads a0/a1/b0/b1 from the fitted stage equations. The
// interaction slopes default to zero on unmoderated stages.
func stageCoefficients(sys *design.System, aFit, bFit *ports.FitResult, x, m string) effects.StageCoefficients {
	c := effects.StageCoefficients{
		A0: aFit.Coef[x],
		B0: bFit.Coef[m],
	}
	if sys.TermXW != "" {
		c.A1 = aFit.Coef[sys.TermXW]
	}
	if sys.TermMW != "" {
		c.B1 = bFit.Coef[sys.TermMW]
	}
	return c
}

func stageModel(sys *design.System, name string, fit *ports.FitResult) StageModel {
	eq, _ := sys.Equation(name)
	coefs := make(map[string]PathEstimate, len(fit.Terms))
	for _, term := range fit.Terms {
		coefs[term] = pathFrom(fit, term)
	}
	return StageModel{
		Formula:      eq.Formula(),
		Coefficients: coefs,
		RSquared:     fit.RSquared,
		AdjRSquared:  fit.AdjRSquared,
	}
}

func probeLabels(spec design.ProbeSpec, n int) []string {
	if spec.Method != design.ProbeExplicit && n == 3 {
		switch spec.Method {
		case design.ProbePercentile:
			return []string{"p16", "p50", "p84"}
		default:
			return []string{"low (-1 SD)", "mean", "high (+1 SD)"}
		}
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("w%d", i+1)
	}
	return labels
}

// bootstrap resamples the whole system. The probe values stay fixed at their
// full-sample locations; only the coefficients vary across resamples.
func (s *ModeratedMediationService) bootstrap(ctx context.Context, sys *design.System, raw *table.Table, opts design.Options, x, m string, stage design.Stage, probes []float64, result *ModeratedMediationResult) error {
	extract := func(g *pathgraph.Graph, _ *table.Table) (map[string]float64, error) {
		aFit, okA := g.Fit("m:" + m)
		bFit, okB := g.Fit("outcome")
		if !okA || !okB {
			return nil, fmt.Errorf("stage equation missing in resample")
		}
		coefs := stageCoefficients(sys, aFit, bFit, x, m)

		stats := make(map[string]float64, len(probes)+1)
		for i, pw := range probes {
			stats[fmt.Sprintf("cond:%d", i)] = coefs.ConditionalIndirect(pw)
		}
		stats["imm"] = coefs.IndexOfModeratedMediation(stage)
		return stats, nil
	}

	summaries, err := s.engine.driver.Run(ctx, sys, raw, opts, extract)
	if err != nil {
		return errors.WithCode(errors.CodeEstimation, err)
	}

	for i := range result.Conditional {
		if sum, ok := summaries[fmt.Sprintf("cond:%d", i)]; ok {
			result.Conditional[i].applySummary(sum)
		}
	}
	if sum, ok := summaries["imm"]; ok {
		result.Index.applySummary(sum)
	}
	return nil
}

func (s *ModeratedMediationService) interpret(r *ModeratedMediationResult, opts design.Options) string {
	stageText := map[design.Stage]string{
		design.StageFirst:  fmt.Sprintf("'%s' moderating the '%s' -> '%s' path", r.Moderator, r.Predictor, r.Mediator),
		design.StageSecond: fmt.Sprintf("'%s' moderating the '%s' -> '%s' path", r.Moderator, r.Mediator, r.Outcome),
		design.StageDual:   fmt.Sprintf("'%s' moderating both stages of the indirect path", r.Moderator),
	}[r.Stage]

	parts := []string{
		fmt.Sprintf("Moderated mediation analysis tested the indirect effect of '%s' on '%s' through '%s', with %s.",
			r.Predictor, r.Outcome, r.Mediator, stageText),
		fmt.Sprintf("N = %d complete cases used.", r.N),
	}
	if r.NBoot != nil {
		parts = append(parts, fmt.Sprintf("Conditional indirect effects estimated via percentile bootstrap (%d samples) with %.0f%% CIs.",
			*r.NBoot, r.CILevel*100))
	}
	if r.Index.Effect != nil {
		idx := fmt.Sprintf("Index of moderated mediation = %s", fmtFloat(*r.Index.Effect, 4))
		if r.Index.Significant != nil {
			if *r.Index.Significant {
				idx += "; the CI excludes zero, indicating the indirect effect depends on the moderator."
			} else {
				idx += "; the CI includes zero, so moderation of the indirect effect was not supported."
			}
		} else {
			idx += "."
		}
		parts = append(parts, idx)
	}
	return strings.Join(parts, " ")
}
