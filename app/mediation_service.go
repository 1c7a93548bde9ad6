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

// MediationService runs simple, parallel and serial mediation analyses. The
// three topologies share design building, chain enumeration and the bootstrap
// loop; they differ only in the equations built and the chains enumerated.
type MediationService struct {
	engine *Engine
}

func NewMediationService(engine *Engine) *MediationService {
	return &MediationService{engine: engine}
}

// MediationRequest is one analysis call. Topology defaults to simple for one
// mediator and parallel for several; pass design.Serial() for an ordered
// chain.
type MediationRequest struct {
	Data     map[string][]float64
	Roles    design.Roles
	Topology design.Topology
	Options  design.Options
}

// MediatorPaths holds the a (X -> M) and b (M -> Y controlling X) paths for
// one mediator.
type MediatorPaths struct {
	A PathEstimate `json:"a"`
	B PathEstimate `json:"b"`
}

// SerialPath is one mediator-to-mediator (d) path in a serial chain.
type SerialPath struct {
	From     string       `json:"from"`
	To       string       `json:"to"`
	Estimate PathEstimate `json:"estimate"`
}

// IndirectEffect is one enumerated chain with its inference. Sobel fields are
// set only on the analytic (non-bootstrap) route for single-mediator chains.
type IndirectEffect struct {
	Label string   `json:"label"`
	Chain []string `json:"chain"`
	BootEstimate
	SobelZ *float64 `json:"sobel_z,omitempty"`
	SobelP *float64 `json:"sobel_p,omitempty"`
}

// MediationResult is the composed mediation report.
type MediationResult struct {
	ID         core.AnalysisID `json:"id"`
	N          int             `json:"n"`
	Topology   design.Kind     `json:"topology"`
	Predictor  string          `json:"predictor"`
	Mediators  []string        `json:"mediators"`
	Outcome    string          `json:"outcome"`
	Covariates []string        `json:"covariates,omitempty"`

	Paths       map[string]MediatorPaths      `json:"paths"`
	SerialPaths []SerialPath                  `json:"serial_paths,omitempty"`
	Direct      PathEstimate                  `json:"direct"`
	Total       *PathEstimate                 `json:"total,omitempty"`
	Indirect    []IndirectEffect              `json:"indirect"`
	TotalInd    *IndirectEffect               `json:"total_indirect,omitempty"`
	EffectSizes map[string]effects.EffectSize `json:"effect_sizes,omitempty"`

	RSquaredY    float64             `json:"r_squared_y"`
	AdjRSquaredY float64             `json:"adj_r_squared_y"`
	RSquaredM    map[string]ModelFit `json:"r_squared_m"`

	Standardized   bool    `json:"standardized"`
	CILevel        float64 `json:"ci_level"`
	NBoot          *int    `json:"n_boot,omitempty"`
	Interpretation string  `json:"interpretation"`
}

// Analyze fits the mediation system, enumerates indirect chains and attaches
// bootstrap (or Sobel fallback) inference to each.
func (s *MediationService) Analyze(ctx context.Context, req MediationRequest) (*MediationResult, error) {
	opts := req.Options.Normalize()
	topo := req.Topology
	if topo.Kind == "" {
		if len(req.Roles.Mediators) == 1 {
			topo = design.Simple()
		} else {
			topo = design.Parallel()
		}
	}

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
	graph, err := pathgraph.Build(sys, fits)
	if err != nil {
		return nil, errors.WithCode(errors.CodeEstimation, err)
	}

	x, y := req.Roles.Predictor, req.Roles.Outcome
	chains := effects.Enumerate(topo, req.Roles.Mediators)

	result := &MediationResult{
		ID:           core.AnalysisID(core.NewID()),
		N:            n,
		Topology:     topo.Kind,
		Predictor:    x,
		Mediators:    req.Roles.Mediators,
		Outcome:      y,
		Covariates:   req.Roles.Covariates,
		Paths:        make(map[string]MediatorPaths, len(req.Roles.Mediators)),
		RSquaredM:    make(map[string]ModelFit, len(req.Roles.Mediators)),
		Standardized: opts.Standardize,
		CILevel:      opts.CILevel,
	}

	outFit := fits["outcome"]
	result.Direct = pathFrom(outFit, x)
	result.RSquaredY = outFit.RSquared
	result.AdjRSquaredY = outFit.AdjRSquared

	if totalFit, ok := fits["total"]; ok {
		total := pathFrom(totalFit, x)
		result.Total = &total
	}

	for _, m := range req.Roles.Mediators {
		eq, _ := sys.MediatorEquation(m)
		mFit := fits[eq.Name]
		result.Paths[m] = MediatorPaths{
			A: pathFrom(mFit, x),
			B: pathFrom(outFit, m),
		}
		result.RSquaredM[m] = ModelFit{
			Formula:     eq.Formula(),
			RSquared:    mFit.RSquared,
			AdjRSquared: mFit.AdjRSquared,
		}
	}

	if topo.Kind == design.KindSerial {
		result.SerialPaths = serialPaths(sys, fits, req.Roles.Mediators)
	}

	result.Indirect = make([]IndirectEffect, len(chains))
	for i, c := range chains {
		ind := IndirectEffect{Label: c.Label(x, y), Chain: c}
		if v, err := effects.Evaluate(graph, x, c, y); err == nil {
			v := v
			ind.Effect = &v
		}
		result.Indirect[i] = ind
	}
	if total, evaluated := effects.TotalIndirect(graph, x, chains, y); evaluated > 0 {
		result.TotalInd = &IndirectEffect{Label: "total", BootEstimate: BootEstimate{Effect: &total}}
	}

	if opts.Bootstrap {
		if err := s.bootstrap(ctx, sys, raw, opts, x, y, chains, result); err != nil {
			return nil, err
		}
		nb := opts.NBoot
		result.NBoot = &nb
	} else {
		s.sobelFallback(result, opts)
	}

	if opts.EffectSize && topo.Kind != design.KindSerial {
		result.EffectSizes = make(map[string]effects.EffectSize, len(req.Roles.Mediators))
		for _, m := range req.Roles.Mediators {
			p := result.Paths[m]
			result.EffectSizes[m] = effects.KappaSquared(prepared, x, m, y, p.A.Coef, p.B.Coef)
		}
	}

	result.Interpretation = s.interpret(result, opts)

	if err := s.engine.save(ctx, result.ID, "mediation", result); err != nil {
		return result, err
	}
	return result, nil
}

func (s *MediationService) bootstrap(ctx context.Context, sys *design.System, raw *table.Table, opts design.Options, x, y string, chains []effects.Chain, result *MediationResult) error {
	extract := func(g *pathgraph.Graph, _ *table.Table) (map[string]float64, error) {
		stats := make(map[string]float64, len(chains)+1)
		total := 0.0
		evaluated := 0
		for _, c := range chains {
			v, err := effects.Evaluate(g, x, c, y)
			if err != nil {
				continue
			}
			stats["chain:"+c.Key()] = v
			total += v
			evaluated++
		}
		if evaluated > 0 {
			stats["total_indirect"] = total
		}
		return stats, nil
	}

	summaries, err := s.engine.driver.Run(ctx, sys, raw, opts, extract)
	if err != nil {
		return errors.WithCode(errors.CodeEstimation, err)
	}

	for i, c := range chains {
		if sum, ok := summaries["chain:"+c.Key()]; ok {
			result.Indirect[i].applySummary(sum)
		}
	}
	if result.TotalInd != nil {
		if sum, ok := summaries["total_indirect"]; ok {
			result.TotalInd.applySummary(sum)
		}
	}
	return nil
}

// sobelFallback attaches normal-theory inference to single-mediator chains
// when bootstrapping is disabled. Multi-step chains have no analytic interval
// here and keep null inference fields.
func (s *MediationService) sobelFallback(result *MediationResult, opts design.Options) {
	for i := range result.Indirect {
		ind := &result.Indirect[i]
		if len(ind.Chain) != 1 || ind.Effect == nil {
			continue
		}
		p := result.Paths[ind.Chain[0]]
		z, pval, lo, hi := effects.SobelTest(p.A.Coef, p.A.SE, p.B.Coef, p.B.SE, opts.CILevel)
		sig := lo > 0 || hi < 0
		ind.SobelZ = &z
		ind.SobelP = &pval
		ind.CILower = &lo
		ind.CIUpper = &hi
		ind.Significant = &sig
	}
}

// serialPaths collects the mediator-to-mediator (d) coefficients from each
// later mediator's equation.
func serialPaths(sys *design.System, fits map[string]*ports.FitResult, mediators []string) []SerialPath {
	var out []SerialPath
	for j := 1; j < len(mediators); j++ {
		eq, ok := sys.MediatorEquation(mediators[j])
		if !ok {
			continue
		}
		fit := fits[eq.Name]
		for i := 0; i < j; i++ {
			if !fit.Has(mediators[i]) {
				continue
			}
			out = append(out, SerialPath{
				From:     mediators[i],
				To:       mediators[j],
				Estimate: pathFrom(fit, mediators[i]),
			})
		}
	}
	return out
}

func (s *MediationService) interpret(r *MediationResult, opts design.Options) string {
	alpha := opts.Alpha()
	medLabel := "'" + strings.Join(r.Mediators, "', '") + "'"
	method := "normal-theory (Sobel) approximation"
	if r.NBoot != nil {
		method = fmt.Sprintf("percentile bootstrap (%d samples)", *r.NBoot)
	}

	parts := []string{
		fmt.Sprintf("Mediation analysis tested whether the effect of '%s' on '%s' was mediated by %s.",
			r.Predictor, r.Outcome, medLabel),
		fmt.Sprintf("N = %d complete cases used. Indirect effects estimated via %s with %.0f%% CIs.",
			r.N, method, r.CILevel*100),
	}
	if r.Total != nil {
		parts = append(parts, fmt.Sprintf("Total effect (path c): b = %s, SE = %s, p %s %.4f.",
			fmtFloat(r.Total.Coef, 3), fmtFloat(r.Total.SE, 3), pCompare(r.Total.P, alpha), alpha))
	}
	parts = append(parts, fmt.Sprintf("Direct effect (path c'): b = %s, SE = %s, p %s %.4f.",
		fmtFloat(r.Direct.Coef, 3), fmtFloat(r.Direct.SE, 3), pCompare(r.Direct.P, alpha), alpha))

	sig := make([]string, 0, len(r.Indirect))
	for _, ind := range r.Indirect {
		if ind.Significant != nil && *ind.Significant {
			sig = append(sig, ind.Label)
		}
	}
	switch {
	case len(sig) == len(r.Indirect) && len(sig) > 0:
		parts = append(parts, "All enumerated indirect effects were significant (CIs exclude zero).")
	case len(sig) > 0:
		parts = append(parts, fmt.Sprintf("Significant indirect paths: %s.", strings.Join(sig, "; ")))
	default:
		parts = append(parts, "No indirect effect reached significance at the requested level.")
	}
	return strings.Join(parts, " ")
}
