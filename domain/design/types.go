package design

import (
	"fmt"

	"github.com/takjakim/method-studio/domain/core"
)

// Kind identifies the causal-path topology of an analysis.
type Kind string

const (
	KindSimple    Kind = "simple"    // one mediator, X -> M -> Y
	KindParallel  Kind = "parallel"  // k mediators, no mediator-to-mediator paths
	KindSerial    Kind = "serial"    // k ordered mediators, X -> M1 -> ... -> Mk -> Y
	KindModerated Kind = "moderated" // single mediator with a moderated stage
)

// Stage identifies which path(s) a moderator acts on.
type Stage string

const (
	StageFirst  Stage = "first"  // W moderates X -> M
	StageSecond Stage = "second" // W moderates M -> Y
	StageDual   Stage = "dual"   // W moderates both paths
)

// Topology is the tagged-variant descriptor consumed by the builder. Stage is
// meaningful only when Kind is KindModerated.
type Topology struct {
	Kind  Kind
	Stage Stage
}

func Simple() Topology    { return Topology{Kind: KindSimple} }
func Parallel() Topology  { return Topology{Kind: KindParallel} }
func Serial() Topology    { return Topology{Kind: KindSerial} }
func Moderated(stage Stage) Topology {
	return Topology{Kind: KindModerated, Stage: stage}
}

// FirstStage reports whether the a-path (X -> M) carries an interaction.
func (t Topology) FirstStage() bool {
	return t.Kind == KindModerated && (t.Stage == StageFirst || t.Stage == StageDual)
}

// SecondStage reports whether the b-path (M -> Y) carries an interaction.
func (t Topology) SecondStage() bool {
	return t.Kind == KindModerated && (t.Stage == StageSecond || t.Stage == StageDual)
}

// Roles assigns dataset columns to causal roles. Mediators are ordered when
// the topology is serial and unordered otherwise.
type Roles struct {
	Predictor  string
	Mediators  []string
	Outcome    string
	Moderator  string
	Covariates []string
}

// Validate checks the role-set invariants: X, Y, and all mediators pairwise
// distinct, mediator list non-empty when required, moderator present for
// moderated topologies.
func (r Roles) Validate(topo Topology) error {
	if r.Predictor == "" {
		return core.NewUnresolvableRoleError("predictor", r.Predictor)
	}
	if r.Outcome == "" {
		return core.NewUnresolvableRoleError("outcome", r.Outcome)
	}
	if r.Predictor == r.Outcome {
		return core.NewRoleConflictError(r.Predictor, "predictor", "outcome")
	}

	seen := map[string]string{
		r.Predictor: "predictor",
		r.Outcome:   "outcome",
	}

	if len(r.Mediators) == 0 {
		return fmt.Errorf("%w: at least one mediator is required", core.ErrUnresolvableRole)
	}
	if topo.Kind == KindSimple || topo.Kind == KindModerated {
		if len(r.Mediators) != 1 {
			return fmt.Errorf("%w: topology %q takes exactly one mediator, got %d",
				core.ErrUnresolvableRole, topo.Kind, len(r.Mediators))
		}
	}

	for _, m := range r.Mediators {
		if prev, dup := seen[m]; dup {
			return core.NewRoleConflictError(m, prev, "mediator")
		}
		seen[m] = "mediator"
	}

	if topo.Kind == KindModerated {
		if r.Moderator == "" {
			return core.NewUnresolvableRoleError("moderator", r.Moderator)
		}
		if prev, dup := seen[r.Moderator]; dup {
			return core.NewRoleConflictError(r.Moderator, prev, "moderator")
		}
		seen[r.Moderator] = "moderator"
	}

	for _, c := range r.Covariates {
		if prev, dup := seen[c]; dup {
			return core.NewRoleConflictError(c, prev, "covariate")
		}
		seen[c] = "covariate"
	}

	return nil
}

// Columns returns every dataset column the analysis touches, in role order
// and without duplicates.
func (r Roles) Columns() []string {
	out := []string{r.Predictor}
	out = append(out, r.Mediators...)
	if r.Moderator != "" {
		out = append(out, r.Moderator)
	}
	out = append(out, r.Outcome)
	out = append(out, r.Covariates...)
	return out
}

// ProbeMethod selects how moderator probe values are chosen.
type ProbeMethod string

const (
	ProbeMeanSD     ProbeMethod = "meanSD"     // mean - SD, mean, mean + SD
	ProbePercentile ProbeMethod = "percentile" // 16th, 50th, 84th percentiles
	ProbeExplicit   ProbeMethod = "explicit"   // caller-supplied values
)

// ProbeSpec configures moderator probing.
type ProbeSpec struct {
	Method ProbeMethod
	Values []float64 // used when Method is ProbeExplicit
}

// Centering selects the optional pre-fit centering step.
type Centering string

const (
	CenterNone Centering = "none"
	CenterMean Centering = "mean"
)

// Options is the validated per-analysis configuration, resolved once at
// entry instead of scattered option lookups.
type Options struct {
	Bootstrap   bool
	NBoot       int
	CILevel     float64
	Seed        int64
	Workers     int
	Standardize bool
	Centering   Centering
	Probe       ProbeSpec
	EffectSize  bool
	TotalEffect bool
}

// DefaultSeed keeps repeated runs on identical input reproducible when the
// caller does not supply a seed of their own.
const DefaultSeed int64 = 20240101

// DefaultOptions returns the conventional defaults for every analysis family.
func DefaultOptions() Options {
	return Options{
		Bootstrap:   true,
		NBoot:       5000,
		CILevel:     0.95,
		Seed:        DefaultSeed,
		Workers:     1,
		Standardize: false,
		Centering:   CenterNone,
		Probe:       ProbeSpec{Method: ProbeMeanSD},
		EffectSize:  true,
		TotalEffect: true,
	}
}

// Normalize clamps out-of-range settings to their defaults: NBoot has a floor
// of 100, CILevel must lie strictly inside (0, 1), Workers is at least 1.
func (o Options) Normalize() Options {
	if o.NBoot < 100 {
		o.NBoot = 100
	}
	if o.CILevel <= 0 || o.CILevel >= 1 {
		o.CILevel = 0.95
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Centering == "" {
		o.Centering = CenterNone
	}
	if o.Probe.Method == "" {
		o.Probe.Method = ProbeMeanSD
	}
	return o
}

// Alpha returns the two-sided significance level implied by the CI level.
func (o Options) Alpha() float64 {
	return 1 - o.CILevel
}
