package design

import (
	"fmt"
	"strings"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/domain/table"
)

// EquationRole tags what an equation is for.
type EquationRole string

const (
	RoleMediator EquationRole = "mediator" // Mi regressed on X (+ prior mediators)
	RoleOutcome  EquationRole = "outcome"  // Y regressed on X + mediators
	RoleTotal    EquationRole = "total"    // Y regressed on X alone (total effect)
)

// Equation describes one regression: a response and an ordered term list. The
// intercept is implicit and always included by the fitter.
type Equation struct {
	Name     string
	Response string
	Terms    []string
	Role     EquationRole
	Mediator string // set for mediator equations
}

// Formula renders the equation for reporting.
func (e Equation) Formula() string {
	return fmt.Sprintf("%s ~ const + %s", e.Response, strings.Join(e.Terms, " + "))
}

// Product names a derived interaction column.
type Product struct {
	Name string
	A, B string
}

// System is the full equation set for one analysis, plus the preprocessing
// it needs. The system is built once per analysis and refit per resample.
type System struct {
	Topology  Topology
	Roles     Roles
	Equations []Equation

	// Preprocessing, applied to the original table and independently to
	// every bootstrap resample.
	Standardize bool
	CenterCols  []string
	Derived     []Product

	// Interaction term names, empty when the stage is unmoderated.
	TermXW string
	TermMW string

	// MinCases is the smallest complete-case count the system accepts.
	MinCases int
}

// InteractionName builds the derived-column name used for a product term.
func InteractionName(a, b string) string {
	return a + "_x_" + b
}

// Build derives the regression equation system for a role assignment and
// topology:
//
//   - one equation per mediator: Mi ~ X (+ mediators strictly before Mi when
//     serial) (+ W + X*W when the first stage is moderated) + covariates
//   - one outcome equation: Y ~ X + M1..Mk (+ W + M*W when the second stage
//     is moderated) + covariates
//   - one total-effect equation Y ~ X + covariates (mediation topologies
//     only; reported, never part of the path graph's mediated edges)
func Build(roles Roles, topo Topology, opts Options) (*System, error) {
	if err := roles.Validate(topo); err != nil {
		return nil, err
	}

	sys := &System{
		Topology:    topo,
		Roles:       roles,
		Standardize: opts.Standardize,
	}

	x := roles.Predictor
	y := roles.Outcome
	w := roles.Moderator
	covs := roles.Covariates

	if topo.Kind == KindModerated {
		if opts.Centering == CenterMean {
			sys.CenterCols = []string{x, w}
		}
		if topo.FirstStage() {
			sys.TermXW = InteractionName(x, w)
			sys.Derived = append(sys.Derived, Product{Name: sys.TermXW, A: x, B: w})
		}
		if topo.SecondStage() {
			m := roles.Mediators[0]
			sys.TermMW = InteractionName(m, w)
			sys.Derived = append(sys.Derived, Product{Name: sys.TermMW, A: m, B: w})
		}
	}

	// Mediator equations.
	for i, m := range roles.Mediators {
		terms := []string{x}
		if topo.Kind == KindSerial {
			terms = append(terms, roles.Mediators[:i]...)
		}
		if topo.Kind == KindModerated {
			terms = append(terms, w)
			if topo.FirstStage() {
				terms = append(terms, sys.TermXW)
			}
		}
		terms = append(terms, covs...)
		sys.Equations = append(sys.Equations, Equation{
			Name:     "m:" + m,
			Response: m,
			Terms:    terms,
			Role:     RoleMediator,
			Mediator: m,
		})
	}

	// Outcome equation.
	outTerms := []string{x}
	outTerms = append(outTerms, roles.Mediators...)
	if topo.Kind == KindModerated {
		outTerms = append(outTerms, w)
		if topo.SecondStage() {
			outTerms = append(outTerms, sys.TermMW)
		}
	}
	outTerms = append(outTerms, covs...)
	sys.Equations = append(sys.Equations, Equation{
		Name:     "outcome",
		Response: y,
		Terms:    outTerms,
		Role:     RoleOutcome,
	})

	// Total-effect equation, reported only.
	if topo.Kind != KindModerated && opts.TotalEffect {
		sys.Equations = append(sys.Equations, Equation{
			Name:     "total",
			Response: y,
			Terms:    append([]string{x}, covs...),
			Role:     RoleTotal,
		})
	}

	if topo.Kind == KindModerated {
		sys.MinCases = len(roles.Columns()) + 3
	} else {
		sys.MinCases = len(roles.Columns()) + 2
	}

	return sys, nil
}

// BuildModeration derives the single-equation system for a moderation-only
// analysis: Y ~ X + W + X*W + covariates, with optional mean centering of X
// and W before the interaction column is formed.
func BuildModeration(roles Roles, opts Options) (*System, error) {
	if roles.Predictor == "" {
		return nil, core.NewUnresolvableRoleError("predictor", roles.Predictor)
	}
	if roles.Outcome == "" {
		return nil, core.NewUnresolvableRoleError("outcome", roles.Outcome)
	}
	if roles.Moderator == "" {
		return nil, core.NewUnresolvableRoleError("moderator", roles.Moderator)
	}
	seen := map[string]string{roles.Predictor: "predictor"}
	for name, role := range map[string]string{roles.Outcome: "outcome", roles.Moderator: "moderator"} {
		if prev, dup := seen[name]; dup {
			return nil, core.NewRoleConflictError(name, prev, role)
		}
		seen[name] = role
	}

	x, w, y := roles.Predictor, roles.Moderator, roles.Outcome
	xw := InteractionName(x, w)

	sys := &System{
		Topology:    Topology{Kind: KindModerated, Stage: StageFirst},
		Roles:       roles,
		Standardize: opts.Standardize,
		TermXW:      xw,
		Derived:     []Product{{Name: xw, A: x, B: w}},
		MinCases:    4 + len(roles.Covariates),
	}
	if opts.Centering == CenterMean {
		sys.CenterCols = []string{x, w}
	}

	terms := []string{x, w, xw}
	terms = append(terms, roles.Covariates...)
	sys.Equations = []Equation{{
		Name:     "moderation",
		Response: y,
		Terms:    terms,
		Role:     RoleOutcome,
	}}
	return sys, nil
}

// Prepare applies the system's preprocessing to a table: standardization,
// centering, then derived interaction columns, in that order. It is called on
// the original complete-case table and again on every bootstrap resample, so
// centering constants and products are always resample-local.
func (s *System) Prepare(t *table.Table) (*table.Table, error) {
	out := t
	var err error

	if s.Standardize {
		out, err = out.Standardize()
		if err != nil {
			return nil, err
		}
	}
	if len(s.CenterCols) > 0 {
		out, err = out.Center(s.CenterCols...)
		if err != nil {
			return nil, err
		}
	}
	for _, p := range s.Derived {
		out, err = out.WithProduct(p.Name, p.A, p.B)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Equation returns the equation with the given name.
func (s *System) Equation(name string) (Equation, bool) {
	for _, eq := range s.Equations {
		if eq.Name == name {
			return eq, true
		}
	}
	return Equation{}, false
}

// MediatorEquation returns the equation whose response is the given mediator.
func (s *System) MediatorEquation(m string) (Equation, bool) {
	for _, eq := range s.Equations {
		if eq.Role == RoleMediator && eq.Mediator == m {
			return eq, true
		}
	}
	return Equation{}, false
}
