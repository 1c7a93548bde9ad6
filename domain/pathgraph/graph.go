package pathgraph

import (
	"fmt"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/ports"
)

type edgeKey struct {
	from, to string
}

// Graph maps (from, to) variable pairs to fitted edge coefficients. It is
// rebuilt from scratch for the full-sample fit and for every bootstrap
// resample; an edge exists only where one equation's response is `to` and
// `from` appears as a term in that equation.
//
// Interaction terms never become edges: the base (non-interaction)
// coefficient of a moderated predictor is the edge value, and the moderator
// and interaction coefficients stay on the per-equation fits for
// conditional-effect computation.
type Graph struct {
	edges map[edgeKey]float64
	fits  map[string]*ports.FitResult
}

// Build assembles the graph from a fitted equation system. The total-effect
// equation is excluded; its X coefficient would duplicate the direct edge.
// A duplicate (from, to) pair is a Design Builder defect and fails loudly.
func Build(sys *design.System, fits map[string]*ports.FitResult) (*Graph, error) {
	g := &Graph{
		edges: make(map[edgeKey]float64),
		fits:  fits,
	}

	skip := map[string]bool{}
	if sys.TermXW != "" {
		skip[sys.TermXW] = true
	}
	if sys.TermMW != "" {
		skip[sys.TermMW] = true
	}

	for _, eq := range sys.Equations {
		if eq.Role == design.RoleTotal {
			continue
		}
		fit, ok := fits[eq.Name]
		if !ok {
			continue // equation not fit in this resample
		}
		for _, term := range eq.Terms {
			if skip[term] {
				continue
			}
			coef, has := fit.Coef[term]
			if !has {
				continue
			}
			key := edgeKey{from: term, to: eq.Response}
			if _, dup := g.edges[key]; dup {
				return nil, fmt.Errorf("duplicate edge %s -> %s across equations", term, eq.Response)
			}
			g.edges[key] = coef
		}
	}

	return g, nil
}

// Edge returns the coefficient for a (from, to) pair, or ErrMissingEdge.
func (g *Graph) Edge(from, to string) (float64, error) {
	v, ok := g.edges[edgeKey{from: from, to: to}]
	if !ok {
		return 0, fmt.Errorf("%w: %s -> %s", core.ErrMissingEdge, from, to)
	}
	return v, nil
}

// Has reports whether an edge exists.
func (g *Graph) Has(from, to string) bool {
	_, ok := g.edges[edgeKey{from: from, to: to}]
	return ok
}

// Fit returns the fitted result for a named equation.
func (g *Graph) Fit(name string) (*ports.FitResult, bool) {
	f, ok := g.fits[name]
	return f, ok
}

// Len returns the number of edges.
func (g *Graph) Len() int {
	return len(g.edges)
}
