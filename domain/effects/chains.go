package effects

import (
	"strings"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/domain/pathgraph"
)

// Chain is an ordered sequence of mediators between X and Y. Its value is the
// product of the edge coefficients along X -> chain[0] -> ... -> chain[last] -> Y.
type Chain []string

// Label renders the chain for reporting, e.g. "X->M1->M2->Y".
func (c Chain) Label(x, y string) string {
	parts := make([]string, 0, len(c)+2)
	parts = append(parts, x)
	parts = append(parts, c...)
	parts = append(parts, y)
	return strings.Join(parts, "->")
}

// Key is a stable identifier for the chain within one analysis.
func (c Chain) Key() string {
	return strings.Join(c, "_")
}

// Enumerate returns the fixed list of indirect chains for a topology and
// mediator set. The set depends only on topology and mediators, never on a
// particular fit.
//
// Parallel (and simple, and moderated) topologies report one length-1 chain
// per mediator. Serial topologies report every contiguous sub-sequence of the
// ordered mediators - k(k+1)/2 chains for k mediators, including the full
// chain - because the regression system only estimates edges between
// immediately-modeled pairs, so non-contiguous subsets are not valid routes.
func Enumerate(topo design.Topology, mediators []string) []Chain {
	if topo.Kind != design.KindSerial {
		chains := make([]Chain, len(mediators))
		for i, m := range mediators {
			chains[i] = Chain{m}
		}
		return chains
	}

	k := len(mediators)
	chains := make([]Chain, 0, k*(k+1)/2)
	for length := 1; length <= k; length++ {
		for start := 0; start+length <= k; start++ {
			chains = append(chains, Chain(mediators[start:start+length]))
		}
	}
	return chains
}

// Evaluate computes a chain's point estimate from the path graph. A missing
// edge yields ErrDegenerateChain with the offending edge named; callers in
// the bootstrap loop treat that as a missing draw for this chain only.
func Evaluate(g *pathgraph.Graph, x string, chain Chain, y string) (float64, error) {
	if len(chain) == 0 {
		return 0, core.NewDegenerateChainError(chain, x, y)
	}

	value, err := g.Edge(x, chain[0])
	if err != nil {
		return 0, core.NewDegenerateChainError(chain, x, chain[0])
	}
	for i := 0; i+1 < len(chain); i++ {
		edge, err := g.Edge(chain[i], chain[i+1])
		if err != nil {
			return 0, core.NewDegenerateChainError(chain, chain[i], chain[i+1])
		}
		value *= edge
	}
	last, err := g.Edge(chain[len(chain)-1], y)
	if err != nil {
		return 0, core.NewDegenerateChainError(chain, chain[len(chain)-1], y)
	}
	return value * last, nil
}

// TotalIndirect sums every evaluable chain's value. Overlapping serial
// sub-chains are intentionally double counted: each enumerated chain names a
// separate hypothesis, and the total sums all of them. The second return is
// the number of chains that evaluated.
func TotalIndirect(g *pathgraph.Graph, x string, chains []Chain, y string) (float64, int) {
	total := 0.0
	evaluated := 0
	for _, c := range chains {
		v, err := Evaluate(g, x, c, y)
		if err != nil {
			continue
		}
		total += v
		evaluated++
	}
	return total, evaluated
}
