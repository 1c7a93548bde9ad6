package design

import (
	"fmt"

	"github.com/takjakim/method-studio/domain/core"
)

// Arrow is one directed path in a free-form path model.
type Arrow struct {
	From string
	To   string
}

// PathModel is the parsed form of a free-form path list: one regression per
// endogenous variable, over its direct predecessors.
type PathModel struct {
	System     *System
	Endogenous []string
	Exogenous  []string
	Variables  []string
}

// FromPaths derives the equation system for a free-form path list. Each
// distinct "to" variable becomes one equation regressed on every "from"
// variable pointing at it; duplicate arrows collapse.
func FromPaths(arrows []Arrow) (*PathModel, error) {
	if len(arrows) == 0 {
		return nil, fmt.Errorf("%w: path model has no paths", core.ErrUnresolvableRole)
	}

	var order []string
	preds := map[string][]string{}
	var allVars []string
	seenVar := map[string]bool{}

	addVar := func(v string) {
		if !seenVar[v] {
			seenVar[v] = true
			allVars = append(allVars, v)
		}
	}

	for _, a := range arrows {
		if a.From == "" || a.To == "" {
			return nil, fmt.Errorf("%w: path needs both from and to", core.ErrUnresolvableRole)
		}
		if a.From == a.To {
			return nil, core.NewRoleConflictError(a.From, "from", "to")
		}
		if _, ok := preds[a.To]; !ok {
			order = append(order, a.To)
		}
		dup := false
		for _, p := range preds[a.To] {
			if p == a.From {
				dup = true
				break
			}
		}
		if !dup {
			preds[a.To] = append(preds[a.To], a.From)
		}
		addVar(a.From)
		addVar(a.To)
	}

	sys := &System{MinCases: len(allVars) + 2}
	endoSet := map[string]bool{}
	for _, to := range order {
		endoSet[to] = true
		sys.Equations = append(sys.Equations, Equation{
			Name:     "eq:" + to,
			Response: to,
			Terms:    preds[to],
			Role:     RoleOutcome,
		})
	}

	model := &PathModel{System: sys, Variables: allVars}
	for _, v := range allVars {
		if endoSet[v] {
			model.Endogenous = append(model.Endogenous, v)
		} else {
			model.Exogenous = append(model.Exogenous, v)
		}
	}
	return model, nil
}
