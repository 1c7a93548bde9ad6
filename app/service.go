// Package app orchestrates the analysis services: design building, fitting,
// path-graph assembly, effect enumeration, bootstrap inference and result
// composition. One service per analysis family.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/takjakim/method-studio/domain/core"
	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/domain/table"
	"github.com/takjakim/method-studio/internal/errors"
	"github.com/takjakim/method-studio/internal/resample"
	"github.com/takjakim/method-studio/ports"
)

// Engine bundles the collaborators every analysis service needs. The result
// store is optional; a nil store disables persistence.
type Engine struct {
	fitter ports.Fitter
	rng    ports.RNG
	driver *resample.Driver
	store  ports.ResultStore
}

func NewEngine(fitter ports.Fitter, rng ports.RNG, store ports.ResultStore) *Engine {
	return &Engine{
		fitter: fitter,
		rng:    rng,
		driver: resample.New(fitter, rng),
		store:  store,
	}
}

// PathEstimate is one reported regression path: coefficient, standard error,
// t statistic and p value.
type PathEstimate struct {
	Coef float64 `json:"coef"`
	SE   float64 `json:"se"`
	T    float64 `json:"t"`
	P    float64 `json:"p"`
}

func pathFrom(fit *ports.FitResult, term string) PathEstimate {
	return PathEstimate{
		Coef: fit.Coef[term],
		SE:   fit.SE[term],
		T:    fit.T[term],
		P:    fit.P[term],
	}
}

// ModelFit summarizes one equation's fit quality.
type ModelFit struct {
	Formula     string  `json:"formula"`
	RSquared    float64 `json:"r_squared"`
	AdjRSquared float64 `json:"adj_r_squared"`
}

// BootEstimate is a point estimate with its percentile-bootstrap inference.
// The pointer fields are nil when the estimate is unavailable (degenerate
// chain) or when too few bootstrap draws survived.
type BootEstimate struct {
	Effect      *float64 `json:"effect"`
	BootSE      *float64 `json:"boot_se"`
	CILower     *float64 `json:"ci_lower"`
	CIUpper     *float64 `json:"ci_upper"`
	Significant *bool    `json:"significant"`
}

func (b *BootEstimate) applySummary(s resample.Summary) {
	b.BootSE = s.BootSE
	b.CILower = s.CILower
	b.CIUpper = s.CIUpper
	b.Significant = s.Significant
}

// prepareTable materializes the complete-case table for a built system and
// applies its preprocessing. Returns the raw complete-case table (for
// resampling), the prepared table (for the full-sample fit) and n.
func prepareTable(sys *design.System, data map[string][]float64) (raw, prepared *table.Table, n int, err error) {
	t, err := table.FromColumns(sys.Roles.Columns(), data)
	if err != nil {
		return nil, nil, 0, err
	}
	complete := t.DropIncomplete()
	n = complete.N()
	if n < sys.MinCases {
		return nil, nil, 0, core.NewInsufficientDataError(n, sys.MinCases)
	}
	prepared, err = sys.Prepare(complete)
	if err != nil {
		return nil, nil, 0, err
	}
	return complete, prepared, n, nil
}

// save persists a composed result when a store is configured. Persistence
// failures do not fail the analysis; the composed result is already in hand.
func (e *Engine) save(ctx context.Context, id core.AnalysisID, analysis string, result interface{}) error {
	if e.store == nil {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to encode result payload")
	}
	rec := ports.ResultRecord{
		ID:        id,
		Analysis:  analysis,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.Save(ctx, rec); err != nil {
		return errors.WithCode(errors.CodeStorage, err)
	}
	return nil
}

// tCritical is the two-sided critical value for a residual df and CI level.
func tCritical(dfResid int, ciLevel float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dfResid)}
	return dist.Quantile(1 - (1-ciLevel)/2)
}

func pCompare(p, alpha float64) string {
	if math.IsNaN(p) {
		return "="
	}
	if p < alpha {
		return "<"
	}
	return ">="
}

func fmtFloat(v float64, digits int) string {
	return fmt.Sprintf("%.*f", digits, v)
}
