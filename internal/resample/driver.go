// Package resample runs the percentile bootstrap over a fitted equation
// system. The driver owns resampling, refitting and aggregation; what gets
// measured on each draw is supplied by the caller as an extractor, so one
// loop serves indirect effects, moderated indirect effects and their indices
// alike.
package resample

import (
	"context"
	"fmt"
	"math"
	"sort"

	mfstats "github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/domain/pathgraph"
	"github.com/takjakim/method-studio/domain/table"
	"github.com/takjakim/method-studio/ports"
)

// Extractor computes the named statistics of interest on one fitted draw.
// Returning an error discards the whole draw; returning a map with NaN or
// missing entries discards the draw for those statistics only.
type Extractor func(g *pathgraph.Graph, t *table.Table) (map[string]float64, error)

// Summary is the percentile-bootstrap inference for one statistic. The
// pointer fields are nil when fewer than MinValidDraws resamples produced a
// finite value, in which case only NValid is meaningful.
type Summary struct {
	BootSE      *float64 `json:"boot_se"`
	CILower     *float64 `json:"ci_lower"`
	CIUpper     *float64 `json:"ci_upper"`
	Significant *bool    `json:"significant"`
	NValid      int      `json:"n_valid"`
}

// MinValidDraws is the floor below which percentile intervals are not
// reported; a handful of surviving draws cannot support tail quantiles.
const MinValidDraws = 10

type Driver struct {
	fitter ports.Fitter
	rng    ports.RNG
}

func New(fitter ports.Fitter, rng ports.RNG) *Driver {
	return &Driver{fitter: fitter, rng: rng}
}

// FitSystem estimates every equation in sys against the prepared table.
// Callers use it for the full-sample fit, where any failure is fatal.
func FitSystem(fitter ports.Fitter, sys *design.System, prepared *table.Table) (map[string]*ports.FitResult, error) {
	fits := make(map[string]*ports.FitResult, len(sys.Equations))
	for _, eq := range sys.Equations {
		fit, err := fitEquation(fitter, eq, prepared)
		if err != nil {
			return nil, fmt.Errorf("fit %s: %w", eq.Formula(), err)
		}
		fits[eq.Name] = fit
	}
	return fits, nil
}

func fitEquation(fitter ports.Fitter, eq design.Equation, t *table.Table) (*ports.FitResult, error) {
	response, ok := t.Column(eq.Response)
	if !ok {
		return nil, fmt.Errorf("missing response column %s", eq.Response)
	}
	cols := make([][]float64, len(eq.Terms))
	for i, term := range eq.Terms {
		col, ok := t.Column(term)
		if !ok {
			return nil, fmt.Errorf("missing term column %s", term)
		}
		cols[i] = col
	}
	return fitter.Fit(response, eq.Terms, cols)
}

// Run executes opts.NBoot bootstrap iterations of the whole system against
// the complete-case base table and aggregates every statistic the extractor
// reported on any draw.
//
// Each iteration draws rows with replacement from the raw base table and then
// reapplies the system's preparation, so centering means, standardization
// scales and derived products are recomputed from the resample itself. Draw i
// always reads from the stream named after i, which makes results identical
// for any worker count.
func (d *Driver) Run(ctx context.Context, sys *design.System, base *table.Table, opts design.Options, extract Extractor) (map[string]Summary, error) {
	opts = opts.Normalize()
	n := base.N()
	if n < sys.MinCases {
		return nil, fmt.Errorf("bootstrap: %d complete cases, need %d", n, sys.MinCases)
	}

	results := make([]map[string]float64, opts.NBoot)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < opts.NBoot; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.iteration(sys, base, opts.Seed, i, n, extract)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return d.aggregate(results, opts), nil
}

// iteration runs one draw. A draw that cannot be fit or extracted counts as
// missing for every statistic rather than failing the run; degenerate
// resamples are an expected cost of resampling small or collinear data.
func (d *Driver) iteration(sys *design.System, base *table.Table, seed int64, idx, n int, extract Extractor) map[string]float64 {
	stream := d.rng.SeededStream(fmt.Sprintf("boot-%06d", idx), seed)
	rows := make([]int, n)
	for j := range rows {
		rows[j] = stream.Intn(n)
	}

	prepared, err := sys.Prepare(base.Resample(rows))
	if err != nil {
		return nil
	}

	fits := make(map[string]*ports.FitResult, len(sys.Equations))
	for _, eq := range sys.Equations {
		fit, err := fitEquation(d.fitter, eq, prepared)
		if err != nil {
			continue
		}
		fits[eq.Name] = fit
	}
	if len(fits) == 0 {
		return nil
	}

	graph, err := pathgraph.Build(sys, fits)
	if err != nil {
		return nil
	}

	stats, err := extract(graph, prepared)
	if err != nil {
		return nil
	}
	return stats
}

func (d *Driver) aggregate(results []map[string]float64, opts design.Options) map[string]Summary {
	names := make(map[string]struct{})
	for _, r := range results {
		for name := range r {
			names[name] = struct{}{}
		}
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	alpha := opts.Alpha()
	out := make(map[string]Summary, len(ordered))
	for _, name := range ordered {
		draws := make([]float64, 0, len(results))
		for _, r := range results {
			v, ok := r[name]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			draws = append(draws, v)
		}
		out[name] = summarize(draws, alpha)
	}
	return out
}

func summarize(draws []float64, alpha float64) Summary {
	s := Summary{NValid: len(draws)}
	if len(draws) < MinValidDraws {
		return s
	}

	data := mfstats.Float64Data(draws)
	se, err := mfstats.StandardDeviationSample(data)
	if err != nil {
		return s
	}
	lower, errLo := mfstats.Percentile(data, 100*alpha/2)
	upper, errHi := mfstats.Percentile(data, 100*(1-alpha/2))
	if errLo != nil || errHi != nil {
		return s
	}

	sig := lower > 0 || upper < 0
	s.BootSE = &se
	s.CILower = &lower
	s.CIUpper = &upper
	s.Significant = &sig
	return s
}
