// Command studio runs one analysis against a CSV or XLSX dataset and prints
// the composed result as JSON.
//
//	studio -file data.csv -analysis mediation -x X -m M -y Y
//	studio -file data.xlsx -analysis serial -x X -m "M1,M2" -y Y -nboot 2000
//	studio -file data.csv -analysis modmed -x X -m M -w W -y Y -stage first
//	studio -file data.csv -analysis moderation -x X -w W -y Y
//	studio -file data.csv -analysis path -paths "X->M,M->Y,X->Y"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/takjakim/method-studio/adapters/excel"
	"github.com/takjakim/method-studio/adapters/ols"
	"github.com/takjakim/method-studio/adapters/postgres"
	"github.com/takjakim/method-studio/adapters/rng"
	"github.com/takjakim/method-studio/app"
	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/internal/config"
	"github.com/takjakim/method-studio/ports"
)

func main() {
	var (
		file     = flag.String("file", "", "path to CSV or XLSX dataset (required)")
		analysis = flag.String("analysis", "mediation", "mediation | serial | modmed | moderation | path")
		x        = flag.String("x", "", "predictor column")
		m        = flag.String("m", "", "mediator column(s), comma separated")
		y        = flag.String("y", "", "outcome column")
		w        = flag.String("w", "", "moderator column")
		cov      = flag.String("cov", "", "covariate column(s), comma separated")
		stage    = flag.String("stage", "first", "moderated stage: first | second | dual")
		paths    = flag.String("paths", "", "path list for -analysis path, e.g. \"X->M,M->Y,X->Y\"")
		boot     = flag.Bool("boot", true, "bootstrap indirect effects")
		nboot    = flag.Int("nboot", 0, "bootstrap samples (default from env/config)")
		ci       = flag.Float64("ci", 0, "confidence level (default from env/config)")
		seed     = flag.Int64("seed", 0, "bootstrap seed (default from env/config)")
		workers  = flag.Int("workers", 0, "bootstrap workers (default from env/config)")
		std      = flag.Bool("standardize", false, "standardize variables before fitting")
		center   = flag.String("centering", "none", "moderator centering: mean | none")
		probe    = flag.String("probe", "meanSD", "probe method: meanSD | percentile")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	opts := design.DefaultOptions()
	opts.Bootstrap = *boot
	opts.NBoot = cfg.Resampling.NBoot
	opts.CILevel = cfg.Resampling.CILevel
	opts.Seed = cfg.Resampling.Seed
	opts.Workers = cfg.Resampling.Workers
	if *nboot > 0 {
		opts.NBoot = *nboot
	}
	if *ci > 0 {
		opts.CILevel = *ci
	}
	if *seed != 0 {
		opts.Seed = *seed
	}
	if *workers > 0 {
		opts.Workers = *workers
	}
	opts.Standardize = *std
	opts.Centering = design.Centering(*center)
	opts.Probe = design.ProbeSpec{Method: design.ProbeMethod(*probe)}

	_, data, err := excel.NewDataReader().Read(*file)
	if err != nil {
		log.Fatalf("dataset: %v", err)
	}

	var store ports.ResultStore
	if cfg.Database.Enabled {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			log.Fatalf("postgres: %v", err)
		}
		store = postgres.NewResultStore(db)
	}

	engine := app.NewEngine(ols.New(), rng.New(), store)
	ctx := context.Background()

	roles := design.Roles{
		Predictor:  *x,
		Mediators:  splitList(*m),
		Outcome:    *y,
		Moderator:  *w,
		Covariates: splitList(*cov),
	}

	var result interface{}
	switch *analysis {
	case "mediation":
		result, err = app.NewMediationService(engine).Analyze(ctx, app.MediationRequest{
			Data: data, Roles: roles, Options: opts,
		})
	case "serial":
		result, err = app.NewMediationService(engine).Analyze(ctx, app.MediationRequest{
			Data: data, Roles: roles, Topology: design.Serial(), Options: opts,
		})
	case "modmed":
		result, err = app.NewModeratedMediationService(engine).Analyze(ctx, app.ModeratedMediationRequest{
			Data: data, Roles: roles, Stage: design.Stage(*stage), Options: opts,
		})
	case "moderation":
		result, err = app.NewModerationService(engine).Analyze(ctx, app.ModerationRequest{
			Data: data, Roles: roles, Options: opts,
		})
	case "path":
		arrows, perr := parsePaths(*paths)
		if perr != nil {
			log.Fatalf("paths: %v", perr)
		}
		result, err = app.NewPathAnalysisService(engine).Analyze(ctx, app.PathAnalysisRequest{
			Data: data, Paths: arrows, Options: opts,
		})
	default:
		log.Fatalf("unknown analysis %q", *analysis)
	}
	if err != nil {
		log.Fatalf("%s: %v", *analysis, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePaths(s string) ([]design.Arrow, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no paths given")
	}
	var arrows []design.Arrow
	for _, part := range strings.Split(s, ",") {
		bits := strings.Split(part, "->")
		if len(bits) != 2 {
			return nil, fmt.Errorf("bad path %q, want from->to", part)
		}
		arrows = append(arrows, design.Arrow{
			From: strings.TrimSpace(bits[0]),
			To:   strings.TrimSpace(bits[1]),
		})
	}
	return arrows, nil
}
