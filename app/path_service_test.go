package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/internal/testkit"
)

func mediationArrows() []design.Arrow {
	return []design.Arrow{
		{From: "X", To: "M"},
		{From: "M", To: "Y"},
		{From: "X", To: "Y"},
	}
}

func TestPathAnalysis_EdgesAndIndirect(t *testing.T) {
	svc := NewPathAnalysisService(testEngine())

	res, err := svc.Analyze(context.Background(), PathAnalysisRequest{
		Data:    testkit.MediationData(300, 5),
		Paths:   mediationArrows(),
		Options: fastOptions(),
	})
	assert.NoError(t, err)

	assert.ElementsMatch(t, []string{"M", "Y"}, res.Endogenous)
	assert.Equal(t, []string{"X"}, res.Exogenous)
	assert.Len(t, res.PathCoefficients, 3)

	coefOf := func(from, to string) *PathCoefficient {
		for i := range res.PathCoefficients {
			pc := &res.PathCoefficients[i]
			if pc.From == from && pc.To == to {
				return pc
			}
		}
		return nil
	}
	xm := coefOf("X", "M")
	my := coefOf("M", "Y")
	assert.NotNil(t, xm)
	assert.NotNil(t, my)
	assert.InDelta(t, 2, xm.Estimate, 0.2)
	assert.InDelta(t, 3, my.Estimate, 0.2)
	assert.Less(t, xm.P, 0.001)
	assert.Less(t, xm.CILower, xm.Estimate)
	assert.Greater(t, xm.CIUpper, xm.Estimate)

	assert.Len(t, res.Indirect, 1)
	ind := res.Indirect[0]
	assert.Equal(t, "X", ind.From)
	assert.Equal(t, "M", ind.Through)
	assert.Equal(t, "Y", ind.To)
	assert.NotNil(t, ind.Effect)
	assert.InDelta(t, 6, *ind.Effect, 0.7)
	assert.NotNil(t, ind.Significant)
	assert.True(t, *ind.Significant)

	assert.Greater(t, res.RSquared["M"], 0.5)
	assert.Greater(t, res.ResidualVariances["Y"], 0.0)
	assert.Len(t, res.Diagram.Edges, 3)
	assert.ElementsMatch(t, []string{"X", "M", "Y"}, res.Diagram.Nodes)
}

func TestPathAnalysis_TotalEffectsAccumulate(t *testing.T) {
	svc := NewPathAnalysisService(testEngine())

	opts := fastOptions()
	opts.Bootstrap = false
	res, err := svc.Analyze(context.Background(), PathAnalysisRequest{
		Data:    testkit.MediationData(300, 5),
		Paths:   mediationArrows(),
		Options: opts,
	})
	assert.NoError(t, err)

	var xy *TotalEffect
	for i := range res.TotalEffects {
		te := &res.TotalEffects[i]
		if te.From == "X" && te.To == "Y" {
			xy = te
		}
	}
	assert.NotNil(t, xy)
	assert.InDelta(t, xy.Direct+xy.Indirect, xy.Total, 1e-12)
	assert.InDelta(t, 6, xy.Indirect, 0.7)
}

func TestPathAnalysis_StandardizedEstimates(t *testing.T) {
	svc := NewPathAnalysisService(testEngine())

	opts := fastOptions()
	opts.Bootstrap = false
	opts.Standardize = true
	res, err := svc.Analyze(context.Background(), PathAnalysisRequest{
		Data:    testkit.MediationData(300, 5),
		Paths:   mediationArrows(),
		Options: opts,
	})
	assert.NoError(t, err)
	assert.True(t, res.Standardized)

	for _, pc := range res.PathCoefficients {
		assert.NotNil(t, pc.StdEstimate)
		assert.LessOrEqual(t, *pc.StdEstimate, 1.5, "standardized coefficients stay near the correlation scale")
	}
}

func TestPathAnalysis_RejectsEmptyModel(t *testing.T) {
	svc := NewPathAnalysisService(testEngine())
	_, err := svc.Analyze(context.Background(), PathAnalysisRequest{
		Data:  testkit.MediationData(100, 1),
		Paths: nil,
	})
	assert.Error(t, err)
}
