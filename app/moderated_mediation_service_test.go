package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takjakim/method-studio/domain/design"
	"github.com/takjakim/method-studio/internal/testkit"
)

func TestModeratedMediation_FirstStageIndexRecovery(t *testing.T) {
	svc := NewModeratedMediationService(testEngine())

	res, err := svc.Analyze(context.Background(), ModeratedMediationRequest{
		Data:    testkit.ModeratedMediationData(500, 31),
		Roles:   design.Roles{Predictor: "X", Mediators: []string{"M"}, Moderator: "W", Outcome: "Y"},
		Stage:   design.StageFirst,
		Options: fastOptions(),
	})
	assert.NoError(t, err)

	assert.Equal(t, design.StageFirst, res.Stage)
	assert.Len(t, res.Conditional, 3)

	// generating model: a(W) = 0.5 + 0.4W, b = 0.6, so the index is 0.24 and
	// the conditional indirect effect grows with W.
	assert.NotNil(t, res.Index.Effect)
	assert.InDelta(t, 0.24, *res.Index.Effect, 0.1)
	assert.NotNil(t, res.Index.Significant)
	assert.True(t, *res.Index.Significant)

	low, high := res.Conditional[0], res.Conditional[2]
	assert.NotNil(t, low.Effect)
	assert.NotNil(t, high.Effect)
	assert.Less(t, *low.Effect, *high.Effect)
	assert.NotNil(t, high.CILower)

	aModel := res.PathAModel
	assert.Contains(t, aModel.Coefficients, "X_x_W")
	assert.InDelta(t, 0.4, aModel.Coefficients["X_x_W"].Coef, 0.1)
	assert.InDelta(t, 0.6, res.PathBModel.Coefficients["M"].Coef, 0.1)
	assert.NotEmpty(t, res.Interpretation)
}

func TestModeratedMediation_SecondStageUsesMWInteraction(t *testing.T) {
	svc := NewModeratedMediationService(testEngine())

	opts := fastOptions()
	opts.Bootstrap = false
	res, err := svc.Analyze(context.Background(), ModeratedMediationRequest{
		Data:    testkit.ModeratedMediationData(400, 7),
		Roles:   design.Roles{Predictor: "X", Mediators: []string{"M"}, Moderator: "W", Outcome: "Y"},
		Stage:   design.StageSecond,
		Options: opts,
	})
	assert.NoError(t, err)

	assert.NotContains(t, res.PathAModel.Coefficients, "X_x_W")
	assert.Contains(t, res.PathBModel.Coefficients, "M_x_W")
	assert.Nil(t, res.NBoot)
	assert.Nil(t, res.Index.BootSE)
}

func TestModeratedMediation_DualStage(t *testing.T) {
	svc := NewModeratedMediationService(testEngine())

	res, err := svc.Analyze(context.Background(), ModeratedMediationRequest{
		Data:    testkit.ModeratedMediationData(400, 19),
		Roles:   design.Roles{Predictor: "X", Mediators: []string{"M"}, Moderator: "W", Outcome: "Y"},
		Stage:   design.StageDual,
		Options: fastOptions(),
	})
	assert.NoError(t, err)

	assert.Contains(t, res.PathAModel.Coefficients, "X_x_W")
	assert.Contains(t, res.PathBModel.Coefficients, "M_x_W")
	// the generating model has no second-stage moderation, so the dual index
	// a1*b1 should sit near zero.
	assert.NotNil(t, res.Index.Effect)
	assert.InDelta(t, 0, *res.Index.Effect, 0.15)
}

func TestModeratedMediation_Determinism(t *testing.T) {
	svc := NewModeratedMediationService(testEngine())
	req := ModeratedMediationRequest{
		Data:    testkit.ModeratedMediationData(250, 3),
		Roles:   design.Roles{Predictor: "X", Mediators: []string{"M"}, Moderator: "W", Outcome: "Y"},
		Stage:   design.StageFirst,
		Options: fastOptions(),
	}

	a, err := svc.Analyze(context.Background(), req)
	assert.NoError(t, err)
	b, err := svc.Analyze(context.Background(), req)
	assert.NoError(t, err)

	assert.Equal(t, *a.Index.CILower, *b.Index.CILower)
	assert.Equal(t, *a.Index.CIUpper, *b.Index.CIUpper)
}
