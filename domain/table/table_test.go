package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takjakim/method-studio/domain/core"
)

func TestFromColumns_Validation(t *testing.T) {
	_, err := FromColumns([]string{"X", "Y"}, map[string][]float64{"X": {1, 2}})
	assert.True(t, core.IsRoleError(err), "missing column must be a role error")

	_, err = FromColumns([]string{"X", "Y"}, map[string][]float64{
		"X": {1, 2, 3},
		"Y": {1, 2},
	})
	assert.Error(t, err, "ragged columns must be rejected")

	nan := math.NaN()
	_, err = FromColumns([]string{"X"}, map[string][]float64{"X": {nan, nan}})
	assert.ErrorIs(t, err, core.ErrEmptyColumn)
}

func TestDropIncomplete(t *testing.T) {
	nan := math.NaN()
	tbl, err := FromColumns([]string{"X", "Y"}, map[string][]float64{
		"X": {1, nan, 3, 4},
		"Y": {10, 20, math.Inf(1), 40},
	})
	assert.NoError(t, err)

	complete := tbl.DropIncomplete()
	assert.Equal(t, 2, complete.N())
	assert.Equal(t, []float64{1, 4}, complete.MustColumn("X"))
	assert.Equal(t, []float64{10, 40}, complete.MustColumn("Y"))
	assert.Equal(t, 4, tbl.N(), "original table untouched")
}

func TestResample_DoesNotMutateOriginal(t *testing.T) {
	tbl, _ := FromColumns([]string{"X"}, map[string][]float64{"X": {1, 2, 3}})
	r := tbl.Resample([]int{2, 2, 0})
	assert.Equal(t, []float64{3, 3, 1}, r.MustColumn("X"))

	r.MustColumn("X")[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, tbl.MustColumn("X"))
}

func TestCenter_Idempotent(t *testing.T) {
	tbl, _ := FromColumns([]string{"X", "W"}, map[string][]float64{
		"X": {1, 2, 3, 4},
		"W": {2, 4, 6, 8},
	})

	once, err := tbl.Center("X", "W")
	assert.NoError(t, err)
	mean, _ := once.Mean("X")
	assert.InDelta(t, 0, mean, 1e-12)

	twice, err := once.Center("X", "W")
	assert.NoError(t, err)
	for _, name := range []string{"X", "W"} {
		assert.InDeltaSlice(t, once.MustColumn(name), twice.MustColumn(name), 1e-12)
	}
}

func TestStandardize(t *testing.T) {
	tbl, _ := FromColumns([]string{"X", "K"}, map[string][]float64{
		"X": {1, 2, 3, 4, 5},
		"K": {7, 7, 7, 7, 7}, // zero variance
	})

	std, err := tbl.Standardize()
	assert.NoError(t, err)

	mean, _ := std.Mean("X")
	sd, _ := std.SD("X")
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, sd, 1e-12)

	assert.Equal(t, []float64{7, 7, 7, 7, 7}, std.MustColumn("K"), "zero-variance column passes through")
}

func TestWithProduct(t *testing.T) {
	tbl, _ := FromColumns([]string{"X", "W"}, map[string][]float64{
		"X": {1, 2, 3},
		"W": {4, 5, 6},
	})

	out, err := tbl.WithProduct("X_x_W", "X", "W")
	assert.NoError(t, err)
	assert.Equal(t, []float64{4, 10, 18}, out.MustColumn("X_x_W"))
	assert.False(t, tbl.Has("X_x_W"))

	// replacing an existing derived column
	again, err := out.WithProduct("X_x_W", "W", "W")
	assert.NoError(t, err)
	assert.Equal(t, []float64{16, 25, 36}, again.MustColumn("X_x_W"))

	_, err = tbl.WithProduct("bad", "X", "missing")
	assert.True(t, core.IsRoleError(err))
}

func TestPercentile(t *testing.T) {
	tbl, _ := FromColumns([]string{"X"}, map[string][]float64{
		"X": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})
	p50, err := tbl.Percentile("X", 50)
	assert.NoError(t, err)
	assert.InDelta(t, 5.5, p50, 0.6)
}
