package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	err := NewUnresolvableRoleError("predictor", "X")
	assert.True(t, IsRoleError(err))
	assert.ErrorIs(t, err, ErrUnresolvableRole)

	err = NewRoleConflictError("X", "predictor", "outcome")
	assert.True(t, IsRoleError(err))
	assert.ErrorIs(t, err, ErrRoleConflict)

	err = NewInsufficientDataError(3, 5)
	assert.True(t, IsDataError(err))
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "5")

	err = NewSingularDesignError("Y ~ const + X")
	assert.True(t, IsSingularDesign(err))
	assert.Contains(t, err.Error(), "Y ~ const + X")

	err = NewDegenerateChainError([]string{"M1", "M2"}, "M1", "M2")
	assert.True(t, IsDegenerateChain(err))
}

func TestWrappedErrorsStayDetectable(t *testing.T) {
	inner := NewSingularDesignError("M ~ const + X")
	wrapped := fmt.Errorf("fit m:M: %w", inner)
	assert.True(t, IsSingularDesign(wrapped))
	assert.True(t, errors.Is(wrapped, ErrSingularDesign))
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsEmpty())
}
