package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Role resolution errors
	ErrUnresolvableRole = errors.New("unresolvable variable role")
	ErrRoleConflict     = fmt.Errorf("%w: role conflict", ErrUnresolvableRole)

	// Data errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrEmptyColumn      = errors.New("column has no non-missing values")

	// Fitting errors
	ErrSingularDesign = errors.New("singular design matrix")

	// Effect evaluation errors
	ErrDegenerateChain = errors.New("indirect chain cannot be evaluated")
	ErrMissingEdge     = errors.New("no modeled edge between variables")
)

// Error constructors with context

func NewUnresolvableRoleError(role, variable string) error {
	return fmt.Errorf("%w: %s %q not found in data", ErrUnresolvableRole, role, variable)
}

func NewRoleConflictError(variable string, roles ...string) error {
	return fmt.Errorf("%w: %q assigned to multiple roles %v", ErrRoleConflict, variable, roles)
}

func NewInsufficientDataError(n, required int) error {
	return fmt.Errorf("%w: %d complete cases, need at least %d", ErrInsufficientData, n, required)
}

func NewSingularDesignError(equation string) error {
	return fmt.Errorf("%w in equation %s", ErrSingularDesign, equation)
}

func NewDegenerateChainError(chain []string, from, to string) error {
	return fmt.Errorf("%w: chain %v is missing edge %s -> %s", ErrDegenerateChain, chain, from, to)
}

// Error checking helpers

func IsRoleError(err error) bool {
	return errors.Is(err, ErrUnresolvableRole)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrEmptyColumn)
}

func IsSingularDesign(err error) bool {
	return errors.Is(err, ErrSingularDesign)
}

func IsDegenerateChain(err error) bool {
	return errors.Is(err, ErrDegenerateChain) || errors.Is(err, ErrMissingEdge)
}
