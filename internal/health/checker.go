package health

import (
	"context"
)

// Checker defines the interface for a dependency health probe
type Checker interface {
	// Name returns the dependency name reported in health output
	Name() string

	// Check returns nil when the dependency is reachable
	Check(ctx context.Context) error
}

// BaseChecker provides common functionality for checkers
type BaseChecker struct {
	name string
}

// Name returns the dependency name
func (c *BaseChecker) Name() string {
	return c.name
}

// CheckFunc adapts a function to the Checker interface
type CheckFunc struct {
	BaseChecker
	fn func(ctx context.Context) error
}

// NewCheckFunc creates a checker from a function
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{BaseChecker: BaseChecker{name: name}, fn: fn}
}

// Check runs the wrapped function
func (c *CheckFunc) Check(ctx context.Context) error {
	return c.fn(ctx)
}
