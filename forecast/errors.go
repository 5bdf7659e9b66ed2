package forecast

import "fmt"

// InsufficientDataError reports a category whose history is not longer than
// the forecast horizon, leaving no training window.
type InsufficientDataError struct {
	Category string
	Length   int
	Horizon  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("forecast: category %q has %d observations, need more than horizon %d",
		e.Category, e.Length, e.Horizon)
}

// ModelFitError reports a category for which the bounded order search found
// no fittable model. It is local to the category that produced it.
type ModelFitError struct {
	Category string
	Err      error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("forecast: model fit failed for category %q: %v", e.Category, e.Err)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// AssemblyError reports an internal inconsistency between per-category
// outputs. It should be unreachable when the forecaster honours its
// contract; the assembler checks defensively.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string {
	return "forecast: assembly failed: " + e.Reason
}
