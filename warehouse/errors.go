package warehouse

import "fmt"

// LoadError reports a failure reading the sales history: an unreachable
// source, a scan failure, a malformed field, or a duplicate
// (period, category) pair.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("warehouse: loading %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError reports a failure persisting the prediction table.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("warehouse: writing %s: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
