package pipeline

import "fmt"

// UnresolvedKeyError reports a fact record whose dimension natural key is
// absent from the resolved key map. It indicates a transform/load ordering
// bug or a dimension row that failed to persist; the batch is aborted before
// any fact row is written so the warehouse never holds a dangling reference.
type UnresolvedKeyError struct {
	Table      string // dimension table the key should resolve against
	NaturalKey int64
	OrderID    int64 // fact record that referenced the key
}

func (e *UnresolvedKeyError) Error() string {
	return fmt.Sprintf("order %d: unresolved %s key %d", e.OrderID, e.Table, e.NaturalKey)
}

// StageError wraps the originating error with the pipeline state in which it
// occurred, so callers see both the error kind and the failing step.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
