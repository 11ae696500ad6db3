// Package pipeline holds the cross-stage plumbing: structured stage errors
// and the per-run context that replaces any process-global registry.
package pipeline

import "fmt"

// StageError is the single structured error a failed stage propagates. It
// names the stage, the shard being processed when the failure occurred (empty
// for whole-stage failures), and the cause.
type StageError struct {
	Stage string
	Shard string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Shard != "" {
		return fmt.Sprintf("stage %s: shard %s: %v", e.Stage, e.Shard, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Fail wraps a cause as a whole-stage failure.
func Fail(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// FailShard wraps a cause as a shard-scoped failure.
func FailShard(stage, shard string, err error) *StageError {
	return &StageError{Stage: stage, Shard: shard, Err: err}
}
