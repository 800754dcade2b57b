package ecoscan

import (
	"errors"
	"fmt"
)

var (
	ErrFetch          = errors.New("fetch failed")
	ErrDecode         = errors.New("not a valid image")
	ErrClassification = errors.New("classification failed")
	ErrQualityCheck   = errors.New("quality check failed")
	ErrPipeline       = errors.New("pipeline failure")
	ErrNoImage        = errors.New("no image supplied")
	ErrBatchTooLarge  = errors.New("batch too large")
)

// Pipeline stage names used in errors, logs and metrics.
const (
	StageFetch     = "fetch"
	StageDecode    = "decode"
	StageQuality   = "quality"
	StageClassify  = "classify"
	StagePatterns  = "patterns"
	StageMetadata  = "metadata"
	StageSuspicion = "suspicion"
	StageDecision  = "decision"
)

// StageError records which pipeline stage failed. Kind is one of the
// sentinel errors above so callers can use errors.Is.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the sentinel kind and the underlying cause.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stageError(stage string, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// recoverStage converts a panic inside a degradable stage into an error.
func recoverStage(stage string, kind error, errp *error) {
	if r := recover(); r != nil {
		*errp = stageError(stage, kind, fmt.Errorf("panic: %v", r))
	}
}
