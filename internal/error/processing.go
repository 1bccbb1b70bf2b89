package derror

import (
	"errors"
	"fmt"
)

// Stage names the step of the photo pipeline a failure came from.
// Users only ever see a generic message; the stage goes to logs and metrics.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageDecode    Stage = "decode"
	StageRemoval   Stage = "removal"
	StageWatermark Stage = "watermark"
	StagePersist   Stage = "persist"
	StageDeliver   Stage = "deliver"
	StageUnknown   Stage = "unknown"
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Wrap tags err with stage. A nil err stays nil and an already tagged error
// keeps its original stage.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage err was tagged with, or StageUnknown.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageUnknown
}
