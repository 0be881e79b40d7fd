package orchestrator

import (
	"errors"
	"fmt"
)

// ErrTurnFailed is matched by every error Run returns.
var ErrTurnFailed = errors.New("turn failed")

// Stages a turn can fail in.
const (
	StageThreadLock     = "thread_lock"
	StageCheckpointLoad = "checkpoint_load"
	StageRouter         = "router"
	StageDispatch       = "dispatch"
	StageCheckpointSave = "checkpoint_save"
)

// TurnError reports the stage a turn failed in. It unwraps to both
// ErrTurnFailed and the underlying cause.
type TurnError struct {
	Stage string
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed in %s: %v", e.Stage, e.Err)
}

func (e *TurnError) Unwrap() []error {
	return []error{ErrTurnFailed, e.Err}
}
