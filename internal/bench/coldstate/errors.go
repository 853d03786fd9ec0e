package coldstate

import (
	"errors"
	"fmt"
)

var ErrEngineUnready = errors.New("engine not ready")

// EngineUnreadyError is returned when the engine does not answer its
// liveness probe after a restart. Diagnostics holds the engine's last log
// output.
type EngineUnreadyError struct {
	Engine      string
	Diagnostics string
	Err         error
}

func (e *EngineUnreadyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %q not ready: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("engine %q not ready", e.Engine)
}

func (e *EngineUnreadyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEngineUnready}
	}
	return []error{ErrEngineUnready, e.Err}
}
