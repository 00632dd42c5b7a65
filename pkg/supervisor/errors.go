package supervisor

import (
	"errors"
	"fmt"
)

// ErrAlreadyActive is returned by Start when the supervisor is already
// starting or running. The caller's state is untouched.
var ErrAlreadyActive = errors.New("server is already active")

// BindError reports that the engine could not bind its listen address.
// It distinguishes startup failures that warrant a dedicated exit code
// from everything else.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// FatalError wraps an asynchronous engine failure observed while the
// server was running.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("engine failed: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
