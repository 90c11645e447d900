package admin

import (
	"fmt"
)

// LockoutError reports that authentication is suspended. Every attempt
// during the window fails with it, right PIN or wrong.
type LockoutError struct {
	RemainingMinutes int
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("admin access locked, try again in %d minute(s)", e.RemainingMinutes)
}

// PinError reports a wrong PIN and how many attempts remain before lockout.
type PinError struct {
	RemainingAttempts int
}

func (e *PinError) Error() string {
	return fmt.Sprintf("invalid PIN, %d attempt(s) remaining", e.RemainingAttempts)
}
