package orchestrator

// #region imports
import "fmt"

// #endregion imports

// #region errors

// ValidationError marks a request that is malformed or not applicable
// to the incident's current state. HTTP handlers map it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// AuthorizationError marks an actor whose role level does not clear
// the gate for the requested action. HTTP handlers map it to 403.
type AuthorizationError struct {
	Action   string
	Role     string
	Required int
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q cannot %s: requires authority level %d", e.Role, e.Action, e.Required)
}

// #endregion errors
