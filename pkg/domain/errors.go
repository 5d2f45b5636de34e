package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrToolNotFound is returned when a dispatched tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// RefusalKind categorizes why an operation was refused.
type RefusalKind string

const (
	// RefusalNotFound signals an unresolved lookup (case, item, recipe, concept).
	RefusalNotFound RefusalKind = "not_found"

	// RefusalPrecondition signals an operation invoked out of workflow order.
	RefusalPrecondition RefusalKind = "precondition"

	// RefusalAmbiguous signals input that could not be classified; the agent
	// asks again rather than guessing.
	RefusalAmbiguous RefusalKind = "ambiguous"
)

// Refusal is a user-facing rejection of an operation. A refusal never mutates
// state; its Reason is spoken back to the user verbatim.
type Refusal struct {
	Kind   RefusalKind
	Reason string
}

func (r *Refusal) Error() string {
	return r.Reason
}

// NotFoundf builds a not-found refusal.
func NotFoundf(format string, args ...any) *Refusal {
	return &Refusal{Kind: RefusalNotFound, Reason: fmt.Sprintf(format, args...)}
}

// Preconditionf builds a precondition refusal naming the missing prerequisite.
func Preconditionf(format string, args ...any) *Refusal {
	return &Refusal{Kind: RefusalPrecondition, Reason: fmt.Sprintf(format, args...)}
}

// Ambiguousf builds an ambiguous-input refusal.
func Ambiguousf(format string, args ...any) *Refusal {
	return &Refusal{Kind: RefusalAmbiguous, Reason: fmt.Sprintf(format, args...)}
}

// AsRefusal unwraps err into a *Refusal if it is one.
func AsRefusal(err error) (*Refusal, bool) {
	var r *Refusal
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
