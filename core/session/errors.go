package session

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSlotNotFound       = errors.New("signature slot not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrSessionLocked      = errors.New("session can only be edited while in draft")
	ErrAlreadyEnrolled    = errors.New("employee is already enrolled in this session")
	ErrSessionClosed      = errors.New("session no longer accepts enrollments")

	// signing outcomes, rendered differently by the signing pages
	ErrSlotNotOpen   = errors.New("signing is currently closed")
	ErrUnknownToken  = errors.New("this link is invalid or expired")
	ErrAlreadySigned = errors.New("presence already confirmed")
)

// InvalidTransitionError is returned when a state change is not permitted from the current state.
// Nothing is written when it is returned.
type InvalidTransitionError struct {
	Entity string // "session" | "slot"
	ID     string
	From   string
	To     string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid %s transition from %s to %s", e.Entity, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func IsInvalidTransition(err error) bool {
	_, ok := errors.Cause(err).(*InvalidTransitionError)
	return ok
}

func sessionTransitionErr(s Session, to Status, reason string) error {
	return &InvalidTransitionError{Entity: "session", ID: s.ID, From: string(s.Status), To: string(to), Reason: reason}
}

func slotTransitionErr(sl Slot, to SlotStatus, reason string) error {
	return &InvalidTransitionError{Entity: "slot", ID: sl.ID, From: string(sl.Status), To: string(to), Reason: reason}
}
