package session

// Status is the lifecycle state of a training session.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusNotStarted Status = "NOT_STARTED"
	StatusActive     Status = "ACTIVE"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var Statuses = []Status{StatusDraft, StatusNotStarted, StatusActive, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusNotStarted, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the session graph has an edge from s to next.
// COMPLETED and CANCELLED are sinks.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusNotStarted || next == StatusCancelled
	case StatusNotStarted:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusCompleted || next == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return false
	}
	return false
}

// SlotStatus is the state of one signing window.
type SlotStatus string

const (
	SlotNotStarted SlotStatus = "NOT_STARTED"
	SlotOpen       SlotStatus = "OPEN"
	SlotCompleted  SlotStatus = "COMPLETED"
)

var SlotStatuses = []SlotStatus{SlotNotStarted, SlotOpen, SlotCompleted}

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotNotStarted, SlotOpen, SlotCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a slot may move from s to next. COMPLETED is a sink.
func (s SlotStatus) CanTransitionTo(next SlotStatus) bool {
	switch s {
	case SlotNotStarted:
		return next == SlotOpen
	case SlotOpen:
		return next == SlotCompleted
	case SlotCompleted:
		return false
	}
	return false
}

// SignatureMode tells how many signing windows a session gets.
type SignatureMode string

const (
	// ModeGlobal: one signature covers the whole session.
	ModeGlobal SignatureMode = "GLOBAL"
	// ModePerSlot: a signature is required for every day and period of the session.
	ModePerSlot SignatureMode = "PER_SLOT"
)

func (m SignatureMode) Valid() bool {
	return m == ModeGlobal || m == ModePerSlot
}
