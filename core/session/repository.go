package session

import "context"

type (
	// Reader gives read access to sessions, slots, enrollments and the ledger.
	// Lookups of unknown ids or tokens return ErrSessionNotFound, ErrSlotNotFound or ErrEnrollmentNotFound.
	Reader interface {
		GetSession(ctx context.Context, id string) (Session, error)
		GetSessionByToken(ctx context.Context, token string) (Session, error)
		GetSlot(ctx context.Context, id string) (Slot, error)
		GetSlotByToken(ctx context.Context, token string) (Slot, error)
		GetEnrollmentByToken(ctx context.Context, token string) (Enrollment, error)
		ListSlots(ctx context.Context, sessionID string) ([]Slot, error)
		ListEnrollments(ctx context.Context, sessionID string) ([]Enrollment, error)
		SignatureExists(ctx context.Context, slotID, enrollmentToken string) (bool, error)
	}

	// Tx is a unit of work. Locks taken through it are held until the unit of work ends.
	Tx interface {
		Reader

		// LockSession reads a session and locks it for update.
		LockSession(ctx context.Context, id string) (Session, error)
		// LockSlot reads a slot and locks it for update.
		LockSlot(ctx context.Context, id string) (Slot, error)
		// ShareLockSlot reads a slot and prevents its status from changing until the unit of work ends.
		ShareLockSlot(ctx context.Context, id string) (Slot, error)

		CreateSession(ctx context.Context, s Session) (Session, error)
		// UpdateSession writes every attribute of s but its status and history.
		UpdateSession(ctx context.Context, s Session) error
		// SetSessionStatus writes the new status and appends it to the session history.
		SetSessionStatus(ctx context.Context, id string, change StatusChange) error

		CreateSlots(ctx context.Context, slots []Slot) ([]Slot, error)
		// SetSlotStatus writes the status and open/close timestamps of sl.
		SetSlotStatus(ctx context.Context, sl Slot) error

		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		SetEnrollmentFeedback(ctx context.Context, enrollmentID, feedbackID string) error

		// InsertSignature adds a ledger entry and flags the enrollment as signed.
		// It returns ErrAlreadySigned if the (slot, enrollment) pair already has an entry, concurrent writers included.
		InsertSignature(ctx context.Context, sig Signature) error
	}

	// Repository persists the session aggregate.
	Repository interface {
		Reader

		// Atomic runs fn in a single unit of work: every write made through tx is discarded when fn fails.
		// The error returned by fn is returned as is.
		Atomic(ctx context.Context, fn func(tx Tx) error) error
	}

	// Reporter answers the read-side ledger queries.
	Reporter interface {
		// MissingSignatures lists the enrollments of the slot's session without a ledger entry for the slot.
		MissingSignatures(ctx context.Context, slotID string) ([]Enrollment, error)
		SlotSignatures(ctx context.Context, slotID string) ([]Signature, error)
		SessionSignatures(ctx context.Context, sessionID string) ([]Signature, error)
	}
)
