package session

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/trainings/core"
)

// GlobalPeriod labels the single slot of a GLOBAL session.
const GlobalPeriod = "SESSION"

type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"` // UTC
}

type Session struct {
	ID            string         `json:"id"`
	TrainingID    string         `json:"training_id"`
	TrainerID     string         `json:"trainer_id,omitempty"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
	Location      string         `json:"location"`
	SignatureMode SignatureMode  `json:"signature_mode"`
	Status        Status         `json:"status"`
	AccessToken   string         `json:"access_token"`
	History       []StatusChange `json:"history"` // oldest first, append-only
	CreatedAt     time.Time      `json:"created_at"` // UTC
	UpdatedAt     time.Time      `json:"updated_at"` // UTC
}

// missingScheduleFields lists what must be set before a session leaves DRAFT.
func (s Session) missingScheduleFields() []core.FieldError {
	var flds []core.FieldError
	if s.StartDate.IsZero() {
		flds = append(flds, core.FieldError{Field: "start_date", Error: "this field is required"})
	}
	if s.EndDate.IsZero() {
		flds = append(flds, core.FieldError{Field: "end_date", Error: "this field is required"})
	}
	if s.Location == "" {
		flds = append(flds, core.FieldError{Field: "location", Error: "this field is required"})
	}
	if s.TrainerID == "" {
		flds = append(flds, core.FieldError{Field: "trainer_id", Error: "this field is required"})
	}
	return flds
}

type Slot struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Date        time.Time  `json:"date"`
	Period      string     `json:"period"`
	AccessToken string     `json:"access_token"`
	Status      SlotStatus `json:"status"`
	OpenedAt    time.Time  `json:"opened_at,omitempty"`
	ClosedAt    time.Time  `json:"closed_at,omitempty"`
}

type Enrollment struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	EmployeeID    string    `json:"employee_id"`
	EmployeeName  string    `json:"employee_name"`
	EmployeeEmail string    `json:"employee_email,omitempty"`
	Token         string    `json:"token"`
	Signed        bool      `json:"signed"`
	FeedbackID    string    `json:"feedback_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

// Signature is a ledger entry: the proof that an enrollment signed for a slot.
type Signature struct {
	SlotID          string    `json:"slot_id"`
	EnrollmentID    string    `json:"enrollment_id"`
	EnrollmentToken string    `json:"-"`
	Value           string    `json:"value"`
	SignedAt        time.Time `json:"signed_at"` // UTC
}

// Operation results

type StatusChanged struct {
	SessionID string    `json:"session_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
	Warning   string    `json:"warning,omitempty"`
}

type SlotStatusChanged struct {
	SlotID    string     `json:"slot_id"`
	SessionID string     `json:"session_id"`
	From      SlotStatus `json:"from"`
	To        SlotStatus `json:"to"`
	ChangedAt time.Time  `json:"changed_at"`
}

type SignatureRecorded struct {
	SlotID       string    `json:"slot_id"`
	EnrollmentID string    `json:"enrollment_id"`
	SignedAt     time.Time `json:"signed_at"`
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	TrainingID    string        `json:"training_id" validate:"required,notblank"`
	TrainerID     string        `json:"trainer_id"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	Location      string        `json:"location"`
	SignatureMode SignatureMode `json:"signature_mode" validate:"omitempty,sigmode"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.TrainingID = core.CleanString(ns.TrainingID)
	ns.TrainerID = core.CleanString(ns.TrainerID)
	ns.Location = core.CleanString(ns.Location)
	if ns.SignatureMode == "" {
		ns.SignatureMode = ModeGlobal
	}
	return validate.Struct(ns)
}

// UpdateSession defines what information may be provided to modify a DRAFT Session.
// Empty fields keep their current value.
type UpdateSession struct {
	TrainingID    string        `json:"training_id"`
	TrainerID     string        `json:"trainer_id"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	Location      string        `json:"location"`
	SignatureMode SignatureMode `json:"signature_mode" validate:"omitempty,sigmode"`
}

func (us *UpdateSession) Validate(orig Session, validate *validator.Validate) error {
	if v := core.CleanString(us.TrainingID); v != "" {
		us.TrainingID = v
	} else {
		us.TrainingID = orig.TrainingID
	}
	if v := core.CleanString(us.TrainerID); v != "" {
		us.TrainerID = v
	} else {
		us.TrainerID = orig.TrainerID
	}
	if v := core.CleanString(us.Location); v != "" {
		us.Location = v
	} else {
		us.Location = orig.Location
	}
	if us.StartDate.IsZero() {
		us.StartDate = orig.StartDate
	}
	if us.EndDate.IsZero() {
		us.EndDate = orig.EndDate
	}
	if us.SignatureMode == "" {
		us.SignatureMode = orig.SignatureMode
	}
	return validate.Struct(us)
}

// NewEnrollment registers an employee into a session.
type NewEnrollment struct {
	EmployeeID    string `json:"employee_id" validate:"required,notblank"`
	EmployeeName  string `json:"employee_name"`
	EmployeeEmail string `json:"employee_email" validate:"omitempty,email"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.EmployeeID = core.CleanString(ne.EmployeeID)
	ne.EmployeeName = core.CleanString(ne.EmployeeName)
	ne.EmployeeEmail = core.CleanString(ne.EmployeeEmail, true /* lower */)
	return validate.Struct(ne)
}

// NewSignature is what a participant submits on a signing page.
type NewSignature struct {
	EnrollmentToken string `json:"enrollment_token" validate:"required"`
	Value           string `json:"signature" validate:"required,notblank"`
}

func (ns *NewSignature) Validate(validate *validator.Validate) error {
	ns.EnrollmentToken = core.CleanString(ns.EnrollmentToken)
	ns.Value = core.CleanString(ns.Value)
	return validate.Struct(ns)
}

type LinkFeedback struct {
	FeedbackID string `json:"feedback_id" validate:"required,notblank"`
}

func (lf *LinkFeedback) Validate(validate *validator.Validate) error {
	lf.FeedbackID = core.CleanString(lf.FeedbackID)
	return validate.Struct(lf)
}
