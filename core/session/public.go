package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type (
	// SheetEnrollment is an attendee line of a signing sheet.
	SheetEnrollment struct {
		ID            string   `json:"id"`
		EmployeeID    string   `json:"employee_id"`
		EmployeeName  string   `json:"employee_name"`
		Token         string   `json:"token,omitempty"` // session sheet only
		Signed        bool     `json:"signed"`
		SignedSlotIDs []string `json:"signed_slot_ids,omitempty"`
	}

	// SessionSheet is the trainer page of a session, reached through the session token.
	SessionSheet struct {
		Session     Session           `json:"session"`
		Slots       []Slot            `json:"slots"`
		Enrollments []SheetEnrollment `json:"enrollments"`
	}

	// SessionSummary is the part of a session shown on a slot signing page.
	SessionSummary struct {
		ID         string    `json:"id"`
		TrainingID string    `json:"training_id"`
		StartDate  time.Time `json:"start_date"`
		EndDate    time.Time `json:"end_date"`
		Location   string    `json:"location"`
		Status     Status    `json:"status"`
	}

	// SlotSheet is the signing page of a slot, reached through the slot token.
	// Signed reports whether each attendee signed this slot. Enrollment tokens are left out:
	// attendees sign with the token of their own link.
	SlotSheet struct {
		Slot        Slot              `json:"slot"`
		Session     SessionSummary    `json:"session"`
		Enrollments []SheetEnrollment `json:"enrollments"`
	}
)

func sheetEnrollment(enr Enrollment) SheetEnrollment {
	return SheetEnrollment{
		ID:           enr.ID,
		EmployeeID:   enr.EmployeeID,
		EmployeeName: enr.EmployeeName,
	}
}

func (svc *Service) sessionByToken(ctx context.Context, token string) (Session, error) {
	s, err := svc.repo.GetSessionByToken(ctx, token)
	if err != nil {
		if err == ErrSessionNotFound {
			return Session{}, ErrUnknownToken
		}
		return Session{}, errors.Wrap(err, "resolving session token")
	}
	return s, nil
}

// SessionSheet returns the session identified by token, with its slots and attendees.
func (svc *Service) SessionSheet(ctx context.Context, token string) (SessionSheet, error) {
	s, err := svc.sessionByToken(ctx, token)
	if err != nil {
		return SessionSheet{}, err
	}
	slots, err := svc.repo.ListSlots(ctx, s.ID)
	if err != nil {
		return SessionSheet{}, errors.Wrap(err, "listing slots")
	}
	enrs, err := svc.repo.ListEnrollments(ctx, s.ID)
	if err != nil {
		return SessionSheet{}, errors.Wrap(err, "listing enrollments")
	}
	sigs, err := svc.reporter.SessionSignatures(ctx, s.ID)
	if err != nil {
		return SessionSheet{}, errors.Wrap(err, "listing signatures")
	}

	signed := make(map[string][]string, len(enrs)) // {enrollmentID: [slotID]}
	for _, sig := range sigs {
		signed[sig.EnrollmentID] = append(signed[sig.EnrollmentID], sig.SlotID)
	}
	sheet := SessionSheet{Session: s, Slots: slots, Enrollments: make([]SheetEnrollment, 0, len(enrs))}
	for _, enr := range enrs {
		line := sheetEnrollment(enr)
		line.Token = enr.Token
		line.SignedSlotIDs = signed[enr.ID]
		line.Signed = len(line.SignedSlotIDs) > 0
		sheet.Enrollments = append(sheet.Enrollments, line)
	}
	return sheet, nil
}

// SlotSheet returns the slot identified by token, with a summary of its session and who signed it.
func (svc *Service) SlotSheet(ctx context.Context, token string) (SlotSheet, error) {
	sl, err := svc.repo.GetSlotByToken(ctx, token)
	if err != nil {
		if err == ErrSlotNotFound {
			return SlotSheet{}, ErrUnknownToken
		}
		return SlotSheet{}, errors.Wrap(err, "resolving slot token")
	}
	s, err := svc.repo.GetSession(ctx, sl.SessionID)
	if err != nil {
		return SlotSheet{}, errors.Wrap(err, "getting slot session")
	}
	enrs, err := svc.repo.ListEnrollments(ctx, s.ID)
	if err != nil {
		return SlotSheet{}, errors.Wrap(err, "listing enrollments")
	}
	sigs, err := svc.reporter.SlotSignatures(ctx, sl.ID)
	if err != nil {
		return SlotSheet{}, errors.Wrap(err, "listing signatures")
	}

	signed := make(map[string]bool, len(sigs))
	for _, sig := range sigs {
		signed[sig.EnrollmentID] = true
	}
	sheet := SlotSheet{
		Slot: sl,
		Session: SessionSummary{
			ID:         s.ID,
			TrainingID: s.TrainingID,
			StartDate:  s.StartDate,
			EndDate:    s.EndDate,
			Location:   s.Location,
			Status:     s.Status,
		},
		Enrollments: make([]SheetEnrollment, 0, len(enrs)),
	}
	for _, enr := range enrs {
		line := sheetEnrollment(enr)
		line.Signed = signed[enr.ID]
		sheet.Enrollments = append(sheet.Enrollments, line)
	}
	return sheet, nil
}

// OpenSlotByToken opens a slot on behalf of whoever holds the session token.
func (svc *Service) OpenSlotByToken(ctx context.Context, sessionToken, slotID string) (SlotStatusChanged, error) {
	return svc.slotByToken(ctx, sessionToken, slotID, SlotOpen)
}

// CloseSlotByToken closes a slot on behalf of whoever holds the session token.
func (svc *Service) CloseSlotByToken(ctx context.Context, sessionToken, slotID string) (SlotStatusChanged, error) {
	return svc.slotByToken(ctx, sessionToken, slotID, SlotCompleted)
}

// slotByToken transitions a slot of the session identified by token.
// Slots of other sessions are reported as unknown.
func (svc *Service) slotByToken(ctx context.Context, token, slotID string, to SlotStatus) (SlotStatusChanged, error) {
	s, err := svc.sessionByToken(ctx, token)
	if err != nil {
		return SlotStatusChanged{}, err
	}
	res, err := svc.transitionSlot(ctx, slotID, to, func(_ Session, sl Slot) error {
		if sl.SessionID != s.ID {
			return ErrUnknownToken
		}
		return nil
	})
	if err == ErrSlotNotFound {
		return SlotStatusChanged{}, ErrUnknownToken
	}
	return res, err
}
