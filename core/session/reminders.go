package session

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
)

const reminderTemplate = "signature_reminder"

type reminderData struct {
	Name            string
	Location        string
	Date            string
	Period          string
	SlotToken       string
	EnrollmentToken string
}

// SendReminders emails a signing link to every attendee of the slot's session who has not signed it.
// The slot must be OPEN. Attendees without an email address are skipped.
// It returns the number of reminders handed to the email service.
func (svc *Service) SendReminders(ctx context.Context, slotID string) (int, error) {
	sl, err := svc.repo.GetSlot(ctx, slotID)
	if err != nil {
		return 0, err
	}
	if sl.Status != SlotOpen {
		return 0, ErrSlotNotOpen
	}
	s, err := svc.repo.GetSession(ctx, sl.SessionID)
	if err != nil {
		return 0, errors.Wrap(err, "getting slot session")
	}
	missing, err := svc.reporter.MissingSignatures(ctx, sl.ID)
	if err != nil {
		return 0, errors.Wrap(err, "listing missing signatures")
	}

	msgs := make([]*core.EmailMessage, 0, len(missing))
	for _, enr := range missing {
		if enr.EmployeeEmail == "" {
			continue
		}
		name := enr.EmployeeName
		if name == "" {
			name = enr.EmployeeID
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: enr.EmployeeName, Address: enr.EmployeeEmail}},
			Subject:      "Please sign your attendance",
			TemplateName: reminderTemplate,
			TemplateData: reminderData{
				Name:            name,
				Location:        s.Location,
				Date:            sl.Date.Format("2006-01-02"),
				Period:          sl.Period,
				SlotToken:       sl.AccessToken,
				EnrollmentToken: enr.Token,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return len(msgs), nil
}
