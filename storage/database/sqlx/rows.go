package sqlxrepos

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/trainings/core/session"
)

const (
	sessionColumns = `id, training_id, trainer_id, start_date, end_date, location, signature_mode, status,
		access_token, created_at, updated_at`
	slotColumns       = `id, session_id, slot_date, period, position, access_token, status, opened_at, closed_at`
	enrollmentColumns = `id, session_id, employee_id, employee_name, employee_email, token, signed, feedback_id,
		created_at`
)

type (
	sessionRow struct {
		ID            string      `db:"id"`
		TrainingID    string      `db:"training_id"`
		TrainerID     null.String `db:"trainer_id"`
		StartDate     null.Time   `db:"start_date"`
		EndDate       null.Time   `db:"end_date"`
		Location      string      `db:"location"`
		SignatureMode string      `db:"signature_mode"`
		Status        string      `db:"status"`
		AccessToken   string      `db:"access_token"`
		CreatedAt     time.Time   `db:"created_at"`
		UpdatedAt     time.Time   `db:"updated_at"`
	}

	historyRow struct {
		Status    string    `db:"status"`
		ChangedAt time.Time `db:"changed_at"`
	}

	slotRow struct {
		ID          string    `db:"id"`
		SessionID   string    `db:"session_id"`
		Date        time.Time `db:"slot_date"`
		Period      string    `db:"period"`
		Position    int       `db:"position"`
		AccessToken string    `db:"access_token"`
		Status      string    `db:"status"`
		OpenedAt    null.Time `db:"opened_at"`
		ClosedAt    null.Time `db:"closed_at"`
	}

	enrollmentRow struct {
		ID            string      `db:"id"`
		SessionID     string      `db:"session_id"`
		EmployeeID    string      `db:"employee_id"`
		EmployeeName  string      `db:"employee_name"`
		EmployeeEmail string      `db:"employee_email"`
		Token         string      `db:"token"`
		Signed        bool        `db:"signed"`
		FeedbackID    null.String `db:"feedback_id"`
		CreatedAt     time.Time   `db:"created_at"`
	}
)

func timeOrNull(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func utcDate(t null.Time) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	y, m, d := t.Time.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sessionToRow(s session.Session) sessionRow {
	return sessionRow{
		ID:            s.ID,
		TrainingID:    s.TrainingID,
		TrainerID:     null.NewString(s.TrainerID, s.TrainerID != ""),
		StartDate:     timeOrNull(s.StartDate),
		EndDate:       timeOrNull(s.EndDate),
		Location:      s.Location,
		SignatureMode: string(s.SignatureMode),
		Status:        string(s.Status),
		AccessToken:   s.AccessToken,
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

func (r sessionRow) toSession(history []historyRow) session.Session {
	s := session.Session{
		ID:            r.ID,
		TrainingID:    r.TrainingID,
		TrainerID:     r.TrainerID.String,
		StartDate:     utcDate(r.StartDate),
		EndDate:       utcDate(r.EndDate),
		Location:      r.Location,
		SignatureMode: session.SignatureMode(r.SignatureMode),
		Status:        session.Status(r.Status),
		AccessToken:   r.AccessToken,
		History:       make([]session.StatusChange, 0, len(history)),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	for _, h := range history {
		s.History = append(s.History, session.StatusChange{Status: session.Status(h.Status), ChangedAt: h.ChangedAt.UTC()})
	}
	return s
}

func (r slotRow) toSlot() session.Slot {
	return session.Slot{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Date:        utcDate(null.TimeFrom(r.Date)),
		Period:      r.Period,
		AccessToken: r.AccessToken,
		Status:      session.SlotStatus(r.Status),
		OpenedAt:    r.OpenedAt.Time.UTC(),
		ClosedAt:    r.ClosedAt.Time.UTC(),
	}
}

func (r enrollmentRow) toEnrollment() session.Enrollment {
	return session.Enrollment{
		ID:            r.ID,
		SessionID:     r.SessionID,
		EmployeeID:    r.EmployeeID,
		EmployeeName:  r.EmployeeName,
		EmployeeEmail: r.EmployeeEmail,
		Token:         r.Token,
		Signed:        r.Signed,
		FeedbackID:    r.FeedbackID.String,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}
