package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/session"
)

const (
	missingSignaturesQuery = `
		SELECT e.id, e.session_id, e.employee_id, e.employee_name, e.employee_email, e.token, e.signed,
			e.feedback_id, e.created_at
		FROM session_enrollment e
		JOIN signature_slot sl ON sl.session_id = e.session_id
		WHERE sl.id = $1
			AND NOT EXISTS (SELECT 1 FROM signature sg WHERE sg.slot_id = sl.id AND sg.enrollment_token = e.token)
		ORDER BY e.created_at, e.id`

	slotSignaturesQuery = `
		SELECT slot_id, enrollment_id, enrollment_token, value, signed_at
		FROM signature
		WHERE slot_id = $1
		ORDER BY signed_at`

	sessionSignaturesQuery = `
		SELECT sg.slot_id, sg.enrollment_id, sg.enrollment_token, sg.value, sg.signed_at
		FROM signature sg
		JOIN signature_slot sl ON sl.id = sg.slot_id
		WHERE sl.session_id = $1
		ORDER BY sl.slot_date, sl.position, sg.signed_at`
)

type (
	enrollmentRow struct {
		ID            string      `boil:"id"`
		SessionID     string      `boil:"session_id"`
		EmployeeID    string      `boil:"employee_id"`
		EmployeeName  string      `boil:"employee_name"`
		EmployeeEmail string      `boil:"employee_email"`
		Token         string      `boil:"token"`
		Signed        bool        `boil:"signed"`
		FeedbackID    null.String `boil:"feedback_id"`
		CreatedAt     time.Time   `boil:"created_at"`
	}

	signatureRow struct {
		SlotID          string    `boil:"slot_id"`
		EnrollmentID    string    `boil:"enrollment_id"`
		EnrollmentToken string    `boil:"enrollment_token"`
		Value           string    `boil:"value"`
		SignedAt        time.Time `boil:"signed_at"`
	}

	reporter struct {
		exec core.DBExecutor
	}
)

var _ session.Reporter = (*reporter)(nil) // interface compliance check

// NewReporter returns the read side of the signature ledger.
func NewReporter(exec core.DBExecutor) *reporter {
	return &reporter{exec: exec}
}

func (r reporter) MissingSignatures(ctx context.Context, slotID string) ([]session.Enrollment, error) {
	if _, err := uuid.Parse(slotID); err != nil {
		return []session.Enrollment{}, nil
	}
	var rows []enrollmentRow
	if err := queries.Raw(missingSignaturesQuery, slotID).Bind(ctx, r.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying missing signatures")
	}
	enrs := make([]session.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, session.Enrollment{
			ID:            row.ID,
			SessionID:     row.SessionID,
			EmployeeID:    row.EmployeeID,
			EmployeeName:  row.EmployeeName,
			EmployeeEmail: row.EmployeeEmail,
			Token:         row.Token,
			Signed:        row.Signed,
			FeedbackID:    row.FeedbackID.String,
			CreatedAt:     row.CreatedAt.UTC(),
		})
	}
	return enrs, nil
}

func (r reporter) signatures(ctx context.Context, query, id string) ([]session.Signature, error) {
	if _, err := uuid.Parse(id); err != nil {
		return []session.Signature{}, nil
	}
	var rows []signatureRow
	if err := queries.Raw(query, id).Bind(ctx, r.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying signatures")
	}
	sigs := make([]session.Signature, 0, len(rows))
	for _, row := range rows {
		sigs = append(sigs, session.Signature{
			SlotID:          row.SlotID,
			EnrollmentID:    row.EnrollmentID,
			EnrollmentToken: row.EnrollmentToken,
			Value:           row.Value,
			SignedAt:        row.SignedAt.UTC(),
		})
	}
	return sigs, nil
}

func (r reporter) SlotSignatures(ctx context.Context, slotID string) ([]session.Signature, error) {
	return r.signatures(ctx, slotSignaturesQuery, slotID)
}

func (r reporter) SessionSignatures(ctx context.Context, sessionID string) ([]session.Signature, error) {
	return r.signatures(ctx, sessionSignaturesQuery, sessionID)
}
