package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/session"
)

const uniqueViolation = "23505"

type (
	// queries implements session.Reader on top of a database or a transaction.
	queries struct {
		q sqlx.ExtContext
	}

	repository struct {
		queries
		db *sqlx.DB
	}

	tx struct {
		queries
	}
)

var (
	_ session.Repository = (*repository)(nil) // interface compliance check
	_ session.Tx         = (*tx)(nil)
)

func NewRepository(db *sql.DB) *repository {
	xdb := sqlx.NewDb(db, "postgres")
	return &repository{queries: queries{q: xdb}, db: xdb}
}

// Atomic runs fn in a READ COMMITTED transaction. Rows are locked explicitly by the Lock* methods.
func (repo *repository) Atomic(ctx context.Context, fn func(tx session.Tx) error) error {
	sqlTx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&tx{queries{q: sqlTx}}); err != nil {
		// a failed rollback leaves the connection state unknown
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return core.NewShutdownError(fmt.Sprintf("rolling back transaction: %v (cause: %v)", rbErr, err))
		}
		return err
	}
	return errors.Wrap(sqlTx.Commit(), "committing transaction")
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// Sessions

func (qs queries) getSession(ctx context.Context, where, suffix string, arg interface{}) (session.Session, error) {
	var row sessionRow
	query := "SELECT " + sessionColumns + " FROM training_session WHERE " + where + " = $1" + suffix
	if err := sqlx.GetContext(ctx, qs.q, &row, query, arg); err != nil {
		return session.Session{}, trapNoRowsErr(err, session.ErrSessionNotFound, "getting session")
	}

	var history []historyRow
	err := sqlx.SelectContext(ctx, qs.q, &history,
		"SELECT status, changed_at FROM session_status_history WHERE session_id = $1 ORDER BY id", row.ID)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "getting session history")
	}
	return row.toSession(history), nil
}

func (qs queries) GetSession(ctx context.Context, id string) (session.Session, error) {
	if !validID(id) {
		return session.Session{}, session.ErrSessionNotFound
	}
	return qs.getSession(ctx, "id", "", id)
}

func (qs queries) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	return qs.getSession(ctx, "access_token", "", token)
}

func (t *tx) LockSession(ctx context.Context, id string) (session.Session, error) {
	if !validID(id) {
		return session.Session{}, session.ErrSessionNotFound
	}
	return t.getSession(ctx, "id", " FOR UPDATE", id)
}

func (t *tx) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	s.ID = uuid.New().String()
	row := sessionToRow(s)
	_, err := sqlx.NamedExecContext(ctx, t.q, `INSERT INTO training_session (`+sessionColumns+`)
		VALUES (:id, :training_id, :trainer_id, :start_date, :end_date, :location, :signature_mode, :status,
			:access_token, :created_at, :updated_at)`, row)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	for _, change := range s.History {
		if err = t.insertHistory(ctx, s.ID, change); err != nil {
			return session.Session{}, err
		}
	}
	return s, nil
}

func (t *tx) insertHistory(ctx context.Context, sessionID string, change session.StatusChange) error {
	_, err := t.q.ExecContext(ctx,
		"INSERT INTO session_status_history (session_id, status, changed_at) VALUES ($1, $2, $3)",
		sessionID, string(change.Status), change.ChangedAt.UTC())
	return errors.Wrap(err, "inserting status history")
}

func (t *tx) UpdateSession(ctx context.Context, s session.Session) error {
	_, err := sqlx.NamedExecContext(ctx, t.q, `UPDATE training_session
		SET training_id = :training_id, trainer_id = :trainer_id, start_date = :start_date, end_date = :end_date,
			location = :location, signature_mode = :signature_mode, updated_at = :updated_at
		WHERE id = :id`, sessionToRow(s))
	return errors.Wrap(err, "updating session")
}

func (t *tx) SetSessionStatus(ctx context.Context, id string, change session.StatusChange) error {
	_, err := t.q.ExecContext(ctx,
		"UPDATE training_session SET status = $1, updated_at = $2 WHERE id = $3",
		string(change.Status), change.ChangedAt.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating session status")
	}
	return t.insertHistory(ctx, id, change)
}

// Slots

func (qs queries) getSlot(ctx context.Context, where, suffix string, arg interface{}) (session.Slot, error) {
	var row slotRow
	query := "SELECT " + slotColumns + " FROM signature_slot WHERE " + where + " = $1" + suffix
	if err := sqlx.GetContext(ctx, qs.q, &row, query, arg); err != nil {
		return session.Slot{}, trapNoRowsErr(err, session.ErrSlotNotFound, "getting slot")
	}
	return row.toSlot(), nil
}

func (qs queries) GetSlot(ctx context.Context, id string) (session.Slot, error) {
	if !validID(id) {
		return session.Slot{}, session.ErrSlotNotFound
	}
	return qs.getSlot(ctx, "id", "", id)
}

func (qs queries) GetSlotByToken(ctx context.Context, token string) (session.Slot, error) {
	return qs.getSlot(ctx, "access_token", "", token)
}

func (t *tx) LockSlot(ctx context.Context, id string) (session.Slot, error) {
	if !validID(id) {
		return session.Slot{}, session.ErrSlotNotFound
	}
	return t.getSlot(ctx, "id", " FOR UPDATE", id)
}

func (t *tx) ShareLockSlot(ctx context.Context, id string) (session.Slot, error) {
	if !validID(id) {
		return session.Slot{}, session.ErrSlotNotFound
	}
	return t.getSlot(ctx, "id", " FOR SHARE", id)
}

func (qs queries) ListSlots(ctx context.Context, sessionID string) ([]session.Slot, error) {
	if !validID(sessionID) {
		return []session.Slot{}, nil
	}
	var rows []slotRow
	err := sqlx.SelectContext(ctx, qs.q, &rows,
		"SELECT "+slotColumns+" FROM signature_slot WHERE session_id = $1 ORDER BY slot_date, position", sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing slots")
	}
	slots := make([]session.Slot, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, r.toSlot())
	}
	return slots, nil
}

func (t *tx) CreateSlots(ctx context.Context, slots []session.Slot) ([]session.Slot, error) {
	created := make([]session.Slot, 0, len(slots))
	for i, sl := range slots {
		sl.ID = uuid.New().String()
		_, err := t.q.ExecContext(ctx, `INSERT INTO signature_slot
			(id, session_id, slot_date, period, position, access_token, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sl.ID, sl.SessionID, sl.Date.UTC(), sl.Period, i, sl.AccessToken, string(sl.Status))
		if err != nil {
			return nil, errors.Wrap(err, "inserting slot")
		}
		created = append(created, sl)
	}
	return created, nil
}

func (t *tx) SetSlotStatus(ctx context.Context, sl session.Slot) error {
	_, err := t.q.ExecContext(ctx,
		"UPDATE signature_slot SET status = $1, opened_at = $2, closed_at = $3 WHERE id = $4",
		string(sl.Status), timeOrNull(sl.OpenedAt), timeOrNull(sl.ClosedAt), sl.ID)
	return errors.Wrap(err, "updating slot status")
}

// Enrollments

func (qs queries) GetEnrollmentByToken(ctx context.Context, token string) (session.Enrollment, error) {
	var row enrollmentRow
	err := sqlx.GetContext(ctx, qs.q, &row,
		"SELECT "+enrollmentColumns+" FROM session_enrollment WHERE token = $1", token)
	if err != nil {
		return session.Enrollment{}, trapNoRowsErr(err, session.ErrEnrollmentNotFound, "getting enrollment")
	}
	return row.toEnrollment(), nil
}

func (qs queries) ListEnrollments(ctx context.Context, sessionID string) ([]session.Enrollment, error) {
	if !validID(sessionID) {
		return []session.Enrollment{}, nil
	}
	var rows []enrollmentRow
	err := sqlx.SelectContext(ctx, qs.q, &rows,
		"SELECT "+enrollmentColumns+" FROM session_enrollment WHERE session_id = $1 ORDER BY created_at, id",
		sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	enrs := make([]session.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toEnrollment())
	}
	return enrs, nil
}

func (t *tx) CreateEnrollment(ctx context.Context, e session.Enrollment) (session.Enrollment, error) {
	e.ID = uuid.New().String()
	_, err := t.q.ExecContext(ctx, `INSERT INTO session_enrollment
		(id, session_id, employee_id, employee_name, employee_email, token, signed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)`,
		e.ID, e.SessionID, e.EmployeeID, e.EmployeeName, e.EmployeeEmail, e.Token, e.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return session.Enrollment{}, session.ErrAlreadyEnrolled
		}
		return session.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (t *tx) SetEnrollmentFeedback(ctx context.Context, enrollmentID, feedbackID string) error {
	_, err := t.q.ExecContext(ctx,
		"UPDATE session_enrollment SET feedback_id = $1 WHERE id = $2", feedbackID, enrollmentID)
	return errors.Wrap(err, "linking feedback")
}

// Ledger

func (qs queries) SignatureExists(ctx context.Context, slotID, enrollmentToken string) (bool, error) {
	if !validID(slotID) {
		return false, nil
	}
	var found bool
	err := sqlx.GetContext(ctx, qs.q, &found,
		"SELECT EXISTS (SELECT 1 FROM signature WHERE slot_id = $1 AND enrollment_token = $2)",
		slotID, enrollmentToken)
	if err != nil {
		return false, errors.Wrap(err, "checking signature")
	}
	return found, nil
}

// InsertSignature relies on the (slot_id, enrollment_token) primary key:
// of two concurrent inserts, the second one affects no row.
func (t *tx) InsertSignature(ctx context.Context, sig session.Signature) error {
	res, err := t.q.ExecContext(ctx, `INSERT INTO signature (slot_id, enrollment_token, enrollment_id, value, signed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slot_id, enrollment_token) DO NOTHING`,
		sig.SlotID, sig.EnrollmentToken, sig.EnrollmentID, sig.Value, sig.SignedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return session.ErrAlreadySigned
		}
		return errors.Wrap(err, "inserting signature")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "inserting signature")
	}
	if n == 0 {
		return session.ErrAlreadySigned
	}

	_, err = t.q.ExecContext(ctx, "UPDATE session_enrollment SET signed = true WHERE id = $1", sig.EnrollmentID)
	return errors.Wrap(err, "flagging enrollment as signed")
}
