package sqlxrepos

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/session"
)

const (
	sessionID = "5b1f3a64-1c1e-4a52-9f0e-3c8f2d1e7a10"
	slotID    = "9d2c7e41-6b3a-4f1d-8e5c-2a7b9c0d1e2f"
	enrID     = "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
)

var ctx = context.Background()

func newMock(t *testing.T) (*repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func checkExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepository_GetSession(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM training_session WHERE id = $1")).
		WithArgs(sessionID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "training_id", "trainer_id", "start_date", "end_date", "location", "signature_mode", "status",
			"access_token", "created_at", "updated_at",
		}).AddRow(
			sessionID, "training-1", nil, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), nil, "Room 101", "GLOBAL",
			"NOT_STARTED", "tok", created, created,
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM session_status_history WHERE session_id = $1 ORDER BY id")).
		WithArgs(sessionID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "changed_at"}).
			AddRow("DRAFT", created).
			AddRow("NOT_STARTED", created.Add(time.Hour)))

	s, err := repo.GetSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSession() failed: %v", err)
	}
	if s.Status != session.StatusNotStarted {
		t.Errorf("Status = %s; want %s", s.Status, session.StatusNotStarted)
	}
	if s.TrainerID != "" {
		t.Errorf("TrainerID = %q; want empty", s.TrainerID)
	}
	if !s.EndDate.IsZero() {
		t.Errorf("EndDate = %v; want zero", s.EndDate)
	}
	if len(s.History) != 2 || s.History[1].Status != session.StatusNotStarted {
		t.Errorf("History = %v", s.History)
	}
	checkExpectations(t, mock)
}

func TestRepository_notFound(t *testing.T) {
	repo, mock := newMock(t)

	// malformed ids never reach the database
	if _, err := repo.GetSession(ctx, "nope"); err != session.ErrSessionNotFound {
		t.Errorf("GetSession(nope) = %v; want ErrSessionNotFound", err)
	}
	if _, err := repo.GetSlot(ctx, "nope"); err != session.ErrSlotNotFound {
		t.Errorf("GetSlot(nope) = %v; want ErrSlotNotFound", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM signature_slot WHERE access_token = $1")).
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetSlotByToken(ctx, "unknown"); err != session.ErrSlotNotFound {
		t.Errorf("GetSlotByToken() = %v; want ErrSlotNotFound", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM session_enrollment WHERE token = $1")).
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetEnrollmentByToken(ctx, "unknown"); err != session.ErrEnrollmentNotFound {
		t.Errorf("GetEnrollmentByToken() = %v; want ErrEnrollmentNotFound", err)
	}
	checkExpectations(t, mock)
}

func TestRepository_ShareLockSlot(t *testing.T) {
	repo, mock := newMock(t)
	opened := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM signature_slot WHERE id = $1 FOR SHARE")).
		WithArgs(slotID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "slot_date", "period", "position", "access_token", "status", "opened_at", "closed_at",
		}).AddRow(slotID, sessionID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), "MORNING", 0, "tok", "OPEN", opened, nil))
	mock.ExpectCommit()

	var sl session.Slot
	err := repo.Atomic(ctx, func(tx session.Tx) error {
		var err error
		sl, err = tx.ShareLockSlot(ctx, slotID)
		return err
	})
	if err != nil {
		t.Fatalf("Atomic() failed: %v", err)
	}
	if sl.Status != session.SlotOpen || !sl.OpenedAt.Equal(opened) || !sl.ClosedAt.IsZero() {
		t.Errorf("slot = %+v", sl)
	}
	checkExpectations(t, mock)
}

func TestRepository_InsertSignature(t *testing.T) {
	sig := session.Signature{
		SlotID:          slotID,
		EnrollmentID:    enrID,
		EnrollmentToken: "enr-tok",
		Value:           "J. Dupont",
		SignedAt:        time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC),
	}
	insert := regexp.QuoteMeta("INSERT INTO signature")

	tests := []struct {
		name    string
		prepare func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "recorded",
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).
					WithArgs(sig.SlotID, sig.EnrollmentToken, sig.EnrollmentID, sig.Value, sig.SignedAt).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta("UPDATE session_enrollment SET signed = true WHERE id = $1")).
					WithArgs(enrID).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "conflict",
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: session.ErrAlreadySigned,
		},
		{
			name: "unique violation",
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).WillReturnError(&pq.Error{Code: uniqueViolation})
				mock.ExpectRollback()
			},
			wantErr: session.ErrAlreadySigned,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			mock.ExpectBegin()
			tt.prepare(mock)

			err := repo.Atomic(ctx, func(tx session.Tx) error {
				return tx.InsertSignature(ctx, sig)
			})
			if err != tt.wantErr {
				t.Errorf("InsertSignature() = %v; want %v", err, tt.wantErr)
			}
			checkExpectations(t, mock)
		})
	}
}

func TestRepository_CreateEnrollment_duplicate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_enrollment")).
		WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	err := repo.Atomic(ctx, func(tx session.Tx) error {
		_, err := tx.CreateEnrollment(ctx, session.Enrollment{SessionID: sessionID, EmployeeID: "emp-1", Token: "t"})
		return err
	})
	if err != session.ErrAlreadyEnrolled {
		t.Errorf("CreateEnrollment() = %v; want ErrAlreadyEnrolled", err)
	}
	checkExpectations(t, mock)
}

func TestRepository_Atomic(t *testing.T) {
	t.Run("rollback", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE training_session SET status = $1")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_status_history")).
			WillReturnError(errors.New("boom"))
		mock.ExpectRollback()

		err := repo.Atomic(ctx, func(tx session.Tx) error {
			return tx.SetSessionStatus(ctx, sessionID, session.StatusChange{Status: session.StatusActive, ChangedAt: time.Now()})
		})
		if err == nil || errors.Cause(err).Error() != "boom" {
			t.Errorf("Atomic() = %v; want boom", err)
		}
		checkExpectations(t, mock)
	})

	t.Run("domain error is returned as is", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.Atomic(ctx, func(tx session.Tx) error { return session.ErrSlotNotOpen })
		if err != session.ErrSlotNotOpen {
			t.Errorf("Atomic() = %v; want ErrSlotNotOpen", err)
		}
		checkExpectations(t, mock)
	})

	t.Run("failed rollback signals shutdown", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

		err := repo.Atomic(ctx, func(tx session.Tx) error { return session.ErrSlotNotOpen })
		if !core.IsShutdown(err) {
			t.Errorf("Atomic() = %v; want a shutdown error", err)
		}
		checkExpectations(t, mock)
	})

	t.Run("panic", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		defer func() {
			if recover() == nil {
				t.Error("Atomic() swallowed the panic")
			}
			checkExpectations(t, mock)
		}()
		_ = repo.Atomic(ctx, func(tx session.Tx) error { panic("boom") })
	})
}

func TestRepository_CreateSlots(t *testing.T) {
	repo, mock := newMock(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	slots := []session.Slot{
		{SessionID: sessionID, Date: day, Period: "MORNING", AccessToken: "a", Status: session.SlotNotStarted},
		{SessionID: sessionID, Date: day, Period: "AFTERNOON", AccessToken: "b", Status: session.SlotNotStarted},
	}

	mock.ExpectBegin()
	for i, sl := range slots {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signature_slot")).
			WithArgs(sqlmock.AnyArg(), sessionID, day, sl.Period, i, sl.AccessToken, "NOT_STARTED").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	var created []session.Slot
	err := repo.Atomic(ctx, func(tx session.Tx) error {
		var err error
		created, err = tx.CreateSlots(ctx, slots)
		return err
	})
	if err != nil {
		t.Fatalf("CreateSlots() failed: %v", err)
	}
	if len(created) != 2 || created[0].ID == "" || created[0].ID == created[1].ID {
		t.Errorf("created = %+v", created)
	}
	checkExpectations(t, mock)
}
