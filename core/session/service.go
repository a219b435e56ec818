package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
)

var NowFunc = time.Now // mockable

type Service struct {
	repo     Repository
	reporter Reporter
	mailSvc  core.EmailService
	validate *validator.Validate
	logger   core.Logger
	conf     *core.Config
}

func NewService(
	repo Repository,
	reporter Reporter,
	mailSvc core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		reporter: reporter,
		mailSvc:  mailSvc,
		validate: validate,
		logger:   logger,
		conf:     conf,
	}
}

// day keeps the calendar date the client sent, whatever its offset.
func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return core.DateOf(t)
}

func (svc *Service) timeZone() *time.Location {
	if svc.conf.TimeZone == nil {
		return time.UTC
	}
	return svc.conf.TimeZone
}

func (svc *Service) Create(ctx context.Context, ns NewSession) (Session, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Session{}, err
	}
	token, err := NewToken()
	if err != nil {
		return Session{}, errors.Wrap(err, "minting session token")
	}

	now := NowFunc().UTC()
	s := Session{
		TrainingID:    ns.TrainingID,
		TrainerID:     ns.TrainerID,
		StartDate:     day(ns.StartDate),
		EndDate:       day(ns.EndDate),
		Location:      ns.Location,
		SignatureMode: ns.SignatureMode,
		Status:        StatusDraft,
		AccessToken:   token,
		History:       []StatusChange{{Status: StatusDraft, ChangedAt: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = svc.repo.Atomic(ctx, func(tx Tx) error {
		created, err := tx.CreateSession(ctx, s)
		if err != nil {
			return errors.Wrap(err, "creating session")
		}
		s = created
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

// Update edits a session's attributes. Only DRAFT sessions may be edited.
func (svc *Service) Update(ctx context.Context, id string, us UpdateSession) (Session, error) {
	var s Session
	err := svc.repo.Atomic(ctx, func(tx Tx) error {
		var err error
		if s, err = tx.LockSession(ctx, id); err != nil {
			return err
		}
		if s.Status != StatusDraft {
			return ErrSessionLocked
		}
		if err = us.Validate(s, svc.validate); err != nil {
			return err
		}

		s.TrainingID = us.TrainingID
		s.TrainerID = us.TrainerID
		s.StartDate = day(us.StartDate)
		s.EndDate = day(us.EndDate)
		s.Location = us.Location
		s.SignatureMode = us.SignatureMode
		s.UpdatedAt = NowFunc().UTC()
		return errors.Wrap(tx.UpdateSession(ctx, s), "updating session")
	})
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// transitionSession moves the session to `to`, evaluated against its persisted state.
// hook runs once the edge is known to be valid, before anything is written.
func (svc *Service) transitionSession(
	ctx context.Context,
	id string,
	to Status,
	hook func(tx Tx, s Session) error,
) (StatusChanged, Session, error) {
	var (
		res StatusChanged
		s   Session
	)
	err := svc.repo.Atomic(ctx, func(tx Tx) error {
		var err error
		if s, err = tx.LockSession(ctx, id); err != nil {
			return err
		}
		if !s.Status.CanTransitionTo(to) {
			return sessionTransitionErr(s, to, "")
		}
		if hook != nil {
			if err = hook(tx, s); err != nil {
				return err
			}
		}

		change := StatusChange{Status: to, ChangedAt: NowFunc().UTC()}
		if err = tx.SetSessionStatus(ctx, s.ID, change); err != nil {
			return errors.Wrap(err, "setting session status")
		}
		res = StatusChanged{SessionID: s.ID, From: s.Status, To: to, ChangedAt: change.ChangedAt}
		return nil
	})
	if err != nil {
		countRejected(err)
		return StatusChanged{}, Session{}, err
	}
	sessionTransitions.WithLabelValues(string(to)).Inc()
	svc.logger.Info(fmt.Sprintf("session %s: %s -> %s", res.SessionID, res.From, res.To))
	return res, s, nil
}

// Schedule finalizes a DRAFT session (DRAFT -> NOT_STARTED) and creates its signature slots.
func (svc *Service) Schedule(ctx context.Context, id string) (StatusChanged, error) {
	res, _, err := svc.transitionSession(ctx, id, StatusNotStarted, func(tx Tx, s Session) error {
		if flds := s.missingScheduleFields(); len(flds) > 0 {
			return core.NewValidationError(errors.New("session is not fully scheduled"), flds...)
		}
		slots, err := svc.planSlots(s)
		if err != nil {
			return err
		}
		_, err = tx.CreateSlots(ctx, slots)
		return errors.Wrap(err, "creating slots")
	})
	return res, err
}

// Open runs a scheduled session (NOT_STARTED -> ACTIVE).
// Opening on another day than the start date is allowed; the result then carries a warning.
func (svc *Service) Open(ctx context.Context, id string) (StatusChanged, error) {
	res, s, err := svc.transitionSession(ctx, id, StatusActive, nil)
	if err != nil {
		return StatusChanged{}, err
	}
	openedOn := res.ChangedAt.In(svc.timeZone())
	if !s.StartDate.IsZero() && !core.SameDay(openedOn, s.StartDate) {
		res.Warning = fmt.Sprintf(
			"session opened on %s but scheduled to start on %s",
			openedOn.Format("2006-01-02"), s.StartDate.Format("2006-01-02"))
		svc.logger.Warn(res.Warning, map[string]interface{}{"session_id": s.ID})
	}
	return res, nil
}

// Complete finishes an ACTIVE session. Open signature windows must be closed first.
func (svc *Service) Complete(ctx context.Context, id string) (StatusChanged, error) {
	res, _, err := svc.transitionSession(ctx, id, StatusCompleted, svc.noOpenSlots(ctx, StatusCompleted))
	return res, err
}

// Cancel moves a DRAFT, NOT_STARTED or ACTIVE session to CANCELLED. Open signature windows must be closed first.
func (svc *Service) Cancel(ctx context.Context, id string) (StatusChanged, error) {
	res, _, err := svc.transitionSession(ctx, id, StatusCancelled, svc.noOpenSlots(ctx, StatusCancelled))
	return res, err
}

func (svc *Service) noOpenSlots(ctx context.Context, to Status) func(tx Tx, s Session) error {
	return func(tx Tx, s Session) error {
		slots, err := tx.ListSlots(ctx, s.ID)
		if err != nil {
			return errors.Wrap(err, "listing slots")
		}
		for _, sl := range slots {
			if sl.Status == SlotOpen {
				return sessionTransitionErr(s, to, "signature slots are still open")
			}
		}
		return nil
	}
}

// planSlots returns the slots of a session: a single one for GLOBAL sessions,
// one per day and configured period for PER_SLOT sessions.
func (svc *Service) planSlots(s Session) ([]Slot, error) {
	var slots []Slot
	add := func(date time.Time, period string) error {
		token, err := NewToken()
		if err != nil {
			return errors.Wrap(err, "minting slot token")
		}
		slots = append(slots, Slot{
			SessionID:   s.ID,
			Date:        date,
			Period:      period,
			AccessToken: token,
			Status:      SlotNotStarted,
		})
		return nil
	}

	switch s.SignatureMode {
	case ModePerSlot:
		periods := svc.conf.Signature.Periods
		if len(periods) == 0 {
			periods = []string{GlobalPeriod}
		}
		start, end := day(s.StartDate), day(s.EndDate)
		if limit := svc.conf.Signature.MaxDays; limit > 0 && end.After(start.AddDate(0, 0, limit-1)) {
			return nil, core.NewValidationError(
				errors.New("session spans too many days"),
				core.FieldError{Field: "end_date", Error: fmt.Sprintf("a session signed per slot cannot span more than %d days", limit)},
			)
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			for _, p := range periods {
				if err := add(d, p); err != nil {
					return nil, err
				}
			}
		}
	case ModeGlobal:
		if err := add(day(s.StartDate), GlobalPeriod); err != nil {
			return nil, err
		}
	default:
		return nil, core.NewValidationError(nil, core.FieldError{Field: "signature_mode", Error: sigModeText})
	}
	return slots, nil
}

func (svc *Service) Slots(ctx context.Context, sessionID string) ([]Slot, error) {
	if _, err := svc.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return svc.repo.ListSlots(ctx, sessionID)
}

func (svc *Service) Enrollments(ctx context.Context, sessionID string) ([]Enrollment, error) {
	if _, err := svc.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return svc.repo.ListEnrollments(ctx, sessionID)
}

// Enroll registers an employee into a session that has not ended yet and mints their signing token.
func (svc *Service) Enroll(ctx context.Context, sessionID string, ne NewEnrollment) (Enrollment, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Enrollment{}, err
	}
	token, err := NewToken()
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "minting enrollment token")
	}

	var enr Enrollment
	err = svc.repo.Atomic(ctx, func(tx Tx) error {
		s, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.Status.IsTerminal() {
			return ErrSessionClosed
		}
		enr, err = tx.CreateEnrollment(ctx, Enrollment{
			SessionID:     s.ID,
			EmployeeID:    ne.EmployeeID,
			EmployeeName:  ne.EmployeeName,
			EmployeeEmail: ne.EmployeeEmail,
			Token:         token,
			CreatedAt:     NowFunc().UTC(),
		})
		if err != nil && err != ErrAlreadyEnrolled {
			return errors.Wrap(err, "creating enrollment")
		}
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}
