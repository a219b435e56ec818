package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/trainings/core/session"
)

type (
	// view reads the tables. Callers hold the DB lock.
	view struct {
		t *tables
	}

	repository struct {
		db *DB
	}

	tx struct {
		view
	}

	reporter struct {
		db *DB
	}
)

var (
	_ session.Repository = (*repository)(nil) // interface compliance check
	_ session.Tx         = (*tx)(nil)
	_ session.Reporter   = (*reporter)(nil)
)

func NewRepository(db *DB) *repository {
	return &repository{db: db}
}

func NewReporter(db *DB) *reporter {
	return &reporter{db: db}
}

// Atomic holds the DB lock while fn runs, and restores the tables if fn fails.
func (repo *repository) Atomic(ctx context.Context, fn func(tx session.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	snapshot := repo.db.t.clone()
	if err := fn(&tx{view{t: repo.db.t}}); err != nil {
		repo.db.t = snapshot
		return err
	}
	return nil
}

func (repo *repository) read() (view, func()) {
	repo.db.RLock()
	return view{t: repo.db.t}, repo.db.RUnlock
}

func (v view) GetSession(_ context.Context, id string) (session.Session, error) {
	s, ok := v.t.sessions[id]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}
	s.History = append([]session.StatusChange(nil), s.History...)
	return s, nil
}

func (v view) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	for id, s := range v.t.sessions {
		if s.AccessToken == token {
			return v.GetSession(ctx, id)
		}
	}
	return session.Session{}, session.ErrSessionNotFound
}

func (v view) GetSlot(_ context.Context, id string) (session.Slot, error) {
	if sl, ok := v.t.slots[id]; ok {
		return sl, nil
	}
	return session.Slot{}, session.ErrSlotNotFound
}

func (v view) GetSlotByToken(_ context.Context, token string) (session.Slot, error) {
	for _, sl := range v.t.slots {
		if sl.AccessToken == token {
			return sl, nil
		}
	}
	return session.Slot{}, session.ErrSlotNotFound
}

func (v view) GetEnrollmentByToken(_ context.Context, token string) (session.Enrollment, error) {
	for _, e := range v.t.enrollments {
		if e.Token == token {
			return e, nil
		}
	}
	return session.Enrollment{}, session.ErrEnrollmentNotFound
}

// ListSlots returns the slots of a session by date, in creation order within a day.
func (v view) ListSlots(_ context.Context, sessionID string) ([]session.Slot, error) {
	slots := make([]session.Slot, 0)
	for _, id := range v.t.slotOrder {
		if sl := v.t.slots[id]; sl.SessionID == sessionID {
			slots = append(slots, sl)
		}
	}
	return slots, nil
}

func (v view) ListEnrollments(_ context.Context, sessionID string) ([]session.Enrollment, error) {
	enrs := make([]session.Enrollment, 0)
	for _, id := range v.t.enrOrder {
		if e := v.t.enrollments[id]; e.SessionID == sessionID {
			enrs = append(enrs, e)
		}
	}
	return enrs, nil
}

func (v view) SignatureExists(_ context.Context, slotID, enrollmentToken string) (bool, error) {
	_, ok := v.t.signatures[sigKey{slotID, enrollmentToken}]
	return ok, nil
}

// Repository reads

func (repo *repository) GetSession(ctx context.Context, id string) (session.Session, error) {
	v, unlock := repo.read()
	defer unlock()
	return v.GetSession(ctx, id)
}

func (repo *repository) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	v, unlock := repo.read()
	defer unlock()
	return v.GetSessionByToken(ctx, token)
}

func (repo *repository) GetSlot(ctx context.Context, id string) (session.Slot, error) {
	v, unlock := repo.read()
	defer unlock()
	return v.GetSlot(ctx, id)
}

func (repo *repository) GetSlotByToken(ctx context.Context, token string) (session.Slot, error) {
	v, unlock := repo.read()
	defer unlock()
	return v.GetSlotByToken(ctx, token)
}

func (repo *repository) GetEnrollmentByToken(ctx context.Context, token string) (session.Enrollment, error) {
	v, unlock := repo.read()
	defer unlock()
	return v.GetEnrollmentByToken(ctx, token)
}

func (repo *repository) ListSlots(ctx context.Context, sessionID string) ([]session.Slot, error) {
	v, unlock := repo.read()
	defer unlock()
	return v.ListSlots(ctx, sessionID)
}

func (repo *repository) ListEnrollments(ctx context.Context, sessionID string) ([]session.Enrollment, error) {
	v, unlock := repo.read()
	defer unlock()
	return v.ListEnrollments(ctx, sessionID)
}

func (repo *repository) SignatureExists(ctx context.Context, slotID, enrollmentToken string) (bool, error) {
	v, unlock := repo.read()
	defer unlock()
	return v.SignatureExists(ctx, slotID, enrollmentToken)
}

// Tx: the DB lock is held for the whole unit of work, so row locks are no-ops.

func (t *tx) LockSession(ctx context.Context, id string) (session.Session, error) {
	return t.GetSession(ctx, id)
}

func (t *tx) LockSlot(ctx context.Context, id string) (session.Slot, error) {
	return t.GetSlot(ctx, id)
}

func (t *tx) ShareLockSlot(ctx context.Context, id string) (session.Slot, error) {
	return t.GetSlot(ctx, id)
}

func (t *tx) CreateSession(_ context.Context, s session.Session) (session.Session, error) {
	s.ID = uuid.New().String()
	s.History = append([]session.StatusChange(nil), s.History...)
	t.t.sessions[s.ID] = s
	return s, nil
}

func (t *tx) UpdateSession(_ context.Context, s session.Session) error {
	orig, ok := t.t.sessions[s.ID]
	if !ok {
		return session.ErrSessionNotFound
	}
	s.Status = orig.Status
	s.History = orig.History
	t.t.sessions[s.ID] = s
	return nil
}

func (t *tx) SetSessionStatus(_ context.Context, id string, change session.StatusChange) error {
	s, ok := t.t.sessions[id]
	if !ok {
		return session.ErrSessionNotFound
	}
	s.Status = change.Status
	s.UpdatedAt = change.ChangedAt
	s.History = append(s.History, change)
	t.t.sessions[id] = s
	return nil
}

func (t *tx) CreateSlots(_ context.Context, slots []session.Slot) ([]session.Slot, error) {
	created := make([]session.Slot, 0, len(slots))
	for _, sl := range slots {
		sl.ID = uuid.New().String()
		t.t.slots[sl.ID] = sl
		t.t.slotOrder = append(t.t.slotOrder, sl.ID)
		created = append(created, sl)
	}
	return created, nil
}

func (t *tx) SetSlotStatus(_ context.Context, sl session.Slot) error {
	if _, ok := t.t.slots[sl.ID]; !ok {
		return session.ErrSlotNotFound
	}
	t.t.slots[sl.ID] = sl
	return nil
}

func (t *tx) CreateEnrollment(_ context.Context, e session.Enrollment) (session.Enrollment, error) {
	for _, other := range t.t.enrollments {
		if other.SessionID == e.SessionID && other.EmployeeID == e.EmployeeID {
			return session.Enrollment{}, session.ErrAlreadyEnrolled
		}
	}
	e.ID = uuid.New().String()
	t.t.enrollments[e.ID] = e
	t.t.enrOrder = append(t.t.enrOrder, e.ID)
	return e, nil
}

func (t *tx) SetEnrollmentFeedback(_ context.Context, enrollmentID, feedbackID string) error {
	e, ok := t.t.enrollments[enrollmentID]
	if !ok {
		return session.ErrEnrollmentNotFound
	}
	e.FeedbackID = feedbackID
	t.t.enrollments[enrollmentID] = e
	return nil
}

func (t *tx) InsertSignature(_ context.Context, sig session.Signature) error {
	key := sigKey{sig.SlotID, sig.EnrollmentToken}
	if _, ok := t.t.signatures[key]; ok {
		return session.ErrAlreadySigned
	}
	t.t.signatures[key] = sig
	t.t.sigOrder = append(t.t.sigOrder, key)

	if e, ok := t.t.enrollments[sig.EnrollmentID]; ok {
		e.Signed = true
		t.t.enrollments[e.ID] = e
	}
	return nil
}

// Reporter

func (r *reporter) MissingSignatures(ctx context.Context, slotID string) ([]session.Enrollment, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	v := view{t: r.db.t}
	sl, err := v.GetSlot(ctx, slotID)
	if err != nil {
		return []session.Enrollment{}, nil
	}
	enrs, _ := v.ListEnrollments(ctx, sl.SessionID)
	missing := make([]session.Enrollment, 0, len(enrs))
	for _, e := range enrs {
		if _, signed := v.t.signatures[sigKey{sl.ID, e.Token}]; !signed {
			missing = append(missing, e)
		}
	}
	return missing, nil
}

func (r *reporter) SlotSignatures(_ context.Context, slotID string) ([]session.Signature, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	sigs := make([]session.Signature, 0)
	for _, key := range r.db.t.sigOrder {
		if key.slotID == slotID {
			sigs = append(sigs, r.db.t.signatures[key])
		}
	}
	return sigs, nil
}

func (r *reporter) SessionSignatures(_ context.Context, sessionID string) ([]session.Signature, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	sigs := make([]session.Signature, 0)
	for _, key := range r.db.t.sigOrder {
		if r.db.t.slots[key.slotID].SessionID == sessionID {
			sigs = append(sigs, r.db.t.signatures[key])
		}
	}
	return sigs, nil
}
