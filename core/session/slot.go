package session

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// transitionSlot moves a slot to `to`. The parent session is locked before the slot,
// like session transitions do, so a slot cannot open while its session is being completed.
// guard may reject the change once both are locked.
func (svc *Service) transitionSlot(
	ctx context.Context,
	slotID string,
	to SlotStatus,
	guard func(s Session, sl Slot) error,
) (SlotStatusChanged, error) {
	var res SlotStatusChanged
	err := svc.repo.Atomic(ctx, func(tx Tx) error {
		sl, err := tx.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		s, err := tx.LockSession(ctx, sl.SessionID)
		if err != nil {
			return errors.Wrap(err, "locking parent session")
		}
		if sl, err = tx.LockSlot(ctx, slotID); err != nil {
			return err
		}
		if guard != nil {
			if err = guard(s, sl); err != nil {
				return err
			}
		}

		if !sl.Status.CanTransitionTo(to) {
			return slotTransitionErr(sl, to, "")
		}
		if to == SlotOpen && s.Status != StatusActive {
			return slotTransitionErr(sl, to, fmt.Sprintf("session is %s", s.Status))
		}

		now := NowFunc().UTC()
		from := sl.Status
		sl.Status = to
		switch to {
		case SlotOpen:
			sl.OpenedAt = now
		case SlotCompleted:
			sl.ClosedAt = now
		}
		if err = tx.SetSlotStatus(ctx, sl); err != nil {
			return errors.Wrap(err, "setting slot status")
		}
		res = SlotStatusChanged{SlotID: sl.ID, SessionID: sl.SessionID, From: from, To: to, ChangedAt: now}
		return nil
	})
	if err != nil {
		countRejected(err)
		return SlotStatusChanged{}, err
	}
	slotTransitions.WithLabelValues(string(to)).Inc()
	svc.logger.Info(fmt.Sprintf("slot %s: %s -> %s", res.SlotID, res.From, res.To))
	return res, nil
}

// OpenSlot opens the signature window of a slot. Its session must be ACTIVE.
func (svc *Service) OpenSlot(ctx context.Context, slotID string) (SlotStatusChanged, error) {
	return svc.transitionSlot(ctx, slotID, SlotOpen, nil)
}

// CloseSlot closes the signature window of an OPEN slot for good.
func (svc *Service) CloseSlot(ctx context.Context, slotID string) (SlotStatusChanged, error) {
	return svc.transitionSlot(ctx, slotID, SlotCompleted, nil)
}

// SlotSession returns the session a slot belongs to.
func (svc *Service) SlotSession(ctx context.Context, slotID string) (Session, error) {
	sl, err := svc.repo.GetSlot(ctx, slotID)
	if err != nil {
		return Session{}, err
	}
	return svc.repo.GetSession(ctx, sl.SessionID)
}

// MissingSignatures lists the enrollments of the slot's session that have not signed the slot yet.
func (svc *Service) MissingSignatures(ctx context.Context, slotID string) ([]Enrollment, error) {
	if _, err := svc.repo.GetSlot(ctx, slotID); err != nil {
		return nil, err
	}
	enrs, err := svc.reporter.MissingSignatures(ctx, slotID)
	if err != nil {
		return nil, errors.Wrap(err, "listing missing signatures")
	}
	return enrs, nil
}
