package session

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
)

// resolveSigner resolves a slot token and an enrollment token to the pair they designate.
// Tokens that do not resolve, or that belong to different sessions, yield ErrUnknownToken.
func resolveSigner(ctx context.Context, r Reader, slotToken, enrollmentToken string) (Slot, Enrollment, error) {
	sl, err := r.GetSlotByToken(ctx, slotToken)
	if err != nil {
		if err == ErrSlotNotFound {
			return Slot{}, Enrollment{}, ErrUnknownToken
		}
		return Slot{}, Enrollment{}, errors.Wrap(err, "resolving slot token")
	}
	enr, err := r.GetEnrollmentByToken(ctx, enrollmentToken)
	if err != nil {
		if err == ErrEnrollmentNotFound {
			return Slot{}, Enrollment{}, ErrUnknownToken
		}
		return Slot{}, Enrollment{}, errors.Wrap(err, "resolving enrollment token")
	}
	if enr.SessionID != sl.SessionID {
		return Slot{}, Enrollment{}, ErrUnknownToken
	}
	return sl, enr, nil
}

// Sign records the presence of an enrollment on a slot.
// Checks run in order: tokens resolve to the same session, the slot is OPEN, no entry exists yet.
// The slot is share-locked while the entry is written, so it cannot close mid-signature.
func (svc *Service) Sign(ctx context.Context, slotToken string, ns NewSignature) (SignatureRecorded, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return SignatureRecorded{}, err
	}
	if max := svc.conf.Signature.MaxValueLength; max > 0 && utf8.RuneCountInString(ns.Value) > max {
		return SignatureRecorded{}, core.NewValidationError(nil, core.FieldError{
			Field: "signature",
			Error: fmt.Sprintf("signature must be a maximum of %d characters in length", max),
		})
	}

	var res SignatureRecorded
	err := svc.repo.Atomic(ctx, func(tx Tx) error {
		sl, enr, err := resolveSigner(ctx, tx, slotToken, ns.EnrollmentToken)
		if err != nil {
			return err
		}
		if sl, err = tx.ShareLockSlot(ctx, sl.ID); err != nil {
			return errors.Wrap(err, "locking slot")
		}
		if sl.Status != SlotOpen {
			return ErrSlotNotOpen
		}

		sig := Signature{
			SlotID:          sl.ID,
			EnrollmentID:    enr.ID,
			EnrollmentToken: enr.Token,
			Value:           ns.Value,
			SignedAt:        NowFunc().UTC(),
		}
		if err = tx.InsertSignature(ctx, sig); err != nil {
			if err == ErrAlreadySigned {
				return err
			}
			return errors.Wrap(err, "inserting signature")
		}
		res = SignatureRecorded{SlotID: sig.SlotID, EnrollmentID: sig.EnrollmentID, SignedAt: sig.SignedAt}
		return nil
	})
	signAttempts.WithLabelValues(signOutcome(errors.Cause(err))).Inc()
	if err != nil {
		return SignatureRecorded{}, err
	}
	return res, nil
}

// SignatureExists reports whether the enrollment already signed the slot.
func (svc *Service) SignatureExists(ctx context.Context, slotToken, enrollmentToken string) (bool, error) {
	sl, _, err := resolveSigner(ctx, svc.repo, slotToken, enrollmentToken)
	if err != nil {
		return false, err
	}
	return svc.repo.SignatureExists(ctx, sl.ID, enrollmentToken)
}

// LinkFeedback attaches a feedback reference to the enrollment identified by token.
func (svc *Service) LinkFeedback(ctx context.Context, enrollmentToken string, lf LinkFeedback) (Enrollment, error) {
	if err := lf.Validate(svc.validate); err != nil {
		return Enrollment{}, err
	}

	var enr Enrollment
	err := svc.repo.Atomic(ctx, func(tx Tx) error {
		var err error
		if enr, err = tx.GetEnrollmentByToken(ctx, enrollmentToken); err != nil {
			if err == ErrEnrollmentNotFound {
				return ErrUnknownToken
			}
			return errors.Wrap(err, "resolving enrollment token")
		}
		enr.FeedbackID = lf.FeedbackID
		return errors.Wrap(tx.SetEnrollmentFeedback(ctx, enr.ID, lf.FeedbackID), "linking feedback")
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}
