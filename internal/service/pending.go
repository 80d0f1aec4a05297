package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/event"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

// Pending operation kinds.
const (
	opUpdate = "update"
	opDelete = "delete"
)

// askVerification captures a command awaiting registrant confirmation: it
// issues a fresh token, records when it was asked, snapshots the raw command
// plus the acting registrar and marks the matching pending status. The
// snapshot keeps the original command, not a diff, so confirmation replays
// it through the live command path however much later it arrives.
func (s *DomainService) askVerification(ctx context.Context, d *domain.Domain, op string, command any, newRegistrant *domain.Contact, actorID string) error {
	token, err := newVerificationToken()
	if err != nil {
		return apperrors.Internal(err)
	}
	raw, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("snapshot pending command: %w", err)
	}

	now := time.Now().UTC()
	d.VerificationToken = token
	d.VerificationAskedAt = &now
	snapshot := &domain.PendingSnapshot{Command: raw, ActorID: actorID}
	if newRegistrant != nil {
		snapshot.NewRegistrantID = newRegistrant.ID
		snapshot.RegistrantEmail = newRegistrant.Email
		snapshot.RegistrantName = newRegistrant.Name
	}
	d.PendingSnapshot = snapshot

	var marked bool
	switch op {
	case opDelete:
		marked = d.SetPendingDelete()
	default:
		marked = d.SetPendingUpdate()
	}
	if !marked {
		// Best-effort marker per the status engine contract.
		s.logger.WarnContext(ctx, "pending status marker blocked by prohibition",
			slog.String("name", d.Name),
			slog.String("operation", op),
		)
	}
	d.UpdatedAt = now

	if err := s.domains.Update(ctx, d); err != nil {
		return fmt.Errorf("persist pending verification: %w", err)
	}
	return nil
}

// ConfirmUpdate applies a pending registrant change after the registrant
// presented the verification token. The captured command is replayed through
// the same path as a live update against the domain's current state.
func (s *DomainService) ConfirmUpdate(ctx context.Context, name, token string) (*domain.Domain, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var confirmed *domain.Domain
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for confirm: %w", err)
		}
		if err := verifyPending(d, domain.StatusPendingUpdate, token); err != nil {
			return err
		}

		var command UpdateDomainInput
		if err := json.Unmarshal(d.PendingSnapshot.Command, &command); err != nil {
			return fmt.Errorf("decode pending command: %w", err)
		}
		command.Verified = true

		d.ClearPendings()
		if err := s.applyUpdate(ctx, d, command); err != nil {
			return err
		}
		confirmed = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPending(ctx, event.TopicPendingConfirmed, confirmed, opUpdate)
	s.logger.InfoContext(ctx, "pending update confirmed", slog.String("name", confirmed.Name))
	return confirmed, nil
}

// ConfirmDelete expires the domain after the registrant presented the
// verification token for a pending deletion. The confirmed delete follows
// the same path as a verified one: the domain enters its outzone/delete
// schedule and the destruction sweep removes it later.
func (s *DomainService) ConfirmDelete(ctx context.Context, name, token string) error {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var confirmed *domain.Domain
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for confirm: %w", err)
		}
		if err := verifyPending(d, domain.StatusPendingDelete, token); err != nil {
			return err
		}

		d.ClearPendings()
		markExpired(d, time.Now().UTC(), s.policy)
		if err := s.domains.Update(ctx, d); err != nil {
			return fmt.Errorf("persist expired domain: %w", err)
		}
		confirmed = d
		return nil
	})
	if err != nil {
		return err
	}

	s.publishPending(ctx, event.TopicPendingConfirmed, confirmed, opDelete)
	s.publishDomain(ctx, event.TopicDomainDeleted, confirmed)
	s.logger.InfoContext(ctx, "pending delete confirmed, domain expired",
		slog.String("name", confirmed.Name),
		slog.Time("delete_at", confirmed.DeleteAt),
	)
	return nil
}

// verifyPending checks that the domain actually awaits the given pending
// operation and that the presented token matches.
func verifyPending(d *domain.Domain, pendingStatus, token string) error {
	if !d.Statuses.Contains(pendingStatus) {
		return apperrors.StatusProhibits("domain has no pending verification")
	}
	if token == "" || d.VerificationToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(d.VerificationToken)) != 1 {
		return apperrors.Forbidden("invalid verification token")
	}
	if d.VerificationAskedAt == nil {
		return apperrors.StatusProhibits("domain has no verification in progress")
	}
	if d.PendingSnapshot == nil {
		return apperrors.StatusProhibits("domain has no pending command to apply")
	}
	return nil
}
