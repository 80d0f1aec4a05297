package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/event"
	"github.com/utafrali/RegistryGo/internal/repository"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

// Scheduler runs the time-driven lifecycle sweeps. Every sweep is idempotent
// and isolates failures per domain: one bad domain never aborts the batch.
type Scheduler struct {
	domains  repository.DomainRepository
	tx       database.TxRunner
	locks    *KeyedMutex
	producer *event.Producer
	policy   Policy
	logger   *slog.Logger
}

// NewScheduler creates a new lifecycle scheduler.
func NewScheduler(
	domains repository.DomainRepository,
	tx database.TxRunner,
	locks *KeyedMutex,
	producer *event.Producer,
	policy Policy,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		domains:  domains,
		tx:       tx,
		locks:    locks,
		producer: producer,
		policy:   policy,
		logger:   logger,
	}
}

// SweepResult counts one sweep's outcome.
type SweepResult struct {
	Processed int
	Failed    int
}

// RunExpiry marks every domain past its validity as expired and schedules
// the outzone and delete dates.
func (s *Scheduler) RunExpiry(ctx context.Context, now time.Time) (SweepResult, error) {
	due, err := s.domains.DueForExpiry(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("query domains due for expiry: %w", err)
	}

	return s.sweep(ctx, "expire", due, func(ctx context.Context, d *domain.Domain) (bool, error) {
		if !d.Statuses.Expirable() {
			return false, nil
		}
		markExpired(d, now, s.policy)
		if err := s.domains.Update(ctx, d); err != nil {
			return false, err
		}
		return true, nil
	}, func(d *domain.Domain) {
		s.publishDomain(ctx, event.TopicDomainExpired, d)
	}), nil
}

// RunRedemption adds serverHold to every expired domain past its outzone
// date, taking it out of the zone.
func (s *Scheduler) RunRedemption(ctx context.Context, now time.Time) (SweepResult, error) {
	due, err := s.domains.DueForOutzone(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("query domains due for outzone: %w", err)
	}

	return s.sweep(ctx, "redemption", due, func(ctx context.Context, d *domain.Domain) (bool, error) {
		if !d.Statuses.ServerHoldable() {
			return false, nil
		}
		d.Statuses = d.Statuses.Remove(domain.StatusOK).Add(domain.StatusServerHold)
		d.UpdatedAt = now
		if err := s.domains.Update(ctx, d); err != nil {
			return false, err
		}
		return true, nil
	}, nil), nil
}

// RunDeleteCandidate marks every domain past its delete date as a delete
// candidate for the destruction sweep.
func (s *Scheduler) RunDeleteCandidate(ctx context.Context, now time.Time) (SweepResult, error) {
	due, err := s.domains.DueForDeleteCandidate(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("query domains due for delete candidate: %w", err)
	}

	return s.sweep(ctx, "delete-candidate", due, func(ctx context.Context, d *domain.Domain) (bool, error) {
		if !d.Statuses.DeleteCandidateable() {
			return false, nil
		}
		d.Statuses = d.Statuses.Remove(domain.StatusOK).Add(domain.StatusDeleteCandidate)
		d.UpdatedAt = now
		if err := s.domains.Update(ctx, d); err != nil {
			return false, err
		}
		return true, nil
	}, nil), nil
}

// RunDestruction permanently removes every delete candidate and every domain
// whose force-delete date has passed.
func (s *Scheduler) RunDestruction(ctx context.Context, now time.Time) (SweepResult, error) {
	due, err := s.domains.DestroyCandidates(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("query destruction candidates: %w", err)
	}

	return s.sweep(ctx, "destruction", due, func(ctx context.Context, d *domain.Domain) (bool, error) {
		if err := s.domains.Destroy(ctx, d.ID); err != nil {
			return false, err
		}
		return true, nil
	}, func(d *domain.Domain) {
		s.publishDomain(ctx, event.TopicDomainDeleted, d)
	}), nil
}

// RunPendingExpiry clears verification state on every domain whose
// confirmation window lapsed. A domain carrying the verification timestamp
// without a matching pending status is a data-integrity issue: it is logged
// and skipped, never repaired automatically.
func (s *Scheduler) RunPendingExpiry(ctx context.Context, now time.Time) (SweepResult, error) {
	cutoff := now.Add(-s.policy.PendingConfirmationWindow)
	due, err := s.domains.OverduePendings(ctx, cutoff)
	if err != nil {
		return SweepResult{}, fmt.Errorf("query overdue pendings: %w", err)
	}

	operations := make(map[string]string, len(due))

	result := s.sweep(ctx, "pending-expiry", due, func(ctx context.Context, d *domain.Domain) (bool, error) {
		if d.VerificationAskedAt == nil || d.VerificationAskedAt.After(cutoff) {
			return false, nil
		}
		if !d.PendingUpdate() && !d.PendingDelete() {
			s.logger.WarnContext(ctx, "verification timestamp without pending status, skipping",
				slog.String("name", d.Name),
				slog.Time("verification_asked_at", *d.VerificationAskedAt),
			)
			return false, nil
		}

		op := opUpdate
		if d.PendingDelete() {
			op = opDelete
		}
		operations[d.ID] = op

		d.ClearPendings()
		d.Statuses = domain.DeriveAutomaticStatus(d.Statuses, domain.StructurallyValid(d, s.policy.Limits))
		d.PruneStatusNotes()
		d.UpdatedAt = now
		if err := s.domains.Update(ctx, d); err != nil {
			return false, err
		}
		return true, nil
	}, func(d *domain.Domain) {
		s.publishPendingExpired(ctx, d, operations[d.ID])
	})
	return result, nil
}

// RunAll executes every sweep once, in dependency order, and logs counts.
func (s *Scheduler) RunAll(ctx context.Context) {
	now := time.Now().UTC()
	sweeps := []struct {
		name string
		run  func(context.Context, time.Time) (SweepResult, error)
	}{
		{"pending-expiry", s.RunPendingExpiry},
		{"expire", s.RunExpiry},
		{"redemption", s.RunRedemption},
		{"delete-candidate", s.RunDeleteCandidate},
		{"destruction", s.RunDestruction},
	}

	for _, sweep := range sweeps {
		result, err := sweep.run(ctx, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "lifecycle sweep failed",
				slog.String("sweep", sweep.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if result.Processed > 0 || result.Failed > 0 {
			s.logger.InfoContext(ctx, "lifecycle sweep finished",
				slog.String("sweep", sweep.name),
				slog.Int("processed", result.Processed),
				slog.Int("failed", result.Failed),
			)
		}
	}
}

// sweep walks the candidate list domain by domain. Each step re-reads the
// domain under its lock inside a fresh transaction so a sweep never races a
// live command, then re-checks its guard; after runs post-commit for every
// domain the step actually changed.
func (s *Scheduler) sweep(ctx context.Context, name string, due []domain.Domain, step func(ctx context.Context, d *domain.Domain) (bool, error), after func(d *domain.Domain)) SweepResult {
	var result SweepResult
	for i := range due {
		key := due[i].NamePuny

		var changed bool
		var fresh *domain.Domain
		s.locks.Lock(key)
		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			d, err := s.domains.GetByName(ctx, key)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					// Gone since the candidate query ran.
					return nil
				}
				return err
			}
			fresh = d
			changed, err = step(ctx, d)
			return err
		})
		s.locks.Unlock(key)

		if err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "sweep step failed",
				slog.String("sweep", name),
				slog.String("name", due[i].Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Processed++
		if changed && after != nil {
			after(fresh)
		}
	}
	return result
}

func (s *Scheduler) publishDomain(ctx context.Context, topic string, d *domain.Domain) {
	if err := s.producer.PublishDomainEvent(ctx, topic, d); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish domain event",
			slog.String("topic", topic),
			slog.String("name", d.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Scheduler) publishPendingExpired(ctx context.Context, d *domain.Domain, op string) {
	data := event.PendingEventData{
		Name:            d.Name,
		Operation:       op,
		OldRegistrantID: d.RegistrantID,
	}
	if err := s.producer.PublishPendingEvent(ctx, event.TopicPendingExpired, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish pending event",
			slog.String("topic", event.TopicPendingExpired),
			slog.String("name", d.Name),
			slog.String("error", err.Error()),
		)
	}
}
