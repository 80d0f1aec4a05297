package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/event"
	"github.com/utafrali/RegistryGo/internal/repository"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

// TransferService implements the registrar-to-registrar transfer protocol:
// query, request, approve and reject, plus the registrar poll inbox the
// protocol notifies through.
type TransferService struct {
	domains    repository.DomainRepository
	contacts   repository.ContactRepository
	registrars repository.RegistrarRepository
	transfers  repository.TransferRepository
	messages   repository.MessageQueue
	tx         database.TxRunner
	locks      *KeyedMutex
	producer   *event.Producer
	policy     Policy
	logger     *slog.Logger
}

// NewTransferService creates a new transfer service.
func NewTransferService(
	domains repository.DomainRepository,
	contacts repository.ContactRepository,
	registrars repository.RegistrarRepository,
	transfers repository.TransferRepository,
	messages repository.MessageQueue,
	tx database.TxRunner,
	locks *KeyedMutex,
	producer *event.Producer,
	policy Policy,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		domains:    domains,
		contacts:   contacts,
		registrars: registrars,
		transfers:  transfers,
		messages:   messages,
		tx:         tx,
		locks:      locks,
		producer:   producer,
		policy:     policy,
		logger:     logger,
	}
}

// transferOutcome carries the pre-transfer identifiers captured for the
// losing registrar's audit notification.
type transferOutcome struct {
	oldRegistrarID    string
	oldRegistrantCode string
	oldContactCodes   []string
}

// Query returns the most recent transfer record for the domain.
func (s *TransferService) Query(ctx context.Context, name string) (*domain.TransferRecord, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	d, err := s.domains.GetByName(ctx, ascii)
	if err != nil {
		return nil, fmt.Errorf("get domain for transfer query: %w", err)
	}
	record, err := s.transfers.Latest(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("get latest transfer: %w", err)
	}
	return record, nil
}

// Request asks to transfer the domain to the acting registrar. A retry while
// a request is still pending returns the existing record unchanged. With a
// zero transfer wait the request auto-approves in the same transaction.
func (s *TransferService) Request(ctx context.Context, name, actorID, authInfo string) (*domain.TransferRecord, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var record *domain.TransferRecord
	var outcome *transferOutcome
	var retried bool
	var transferred *domain.Domain
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for transfer: %w", err)
		}

		if d.RegistrarID == actorID {
			return apperrors.Conflict("domain already belongs to the querying registrar")
		}
		if !d.Statuses.Transferrable() {
			return apperrors.StatusProhibits("status prohibits transfer")
		}
		if d.AuthInfo == "" || authInfo != d.AuthInfo {
			return apperrors.WrongAuthInfo()
		}

		if pending, err := s.transfers.Pending(ctx, d.ID); err == nil {
			record = pending
			retried = true
			return nil
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("get pending transfer: %w", err)
		}

		now := time.Now().UTC()
		record = &domain.TransferRecord{
			ID:           uuid.New().String(),
			DomainID:     d.ID,
			Status:       domain.TransferPending,
			TransferFrom: d.RegistrarID,
			TransferTo:   actorID,
			RequestedAt:  now,
		}

		if s.policy.TransferWaitHours == 0 {
			outcome, err = s.completeTransfer(ctx, d, record, domain.TransferServerApproved, now)
			if err != nil {
				return err
			}
			transferred = d
		}

		if err := s.transfers.Create(ctx, record); err != nil {
			return fmt.Errorf("create transfer record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if retried {
		return record, nil
	}

	if outcome != nil {
		s.notifyCompleted(ctx, transferred, record, outcome)
		return record, nil
	}

	s.notify(ctx, record.TransferFrom, fmt.Sprintf("transfer of %s requested, awaiting your decision", name), record)
	s.publishTransfer(ctx, event.TopicTransferRequested, name, record, nil)
	s.logger.InfoContext(ctx, "transfer requested",
		slog.String("name", name),
		slog.String("transfer_to", actorID),
	)
	return record, nil
}

// Approve lets the losing registrar approve the pending transfer. The record
// state, contact re-parenting, secret regeneration and sponsorship change
// commit atomically.
func (s *TransferService) Approve(ctx context.Context, name, actorID string) (*domain.TransferRecord, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var record *domain.TransferRecord
	var outcome *transferOutcome
	var transferred *domain.Domain
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for transfer approve: %w", err)
		}
		record, err = s.transfers.Pending(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("get pending transfer: %w", err)
		}
		if record.TransferFrom != actorID {
			return apperrors.Forbidden("only the losing registrar may approve the transfer")
		}

		now := time.Now().UTC()
		outcome, err = s.completeTransfer(ctx, d, record, domain.TransferClientApproved, now)
		if err != nil {
			return err
		}
		transferred = d

		if err := s.transfers.Update(ctx, record); err != nil {
			return fmt.Errorf("persist transfer record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyCompleted(ctx, transferred, record, outcome)
	return record, nil
}

// Reject lets the losing registrar reject the pending transfer. No contact
// or sponsorship change happens.
func (s *TransferService) Reject(ctx context.Context, name, actorID string) (*domain.TransferRecord, error) {
	_, ascii, err := domain.NormalizeName(name)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.locks.Lock(ascii)
	defer s.locks.Unlock(ascii)

	var record *domain.TransferRecord
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.domains.GetByName(ctx, ascii)
		if err != nil {
			return fmt.Errorf("get domain for transfer reject: %w", err)
		}
		record, err = s.transfers.Pending(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("get pending transfer: %w", err)
		}
		if record.TransferFrom != actorID {
			return apperrors.Forbidden("only the losing registrar may reject the transfer")
		}

		record.Status = domain.TransferClientRejected
		if err := s.transfers.Update(ctx, record); err != nil {
			return fmt.Errorf("persist transfer record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, record.TransferTo, fmt.Sprintf("transfer of %s was rejected", name), record)
	s.publishTransfer(ctx, event.TopicTransferRejected, name, record, nil)
	s.logger.InfoContext(ctx, "transfer rejected",
		slog.String("name", name),
		slog.String("transfer_to", record.TransferTo),
	)
	return record, nil
}

// completeTransfer performs the effect of an approved transfer: captures the
// pre-transfer contact codes, re-parents the registrant and every admin/tech
// contact to the gaining registrar, regenerates the authorization secret and
// reassigns sponsorship. The record is marked terminal but persisted by the
// caller.
func (s *TransferService) completeTransfer(ctx context.Context, d *domain.Domain, record *domain.TransferRecord, status string, now time.Time) (*transferOutcome, error) {
	gaining, err := s.registrars.GetByID(ctx, record.TransferTo)
	if err != nil {
		return nil, fmt.Errorf("resolve gaining registrar: %w", err)
	}

	outcome := &transferOutcome{oldRegistrarID: d.RegistrarID}

	// A contact copied for this transfer must be reused, not copied again.
	copied := make(map[string]string)

	newRegistrantID, code, err := s.reparentContact(ctx, d, d.RegistrantID, gaining, copied, now)
	if err != nil {
		return nil, err
	}
	outcome.oldRegistrantCode = code
	d.RegistrantID = newRegistrantID

	for i, id := range d.AdminContactIDs {
		newID, code, err := s.reparentContact(ctx, d, id, gaining, copied, now)
		if err != nil {
			return nil, err
		}
		outcome.oldContactCodes = append(outcome.oldContactCodes, code)
		d.AdminContactIDs[i] = newID
	}
	for i, id := range d.TechContactIDs {
		newID, code, err := s.reparentContact(ctx, d, id, gaining, copied, now)
		if err != nil {
			return nil, err
		}
		outcome.oldContactCodes = append(outcome.oldContactCodes, code)
		d.TechContactIDs[i] = newID
	}

	authInfo, err := newAuthInfo()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	d.AuthInfo = authInfo
	d.RegistrarID = gaining.ID
	d.UpdatedAt = now

	record.Status = status
	record.TransferredAt = &now

	if err := s.domains.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("persist transferred domain: %w", err)
	}
	return outcome, nil
}

// reparentContact brings one contact under the gaining registrar and returns
// the id the domain should reference afterwards, plus the contact's
// pre-transfer code. A contact still referenced by another domain is copied
// so the other domains keep the original; an exclusively referenced contact
// is moved in place with a regenerated code.
func (s *TransferService) reparentContact(ctx context.Context, d *domain.Domain, contactID string, gaining *domain.Registrar, copied map[string]string, now time.Time) (string, string, error) {
	c, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return "", "", fmt.Errorf("resolve contact %q: %w", contactID, err)
	}
	if c.RegistrarID == gaining.ID {
		return c.ID, c.Code, nil
	}
	if cloneID, ok := copied[c.ID]; ok {
		return cloneID, c.Code, nil
	}

	refs, err := s.contacts.ReferenceCount(ctx, c.ID, d.ID)
	if err != nil {
		return "", "", fmt.Errorf("count references for contact %q: %w", c.Code, err)
	}

	freshCode, err := newContactCode(gaining.Code)
	if err != nil {
		return "", "", apperrors.Internal(err)
	}

	if refs > 0 {
		clone := &domain.Contact{
			ID:          uuid.New().String(),
			Code:        freshCode,
			RegistrarID: gaining.ID,
			Name:        c.Name,
			Email:       c.Email,
			Phone:       c.Phone,
			Ident:       c.Ident,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.contacts.Create(ctx, clone); err != nil {
			return "", "", fmt.Errorf("copy contact %q: %w", c.Code, err)
		}
		copied[c.ID] = clone.ID
		return clone.ID, c.Code, nil
	}

	oldCode := c.Code
	c.RegistrarID = gaining.ID
	c.Code = freshCode
	if err := s.contacts.Update(ctx, c); err != nil {
		return "", "", fmt.Errorf("move contact %q: %w", oldCode, err)
	}
	return c.ID, oldCode, nil
}

// PollMessage returns the oldest unacknowledged message in the registrar's
// inbox.
func (s *TransferService) PollMessage(ctx context.Context, registrarID string) (*repository.Message, error) {
	msg, err := s.messages.Peek(ctx, registrarID)
	if err != nil {
		return nil, fmt.Errorf("poll registrar messages: %w", err)
	}
	return msg, nil
}

// AckMessage acknowledges the given message and removes it from the inbox.
func (s *TransferService) AckMessage(ctx context.Context, registrarID, messageID string) error {
	if err := s.messages.Ack(ctx, registrarID, messageID); err != nil {
		return fmt.Errorf("ack registrar message: %w", err)
	}
	return nil
}

func (s *TransferService) notifyCompleted(ctx context.Context, d *domain.Domain, record *domain.TransferRecord, outcome *transferOutcome) {
	body := fmt.Sprintf("transfer of %s to registrar %s completed", d.Name, record.TransferTo)
	s.notify(ctx, outcome.oldRegistrarID, body, map[string]any{
		"transfer":          record,
		"old_registrant":    outcome.oldRegistrantCode,
		"old_contact_codes": outcome.oldContactCodes,
	})
	s.publishTransfer(ctx, event.TopicTransferCompleted, d.Name, record, outcome)

	s.logger.InfoContext(ctx, "transfer completed",
		slog.String("name", d.Name),
		slog.String("transfer_from", record.TransferFrom),
		slog.String("transfer_to", record.TransferTo),
		slog.String("status", record.Status),
	)
}

// notify queues a poll message for the registrar. Fire and forget: a failed
// enqueue is logged, the transfer state already committed.
func (s *TransferService) notify(ctx context.Context, registrarID, body string, attached any) {
	msg := repository.Message{
		ID:       uuid.New().String(),
		Body:     body,
		Attached: attached,
		QueuedAt: time.Now().UTC(),
	}
	if err := s.messages.Enqueue(ctx, registrarID, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to queue registrar message",
			slog.String("registrar_id", registrarID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TransferService) publishTransfer(ctx context.Context, topic, name string, record *domain.TransferRecord, outcome *transferOutcome) {
	data := event.TransferEventData{
		Name:         name,
		TransferFrom: record.TransferFrom,
		TransferTo:   record.TransferTo,
		Status:       record.Status,
	}
	if outcome != nil {
		data.OldContactCodes = outcome.oldContactCodes
		data.OldRegistrant = outcome.oldRegistrantCode
	}
	if err := s.producer.PublishTransferEvent(ctx, topic, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish transfer event",
			slog.String("topic", topic),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}
