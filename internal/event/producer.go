package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/RegistryGo/internal/domain"
	pkgkafka "github.com/utafrali/RegistryGo/pkg/kafka"
)

// Kafka topic constants for domain lifecycle events. Each corresponds to a
// notice the registry owes somebody: the registrant, a registrar, or both.
const (
	TopicDomainRegistered        = "registry.domain.registered"
	TopicDomainRenewed           = "registry.domain.renewed"
	TopicDomainUpdated           = "registry.domain.updated"
	TopicDomainDeleted           = "registry.domain.deleted"
	TopicDomainExpired           = "registry.domain.expired"
	TopicPendingUpdateRequested  = "registry.domain.pending_update_requested"
	TopicPendingDeleteRequested  = "registry.domain.pending_delete_requested"
	TopicPendingConfirmed        = "registry.domain.pending_confirmed"
	TopicPendingExpired          = "registry.domain.pending_expired"
	TopicTransferRequested       = "registry.domain.transfer_requested"
	TopicTransferCompleted       = "registry.domain.transfer_completed"
	TopicTransferRejected        = "registry.domain.transfer_rejected"
	TopicForceDeleteSet          = "registry.domain.force_delete_set"
	TopicForceDeleteUnset        = "registry.domain.force_delete_unset"
)

// Aggregate type constant.
const AggregateTypeDomain = "domain"

// Source identifier for events originating from the registry service.
const SourceRegistry = "registry-service"

// Publisher is the transport the producer publishes through. Satisfied by
// pkg/kafka.Producer; tests use a stub.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// DomainEventData is the common payload for domain lifecycle events.
type DomainEventData struct {
	Name         string `json:"name"`
	RegistrarID  string `json:"registrar_id"`
	RegistrantID string `json:"registrant_id,omitempty"`
	ValidTo      string `json:"valid_to,omitempty"`
}

// PendingEventData is the payload for verification workflow events. The
// token is delivered to the registrant so they can confirm or decline.
type PendingEventData struct {
	Name            string `json:"name"`
	Operation       string `json:"operation"`
	Token           string `json:"token,omitempty"`
	RegistrantEmail string `json:"registrant_email,omitempty"`
	OldRegistrantID string `json:"old_registrant_id,omitempty"`
	NewRegistrantID string `json:"new_registrant_id,omitempty"`
}

// TransferEventData is the payload for transfer protocol events. Contact and
// registrant codes are captured before re-parenting so the losing registrar
// gets a usable audit trail.
type TransferEventData struct {
	Name            string   `json:"name"`
	TransferFrom    string   `json:"transfer_from"`
	TransferTo      string   `json:"transfer_to"`
	Status          string   `json:"status"`
	OldContactCodes []string `json:"old_contact_codes,omitempty"`
	OldRegistrant   string   `json:"old_registrant,omitempty"`
}

// Producer publishes domain lifecycle events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the registry service.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishDomainEvent publishes a lifecycle event for the given domain.
func (p *Producer) PublishDomainEvent(ctx context.Context, topic string, d *domain.Domain) error {
	data := DomainEventData{
		Name:         d.Name,
		RegistrarID:  d.RegistrarID,
		RegistrantID: d.RegistrantID,
		ValidTo:      d.ValidTo.Format("2006-01-02"),
	}
	return p.publish(ctx, topic, d.Name, data)
}

// PublishPendingEvent publishes a verification workflow event.
func (p *Producer) PublishPendingEvent(ctx context.Context, topic string, data PendingEventData) error {
	return p.publish(ctx, topic, data.Name, data)
}

// PublishTransferEvent publishes a transfer protocol event.
func (p *Producer) PublishTransferEvent(ctx context.Context, topic string, data TransferEventData) error {
	return p.publish(ctx, topic, data.Name, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeDomain, SourceRegistry, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("topic", topic),
		slog.String("domain", aggregateID),
	)
	return nil
}
