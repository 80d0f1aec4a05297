package repository

import (
	"context"
	"time"

	"github.com/utafrali/RegistryGo/internal/domain"
)

// DomainFilter defines filter criteria for listing domains.
type DomainFilter struct {
	RegistrarID *string
	Status      *string
	Page        int
	PerPage     int
}

// DomainRepository defines persistence operations for domain objects.
type DomainRepository interface {
	// Create inserts a new domain with its contact associations atomically.
	Create(ctx context.Context, d *domain.Domain) error

	// GetByName retrieves a domain by its ASCII (punycode) name.
	GetByName(ctx context.Context, namePuny string) (*domain.Domain, error)

	// List returns domains matching the given filter along with the total count.
	List(ctx context.Context, filter DomainFilter) ([]domain.Domain, int, error)

	// Update persists all mutable domain fields and the contact associations.
	Update(ctx context.Context, d *domain.Domain) error

	// Destroy permanently removes the domain, its contact associations and
	// its transfer history.
	Destroy(ctx context.Context, id string) error

	// ExistsByName reports whether a domain with the given ASCII name exists.
	ExistsByName(ctx context.Context, namePuny string) (bool, error)

	// DueForExpiry returns domains whose validity lapsed and which still
	// lack the expired status.
	DueForExpiry(ctx context.Context, now time.Time) ([]domain.Domain, error)

	// DueForOutzone returns domains past their outzone date.
	DueForOutzone(ctx context.Context, now time.Time) ([]domain.Domain, error)

	// DueForDeleteCandidate returns domains past their delete date.
	DueForDeleteCandidate(ctx context.Context, now time.Time) ([]domain.Domain, error)

	// DestroyCandidates returns domains carrying deleteCandidate plus those
	// whose force-delete date has passed.
	DestroyCandidates(ctx context.Context, now time.Time) ([]domain.Domain, error)

	// OverduePendings returns domains whose verification was asked before
	// the cutoff and never confirmed.
	OverduePendings(ctx context.Context, cutoff time.Time) ([]domain.Domain, error)
}

// ContactRepository defines persistence operations for contacts and their
// associations to domains.
type ContactRepository interface {
	// Create inserts a new contact.
	Create(ctx context.Context, c *domain.Contact) error

	// GetByID retrieves a contact by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Contact, error)

	// GetByCode retrieves a contact by its public identifier code.
	GetByCode(ctx context.Context, code string) (*domain.Contact, error)

	// Update persists the contact's mutable fields, including registrar and code.
	Update(ctx context.Context, c *domain.Contact) error

	// ReferenceCount counts how many domains reference the contact as
	// registrant, admin or tech, excluding the given domain.
	ReferenceCount(ctx context.Context, contactID, excludingDomainID string) (int, error)
}

// RegistrarRepository resolves sponsoring registrars.
type RegistrarRepository interface {
	// GetByID retrieves a registrar by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Registrar, error)

	// GetByCode retrieves a registrar by its public code.
	GetByCode(ctx context.Context, code string) (*domain.Registrar, error)

	// GetByToken resolves an API bearer token to the registrar it identifies.
	GetByToken(ctx context.Context, token string) (*domain.Registrar, error)
}

// TransferRepository defines persistence operations for transfer records.
type TransferRepository interface {
	// Create inserts a new transfer record. The one-pending-per-domain
	// invariant is enforced by a partial unique index.
	Create(ctx context.Context, t *domain.TransferRecord) error

	// Latest returns the most recent transfer record for the domain, or
	// a not-found error if none exists.
	Latest(ctx context.Context, domainID string) (*domain.TransferRecord, error)

	// Pending returns the active pending transfer for the domain, or a
	// not-found error if none exists.
	Pending(ctx context.Context, domainID string) (*domain.TransferRecord, error)

	// Update persists a state change on an existing record.
	Update(ctx context.Context, t *domain.TransferRecord) error
}

// Message is a poll-style notice queued for a registrar.
type Message struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Attached  any       `json:"attached,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}

// MessageQueue is the registrar poll-message inbox.
type MessageQueue interface {
	// Enqueue appends a message to the registrar's inbox.
	Enqueue(ctx context.Context, registrarID string, msg Message) error

	// Peek returns the oldest queued message without removing it.
	Peek(ctx context.Context, registrarID string) (*Message, error)

	// Ack removes the message with the given id if it is the oldest.
	Ack(ctx context.Context, registrarID, messageID string) error
}
