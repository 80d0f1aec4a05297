package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

const contactColumns = `id, code, registrar_id, name, email, phone, ident, created_at, updated_at`

// ContactRepository implements repository.ContactRepository using PostgreSQL.
type ContactRepository struct {
	pool database.DBTX
}

// NewContactRepository creates a new PostgreSQL-backed contact repository.
func NewContactRepository(pool database.DBTX) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// Create inserts a new contact.
func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	q := database.QuerierFrom(ctx, r.pool)

	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := q.Exec(ctx, query,
		c.ID, c.Code, c.RegistrarID, c.Name, c.Email, c.Phone, c.Ident, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return apperrors.AlreadyExists("contact", "code", c.Code)
		}
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// GetByID retrieves a contact by its unique identifier.
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	return r.getBy(ctx, "id", id)
}

// GetByCode retrieves a contact by its public identifier code.
func (r *ContactRepository) GetByCode(ctx context.Context, code string) (*domain.Contact, error) {
	return r.getBy(ctx, "code", code)
}

func (r *ContactRepository) getBy(ctx context.Context, column, value string) (*domain.Contact, error) {
	q := database.QuerierFrom(ctx, r.pool)

	var c domain.Contact
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE ` + column + ` = $1`
	err := q.QueryRow(ctx, query, value).Scan(
		&c.ID, &c.Code, &c.RegistrarID, &c.Name, &c.Email, &c.Phone, &c.Ident, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("contact", value)
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	return &c, nil
}

// Update persists the contact's mutable fields, including registrar and code.
func (r *ContactRepository) Update(ctx context.Context, c *domain.Contact) error {
	q := database.QuerierFrom(ctx, r.pool)

	c.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE contacts
		SET code = $2, registrar_id = $3, name = $4, email = $5, phone = $6, ident = $7, updated_at = $8
		WHERE id = $1`

	ct, err := q.Exec(ctx, query, c.ID, c.Code, c.RegistrarID, c.Name, c.Email, c.Phone, c.Ident, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("contact", c.ID)
	}
	return nil
}

// ReferenceCount counts how many domains reference the contact as registrant,
// admin or tech, excluding the given domain. The copy-vs-move decision during
// transfers is driven by this count.
func (r *ContactRepository) ReferenceCount(ctx context.Context, contactID, excludingDomainID string) (int, error) {
	q := database.QuerierFrom(ctx, r.pool)

	query := `
		SELECT count(*) FROM (
			SELECT domain_id FROM domain_contacts WHERE contact_id = $1 AND domain_id <> $2
			UNION
			SELECT id FROM domains WHERE registrant_id = $1 AND id <> $2
		) refs`

	var count int
	if err := q.QueryRow(ctx, query, contactID, excludingDomainID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count contact references: %w", err)
	}
	return count, nil
}
