package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

const transferColumns = `id, domain_id, status, transfer_from, transfer_to, requested_at, transferred_at`

// TransferRepository implements repository.TransferRepository using PostgreSQL.
type TransferRepository struct {
	pool database.DBTX
}

// NewTransferRepository creates a new PostgreSQL-backed transfer repository.
func NewTransferRepository(pool database.DBTX) *TransferRepository {
	return &TransferRepository{pool: pool}
}

// Create inserts a new transfer record. A partial unique index on pending
// records enforces at most one pending transfer per domain.
func (r *TransferRepository) Create(ctx context.Context, t *domain.TransferRecord) error {
	q := database.QuerierFrom(ctx, r.pool)

	query := `
		INSERT INTO domain_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := q.Exec(ctx, query,
		t.ID, t.DomainID, t.Status, t.TransferFrom, t.TransferTo, t.RequestedAt, t.TransferredAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return apperrors.Conflict("a pending transfer already exists for this domain")
		}
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

// Latest returns the most recent transfer record for the domain.
func (r *TransferRepository) Latest(ctx context.Context, domainID string) (*domain.TransferRecord, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM domain_transfers WHERE domain_id = $1 ORDER BY requested_at DESC LIMIT 1`, domainID)
}

// Pending returns the active pending transfer for the domain.
func (r *TransferRepository) Pending(ctx context.Context, domainID string) (*domain.TransferRecord, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM domain_transfers WHERE domain_id = $1 AND status = 'pending'`, domainID)
}

func (r *TransferRepository) getOne(ctx context.Context, query, domainID string) (*domain.TransferRecord, error) {
	q := database.QuerierFrom(ctx, r.pool)

	var t domain.TransferRecord
	err := q.QueryRow(ctx, query, domainID).Scan(
		&t.ID, &t.DomainID, &t.Status, &t.TransferFrom, &t.TransferTo, &t.RequestedAt, &t.TransferredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("transfer", domainID)
		}
		return nil, fmt.Errorf("scan transfer record: %w", err)
	}
	return &t, nil
}

// Update persists a state change on an existing record.
func (r *TransferRepository) Update(ctx context.Context, t *domain.TransferRecord) error {
	q := database.QuerierFrom(ctx, r.pool)

	query := `
		UPDATE domain_transfers
		SET status = $2, transferred_at = $3
		WHERE id = $1`

	ct, err := q.Exec(ctx, query, t.ID, t.Status, t.TransferredAt)
	if err != nil {
		return fmt.Errorf("update transfer record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("transfer", t.ID)
	}
	return nil
}
