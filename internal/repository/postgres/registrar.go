package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

const registrarColumns = `id, name, code, email, api_token, created_at`

// RegistrarRepository implements repository.RegistrarRepository using PostgreSQL.
type RegistrarRepository struct {
	pool database.DBTX
}

// NewRegistrarRepository creates a new PostgreSQL-backed registrar repository.
func NewRegistrarRepository(pool database.DBTX) *RegistrarRepository {
	return &RegistrarRepository{pool: pool}
}

// GetByID retrieves a registrar by its unique identifier.
func (r *RegistrarRepository) GetByID(ctx context.Context, id string) (*domain.Registrar, error) {
	return r.getBy(ctx, "id", id)
}

// GetByCode retrieves a registrar by its public code.
func (r *RegistrarRepository) GetByCode(ctx context.Context, code string) (*domain.Registrar, error) {
	return r.getBy(ctx, "code", code)
}

// GetByToken resolves an API bearer token to the registrar it identifies.
func (r *RegistrarRepository) GetByToken(ctx context.Context, token string) (*domain.Registrar, error) {
	return r.getBy(ctx, "api_token", token)
}

func (r *RegistrarRepository) getBy(ctx context.Context, column, value string) (*domain.Registrar, error) {
	q := database.QuerierFrom(ctx, r.pool)

	var reg domain.Registrar
	query := `SELECT ` + registrarColumns + ` FROM registrars WHERE ` + column + ` = $1`
	err := q.QueryRow(ctx, query, value).Scan(
		&reg.ID, &reg.Name, &reg.Code, &reg.Email, &reg.APIToken, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("registrar", column)
		}
		return nil, fmt.Errorf("scan registrar: %w", err)
	}
	return &reg, nil
}
