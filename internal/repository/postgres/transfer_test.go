package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

func newTransferTestRepo(t *testing.T) (*TransferRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewTransferRepository(mock), mock
}

func sampleTransfer() *domain.TransferRecord {
	return &domain.TransferRecord{
		ID:           "t-001",
		DomainID:     "d-001",
		Status:       domain.TransferPending,
		TransferFrom: "r-001",
		TransferTo:   "r-002",
		RequestedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestTransferRepository_Create_Success(t *testing.T) {
	repo, mock := newTransferTestRepo(t)

	tr := sampleTransfer()
	mock.ExpectExec("INSERT INTO domain_transfers").
		WithArgs(tr.ID, tr.DomainID, tr.Status, tr.TransferFrom, tr.TransferTo, tr.RequestedAt, tr.TransferredAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), tr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_Create_DuplicatePending(t *testing.T) {
	repo, mock := newTransferTestRepo(t)

	tr := sampleTransfer()
	mock.ExpectExec("INSERT INTO domain_transfers").
		WithArgs(tr.ID, tr.DomainID, tr.Status, tr.TransferFrom, tr.TransferTo, tr.RequestedAt, tr.TransferredAt).
		WillReturnError(errors.New(`duplicate key value violates unique constraint "domain_transfers_one_pending"`))

	err := repo.Create(context.Background(), tr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_Pending_NotFound(t *testing.T) {
	repo, mock := newTransferTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM domain_transfers").
		WithArgs("d-001").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Pending(context.Background(), "d-001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_Latest_Success(t *testing.T) {
	repo, mock := newTransferTestRepo(t)

	tr := sampleTransfer()
	mock.ExpectQuery("SELECT (.+) FROM domain_transfers").
		WithArgs(tr.DomainID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "domain_id", "status", "transfer_from", "transfer_to", "requested_at", "transferred_at",
		}).AddRow(tr.ID, tr.DomainID, tr.Status, tr.TransferFrom, tr.TransferTo, tr.RequestedAt, tr.TransferredAt))

	got, err := repo.Latest(context.Background(), tr.DomainID)
	require.NoError(t, err)
	assert.Equal(t, tr.Status, got.Status)
	assert.False(t, got.Terminal())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepository_Update_Success(t *testing.T) {
	repo, mock := newTransferTestRepo(t)

	tr := sampleTransfer()
	transferredAt := time.Now().UTC()
	tr.Status = domain.TransferClientApproved
	tr.TransferredAt = &transferredAt

	mock.ExpectExec("UPDATE domain_transfers").
		WithArgs(tr.ID, tr.Status, tr.TransferredAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), tr))
	require.NoError(t, mock.ExpectationsWereMet())
}
