package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/repository"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

const domainColumns = `id, name, name_puny, registered_at, valid_from, valid_to, outzone_at, delete_at,
	force_delete_at, period, period_unit, statuses, status_notes, statuses_backup, auth_info,
	verification_token, verification_asked_at, pending_snapshot, registrar_id, registrant_id,
	nameservers, dns_keys, created_at, updated_at`

// DomainRepository implements repository.DomainRepository using PostgreSQL.
type DomainRepository struct {
	pool database.DBTX
}

// NewDomainRepository creates a new PostgreSQL-backed domain repository.
func NewDomainRepository(pool database.DBTX) *DomainRepository {
	return &DomainRepository{pool: pool}
}

// Create inserts a new domain and its contact associations.
func (r *DomainRepository) Create(ctx context.Context, d *domain.Domain) error {
	q := database.QuerierFrom(ctx, r.pool)

	statusesJSON, notesJSON, backupJSON, pendingJSON, nsJSON, keysJSON, err := marshalDomainJSON(d)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO domains (` + domainColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err = q.Exec(ctx, query,
		d.ID, d.Name, d.NamePuny, d.RegisteredAt, d.ValidFrom, d.ValidTo, d.OutzoneAt, d.DeleteAt,
		d.ForceDeleteAt, d.Period, d.PeriodUnit, statusesJSON, notesJSON, backupJSON, d.AuthInfo,
		d.VerificationToken, d.VerificationAskedAt, pendingJSON, d.RegistrarID, d.RegistrantID,
		nsJSON, keysJSON, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return apperrors.AlreadyExists("domain", "name", d.Name)
		}
		return fmt.Errorf("insert domain: %w", err)
	}

	return r.replaceContactAssociations(ctx, d)
}

// GetByName retrieves a domain by its ASCII name, including contact associations.
func (r *DomainRepository) GetByName(ctx context.Context, namePuny string) (*domain.Domain, error) {
	q := database.QuerierFrom(ctx, r.pool)

	query := `SELECT ` + domainColumns + ` FROM domains WHERE name_puny = $1`
	d, err := scanDomain(q.QueryRow(ctx, query, namePuny))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("domain", namePuny)
		}
		return nil, fmt.Errorf("scan domain: %w", err)
	}

	if err := r.loadContactAssociations(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns domains matching the filter along with the total count.
func (r *DomainRepository) List(ctx context.Context, filter repository.DomainFilter) ([]domain.Domain, int, error) {
	q := database.QuerierFrom(ctx, r.pool)

	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.RegistrarID != nil {
		conditions = append(conditions, fmt.Sprintf("registrar_id = $%d", argIndex))
		args = append(args, *filter.RegistrarID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("statuses @> to_jsonb(ARRAY[$%d::text])", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT `+domainColumns+`, count(*) OVER() AS total_count
		FROM domains
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var totalCount int
	domains := make([]domain.Domain, 0)
	for rows.Next() {
		d, err := scanDomainRow(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan domain row: %w", err)
		}
		domains = append(domains, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate domain rows: %w", err)
	}

	return domains, totalCount, nil
}

// Update persists all mutable domain fields and the contact associations.
func (r *DomainRepository) Update(ctx context.Context, d *domain.Domain) error {
	q := database.QuerierFrom(ctx, r.pool)

	statusesJSON, notesJSON, backupJSON, pendingJSON, nsJSON, keysJSON, err := marshalDomainJSON(d)
	if err != nil {
		return err
	}

	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE domains
		SET name = $2, name_puny = $3, valid_from = $4, valid_to = $5, outzone_at = $6, delete_at = $7,
			force_delete_at = $8, period = $9, period_unit = $10, statuses = $11, status_notes = $12,
			statuses_backup = $13, auth_info = $14, verification_token = $15, verification_asked_at = $16,
			pending_snapshot = $17, registrar_id = $18, registrant_id = $19, nameservers = $20,
			dns_keys = $21, updated_at = $22
		WHERE id = $1`

	ct, err := q.Exec(ctx, query,
		d.ID, d.Name, d.NamePuny, d.ValidFrom, d.ValidTo, d.OutzoneAt, d.DeleteAt,
		d.ForceDeleteAt, d.Period, d.PeriodUnit, statusesJSON, notesJSON,
		backupJSON, d.AuthInfo, d.VerificationToken, d.VerificationAskedAt,
		pendingJSON, d.RegistrarID, d.RegistrantID, nsJSON,
		keysJSON, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update domain: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("domain", d.ID)
	}

	return r.replaceContactAssociations(ctx, d)
}

// Destroy permanently removes the domain, its contact associations and its
// transfer history.
func (r *DomainRepository) Destroy(ctx context.Context, id string) error {
	q := database.QuerierFrom(ctx, r.pool)

	if _, err := q.Exec(ctx, `DELETE FROM domain_contacts WHERE domain_id = $1`, id); err != nil {
		return fmt.Errorf("delete domain contacts: %w", err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM domain_transfers WHERE domain_id = $1`, id); err != nil {
		return fmt.Errorf("delete domain transfers: %w", err)
	}

	ct, err := q.Exec(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("domain", id)
	}
	return nil
}

// ExistsByName reports whether a domain with the given ASCII name exists.
func (r *DomainRepository) ExistsByName(ctx context.Context, namePuny string) (bool, error) {
	q := database.QuerierFrom(ctx, r.pool)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM domains WHERE name_puny = $1)`, namePuny).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check domain existence: %w", err)
	}
	return exists, nil
}

// DueForExpiry returns domains whose validity lapsed and which still lack
// the expired status.
func (r *DomainRepository) DueForExpiry(ctx context.Context, now time.Time) ([]domain.Domain, error) {
	return r.queryDue(ctx, `valid_to <= $1 AND NOT statuses @> '["expired"]'::jsonb`, now)
}

// DueForOutzone returns domains past their outzone date.
func (r *DomainRepository) DueForOutzone(ctx context.Context, now time.Time) ([]domain.Domain, error) {
	return r.queryDue(ctx, `outzone_at <= $1 AND NOT statuses @> '["serverHold"]'::jsonb`, now)
}

// DueForDeleteCandidate returns domains past their delete date.
func (r *DomainRepository) DueForDeleteCandidate(ctx context.Context, now time.Time) ([]domain.Domain, error) {
	return r.queryDue(ctx, `delete_at <= $1 AND NOT statuses @> '["deleteCandidate"]'::jsonb`, now)
}

// DestroyCandidates returns domains carrying deleteCandidate plus those whose
// force-delete date has passed.
func (r *DomainRepository) DestroyCandidates(ctx context.Context, now time.Time) ([]domain.Domain, error) {
	return r.queryDue(ctx, `statuses @> '["deleteCandidate"]'::jsonb OR force_delete_at <= $1`, now)
}

// OverduePendings returns domains whose verification was asked before the cutoff.
func (r *DomainRepository) OverduePendings(ctx context.Context, cutoff time.Time) ([]domain.Domain, error) {
	return r.queryDue(ctx, `verification_asked_at IS NOT NULL AND verification_asked_at <= $1`, cutoff)
}

func (r *DomainRepository) queryDue(ctx context.Context, condition string, arg time.Time) ([]domain.Domain, error) {
	q := database.QuerierFrom(ctx, r.pool)

	query := `SELECT ` + domainColumns + ` FROM domains WHERE ` + condition + ` ORDER BY id`
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query due domains: %w", err)
	}
	defer rows.Close()

	domains := make([]domain.Domain, 0)
	for rows.Next() {
		d, err := scanDomainRow(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("scan due domain: %w", err)
		}
		domains = append(domains, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due domains: %w", err)
	}
	return domains, nil
}

// replaceContactAssociations rewrites the domain_contacts rows for the domain.
func (r *DomainRepository) replaceContactAssociations(ctx context.Context, d *domain.Domain) error {
	q := database.QuerierFrom(ctx, r.pool)

	if _, err := q.Exec(ctx, `DELETE FROM domain_contacts WHERE domain_id = $1`, d.ID); err != nil {
		return fmt.Errorf("clear domain contacts: %w", err)
	}

	insert := `INSERT INTO domain_contacts (domain_id, contact_id, type) VALUES ($1, $2, $3)`
	for _, contactID := range d.AdminContactIDs {
		if _, err := q.Exec(ctx, insert, d.ID, contactID, domain.ContactTypeAdmin); err != nil {
			return fmt.Errorf("insert admin contact: %w", err)
		}
	}
	for _, contactID := range d.TechContactIDs {
		if _, err := q.Exec(ctx, insert, d.ID, contactID, domain.ContactTypeTech); err != nil {
			return fmt.Errorf("insert tech contact: %w", err)
		}
	}
	return nil
}

// loadContactAssociations fills the admin/tech contact id slices.
func (r *DomainRepository) loadContactAssociations(ctx context.Context, d *domain.Domain) error {
	q := database.QuerierFrom(ctx, r.pool)

	rows, err := q.Query(ctx, `SELECT contact_id, type FROM domain_contacts WHERE domain_id = $1 ORDER BY contact_id`, d.ID)
	if err != nil {
		return fmt.Errorf("load domain contacts: %w", err)
	}
	defer rows.Close()

	d.AdminContactIDs = d.AdminContactIDs[:0]
	d.TechContactIDs = d.TechContactIDs[:0]
	for rows.Next() {
		var contactID, contactType string
		if err := rows.Scan(&contactID, &contactType); err != nil {
			return fmt.Errorf("scan domain contact: %w", err)
		}
		switch contactType {
		case domain.ContactTypeAdmin:
			d.AdminContactIDs = append(d.AdminContactIDs, contactID)
		case domain.ContactTypeTech:
			d.TechContactIDs = append(d.TechContactIDs, contactID)
		}
	}
	return rows.Err()
}

func marshalDomainJSON(d *domain.Domain) (statuses, notes, backup, pending, ns, keys []byte, err error) {
	if statuses, err = json.Marshal(d.Statuses); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal statuses: %w", err)
	}
	if notes, err = json.Marshal(d.StatusNotes); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal status notes: %w", err)
	}
	if backup, err = json.Marshal(d.StatusesBackup); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal statuses backup: %w", err)
	}
	if pending, err = json.Marshal(d.PendingSnapshot); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal pending snapshot: %w", err)
	}
	if ns, err = json.Marshal(d.Nameservers); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal nameservers: %w", err)
	}
	if keys, err = json.Marshal(d.DNSKeys); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal dns keys: %w", err)
	}
	return statuses, notes, backup, pending, ns, keys, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomain(row rowScanner) (*domain.Domain, error) {
	return scanDomainRow(row, nil)
}

func scanDomainRow(row rowScanner, totalCount *int) (*domain.Domain, error) {
	var (
		d           domain.Domain
		statusesJSON []byte
		notesJSON    []byte
		backupJSON   []byte
		pendingJSON  []byte
		nsJSON       []byte
		keysJSON     []byte
	)

	dest := []any{
		&d.ID, &d.Name, &d.NamePuny, &d.RegisteredAt, &d.ValidFrom, &d.ValidTo, &d.OutzoneAt, &d.DeleteAt,
		&d.ForceDeleteAt, &d.Period, &d.PeriodUnit, &statusesJSON, &notesJSON, &backupJSON, &d.AuthInfo,
		&d.VerificationToken, &d.VerificationAskedAt, &pendingJSON, &d.RegistrarID, &d.RegistrantID,
		&nsJSON, &keysJSON, &d.CreatedAt, &d.UpdatedAt,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if err := unmarshalInto(statusesJSON, &d.Statuses); err != nil {
		return nil, fmt.Errorf("unmarshal statuses: %w", err)
	}
	if err := unmarshalInto(notesJSON, &d.StatusNotes); err != nil {
		return nil, fmt.Errorf("unmarshal status notes: %w", err)
	}
	if err := unmarshalInto(backupJSON, &d.StatusesBackup); err != nil {
		return nil, fmt.Errorf("unmarshal statuses backup: %w", err)
	}
	if err := unmarshalInto(pendingJSON, &d.PendingSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal pending snapshot: %w", err)
	}
	if err := unmarshalInto(nsJSON, &d.Nameservers); err != nil {
		return nil, fmt.Errorf("unmarshal nameservers: %w", err)
	}
	if err := unmarshalInto(keysJSON, &d.DNSKeys); err != nil {
		return nil, fmt.Errorf("unmarshal dns keys: %w", err)
	}

	return &d, nil
}

func unmarshalInto(data []byte, target any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, target)
}
