package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// PostgresTenantsRepository TenantsRepository over clinicas_central
type PostgresTenantsRepository struct {
	db *sql.DB
}

func NewPostgresTenantsRepository(db *sql.DB) *PostgresTenantsRepository {
	return &PostgresTenantsRepository{db: db}
}

var _ TenantsRepository = (*PostgresTenantsRepository)(nil)

const tenantColumns = `
			clinic_id::text,
			name,
			subdomain,
			COALESCE(email, '') AS email,
			COALESCE(phone, '') AS phone,
			COALESCE(address, '') AS address,
			COALESCE(photo_url, '') AS photo_url,
			COALESCE(storage_backend, '') AS storage_backend,
			COALESCE(status, 'active') AS status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID,
		&t.DisplayName,
		&t.Subdomain,
		&t.ContactEmail,
		&t.Phone,
		&t.Address,
		&t.PhotoURL,
		&t.StorageBackendName,
		&t.Status,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresTenantsRepository) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		// not a uuid: it cannot match, and the ::uuid cast would fail server-side
		return nil, fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
	}

	query := `SELECT` + tenantColumns + `
		FROM clinicas_central
		WHERE clinic_id = $1::uuid`

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

func (r *PostgresTenantsRepository) GetTenantBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	if subdomain == "" {
		return nil, fmt.Errorf("subdomain is required")
	}

	query := `SELECT` + tenantColumns + `
		FROM clinicas_central
		WHERE subdomain = $1`

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, strings.ToLower(subdomain)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get tenant by subdomain: %w", err)
	}
	return t, nil
}

func (r *PostgresTenantsRepository) ListTenants(ctx context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	page, size = normalizePage(page, size)
	offset := (page - 1) * size

	where := []string{}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM clinicas_central %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s
		FROM clinicas_central
		%s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d`, tenantColumns, whereClause, argIdx, argIdx+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	out := []*domain.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate tenants: %w", err)
	}
	return out, total, nil
}

func (r *PostgresTenantsRepository) CreateTenant(ctx context.Context, tenant *domain.Tenant) (string, error) {
	if tenant == nil || tenant.DisplayName == "" || tenant.Subdomain == "" {
		return "", fmt.Errorf("name and subdomain are required")
	}
	id := tenant.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := tenant.Status
	if status == "" {
		status = domain.TenantStatusActive
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clinicas_central
			(clinic_id, name, subdomain, email, phone, address, photo_url, storage_backend, status)
		 VALUES ($1::uuid, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)`,
		id,
		tenant.DisplayName,
		strings.ToLower(tenant.Subdomain),
		tenant.ContactEmail,
		tenant.Phone,
		tenant.Address,
		tenant.PhotoURL,
		tenant.StorageBackendName,
		status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %q", ErrSubdomainTaken, tenant.Subdomain)
		}
		return "", fmt.Errorf("failed to create tenant: %w", err)
	}
	return id, nil
}

func (r *PostgresTenantsRepository) UpdateTenant(ctx context.Context, tenantID string, tenant *domain.Tenant) error {
	if tenantID == "" {
		return fmt.Errorf("clinic_id is required")
	}
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		return fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
	}

	// only non-empty fields are written
	updates := []string{}
	args := []any{tenantID}
	argIdx := 2
	set := func(column, value string) {
		if value == "" {
			return
		}
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	set("name", tenant.DisplayName)
	set("subdomain", strings.ToLower(tenant.Subdomain))
	set("email", tenant.ContactEmail)
	set("phone", tenant.Phone)
	set("address", tenant.Address)
	set("photo_url", tenant.PhotoURL)
	set("storage_backend", tenant.StorageBackendName)

	if len(updates) == 0 {
		return ErrNoFieldsToUpdate
	}

	query := fmt.Sprintf(`
		UPDATE clinicas_central
		SET %s
		WHERE clinic_id = $1::uuid
	`, strings.Join(updates, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrSubdomainTaken, tenant.Subdomain)
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return requireOneRow(res, "tenant")
}

func (r *PostgresTenantsRepository) SetTenantStatus(ctx context.Context, tenantID string, status string) error {
	switch status {
	case domain.TenantStatusActive, domain.TenantStatusSuspended, domain.TenantStatusDeleted:
	default:
		return fmt.Errorf("invalid tenant status %q", status)
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		return fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE clinicas_central SET status = $2 WHERE clinic_id = $1::uuid`,
		tenantID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to set tenant status: %w", err)
	}
	return requireOneRow(res, "tenant")
}

// isUniqueViolation reports a unique_violation (23505), i.e. a taken subdomain.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func requireOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, sql.ErrNoRows)
	}
	return nil
}
