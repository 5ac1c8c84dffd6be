package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// PostgresBackendsRepository BackendsRepository over tenant_backends
type PostgresBackendsRepository struct {
	db *sql.DB
}

func NewPostgresBackendsRepository(db *sql.DB) *PostgresBackendsRepository {
	return &PostgresBackendsRepository{db: db}
}

var _ BackendsRepository = (*PostgresBackendsRepository)(nil)

func (r *PostgresBackendsRepository) GetBackend(ctx context.Context, subdomain string) (*domain.Connection, error) {
	var c domain.Connection
	err := r.db.QueryRowContext(ctx,
		`SELECT endpoint, credential, COALESCE(backend_name, '')
		 FROM tenant_backends
		 WHERE subdomain = $1`,
		strings.ToLower(subdomain),
	).Scan(&c.Endpoint, &c.Credential, &c.BackendName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("backend not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get backend: %w", err)
	}
	return &c, nil
}

func (r *PostgresBackendsRepository) ListBackends(ctx context.Context) (map[string]domain.Connection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subdomain, endpoint, credential, COALESCE(backend_name, '')
		 FROM tenant_backends
		 ORDER BY subdomain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list backends: %w", err)
	}
	defer rows.Close()

	out := map[string]domain.Connection{}
	for rows.Next() {
		var sub string
		var c domain.Connection
		if err := rows.Scan(&sub, &c.Endpoint, &c.Credential, &c.BackendName); err != nil {
			return nil, fmt.Errorf("failed to scan backend: %w", err)
		}
		out[sub] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate backends: %w", err)
	}
	return out, nil
}

func (r *PostgresBackendsRepository) UpsertBackend(ctx context.Context, subdomain string, conn domain.Connection) error {
	if subdomain == "" || !conn.Valid() {
		return fmt.Errorf("subdomain, endpoint and credential are required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenant_backends (subdomain, endpoint, credential, backend_name)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 ON CONFLICT (subdomain)
		 DO UPDATE SET endpoint = EXCLUDED.endpoint,
		               credential = EXCLUDED.credential,
		               backend_name = EXCLUDED.backend_name`,
		strings.ToLower(subdomain), conn.Endpoint, conn.Credential, conn.BackendName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert backend: %w", err)
	}
	return nil
}

func (r *PostgresBackendsRepository) DeleteBackend(ctx context.Context, subdomain string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tenant_backends WHERE subdomain = $1`,
		strings.ToLower(subdomain),
	)
	if err != nil {
		return fmt.Errorf("failed to delete backend: %w", err)
	}
	return nil
}
