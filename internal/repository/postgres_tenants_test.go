package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

const testClinicID = "6f1c3a52-8d7e-4b8a-9c55-2f0f6e4b1a01"

var tenantRowColumns = []string{
	"clinic_id", "name", "subdomain", "email", "phone", "address", "photo_url", "storage_backend", "status",
}

func setupMockTenantsRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresTenantsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresTenantsRepository(db)
}

func TestPostgresTenants_GetTenant_Success(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(tenantRowColumns).
		AddRow(testClinicID, "Clinica Um", "clinica-1", "contato@clinica1.com", "", "", "", "clinica1-db", "active")
	mock.ExpectQuery(`SELECT .* FROM clinicas_central\s+WHERE clinic_id = \$1::uuid`).
		WithArgs(testClinicID).
		WillReturnRows(rows)

	tenant, err := repo.GetTenant(context.Background(), testClinicID)
	require.NoError(t, err)
	assert.Equal(t, "Clinica Um", tenant.DisplayName)
	assert.Equal(t, "clinica-1", tenant.Subdomain)
	assert.Equal(t, "clinica1-db", tenant.StorageBackendName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTenants_GetTenant_NotFound(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM clinicas_central`).
		WithArgs(testClinicID).
		WillReturnRows(sqlmock.NewRows(tenantRowColumns))

	_, err := repo.GetTenant(context.Background(), testClinicID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTenants_GetTenant_NonUUIDNeverQueries(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	_, err := repo.GetTenant(context.Background(), "does-not-exist")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTenants_GetTenant_TransportError(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM clinicas_central`).
		WithArgs(testClinicID).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.GetTenant(context.Background(), testClinicID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, sql.ErrNoRows))
	assert.True(t, errors.Is(err, sql.ErrConnDone))
}

func TestPostgresTenants_GetTenantBySubdomain_Lowercases(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(tenantRowColumns).
		AddRow(testClinicID, "Clinica Um", "clinica-1", "", "", "", "", "", "active")
	mock.ExpectQuery(`WHERE subdomain = \$1`).
		WithArgs("clinica-1").
		WillReturnRows(rows)

	tenant, err := repo.GetTenantBySubdomain(context.Background(), "Clinica-1")
	require.NoError(t, err)
	assert.Equal(t, testClinicID, tenant.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTenants_ListTenants(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM clinicas_central WHERE status = \$1 AND name ILIKE \$2`).
		WithArgs("active", "%um%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY name ASC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("active", "%um%", 10, 10).
		WillReturnRows(sqlmock.NewRows(tenantRowColumns).
			AddRow(testClinicID, "Clinica Um", "clinica-1", "", "", "", "", "", "active"))

	items, total, err := repo.ListTenants(context.Background(), TenantFilters{Status: "active", Search: "um"}, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "clinica-1", items[0].Subdomain)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTenants_CreateTenant(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO clinicas_central`).
		WithArgs(testClinicID, "Clinica Um", "clinica-1", "", "", "", "", "", "active").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.CreateTenant(context.Background(), &domain.Tenant{
		ID: testClinicID, DisplayName: "Clinica Um", Subdomain: "CLINICA-1",
	})
	require.NoError(t, err)
	assert.Equal(t, testClinicID, id)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.CreateTenant(context.Background(), &domain.Tenant{DisplayName: "no subdomain"})
	assert.Error(t, err)
}

func TestPostgresTenants_SetTenantStatus(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE clinicas_central SET status = \$2`).
		WithArgs(testClinicID, "suspended").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetTenantStatus(context.Background(), testClinicID, "suspended"))

	mock.ExpectExec(`UPDATE clinicas_central SET status = \$2`).
		WithArgs(testClinicID, "deleted").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.SetTenantStatus(context.Background(), testClinicID, "deleted")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	assert.Error(t, repo.SetTenantStatus(context.Background(), testClinicID, "archived"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTenants_UpdateTenant_OnlyNonEmptyFields(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE clinicas_central\s+SET name = \$2\s+WHERE clinic_id = \$1::uuid`).
		WithArgs(testClinicID, "Renamed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateTenant(context.Background(), testClinicID, &domain.Tenant{DisplayName: "Renamed"}))

	mock.ExpectExec(`UPDATE clinicas_central\s+SET subdomain = \$2, phone = \$3\s+WHERE`).
		WithArgs(testClinicID, "clinica-2", "555-0101").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateTenant(context.Background(), testClinicID,
		&domain.Tenant{Subdomain: "Clinica-2", Phone: "555-0101"}))

	err := repo.UpdateTenant(context.Background(), testClinicID, &domain.Tenant{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTenants_UpdateTenant_SubdomainTaken(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE clinicas_central`).
		WithArgs(testClinicID, "clinica-1").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	err := repo.UpdateTenant(context.Background(), testClinicID, &domain.Tenant{Subdomain: "clinica-1"})
	assert.ErrorIs(t, err, ErrSubdomainTaken)

	mock.ExpectExec(`INSERT INTO clinicas_central`).
		WillReturnError(&pq.Error{Code: "23505"})
	_, err = repo.CreateTenant(context.Background(), &domain.Tenant{DisplayName: "Dup", Subdomain: "clinica-1"})
	assert.ErrorIs(t, err, ErrSubdomainTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTenants_NonUUIDWritesNeverQuery(t *testing.T) {
	db, mock, repo := setupMockTenantsRepo(t)
	defer db.Close()

	err := repo.UpdateTenant(context.Background(), "not-a-uuid", &domain.Tenant{DisplayName: "x"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	err = repo.SetTenantStatus(context.Background(), "not-a-uuid", domain.TenantStatusSuspended)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
