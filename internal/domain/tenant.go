package domain

// Tenant status values (clinicas_central.status)
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusDeleted   = "deleted"
)

// Tenant one clinic (row of clinicas_central)
type Tenant struct {
	ID                 string `db:"clinic_id"`       // UUID, PRIMARY KEY
	Subdomain          string `db:"subdomain"`       // VARCHAR(63), UNIQUE, NOT NULL
	DisplayName        string `db:"name"`            // VARCHAR(255), NOT NULL
	ContactEmail       string `db:"email"`           // VARCHAR(255), nullable
	Phone              string `db:"phone"`           // VARCHAR(50), nullable
	Address            string `db:"address"`         // TEXT, nullable
	PhotoURL           string `db:"photo_url"`       // TEXT, nullable
	StorageBackendName string `db:"storage_backend"` // VARCHAR(255), nullable
	Status             string `db:"status"`          // DEFAULT 'active'
}

// Active reports whether the tenant counts as existing for lookups.
func (t *Tenant) Active() bool {
	return t != nil && (t.Status == "" || t.Status == TenantStatusActive)
}
