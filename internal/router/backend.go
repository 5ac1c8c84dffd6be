package router

import (
	"context"
	"database/sql"
)

// Kind of backend a table was routed to.
type Kind string

const (
	KindCentral  Kind = "central"
	KindShared   Kind = "shared"
	KindIsolated Kind = "isolated"
)

// Backend a concrete data store handle. The same *Backend is handed out
// for every route to the same logical backend.
type Backend struct {
	name string
	kind Kind
	db   *sql.DB
}

func NewBackend(name string, kind Kind, db *sql.DB) *Backend {
	return &Backend{name: name, kind: kind, db: db}
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Kind() Kind   { return b.kind }
func (b *Backend) DB() *sql.DB  { return b.db }

// Ping checks connectivity; a backend without a handle (dev mode) is always up.
func (b *Backend) Ping(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	return b.db.PingContext(ctx)
}
