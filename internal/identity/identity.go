// Package identity keeps the "current tenant" of one session in the
// session key space. All writes go out as a single multi-key update.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/store"
)

// Key suffixes under session:{sid}:
const (
	KeyRecord         = "tenant"          // canonical JSON record
	KeyTenantID       = "tenant_id"       // alias
	KeyClinicID       = "clinica_id"      // legacy alias
	KeySubdomain      = "subdomain"       //
	KeyDisplayName    = "clinica_nome"    //
	KeyStorageBackend = "storage_backend" //
)

var aliasKeys = []string{KeyTenantID, KeyClinicID}

// Profile the tenant tuple recorded for a session.
type Profile struct {
	TenantID           string `json:"tenant_id"`
	Subdomain          string `json:"subdomain,omitempty"`
	DisplayName        string `json:"display_name,omitempty"`
	StorageBackendName string `json:"storage_backend,omitempty"`
}

// ProfileFromTenant copies the identifying fields of t.
func ProfileFromTenant(t *domain.Tenant) Profile {
	return Profile{
		TenantID:           t.ID,
		Subdomain:          t.Subdomain,
		DisplayName:        t.DisplayName,
		StorageBackendName: t.StorageBackendName,
	}
}

// Store is the tenant identity of one session.
type Store struct {
	kv        store.KV
	sessionID string
	ttl       time.Duration
}

// New binds kv to sessionID. ttl 0 keeps keys until cleared.
func New(kv store.KV, sessionID string, ttl time.Duration) *Store {
	return &Store{kv: kv, sessionID: sessionID, ttl: ttl}
}

// SessionID the session this store is bound to.
func (s *Store) SessionID() string { return s.sessionID }

func (s *Store) key(suffix string) string {
	return "session:" + s.sessionID + ":" + suffix
}

// SetTenant records id under the canonical record and every alias key.
// Descriptive fields survive only if they already belonged to id.
func (s *Store) SetTenant(ctx context.Context, id string) error {
	p := Profile{TenantID: id}
	if cur, ok, err := s.Profile(ctx); err != nil {
		return err
	} else if ok && cur.TenantID == id {
		p = cur
	}
	return s.SetProfile(ctx, p)
}

// SetProfile writes the complete tuple in one update.
func (s *Store) SetProfile(ctx context.Context, p Profile) error {
	if p.TenantID == "" {
		return fmt.Errorf("set tenant profile: %w", domain.ErrTenantNotResolved)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant profile: %w", err)
	}
	values := map[string]string{
		s.key(KeyRecord):         string(raw),
		s.key(KeySubdomain):      p.Subdomain,
		s.key(KeyDisplayName):    p.DisplayName,
		s.key(KeyStorageBackend): p.StorageBackendName,
	}
	for _, alias := range aliasKeys {
		values[s.key(alias)] = p.TenantID
	}
	if err := s.kv.SetMulti(ctx, values, s.ttl); err != nil {
		return fmt.Errorf("failed to write tenant identity: %w", err)
	}
	return nil
}

// TenantID returns the recorded tenant id. ok is false when nothing has
// been recorded; err is only set on store failures.
func (s *Store) TenantID(ctx context.Context) (id string, ok bool, err error) {
	p, ok, err := s.Profile(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	return p.TenantID, true, nil
}

// RequireTenantID is TenantID for callers that cannot continue without one.
func (s *Store) RequireTenantID(ctx context.Context) (string, error) {
	id, ok, err := s.TenantID(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrTenantNotResolved
	}
	return id, nil
}

// Profile reads the canonical record, falling back to the flat keys
// written by older sessions.
func (s *Store) Profile(ctx context.Context) (Profile, bool, error) {
	raw, err := s.get(ctx, KeyRecord)
	if err != nil {
		return Profile{}, false, err
	}
	if raw != "" {
		var p Profile
		if err := json.Unmarshal([]byte(raw), &p); err == nil && p.TenantID != "" {
			return p, true, nil
		}
	}

	var id string
	for _, alias := range aliasKeys {
		if id, err = s.get(ctx, alias); err != nil {
			return Profile{}, false, err
		}
		if id != "" {
			break
		}
	}
	if id == "" {
		return Profile{}, false, nil
	}

	p := Profile{TenantID: id}
	if p.Subdomain, err = s.get(ctx, KeySubdomain); err != nil {
		return Profile{}, false, err
	}
	if p.DisplayName, err = s.get(ctx, KeyDisplayName); err != nil {
		return Profile{}, false, err
	}
	if p.StorageBackendName, err = s.get(ctx, KeyStorageBackend); err != nil {
		return Profile{}, false, err
	}
	return p, true, nil
}

// ClearTenant removes every identity key. Safe to call repeatedly.
func (s *Store) ClearTenant(ctx context.Context) error {
	keys := []string{
		s.key(KeyRecord),
		s.key(KeySubdomain),
		s.key(KeyDisplayName),
		s.key(KeyStorageBackend),
	}
	for _, alias := range aliasKeys {
		keys = append(keys, s.key(alias))
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear tenant identity: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, suffix string) (string, error) {
	v, err := s.kv.Get(ctx, s.key(suffix))
	if errors.Is(err, store.ErrMiss) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", suffix, err)
	}
	return v, nil
}
