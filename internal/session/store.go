package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/store"
)

// Store per-role login records of one session: session:{sid}:auth:{role}
type Store struct {
	kv        store.KV
	sessionID string
	ttl       time.Duration
	now       func() time.Time
}

func NewStore(kv store.KV, sessionID string, ttl time.Duration) *Store {
	return &Store{kv: kv, sessionID: sessionID, ttl: ttl, now: time.Now}
}

func (s *Store) key(role domain.Role) string {
	return "session:" + s.sessionID + ":auth:" + string(role)
}

// Login records a session for role in tenantID and returns it.
// The token is a random id, not a signed credential.
func (s *Store) Login(ctx context.Context, role domain.Role, tenantID, userID string) (domain.SessionRecord, error) {
	rec := domain.SessionRecord{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		Token:     uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}
	return rec, s.Record(ctx, rec)
}

// Record stores rec under its role.
func (s *Store) Record(ctx context.Context, rec domain.SessionRecord) error {
	if !rec.Role.Valid() {
		return fmt.Errorf("unknown role %q", rec.Role)
	}
	if rec.TenantID == "" {
		return fmt.Errorf("record session: %w", domain.ErrTenantNotResolved)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.kv.Set(ctx, s.key(rec.Role), string(raw), s.ttl); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// Get returns the record for role; ok is false when none is recorded.
func (s *Store) Get(ctx context.Context, role domain.Role) (domain.SessionRecord, bool, error) {
	raw, err := s.kv.Get(ctx, s.key(role))
	if errors.Is(err, store.ErrMiss) {
		return domain.SessionRecord{}, false, nil
	}
	if err != nil {
		return domain.SessionRecord{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.TenantID == "" {
		// unreadable records count as absent
		return domain.SessionRecord{}, false, nil
	}
	return rec, true, nil
}

// Purge removes the record for role.
func (s *Store) Purge(ctx context.Context, role domain.Role) error {
	return s.kv.Del(ctx, s.key(role))
}

// PurgeAll removes the records of every role.
func (s *Store) PurgeAll(ctx context.Context) error {
	keys := make([]string, 0, len(domain.AllRoles))
	for _, r := range domain.AllRoles {
		keys = append(keys, s.key(r))
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}
	return nil
}

// Destroy removes every key of the session: role records, the resolved
// clinic identity and anything else written under session:{sid}:.
func (s *Store) Destroy(ctx context.Context) error {
	keys, err := s.kv.ScanKeys(ctx, "session:"+s.sessionID+":*")
	if err != nil {
		return fmt.Errorf("failed to list session keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
