// Package registry maps clinic subdomains to isolated backends.
//
// Every source (compiled-in table, spreadsheet, database, provisioning
// service) is exposed through Registry, so the resolver does not care
// where an entry came from.
package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// Registry looks up the isolated backend of a subdomain. ok is false when
// the subdomain has none; err is reserved for failures to consult the source.
type Registry interface {
	Lookup(ctx context.Context, subdomain string) (conn domain.Connection, ok bool, err error)
}

// Invalidator drops whatever a registry remembers about subdomain.
type Invalidator interface {
	Invalidate(ctx context.Context, subdomain string) error
}

func normalize(subdomain string) string {
	return strings.ToLower(strings.TrimSpace(subdomain))
}

// Static an in-process table. Safe for concurrent use; entries may be
// added at runtime.
type Static struct {
	mu      sync.RWMutex
	entries map[string]domain.Connection
}

func NewStatic(entries map[string]domain.Connection) *Static {
	s := &Static{entries: make(map[string]domain.Connection, len(entries))}
	for sub, c := range entries {
		s.entries[normalize(sub)] = c
	}
	return s
}

func (s *Static) Lookup(_ context.Context, subdomain string) (domain.Connection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entries[normalize(subdomain)]
	return c, ok, nil
}

// Register adds or replaces an entry.
func (s *Static) Register(subdomain string, conn domain.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[normalize(subdomain)] = conn
}

// Remove deletes an entry.
func (s *Static) Remove(subdomain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, normalize(subdomain))
}

// Entries returns a snapshot.
func (s *Static) Entries() map[string]domain.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Connection, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Chain asks each registry in order; the first hit wins. A failing
// registry does not hide hits from later ones, but its error is returned
// when nothing hits.
type Chain []Registry

func (c Chain) Lookup(ctx context.Context, subdomain string) (domain.Connection, bool, error) {
	var firstErr error
	for _, r := range c {
		conn, ok, err := r.Lookup(ctx, subdomain)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return conn, true, nil
		}
	}
	return domain.Connection{}, false, firstErr
}

// Invalidate forwards to every member that caches.
func (c Chain) Invalidate(ctx context.Context, subdomain string) error {
	for _, r := range c {
		if inv, ok := r.(Invalidator); ok {
			if err := inv.Invalidate(ctx, subdomain); err != nil {
				return err
			}
		}
	}
	return nil
}
