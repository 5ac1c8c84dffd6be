package router

import (
	"sort"
	"strings"
	"sync"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// Catalog is the registration point for table categories. Tables that
// were never registered are tenant-owned.
type Catalog struct {
	mu         sync.RWMutex
	categories map[string]domain.TableCategory
}

// NewCatalog registers admin as Administrative.
func NewCatalog(admin ...string) *Catalog {
	c := &Catalog{categories: map[string]domain.TableCategory{}}
	for _, t := range admin {
		c.Register(t, domain.Administrative)
	}
	return c
}

// DefaultCatalog uses domain.DefaultAdministrativeTables.
func DefaultCatalog() *Catalog {
	return NewCatalog(domain.DefaultAdministrativeTables...)
}

func (c *Catalog) Register(table string, category domain.TableCategory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories[normalizeTable(table)] = category
}

func (c *Catalog) Category(table string) domain.TableCategory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cat, ok := c.categories[normalizeTable(table)]; ok {
		return cat
	}
	return domain.TenantOwned
}

// AdministrativeTables sorted names of the administrative set.
func (c *Catalog) AdministrativeTables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for t, cat := range c.categories {
		if cat == domain.Administrative {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// "public.Pacientes" and "pacientes" name the same table
func normalizeTable(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	return strings.TrimPrefix(table, "public.")
}
