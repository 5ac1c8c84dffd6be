package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/repository"
)

// Postgres reads the tenant_backends provisioning table.
type Postgres struct {
	repo repository.BackendsRepository
}

func NewPostgres(repo repository.BackendsRepository) *Postgres {
	return &Postgres{repo: repo}
}

func (p *Postgres) Lookup(ctx context.Context, subdomain string) (domain.Connection, bool, error) {
	c, err := p.repo.GetBackend(ctx, normalize(subdomain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Connection{}, false, nil
		}
		return domain.Connection{}, false, fmt.Errorf("backend registry lookup: %w", err)
	}
	return *c, true, nil
}
