package session

import "github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"

// Role alias so callers of the gate need not import domain.
type Role = domain.Role
