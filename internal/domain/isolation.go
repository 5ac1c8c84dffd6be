package domain

import "errors"

// Connection parameters of an isolated backend.
type Connection struct {
	Endpoint    string `json:"endpoint"`
	Credential  string `json:"credential"`
	BackendName string `json:"backend_name,omitempty"`
}

// Valid reports whether both endpoint and credential are present.
func (c Connection) Valid() bool {
	return c.Endpoint != "" && c.Credential != ""
}

// IsolationDecision says where tenant-owned data lives for one session.
// Connection is only set when Isolated is true.
type IsolationDecision struct {
	Isolated   bool
	Connection Connection
}

var errInvalidConnection = errors.New("isolated decision requires endpoint and credential")

// Shared is the decision for tenants without an isolated backend.
func Shared() IsolationDecision {
	return IsolationDecision{}
}

// Isolated builds an isolated decision for conn.
func Isolated(conn Connection) (IsolationDecision, error) {
	if !conn.Valid() {
		return IsolationDecision{}, errInvalidConnection
	}
	return IsolationDecision{Isolated: true, Connection: conn}, nil
}

// TableCategory classifies a table for routing.
type TableCategory int

const (
	// TenantOwned tables follow the isolation decision.
	TenantOwned TableCategory = iota
	// Administrative tables always live in the central directory backend.
	Administrative
)

func (c TableCategory) String() string {
	switch c {
	case Administrative:
		return "administrative"
	default:
		return "tenant_owned"
	}
}

// DefaultAdministrativeTables tables that never leave the central backend.
var DefaultAdministrativeTables = []string{
	"clinicas_central",
	"configuracoes_sistema",
	"logs_monitoramento",
	"tenant_backends",
	"assinaturas",
}
