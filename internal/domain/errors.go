package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTenantNotResolved no tenant id is available where one is required.
	ErrTenantNotResolved = errors.New("tenant not resolved")
	// ErrTenantNotFound the directory has no (active) clinic for the key.
	ErrTenantNotFound = errors.New("clinic not found")
	// ErrDirectoryUnavailable the directory could not be reached.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrIsolatedBackendUnavailable the tenant's isolated backend could not be reached.
	ErrIsolatedBackendUnavailable = errors.New("isolated backend unavailable")
	// ErrRegistryUnavailable the isolated-backend registry could not be consulted.
	ErrRegistryUnavailable = errors.New("backend registry unavailable")
)

// TenantNotFoundError carries the key that missed (id or subdomain).
type TenantNotFoundError struct {
	Key string
}

func (e *TenantNotFoundError) Error() string {
	return fmt.Sprintf("clinic not found for %q", e.Key)
}

func (e *TenantNotFoundError) Is(target error) bool { return target == ErrTenantNotFound }

// DirectoryUnavailableError wraps the transport failure.
type DirectoryUnavailableError struct {
	Key string
	Err error
}

func (e *DirectoryUnavailableError) Error() string {
	return fmt.Sprintf("directory unavailable looking up %q: %v", e.Key, e.Err)
}

func (e *DirectoryUnavailableError) Unwrap() error { return e.Err }

func (e *DirectoryUnavailableError) Is(target error) bool { return target == ErrDirectoryUnavailable }

// IsolatedBackendUnavailableError the registry knew the backend but it did not answer.
type IsolatedBackendUnavailableError struct {
	Subdomain string
	Endpoint  string
	Err       error
}

func (e *IsolatedBackendUnavailableError) Error() string {
	return fmt.Sprintf("isolated backend %s for %q unavailable: %v", e.Endpoint, e.Subdomain, e.Err)
}

func (e *IsolatedBackendUnavailableError) Unwrap() error { return e.Err }

func (e *IsolatedBackendUnavailableError) Is(target error) bool {
	return target == ErrIsolatedBackendUnavailable
}
