package hxview

import "errors"

// Sentinel errors for composition, hydration and hot updates.
var (
	ErrNotFound      = errors.New("hxview: view not found")
	ErrDuplicateKey  = errors.New("hxview: duplicate view key")
	ErrEmptyKey      = errors.New("hxview: empty view key")
	ErrInvalidState  = errors.New("hxview: invalid embedded state")
	ErrImportFailed  = errors.New("hxview: script import failed")
	ErrNoChain       = errors.New("hxview: nothing to hydrate")
	ErrNoTarget      = errors.New("hxview: hydration target missing")
	ErrMissingModule = errors.New("hxview: module has no default export")
)

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsImportError checks if err came from a failed hot import.
func IsImportError(err error) bool {
	return errors.Is(err, ErrImportFailed) || errors.Is(err, ErrMissingModule)
}
