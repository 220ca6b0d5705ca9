package secrets

import (
	"errors"
	"fmt"
)

// Sentinel errors - Resolution
var (
	ErrSecretNotFound     = errors.New("secrets: secret not found")
	ErrInvalidRef         = errors.New("secrets: invalid reference")
	ErrBackendUnavailable = errors.New("secrets: backend not configured")
)

// Sentinel errors - OpenBao
var (
	ErrMissingBaoAddr  = errors.New("secrets: OpenBao address is required")
	ErrMissingBaoToken = errors.New("secrets: OpenBao token is required")
	ErrBaoConnection   = errors.New("secrets: failed to connect to OpenBao")
	ErrBaoAuth         = errors.New("secrets: OpenBao authentication failed")
	ErrBaoSealed       = errors.New("secrets: OpenBao is sealed")
	ErrBaoUnavailable  = errors.New("secrets: OpenBao is unavailable")
)

// BaoError represents an OpenBao API error.
type BaoError struct {
	StatusCode int
	Errors     []string
}

// Error implements the error interface.
func (e *BaoError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("OpenBao error (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("OpenBao error (HTTP %d): %s", e.StatusCode, e.Errors[0])
}

// Is maps HTTP status codes onto the package sentinels.
func (e *BaoError) Is(target error) bool {
	switch e.StatusCode {
	case 403:
		return target == ErrBaoAuth
	case 404:
		return target == ErrSecretNotFound
	case 503:
		return target == ErrBaoSealed
	default:
		return false
	}
}

// RefError wraps a resolution failure with the reference that caused it.
type RefError struct {
	Ref Ref
	Err error
}

// Error implements the error interface.
func (e *RefError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Ref, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *RefError) Unwrap() error {
	return e.Err
}

// wrapRef returns nil if err is nil.
func wrapRef(ref Ref, err error) error {
	if err == nil {
		return nil
	}
	return &RefError{Ref: ref, Err: err}
}
