package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spacehunters/contracts/internal/secrets"
)

// Sentinel errors
var (
	ErrMissingSecret     = errors.New("descriptor: required secret is not set")
	ErrInvalidCredential = errors.New("descriptor: credential is not a valid private key")
	ErrDuplicateNetwork  = errors.New("descriptor: duplicate network name")
	ErrUnknownSignerSet  = errors.New("descriptor: unknown signer set")
	ErrNetworkNotFound   = errors.New("descriptor: network not found")
	ErrInvalidMode       = errors.New("descriptor: invalid validation mode")
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError with the given field and message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// MissingSecretsError names every credential reference that resolved to
// nothing. It is only returned in strict mode.
type MissingSecretsError struct {
	Refs []secrets.Ref
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	names := make([]string, len(e.Refs))
	for i, r := range e.Refs {
		names[i] = string(r)
	}
	return fmt.Sprintf("descriptor: missing secrets: %s", strings.Join(names, ", "))
}

// Is matches ErrMissingSecret.
func (e *MissingSecretsError) Is(target error) bool {
	return target == ErrMissingSecret
}

// InvalidCredentialError reports a credential whose value is not a hex
// secp256k1 private key. The value itself is never included.
type InvalidCredentialError struct {
	Slot string
	Ref  secrets.Ref
}

// Error implements the error interface.
func (e *InvalidCredentialError) Error() string {
	return fmt.Sprintf("descriptor: credential %s (%s) is not a valid private key", e.Slot, e.Ref)
}

// Is matches ErrInvalidCredential.
func (e *InvalidCredentialError) Is(target error) bool {
	return target == ErrInvalidCredential
}

// DuplicateNetworkError reports a network name declared more than once.
type DuplicateNetworkError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateNetworkError) Error() string {
	return fmt.Sprintf("descriptor: network %q is declared more than once", e.Name)
}

// Is matches ErrDuplicateNetwork.
func (e *DuplicateNetworkError) Is(target error) bool {
	return target == ErrDuplicateNetwork
}

// UnknownSignerSetError reports a network referencing an undeclared signer set.
type UnknownSignerSetError struct {
	Network   string
	SignerSet string
}

// Error implements the error interface.
func (e *UnknownSignerSetError) Error() string {
	return fmt.Sprintf("descriptor: network %q references unknown signer set %q", e.Network, e.SignerSet)
}

// Is matches ErrUnknownSignerSet.
func (e *UnknownSignerSetError) Is(target error) bool {
	return target == ErrUnknownSignerSet
}
