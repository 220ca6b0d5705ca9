// Package signer derives the signing accounts behind a network's credentials.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/spacehunters/contracts/internal/descriptor"
	"github.com/spacehunters/contracts/internal/secrets"
)

// Account is the address behind one credential slot.
type Account struct {
	Slot    string         `json:"slot"`
	Ref     secrets.Ref    `json:"ref,omitempty"`
	Address common.Address `json:"address"`
}

// KeyError reports a slot whose credential could not be used as a key.
type KeyError struct {
	Slot string
	Ref  secrets.Ref
	Err  error
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	return fmt.Sprintf("slot %s (%s): %v", e.Slot, e.Ref, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *KeyError) Unwrap() error {
	return e.Err
}

// ParseKey parses a hex-encoded secp256k1 private key, with or without the
// 0x prefix.
func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return privateKey, nil
}

// Derive returns the account address for every credential, in slot order.
func Derive(creds []descriptor.Credential) ([]Account, error) {
	accounts := make([]Account, 0, len(creds))
	for _, c := range creds {
		if !c.Present() {
			return nil, &KeyError{Slot: c.Slot, Ref: c.Ref, Err: descriptor.ErrMissingSecret}
		}
		privateKey, err := ParseKey(c.Value())
		if err != nil {
			return nil, &KeyError{Slot: c.Slot, Ref: c.Ref, Err: err}
		}
		accounts = append(accounts, Account{
			Slot:    c.Slot,
			Ref:     c.Ref,
			Address: crypto.PubkeyToAddress(privateKey.PublicKey),
		})
	}
	return accounts, nil
}
