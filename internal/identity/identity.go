// Package identity is the gate between the surrounding auth stack and
// the ledger core. The core never validates credentials itself; it
// trusts the account ID a Gate resolves.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnknownCredential indicates the presented credential resolves to
// no account.
var ErrUnknownCredential = errors.New("unknown credential")

// Gate resolves a presented credential to the account it controls.
type Gate interface {
	Resolve(ctx context.Context, credential string) (uuid.UUID, error)
}

// StaticGate resolves credentials from a fixed token table, as
// configured in teller.yaml. It stands in for the external token
// service in CLI and test use.
type StaticGate struct {
	tokens map[string]uuid.UUID
}

// NewStaticGate builds a StaticGate from a token -> account-ID map.
func NewStaticGate(tokens map[string]string) (*StaticGate, error) {
	resolved := make(map[string]uuid.UUID, len(tokens))
	for token, raw := range tokens {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("token table: account ID %q: %w", raw, err)
		}
		resolved[token] = id
	}
	return &StaticGate{tokens: resolved}, nil
}

// Resolve returns the account controlled by the credential.
func (g *StaticGate) Resolve(ctx context.Context, credential string) (uuid.UUID, error) {
	id, ok := g.tokens[credential]
	if !ok {
		return uuid.Nil, ErrUnknownCredential
	}
	return id, nil
}

var _ Gate = (*StaticGate)(nil)
