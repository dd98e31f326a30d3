package token

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/xraph/bastion"
)

// Compile-time interface check.
var _ IdentityProvider = (*StaticProvider)(nil)

// StaticProvider verifies credentials against an in-memory set of
// bcrypt hashes. It exists for development and tests; production
// deployments plug a real IdP behind IdentityProvider instead.
type StaticProvider struct {
	identities map[string]staticIdentity
}

type staticIdentity struct {
	hash       []byte
	attributes map[string]any
}

// NewStaticProvider creates an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{identities: make(map[string]staticIdentity)}
}

// AddIdentity registers an identity with a plaintext secret, which is
// bcrypt-hashed before storage.
func (p *StaticProvider) AddIdentity(identifier, secret string, attributes map[string]any) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash secret for %q: %w", identifier, err)
	}
	p.identities[identifier] = staticIdentity{hash: hash, attributes: attributes}
	return nil
}

// VerifyCredential implements IdentityProvider.
func (p *StaticProvider) VerifyCredential(_ context.Context, cred Credential) (*bastion.Subject, error) {
	ident, ok := p.identities[cred.Identifier]
	if !ok {
		return nil, fmt.Errorf("identity %q: %w", cred.Identifier, bastion.ErrAuthentication)
	}
	if err := bcrypt.CompareHashAndPassword(ident.hash, []byte(cred.Secret)); err != nil {
		return nil, fmt.Errorf("identity %q: %w", cred.Identifier, bastion.ErrAuthentication)
	}
	return &bastion.Subject{ID: cred.Identifier, Attributes: ident.attributes}, nil
}
