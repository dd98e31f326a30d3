// Package token issues and validates identity tokens.
//
// The package is the identity boundary of the engine: credentials are
// verified by a pluggable IdentityProvider (LDAP, OIDC, a static set
// for development), and verified identities are carried as signed JWTs.
// Authorization decisions never happen here; the engine consumes the
// subject this package vouches for.
package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/subject"
)

// Claims are the JWT claims carried by a Bastion identity token.
type Claims struct {
	jwt.RegisteredClaims
	Attributes map[string]any `json:"attrs,omitempty"`
}

// DefaultTTL is the token lifetime used when IssueToken is called with
// a zero ttl.
const DefaultTTL = 15 * time.Minute

// Credential is an opaque credential pair presented for verification.
type Credential struct {
	// Identifier names the identity being claimed (username, client id).
	Identifier string `json:"identifier"`

	// Secret is the proof (password, client secret).
	Secret string `json:"secret"`
}

// IdentityProvider verifies raw credentials at the federation boundary.
// Implementations wrap an external IdP; the engine only ever sees the
// verified subject an implementation returns.
type IdentityProvider interface {
	// VerifyCredential checks a raw credential and returns the subject
	// it identifies. The service maps every provider failure to
	// ErrAuthentication, so callers learn nothing about why
	// verification failed.
	VerifyCredential(ctx context.Context, cred Credential) (*bastion.Subject, error)
}

// SubjectWriter persists subject records. Satisfied by subject.Store
// and therefore by the composite store.
type SubjectWriter interface {
	UpsertSubject(ctx context.Context, rec *subject.Record) error
}
