package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/subject"
)

// Service authenticates credentials and mints HS256 identity tokens.
type Service struct {
	provider IdentityProvider
	subjects SubjectWriter
	key      []byte
	issuer   string
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures the token service.
type ServiceOption func(*Service)

// WithSubjectWriter sets the store that receives subject records on
// first issuance. Nil disables record creation.
func WithSubjectWriter(w SubjectWriter) ServiceOption {
	return func(s *Service) { s.subjects = w }
}

// WithIssuer sets the iss claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) { s.issuer = issuer }
}

// WithTTL sets the default token lifetime.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service. The signing key may be empty; in
// that case issuance fails with ErrSigningKeyUnavailable while
// validation of externally minted tokens is also impossible, so an
// empty key is only useful for wiring tests.
func NewService(provider IdentityProvider, signingKey []byte, opts ...ServiceOption) *Service {
	s := &Service{
		provider: provider,
		key:      signingKey,
		issuer:   "bastion",
		ttl:      DefaultTTL,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateCredential verifies a credential against the identity
// provider and records the verified subject. This is where an identity
// first becomes known to the policy store.
func (s *Service) ValidateCredential(ctx context.Context, cred Credential) (*bastion.Subject, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("no identity provider configured: %w", bastion.ErrAuthentication)
	}

	subj, err := s.provider.VerifyCredential(ctx, cred)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("verify credential: %w", bastion.ErrTimeout)
		}
		s.logger.DebugContext(ctx, "credential verification failed",
			slog.String("identifier", cred.Identifier),
		)
		return nil, fmt.Errorf("verify credential %q: %w", cred.Identifier, bastion.ErrAuthentication)
	}

	if s.subjects != nil {
		rec := &subject.Record{
			SubjectID:  subj.ID,
			Attributes: subj.Attributes,
		}
		if err := s.subjects.UpsertSubject(ctx, rec); err != nil {
			return nil, fmt.Errorf("record subject %q: %w", subj.ID, err)
		}
	}
	return subj, nil
}

// IssueToken mints a signed token for a verified subject. A zero ttl
// uses the service default.
func (s *Service) IssueToken(_ context.Context, subj *bastion.Subject, ttl time.Duration) (string, error) {
	if len(s.key) == 0 {
		return "", fmt.Errorf("issue token for %q: %w", subj.ID, bastion.ErrSigningKeyUnavailable)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subj.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Attributes: subj.Attributes,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token for %q: %w", subj.ID, err)
	}
	return signed, nil
}

// ValidateToken verifies a token's signature and expiry and returns the
// subject it carries. Expiry is reported as ErrTokenExpired; every
// other verification failure is ErrTokenInvalid.
func (s *Service) ValidateToken(_ context.Context, tokenStr string) (*bastion.Subject, error) {
	if len(s.key) == 0 {
		return nil, fmt.Errorf("validate token: %w", bastion.ErrSigningKeyUnavailable)
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("validate token: %w", bastion.ErrTokenExpired)
		}
		return nil, fmt.Errorf("validate token: %w", bastion.ErrTokenInvalid)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("validate token claims: %w", bastion.ErrTokenInvalid)
	}
	return &bastion.Subject{
		ID:         claims.Subject,
		Attributes: claims.Attributes,
	}, nil
}
