package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/subject"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	p := NewStaticProvider()
	if err := p.AddIdentity("alice", "s3cret", map[string]any{"team": "core"}); err != nil {
		t.Fatal(err)
	}
	return NewService(p, []byte("test-signing-key"), opts...)
}

func TestValidateCredential(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	subj, err := svc.ValidateCredential(ctx, Credential{Identifier: "alice", Secret: "s3cret"})
	if err != nil {
		t.Fatalf("ValidateCredential: %v", err)
	}
	if subj.ID != "alice" {
		t.Errorf("subject = %q, want alice", subj.ID)
	}
	if subj.Attributes["team"] != "core" {
		t.Errorf("attributes not carried: %v", subj.Attributes)
	}
}

func TestValidateCredentialFailures(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// Wrong secret and unknown identity must be indistinguishable.
	for _, cred := range []Credential{
		{Identifier: "alice", Secret: "wrong"},
		{Identifier: "nobody", Secret: "s3cret"},
	} {
		_, err := svc.ValidateCredential(ctx, cred)
		if !errors.Is(err, bastion.ErrAuthentication) {
			t.Errorf("cred %v: expected ErrAuthentication, got %v", cred.Identifier, err)
		}
	}
}

type captureWriter struct {
	recorded []*subject.Record
}

func (c *captureWriter) UpsertSubject(_ context.Context, rec *subject.Record) error {
	c.recorded = append(c.recorded, rec)
	return nil
}

func TestValidateCredentialRecordsSubject(t *testing.T) {
	ctx := context.Background()
	w := &captureWriter{}
	svc := newTestService(t, WithSubjectWriter(w))

	if _, err := svc.ValidateCredential(ctx, Credential{Identifier: "alice", Secret: "s3cret"}); err != nil {
		t.Fatal(err)
	}
	if len(w.recorded) != 1 {
		t.Fatalf("expected 1 upserted record, got %d", len(w.recorded))
	}
	if w.recorded[0].SubjectID != "alice" {
		t.Errorf("recorded subject = %q", w.recorded[0].SubjectID)
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	subj := &bastion.Subject{ID: "alice", Attributes: map[string]any{"team": "core"}}
	tok, err := svc.IssueToken(ctx, subj, 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	got, err := svc.ValidateToken(ctx, tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got.ID != "alice" {
		t.Errorf("subject = %q, want alice", got.ID)
	}
	if got.Attributes["team"] != "core" {
		t.Errorf("attributes not round-tripped: %v", got.Attributes)
	}
}

func TestIssueTokenNoKey(t *testing.T) {
	svc := NewService(NewStaticProvider(), nil)
	_, err := svc.IssueToken(context.Background(), &bastion.Subject{ID: "alice"}, 0)
	if !errors.Is(err, bastion.ErrSigningKeyUnavailable) {
		t.Fatalf("expected ErrSigningKeyUnavailable, got %v", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	ctx := context.Background()
	clock := time.Now()
	svc := newTestService(t, WithClock(func() time.Time { return clock }))

	tok, err := svc.IssueToken(ctx, &bastion.Subject{ID: "alice"}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	// Advance past expiry; no sleeping.
	clock = clock.Add(2 * time.Minute)
	_, err = svc.ValidateToken(ctx, tok)
	if !errors.Is(err, bastion.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateTokenTampered(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	tok, err := svc.IssueToken(ctx, &bastion.Subject{ID: "alice"}, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Flip a character in the signature.
	tampered := tok[:len(tok)-2] + "xx"
	if _, err := svc.ValidateToken(ctx, tampered); !errors.Is(err, bastion.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	// A token signed with a different key is also invalid.
	other := NewService(NewStaticProvider(), []byte("other-key"))
	foreign, err := other.IssueToken(ctx, &bastion.Subject{ID: "alice"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ValidateToken(ctx, foreign); !errors.Is(err, bastion.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign signature, got %v", err)
	}

	if _, err := svc.ValidateToken(ctx, "not-a-token"); !errors.Is(err, bastion.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}
