package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/bastion"
)

func checkReq(subjectID, resource, action string) *bastion.CheckRequest {
	return &bastion.CheckRequest{
		Subject:  bastion.Subject{ID: subjectID},
		Resource: resource,
		Action:   action,
	}
}

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	req := checkReq("u1", "doc:1", "read")
	dec := &bastion.Decision{Allowed: true, Code: bastion.DecisionAllow, StoreVersion: 7}

	// Miss
	_, ok := c.Get(ctx, "t1", req, 7)
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "t1", req, 7, dec)
	got, ok := c.Get(ctx, "t1", req, 7)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Allowed {
		t.Fatal("expected allowed")
	}
}

func TestMemoryCacheVersionStamping(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	req := checkReq("u1", "doc:1", "read")
	c.Set(ctx, "t1", req, 3, &bastion.Decision{Allowed: true, StoreVersion: 3})

	// A decision written at version 3 must be invisible at version 4.
	if _, ok := c.Get(ctx, "t1", req, 4); ok {
		t.Fatal("entry from an older version must not be served")
	}
	if _, ok := c.Get(ctx, "t1", req, 3); !ok {
		t.Fatal("entry at its own version should hit")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	req := checkReq("u1", "doc:1", "read")
	c.Set(ctx, "t1", req, 1, &bastion.Decision{Allowed: true})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(ctx, "t1", req, 1); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateSubject(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	req1 := checkReq("u1", "doc:1", "read")
	req2 := checkReq("u2", "doc:1", "read")

	c.Set(ctx, "t1", req1, 1, &bastion.Decision{Allowed: true})
	c.Set(ctx, "t1", req1, 2, &bastion.Decision{Allowed: true})
	c.Set(ctx, "t1", req2, 1, &bastion.Decision{Allowed: true})

	c.InvalidateSubject(ctx, "t1", "u1")

	if _, ok := c.Get(ctx, "t1", req1, 1); ok {
		t.Fatal("u1 v1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", req1, 2); ok {
		t.Fatal("u1 v2 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", req2, 1); !ok {
		t.Fatal("u2 should still be cached")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := 0; i < 5; i++ {
		req := checkReq("u1", fmt.Sprintf("doc:%d", i), "read")
		c.Set(ctx, "t1", req, 1, &bastion.Decision{Allowed: true})
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size > 2 {
		t.Fatalf("expected max 2 entries, got %d", size)
	}
}
