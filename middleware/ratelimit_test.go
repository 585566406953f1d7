package middleware

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(1, 5, 10, 20)
	if rl.readRate != 1 || rl.readBurst != 5 {
		t.Errorf("Expected read tier 1/5, got %v/%d", rl.readRate, rl.readBurst)
	}
	if rl.resolveRate != 10 || rl.resolveBurst != 20 {
		t.Errorf("Expected resolve tier 10/20, got %v/%d", rl.resolveRate, rl.resolveBurst)
	}
	if rl.ReadLimit() != 5 || rl.ResolveLimit() != 20 {
		t.Errorf("Expected limits 5/20, got %d/%d", rl.ReadLimit(), rl.ResolveLimit())
	}
}

func TestGetLimiter_ReusesPair(t *testing.T) {
	rl := NewIPRateLimiter(1, 5, 10, 20)

	first := rl.GetLimiter("192.168.1.1")
	if first.Read == nil || first.Resolve == nil {
		t.Fatal("Expected both tiers to be created")
	}
	if again := rl.GetLimiter("192.168.1.1"); again != first {
		t.Error("Expected the same pair for the same IP")
	}
	rl.GetLimiter("192.168.1.2")
	if rl.Len() != 2 {
		t.Errorf("Expected 2 tracked clients, got %d", rl.Len())
	}
}

func TestTiersAreIndependent(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(2), 2, rate.Limit(1), 1)
	pair := rl.GetLimiter("10.0.0.1")

	if !pair.Resolve.Allow() {
		t.Error("Expected first resolve to be allowed")
	}
	if pair.Resolve.Allow() {
		t.Error("Expected second resolve to be denied")
	}

	// Reads still have their own budget
	if !pair.Read.Allow() || !pair.Read.Allow() {
		t.Error("Expected two reads to be allowed")
	}
	if pair.Read.Allow() {
		t.Error("Expected read tier to be exhausted")
	}

	time.Sleep(1100 * time.Millisecond)
	if !pair.Resolve.Allow() {
		t.Error("Expected resolve to be allowed after refill")
	}
}

func TestTokens(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(10), 10, rate.Limit(1), 3)
	pair := rl.GetLimiter("10.0.0.2")

	if pair.ReadTokens() != 10 {
		t.Errorf("Expected 10 read tokens, got %d", pair.ReadTokens())
	}
	if pair.ResolveTokens() != 3 {
		t.Errorf("Expected 3 resolve tokens, got %d", pair.ResolveTokens())
	}

	pair.Resolve.Allow()
	if pair.ResolveTokens() != 2 {
		t.Errorf("Expected 2 resolve tokens after one request, got %d", pair.ResolveTokens())
	}
}
