package middleware

import (
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// LimiterPair holds the read and resolve tier limiters for one client
type LimiterPair struct {
	Read    *rate.Limiter
	Resolve *rate.Limiter
}

// ReadTokens returns the tokens left in the read tier
func (lp *LimiterPair) ReadTokens() int {
	return int(math.Floor(lp.Read.Tokens()))
}

// ResolveTokens returns the tokens left in the resolve tier
func (lp *LimiterPair) ResolveTokens() int {
	return int(math.Floor(lp.Resolve.Tokens()))
}

// IPRateLimiter keeps a limiter pair per client IP. Reads of daemon state
// are cheap; resolves may reach the network and get a much smaller budget.
type IPRateLimiter struct {
	ips          map[string]*LimiterPair
	mu           sync.Mutex
	readRate     rate.Limit
	readBurst    int
	resolveRate  rate.Limit
	resolveBurst int
}

// NewIPRateLimiter creates a two-tier limiter
func NewIPRateLimiter(readRate rate.Limit, readBurst int, resolveRate rate.Limit, resolveBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:          make(map[string]*LimiterPair),
		readRate:     readRate,
		readBurst:    readBurst,
		resolveRate:  resolveRate,
		resolveBurst: resolveBurst,
	}
}

// ReadLimit returns the read tier burst
func (i *IPRateLimiter) ReadLimit() int {
	return i.readBurst
}

// ResolveLimit returns the resolve tier burst
func (i *IPRateLimiter) ResolveLimit() int {
	return i.resolveBurst
}

// GetLimiter returns the pair for ip, creating it on first use
func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()

	pair, ok := i.ips[ip]
	if !ok {
		pair = &LimiterPair{
			Read:    rate.NewLimiter(i.readRate, i.readBurst),
			Resolve: rate.NewLimiter(i.resolveRate, i.resolveBurst),
		}
		i.ips[ip] = pair
	}
	return pair
}

// Len returns the number of tracked clients
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}
