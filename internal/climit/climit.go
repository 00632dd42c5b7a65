// Package climit gates connection admission for the transfer engine.
//
// Two independent limits are enforced:
//
//   - a per-address cap on concurrent connections, so one client cannot
//     hold every slot
//   - a token-bucket rate limit on connection attempts, smoothing out
//     connect floods (golang.org/x/time/rate)
//
// Either limit can be disabled by passing 0.
package climit

import (
	"sync"

	"golang.org/x/time/rate"
)

// effectively unlimited; rate.Inf has edge cases around burst handling
const unlimitedRate = 1_000_000_000

// Guard admits or rejects incoming connections. Safe for concurrent use.
type Guard struct {
	maxPerIP int
	bucket   *rate.Limiter

	mu    sync.Mutex
	perIP map[string]int
}

// NewGuard creates a Guard.
//
// maxPerIP caps concurrent connections per client address; connRate caps
// connection attempts per second across all clients, with a burst of the
// same size. 0 disables the respective limit.
func NewGuard(maxPerIP int, connRate uint) *Guard {
	r := connRate
	if r == 0 {
		r = unlimitedRate
	}

	return &Guard{
		maxPerIP: maxPerIP,
		bucket:   rate.NewLimiter(rate.Limit(r), int(r)),
		perIP:    make(map[string]int),
	}
}

// Admit decides whether a new connection from ip may proceed. On success
// the per-address count is incremented and the caller must pair it with
// Release. A rejected connection consumes nothing but a rate token.
func (g *Guard) Admit(ip string) bool {
	if !g.bucket.Allow() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.maxPerIP > 0 && g.perIP[ip] >= g.maxPerIP {
		return false
	}
	g.perIP[ip]++
	return true
}

// Release records that a previously admitted connection from ip has
// ended.
func (g *Guard) Release(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.perIP[ip] <= 1 {
		delete(g.perIP, ip)
		return
	}
	g.perIP[ip]--
}

// ActiveFor returns the number of admitted connections currently held by
// ip.
func (g *Guard) ActiveFor(ip string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.perIP[ip]
}
