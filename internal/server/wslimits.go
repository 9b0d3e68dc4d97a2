package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleCutoff = 10 * time.Minute

// feedLimits guards the feed socket against a single source hogging it:
// a cap on concurrent connections per IP and a token bucket on connection
// attempts per IP. The global cap lives in the hub.
type feedLimits struct {
	mu       sync.Mutex
	conns    map[string]int
	buckets  map[string]*bucketEntry
	maxConns int
	rate     rate.Limit
	burst    int
	sweepAt  time.Time
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newFeedLimits(maxConnsPerIP int, attemptsPerSecond float64, burst int) *feedLimits {
	return &feedLimits{
		conns:    make(map[string]int),
		buckets:  make(map[string]*bucketEntry),
		maxConns: maxConnsPerIP,
		rate:     rate.Limit(attemptsPerSecond),
		burst:    burst,
		sweepAt:  time.Now().Add(limiterIdleCutoff),
	}
}

// acquire admits a connection attempt from ip. It returns false when the
// attempt is rate limited or the IP already holds its maximum number of
// connections. A successful acquire must be paired with release.
func (l *feedLimits) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.sweepAt) {
		l.dropIdleBuckets(now)
		l.sweepAt = now.Add(limiterIdleCutoff)
	}

	entry, ok := l.buckets[ip]
	if !ok {
		entry = &bucketEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[ip] = entry
	}
	entry.lastSeen = now

	if !entry.limiter.Allow() {
		return false
	}
	if l.conns[ip] >= l.maxConns {
		return false
	}
	l.conns[ip]++
	return true
}

func (l *feedLimits) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.conns[ip]; count > 0 {
		l.conns[ip] = count - 1
		if l.conns[ip] == 0 {
			delete(l.conns, ip)
		}
	}
}

func (l *feedLimits) connCount(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conns[ip]
}

// dropIdleBuckets forgets rate limiters for IPs not seen recently.
// Caller holds mu.
func (l *feedLimits) dropIdleBuckets(now time.Time) {
	cutoff := now.Add(-limiterIdleCutoff)
	for ip, entry := range l.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
}
