package handlers

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type attemptData struct {
	count        int
	firstAttempt time.Time
}

// rateLimiter counts failed logins per client IP and blocks an IP once it
// reaches maxAttempts failures inside the window.
type rateLimiter struct {
	sync.Mutex
	attempts map[string]*attemptData
	blocked  map[string]time.Time

	maxAttempts   int
	window        time.Duration
	blockDuration time.Duration
	now           func() time.Time
}

const (
	defaultWindow        = 15 * time.Minute
	defaultBlockDuration = 15 * time.Minute
	maxTrackedIPs        = 10000
)

// newRateLimiter returns a limiter; maxAttempts <= 0 never blocks but still
// counts failures.
func newRateLimiter(maxAttempts int) *rateLimiter {
	return &rateLimiter{
		attempts:      make(map[string]*attemptData),
		blocked:       make(map[string]time.Time),
		maxAttempts:   maxAttempts,
		window:        defaultWindow,
		blockDuration: defaultBlockDuration,
		now:           time.Now,
	}
}

// Allow returns false if the IP is currently blocked.
// It also cleans up expired blocks.
func (r *rateLimiter) Allow(ip string) bool {
	r.Lock()
	defer r.Unlock()

	if unblockTime, ok := r.blocked[ip]; ok {
		if r.now().Before(unblockTime) {
			return false
		}
		delete(r.blocked, ip)
		delete(r.attempts, ip)
	}
	return true
}

// Failures returns the failures recorded for ip inside the current window.
func (r *rateLimiter) Failures(ip string) int {
	r.Lock()
	defer r.Unlock()

	data, ok := r.attempts[ip]
	if !ok || r.now().Sub(data.firstAttempt) > r.window {
		return 0
	}
	return data.count
}

// RecordFailure increments the failure count and blocks if threshold reached.
func (r *rateLimiter) RecordFailure(ip string) {
	r.Lock()
	defer r.Unlock()

	// Bound memory: dropping all counters is preferable to unbounded growth.
	if len(r.attempts) > maxTrackedIPs {
		r.attempts = make(map[string]*attemptData)
	}

	now := r.now()
	data, exists := r.attempts[ip]
	if !exists || now.Sub(data.firstAttempt) > r.window {
		data = &attemptData{firstAttempt: now}
		r.attempts[ip] = data
	}
	data.count++
	if r.maxAttempts > 0 && data.count >= r.maxAttempts {
		r.blocked[ip] = now.Add(r.blockDuration)
	}
}

// Reset clears the counter for an IP (used on successful login).
func (r *rateLimiter) Reset(ip string) {
	r.Lock()
	defer r.Unlock()
	delete(r.attempts, ip)
	delete(r.blocked, ip)
}

func getClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
