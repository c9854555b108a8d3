// Package admission implements AdmissionControl: a per-participant token
// bucket that protects GameManager and the session dispatcher from a
// misbehaving or overly chatty peer before any message reaches game logic.
package admission

import (
	"sync"

	"golang.org/x/time/rate"

	"gamearena/internal/domain"
)

// Config sets the token bucket applied to every participant.
type Config struct {
	RatePerSecond float64
	Burst         int
	// MaxViolations is the number of consecutive rejected messages a
	// participant may accumulate before Allow reports the channel should
	// be closed. Zero disables the close-on-repeated-violation behavior.
	MaxViolations int
}

// DefaultConfig mirrors the catalog defaults: 5 messages/sec, burst of 10,
// closing a channel after 20 consecutive rejections.
func DefaultConfig() Config {
	return Config{RatePerSecond: 5, Burst: 10, MaxViolations: 20}
}

type bucket struct {
	limiter    *rate.Limiter
	violations int
}

// Control tracks one token bucket per participant, created lazily on first
// use and discarded when the participant leaves.
type Control struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[domain.ParticipantID]*bucket
}

// New builds a Control enforcing cfg uniformly across every participant.
func New(cfg Config) *Control {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultConfig().RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	return &Control{cfg: cfg, buckets: make(map[domain.ParticipantID]*bucket)}
}

// Allow reports whether the participant's next message may proceed. A
// rejected message never goes through GameManager. forceClose reports that
// this participant has now accumulated MaxViolations consecutive rejections
// and the session dispatcher should close their channel.
func (c *Control) Allow(id domain.ParticipantID) (ok bool, forceClose bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, found := c.buckets[id]
	if !found {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(c.cfg.RatePerSecond), c.cfg.Burst)}
		c.buckets[id] = b
	}

	if b.limiter.Allow() {
		b.violations = 0
		return true, false
	}
	b.violations++
	if c.cfg.MaxViolations > 0 && b.violations >= c.cfg.MaxViolations {
		return false, true
	}
	return false, false
}

// Forget releases the token bucket kept for a participant, called once
// their session ends so Control doesn't accumulate buckets for departed
// peers forever.
func (c *Control) Forget(id domain.ParticipantID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buckets, id)
}
