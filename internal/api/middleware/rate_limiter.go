package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/examtrace/vigil/internal/domain"
)

const (
	cleanupInterval = 5 * time.Minute
	staleAfter      = 10 * time.Minute
)

// RateLimiterConfig holds configuration for per-session rate limiting
type RateLimiterConfig struct {
	// Sustained requests per second for each key
	RatePerSecond float64
	// Burst capacity
	Burst int
	// KeyGenerator extracts the limiting key from the request
	KeyGenerator func(c *fiber.Ctx) string
}

// DefaultRateLimiterConfig keys requests by the sessionId query
// parameter, falling back to the client IP. Uploads arrive a few times
// per second per phone, so the bucket stays comfortably above that.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RatePerSecond: 10,
		Burst:         20,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := c.Query("sessionId"); id != "" {
				return id
			}
			return c.IP()
		},
	}
}

// clientLimiter tracks one key's token bucket and last access time
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter hands each key its own token bucket
type RateLimiter struct {
	config  RateLimiterConfig
	clients map[string]*clientLimiter
	mu      sync.Mutex
	done    chan struct{}
}

// NewRateLimiter creates a rate limiter and starts its cleanup worker
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = DefaultRateLimiterConfig().RatePerSecond
	}
	if config.Burst <= 0 {
		config.Burst = DefaultRateLimiterConfig().Burst
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = DefaultRateLimiterConfig().KeyGenerator
	}

	rl := &RateLimiter{
		config:  config,
		clients: make(map[string]*clientLimiter),
		done:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Stop shuts down the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// Handler returns the Fiber middleware handler
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.config.KeyGenerator(c)
		if key == "" {
			return c.Next()
		}

		limiter := rl.limiterFor(key)
		if !limiter.Allow() {
			reservation := limiter.Reserve()
			delay := reservation.Delay()
			reservation.Cancel()

			retry := int(delay.Seconds()) + 1
			c.Set("Retry-After", strconv.Itoa(retry))
			return domain.ErrRateLimitExceeded
		}

		return c.Next()
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if client, ok := rl.clients[key]; ok {
		client.lastAccess = time.Now()
		return client.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rl.config.RatePerSecond), rl.config.Burst)
	rl.clients[key] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// cleanup drops buckets nobody touched for a while, sessions come and
// go with every exam
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-staleAfter)
			for key, client := range rl.clients {
				if client.lastAccess.Before(cutoff) {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
