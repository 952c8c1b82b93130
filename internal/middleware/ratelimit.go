package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterPruneSize = 1024
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов с одного IP
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter создает ограничитель на perMinute запросов в минуту
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

// getLimiter возвращает ограничитель для ключа. Давно неиспользуемые
// ключи вычищаются, когда карта разрастается.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.limiters) >= limiterPruneSize {
		for k, e := range rl.limiters {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(rl.limiters, k)
			}
		}
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Allow сообщает, можно ли пропустить запрос с ключом
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).AllowN(rl.now(), 1)
}

// Handler возвращает middleware Fiber
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		key := c.IP()
		if !rl.Allow(key) {
			log.WithFields(log.Fields{"ip": key, "path": c.Path()}).Warn("Превышен лимит запросов")
			return apperrors.RateLimited("слишком много попыток, повторите позже")
		}
		return c.Next()
	}
}
