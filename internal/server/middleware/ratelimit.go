package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/iudanet/productreviews/internal/botdetect"
	"github.com/iudanet/productreviews/internal/server/metrics"
	"github.com/iudanet/productreviews/internal/server/response"
)

// RouteClass грубая категория маршрута, по которой выбирается политика лимитов
type RouteClass string

// Классы маршрутов
const (
	ClassLogin   RouteClass = "login"
	ClassGet     RouteClass = "get"
	ClassPost    RouteClass = "post"
	ClassPut     RouteClass = "put"
	ClassDelete  RouteClass = "delete"
	ClassDefault RouteClass = "default"
)

// BotMessage сообщение для запросов от ботов, превысивших лимит
const BotMessage = "Do not allow bot requests"

const defaultLimitMessage = "Rate limit exceeded. Please try again later."

// Policy описывает фиксированное окно: не более Max запросов за Window
type Policy struct {
	Message string
	Window  time.Duration
	Max     int
}

// DefaultPolicies таблица лимитов по классам маршрутов
func DefaultPolicies() map[RouteClass]Policy {
	return map[RouteClass]Policy{
		ClassLogin:   {Window: 3 * time.Minute, Max: 3, Message: "Please wait 3 minutes before trying again."},
		ClassGet:     {Window: 15 * time.Minute, Max: 25, Message: defaultLimitMessage},
		ClassPost:    {Window: 15 * time.Minute, Max: 45, Message: defaultLimitMessage},
		ClassPut:     {Window: 15 * time.Minute, Max: 45, Message: defaultLimitMessage},
		ClassDelete:  {Window: 10 * time.Minute, Max: 10, Message: defaultLimitMessage},
		ClassDefault: {Window: 15 * time.Minute, Max: 25, Message: defaultLimitMessage},
	}
}

// RateLimiter считает запросы в фиксированных окнах по ключу (класс маршрута, IP клиента)
type RateLimiter struct {
	buckets  map[string]*bucket
	policies map[RouteClass]Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	cleanupC chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// bucket счетчик одного окна для конкретного ключа
type bucket struct {
	windowStart time.Time
	window      time.Duration
	count       int
	mu          sync.Mutex
	removed     bool // удален из карты cleanup'ом, счет в нем теряется
}

// Decision результат проверки лимита
type Decision struct {
	ResetAt   time.Time
	Limit     int
	Remaining int
	Allowed   bool
}

// NewRateLimiter создает rate limiter с заданной таблицей политик.
// Отсутствующий класс ClassDefault берется из DefaultPolicies.
func NewRateLimiter(policies map[RouteClass]Policy, logger *slog.Logger, m *metrics.Metrics) *RateLimiter {
	return newRateLimiter(policies, logger, m, time.Now)
}

func newRateLimiter(policies map[RouteClass]Policy, logger *slog.Logger, m *metrics.Metrics, now func() time.Time) *RateLimiter {
	table := make(map[RouteClass]Policy, len(policies)+1)
	for class, p := range policies {
		table[class] = p
	}
	if _, ok := table[ClassDefault]; !ok {
		table[ClassDefault] = DefaultPolicies()[ClassDefault]
	}

	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		policies: table,
		logger:   logger,
		metrics:  m,
		now:      now,
		cleanupC: make(chan struct{}),
	}

	// Запускаем периодическую очистку старых buckets
	go rl.cleanup(rl.longestWindow())

	return rl
}

func (rl *RateLimiter) longestWindow() time.Duration {
	longest := time.Minute
	for _, p := range rl.policies {
		if p.Window > longest {
			longest = p.Window
		}
	}
	return longest
}

// cleanup периодически удаляет buckets с истекшим окном
func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupExpiredBuckets()
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupExpiredBuckets удаляет buckets, окно которых уже закончилось
func (rl *RateLimiter) cleanupExpiredBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if !now.Before(b.windowStart.Add(b.window)) {
			delete(rl.buckets, key)
			b.removed = true
		}
		b.mu.Unlock()
	}
}

// Stop останавливает cleanup goroutine. Повторный вызов безопасен.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.cleanupC) })
}

// Policy возвращает политику класса, неизвестные классы получают ClassDefault
func (rl *RateLimiter) Policy(class RouteClass) Policy {
	if p, ok := rl.policies[class]; ok {
		return p
	}
	return rl.policies[ClassDefault]
}

// Allow учитывает запрос клиента key в классе class
func (rl *RateLimiter) Allow(class RouteClass, key string) Decision {
	policy := rl.Policy(class)
	b := rl.lockedBucket(string(class) + "|" + key)
	defer b.mu.Unlock()

	now := rl.now()

	// Окно закончилось или bucket новый: начинаем новое окно с нуля
	if b.windowStart.IsZero() || !now.Before(b.windowStart.Add(policy.Window)) {
		b.windowStart = now
		b.window = policy.Window
		b.count = 0
	}

	b.count++

	remaining := policy.Max - b.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   b.count <= policy.Max,
		Limit:     policy.Max,
		Remaining: remaining,
		ResetAt:   b.windowStart.Add(policy.Window),
	}
}

// lockedBucket возвращает захваченный bucket, который все еще лежит в карте.
// Между bucketFor и b.mu.Lock cleanup мог удалить bucket, тогда берем новый.
func (rl *RateLimiter) lockedBucket(key string) *bucket {
	for {
		b := rl.bucketFor(key)
		b.mu.Lock()
		if !b.removed {
			return b
		}
		b.mu.Unlock()
	}
}

// bucketFor возвращает bucket ключа, создавая его при первом обращении
func (rl *RateLimiter) bucketFor(key string) *bucket {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()
	if exists {
		return b
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Повторная проверка: bucket мог создать конкурентный запрос
	if b, exists = rl.buckets[key]; exists {
		return b
	}
	b = &bucket{}
	rl.buckets[key] = b

	return b
}

// Limit создает middleware с политикой класса class.
// При превышении лимита боты получают 403, остальные клиенты 429.
func (rl *RateLimiter) Limit(class RouteClass) func(http.Handler) http.Handler {
	policy := rl.Policy(class)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			decision := rl.Allow(class, key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if botdetect.IsBot(r.UserAgent()) {
				rl.logger.WarnContext(r.Context(), "Bot request over rate limit",
					"ip", key,
					"class", string(class),
					"user_agent", r.UserAgent(),
				)
				rl.metrics.RateLimited(string(class), metrics.ReasonBot)
				_ = response.Message(w, http.StatusForbidden, BotMessage)
				return
			}

			rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
				"ip", key,
				"class", string(class),
				"method", r.Method,
				"path", r.URL.Path,
			)
			rl.metrics.RateLimited(string(class), metrics.ReasonLimit)

			retryAfter := int(decision.ResetAt.Sub(rl.now()).Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			_ = response.Message(w, http.StatusTooManyRequests, policy.Message)
		})
	}
}

// ClientIP возвращает адрес клиента без порта.
// Заголовки прокси учитываются только если их заранее применил middleware.RealIP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
