package crypto

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost стоимость bcrypt (2^10 раундов)
const DefaultCost = 10

// HasherConfig настраивает пул хеширования паролей
type HasherConfig struct {
	Cost          int           // bcrypt cost, 0 означает DefaultCost
	MaxConcurrent int           // одновременных bcrypt операций, 0 означает GOMAXPROCS
	QueueTimeout  time.Duration // сколько ждать свободного слота
}

// PasswordHasher хеширует и проверяет пароли.
// bcrypt намеренно медленный, поэтому все операции проходят через bulkhead
// и не занимают больше MaxConcurrent ядер одновременно.
type PasswordHasher struct {
	pool bulkhead.Bulkhead[[]byte]
	cost int
}

// NewPasswordHasher создает hasher с ограниченным пулом
func NewPasswordHasher(cfg HasherConfig) *PasswordHasher {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultCost
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}

	queueTimeout := cfg.QueueTimeout
	if queueTimeout <= 0 {
		queueTimeout = 10 * time.Second
	}

	return &PasswordHasher{
		pool: bulkhead.New[[]byte](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 16,
			QueueTimeout:  queueTimeout,
		}),
		cost: cost,
	}
}

// Hash возвращает bcrypt хеш пароля
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := h.pool.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		return bcrypt.GenerateFromPassword([]byte(password), h.cost)
	})
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Verify сравнивает пароль с сохраненным хешем.
// Несовпадение возвращает (false, nil), ошибка означает сбой самой проверки.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if hash == "" {
		return false, fmt.Errorf("hashed password cannot be empty")
	}

	_, err := h.pool.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		return nil, bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	})
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to verify password: %w", err)
	}

	return true, nil
}
