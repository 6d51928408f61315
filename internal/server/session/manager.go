package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultCookieName имя cookie с идентификатором сессии
const DefaultCookieName = "sid"

// Config параметры менеджера сессий
type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager связывает cookie клиента с сессией в Store
type Manager struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	cfg    Config
}

type contextKey struct{}

// state сессия текущего запроса. Указатель в контексте позволяет
// последующим вызовам в рамках запроса видеть изменения.
type state struct {
	sess *Session
	mu   sync.Mutex
}

// NewManager создает менеджер сессий
func NewManager(store Store, cfg Config, logger *slog.Logger) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Middleware загружает сессию из cookie в контекст запроса.
// Неизвестная или истекшая сессия означает анонимный запрос.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &state{}

		if cookie, err := r.Cookie(m.cfg.CookieName); err == nil && cookie.Value != "" {
			sess, err := m.store.Get(r.Context(), cookie.Value)
			switch {
			case err == nil && !sess.Expired(m.now()):
				st.sess = sess
			case err == nil, errors.Is(err, ErrNotFound):
				// сессия истекла или удалена
			default:
				m.logger.ErrorContext(r.Context(), "Failed to load session", "error", err)
			}
		}

		ctx := context.WithValue(r.Context(), contextKey{}, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func stateFrom(ctx context.Context) *state {
	st, _ := ctx.Value(contextKey{}).(*state)
	return st
}

// AuthToken возвращает токен из сессии запроса или пустую строку
func AuthToken(ctx context.Context) string {
	st := stateFrom(ctx)
	if st == nil {
		return ""
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sess == nil {
		return ""
	}
	return st.sess.AuthToken
}

// Get возвращает значение key из сессии запроса
func Get(ctx context.Context, key string) (string, bool) {
	st := stateFrom(ctx)
	if st == nil {
		return "", false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sess == nil {
		return "", false
	}
	v, ok := st.sess.Values[key]
	return v, ok
}

// Set сохраняет значение в сессии, создавая ее при необходимости
func (m *Manager) Set(w http.ResponseWriter, r *http.Request, key, value string) error {
	return m.write(w, r, false, func(s *Session) {
		if s.Values == nil {
			s.Values = make(map[string]string)
		}
		s.Values[key] = value
	})
}

// SetAuthToken записывает токен в сессию под новым идентификатором.
// Старая запись удаляется, чтобы известный до входа id не стал аутентифицированным.
func (m *Manager) SetAuthToken(w http.ResponseWriter, r *http.Request, token string) error {
	return m.write(w, r, true, func(s *Session) {
		s.AuthToken = token
	})
}

// Destroy удаляет сессию и очищает cookie
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r.Context())
	if st == nil {
		return errors.New("session middleware is not installed")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	m.clearCookie(w)

	if st.sess == nil {
		return nil
	}

	id := st.sess.ID
	st.sess = nil

	if err := m.store.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, regenerate bool, apply func(*Session)) error {
	st := stateFrom(r.Context())
	if st == nil {
		return errors.New("session middleware is not installed")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	now := m.now()

	var sess *Session
	var oldID string
	if st.sess != nil {
		sess = st.sess.clone()
		if regenerate {
			oldID = sess.ID
		}
	} else {
		sess = &Session{CreatedAt: now}
		regenerate = true
	}

	if regenerate {
		id, err := GenerateID()
		if err != nil {
			return err
		}
		sess.ID = id
	}

	apply(sess)
	sess.LastAccessedAt = now
	sess.ExpiresAt = now.Add(m.cfg.TTL)

	if err := m.store.Save(r.Context(), sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if oldID != "" {
		if err := m.store.Delete(r.Context(), oldID); err != nil {
			m.logger.WarnContext(r.Context(), "Failed to delete previous session", "error", err)
		}
	}

	st.sess = sess
	m.setCookie(w, sess)

	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
