package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/response"
	"github.com/iudanet/productreviews/internal/server/storage"
	"github.com/iudanet/productreviews/internal/validation"
	"github.com/iudanet/productreviews/pkg/api"
)

// PasswordHasher хеширует и проверяет пароли
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// TokenIssuer выпускает токен для пользователя
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// SessionWriter записывает токен в сессию клиента и удаляет ее
type SessionWriter interface {
	SetAuthToken(w http.ResponseWriter, r *http.Request, token string) error
	Destroy(w http.ResponseWriter, r *http.Request) error
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	users    storage.UserStorage
	hasher   PasswordHasher
	tokens   TokenIssuer
	sessions SessionWriter
	base
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(
	logger *slog.Logger,
	users storage.UserStorage,
	hasher PasswordHasher,
	tokens TokenIssuer,
	sessions SessionWriter,
	storeTimeout time.Duration,
) *AuthHandler {
	return &AuthHandler{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		base:     base{logger: logger, storeTimeout: storeTimeout},
	}
}

// CreateAccount обрабатывает POST /auth/create
func (h *AuthHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateAccountRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if h.validationFailed(w, r, validation.CreateAccount(req)) {
		return
	}

	passwordHash, err := h.hasher.Hash(ctx, req.Password)
	if err != nil {
		h.internalError(w, r, "Error creating user account", err)
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	storeCtx, cancel := h.storeContext(ctx)
	defer cancel()

	if err := h.users.CreateUser(storeCtx, user); err != nil {
		// Дубликат username/email не отличается от прочих ошибок
		h.internalError(w, r, "Error creating user account", err)
		return
	}

	h.logger.InfoContext(ctx, "user account created", slog.String("user_id", user.ID))

	h.reply(r, response.Data(w, http.StatusCreated, "User account created", user))
}

// Login обрабатывает POST /auth/login
// Вход по username или email, токен кладется в сессию
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if h.validationFailed(w, r, validation.Login(req)) {
		return
	}

	storeCtx, cancel := h.storeContext(ctx)
	user, err := h.users.GetUserByLogin(storeCtx, req.Username, req.Email)
	cancel()
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "user not found")
			h.reply(r, response.Message(w, http.StatusNotFound, "User not found"))
			return
		}
		h.internalError(w, r, "Error logging in user", err)
		return
	}

	ok, err := h.hasher.Verify(ctx, req.Password, user.PasswordHash)
	if err != nil {
		h.internalError(w, r, "Error logging in user", err)
		return
	}
	if !ok {
		h.logger.WarnContext(ctx, "invalid password", slog.String("user_id", user.ID))
		h.reply(r, response.Message(w, http.StatusBadRequest, "Invalid password"))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.internalError(w, r, "Error logging in user", err)
		return
	}

	if err := h.sessions.SetAuthToken(w, r, token); err != nil {
		h.internalError(w, r, "Error logging in user", err)
		return
	}

	h.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	h.reply(r, response.Data(w, http.StatusOK, "User logged in", user))
}

// Logout обрабатывает POST /auth/logout
// Удаляет сессию, старый cookie перестает аутентифицировать
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		h.internalError(w, r, "Error logging out user", err)
		return
	}

	h.reply(r, response.Message(w, http.StatusOK, "User logged out"))
}
