package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/productreviews/internal/server/response"
	"github.com/iudanet/productreviews/internal/validation"
)

// maxBodyBytes ограничение размера тела запроса
const maxBodyBytes = 1 << 20

// ValidationErrorsMessage сообщение конверта с ошибками валидации
const ValidationErrorsMessage = "Validation errors"

// DefaultStoreTimeout время на один запрос к хранилищу
const DefaultStoreTimeout = 5 * time.Second

// base общие зависимости обработчиков
type base struct {
	logger       *slog.Logger
	storeTimeout time.Duration
}

// storeContext ограничивает обращение к хранилищу по времени
func (b base) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.storeTimeout)
}

// decodeJSON читает тело запроса в dst.
// При ошибке сам отправляет 400 и возвращает false.
func (b base) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		b.logger.WarnContext(r.Context(), "failed to decode request body", slog.Any("error", err))
		b.reply(r, response.Message(w, http.StatusBadRequest, response.MalformedJSONMessage))
		return false
	}

	return true
}

// validationFailed отправляет 400 со списком ошибок, если они есть
func (b base) validationFailed(w http.ResponseWriter, r *http.Request, errs validation.Errors) bool {
	if len(errs) == 0 {
		return false
	}

	b.logger.DebugContext(r.Context(), "validation failed", slog.Int("errors", len(errs)))
	b.reply(r, response.Data(w, http.StatusBadRequest, ValidationErrorsMessage, errs))
	return true
}

// internalError логирует ошибку и отправляет 500 с ее текстом
func (b base) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("storage timeout: %w", err)
	}
	b.logger.ErrorContext(r.Context(), message, slog.Any("error", err))
	b.reply(r, response.Error(w, http.StatusInternalServerError, message, err))
}

// reply логирует ошибку записи ответа
func (b base) reply(r *http.Request, err error) {
	if err != nil {
		b.logger.ErrorContext(r.Context(), "failed to encode JSON response", slog.Any("error", err))
	}
}
