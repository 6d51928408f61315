package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/response"
	"github.com/iudanet/productreviews/internal/server/storage"
	"github.com/iudanet/productreviews/internal/validation"
	"github.com/iudanet/productreviews/pkg/api"
)

// ReviewHandler обрабатывает CRUD запросы отзывов
type ReviewHandler struct {
	reviews storage.ReviewStorage
	now     func() time.Time
	base
}

// NewReviewHandler создает handler отзывов
func NewReviewHandler(logger *slog.Logger, reviews storage.ReviewStorage, storeTimeout time.Duration) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		now:     time.Now,
		base:    base{logger: logger, storeTimeout: storeTimeout},
	}
}

// Create обрабатывает POST /review/
// Отзыв привязывается к товару, несуществующий товар дает 404
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.ReviewRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if h.validationFailed(w, r, validation.CreateReview(req)) {
		return
	}

	review := &models.Review{
		ProductID: *req.ProductID,
		Rating:    *req.Rating,
		Comment:   *req.Comment,
		Date:      h.now().UTC(),
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	if err := h.reviews.CreateReview(ctx, review); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			h.reply(r, response.Message(w, http.StatusNotFound, "Product not found"))
			return
		}
		h.internalError(w, r, "Error creating review", err)
		return
	}

	h.logger.InfoContext(r.Context(), "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID))

	h.reply(r, response.Data(w, http.StatusCreated, "Review created", review))
}

// List обрабатывает GET /review/
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, storage.ReviewFilter{})
}

// ByRating обрабатывает GET /review/rating/{rating}
func (h *ReviewHandler) ByRating(w http.ResponseWriter, r *http.Request) {
	rating, err := strconv.Atoi(chi.URLParam(r, "rating"))
	if err == nil {
		err = validation.ValidateRating(rating)
	}
	if err != nil {
		h.validationFailed(w, r, validation.Errors{{Field: "rating", Message: err.Error()}})
		return
	}

	h.list(w, r, storage.ReviewFilter{Rating: rating})
}

// Sorted обрабатывает GET /review/sorted?sortBy=rating|date
func (h *ReviewHandler) Sorted(w http.ResponseWriter, r *http.Request) {
	sortBy := storage.ReviewSort(r.URL.Query().Get("sortBy"))
	if sortBy != storage.SortByRating && sortBy != storage.SortByDate {
		h.reply(r, response.Message(w, http.StatusBadRequest, "Invalid sortBy parameter"))
		return
	}

	h.list(w, r, storage.ReviewFilter{SortBy: sortBy})
}

// TopRated обрабатывает GET /review/average
// Десять товаров с наибольшей средней оценкой
func (h *ReviewHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	ratings, err := h.reviews.TopRatedProducts(ctx, storage.TopRatedLimit)
	if err != nil {
		h.internalError(w, r, "Error getting top rated products", err)
		return
	}

	h.reply(r, response.Data(w, http.StatusOK, "Top rated products found", ratings))
}

// Get обрабатывает GET /review/{id}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	review, err := h.reviews.GetReview(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.reviewError(w, r, "Error getting review", err)
		return
	}

	h.reply(r, response.Data(w, http.StatusOK, "Review found", review))
}

// Update обрабатывает PUT /review/{id}
// Обновляются только переданные rating и comment
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req api.ReviewRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if h.validationFailed(w, r, validation.UpdateReview(req)) {
		return
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	review, err := h.reviews.GetReview(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.reviewError(w, r, "Error updating review", err)
		return
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}

	if err := h.reviews.UpdateReview(ctx, review); err != nil {
		h.reviewError(w, r, "Error updating review", err)
		return
	}

	h.reply(r, response.Data(w, http.StatusOK, "Review updated", review))
}

// Delete обрабатывает DELETE /review/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.reviews.DeleteReview(ctx, id); err != nil {
		h.reviewError(w, r, "Error deleting review", err)
		return
	}

	h.logger.InfoContext(r.Context(), "review deleted", slog.String("review_id", id))

	h.reply(r, response.Message(w, http.StatusOK, "Review deleted"))
}

func (h *ReviewHandler) list(w http.ResponseWriter, r *http.Request, filter storage.ReviewFilter) {
	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	reviews, err := h.reviews.ListReviews(ctx, filter)
	if err != nil {
		h.internalError(w, r, "Error getting reviews", err)
		return
	}

	if len(reviews) == 0 {
		h.reply(r, response.Message(w, http.StatusNotFound, "No reviews found"))
		return
	}

	h.reply(r, response.Data(w, http.StatusOK, "Reviews found", reviews))
}

// reviewError переводит ErrReviewNotFound в 404, остальное в 500
func (h *ReviewHandler) reviewError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if errors.Is(err, storage.ErrReviewNotFound) {
		h.reply(r, response.Message(w, http.StatusNotFound, "Review not found"))
		return
	}
	h.internalError(w, r, message, err)
}
