package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/pkg/api"
)

func reviewRouter(h *ReviewHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/review/rating/{rating}", h.ByRating)
	r.Get("/review/average", h.TopRated)
	r.Get("/review/sorted", h.Sorted)
	r.Get("/review/{id}", h.Get)
	r.Get("/review/", h.List)
	r.Post("/review/", h.Create)
	r.Put("/review/{id}", h.Update)
	r.Delete("/review/{id}", h.Delete)
	return r
}

func seedReview(t *testing.T, catalog *mockCatalog, productID string, rating int, date time.Time) *models.Review {
	t.Helper()

	r := &models.Review{ProductID: productID, Rating: rating, Comment: "comment", Date: date}
	require.NoError(t, catalog.CreateReview(context.Background(), r))
	return r
}

func reviewIDs(t *testing.T, resp api.Response) []string {
	t.Helper()

	items, ok := resp.Data.([]any)
	require.True(t, ok)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		require.True(t, ok)
		ids = append(ids, m["id"].(string))
	}
	return ids
}

func TestReviewHandler_Create(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")

	handler := NewReviewHandler(setupTestLogger(), catalog, time.Second)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return fixed }
	router := reviewRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/review/", api.ReviewRequest{
		ProductID: strPtr(p.ID),
		Rating:    intPtr(4),
		Comment:   strPtr("Solid"),
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, "Review created", resp.Message)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, p.ID, data["product_id"])
	assert.Equal(t, fixed.Format(time.RFC3339), data["date"])

	// id отзыва добавлен в товар
	require.Len(t, catalog.products[p.ID].Reviews, 1)
	assert.Equal(t, data["id"], catalog.products[p.ID].Reviews[0])
}

func TestReviewHandler_Create_ProductNotFound(t *testing.T) {
	catalog := newMockCatalog()
	router := reviewRouter(NewReviewHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodPost, "/review/", api.ReviewRequest{
		ProductID: strPtr("missing"),
		Rating:    intPtr(4),
		Comment:   strPtr("Solid"),
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decodeResponse(t, w).Message)
	assert.Empty(t, catalog.reviews)
}

func TestReviewHandler_Create_Validation(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	router := reviewRouter(NewReviewHandler(setupTestLogger(), catalog, time.Second))

	tests := []struct {
		body       any
		name       string
		wantStatus int
		wantFields int
	}{
		{
			name:       "rating out of range",
			body:       api.ReviewRequest{ProductID: strPtr(p.ID), Rating: intPtr(6), Comment: strPtr("x")},
			wantStatus: http.StatusBadRequest,
			wantFields: 1,
		},
		{
			name:       "everything missing",
			body:       api.ReviewRequest{},
			wantStatus: http.StatusBadRequest,
			wantFields: 3,
		},
		{
			name:       "rating as string",
			body:       map[string]any{"productId": p.ID, "rating": "5", "comment": "x"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/review/", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			if tt.wantFields > 0 {
				fields, ok := resp.Data.([]any)
				require.True(t, ok)
				assert.Len(t, fields, tt.wantFields)
			}
		})
	}
	assert.Empty(t, catalog.reviews)
}

func TestReviewHandler_List(t *testing.T) {
	catalog := newMockCatalog()
	router := reviewRouter(NewReviewHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/review/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No reviews found", decodeResponse(t, w).Message)

	p := seedProduct(t, catalog, "Hammer")
	seedReview(t, catalog, p.ID, 3, time.Now())

	w = doJSON(t, router, http.MethodGet, "/review/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Reviews found", decodeResponse(t, w).Message)
}

func TestReviewHandler_ByRating(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	five := seedReview(t, catalog, p.ID, 5, time.Now())
	seedReview(t, catalog, p.ID, 2, time.Now())
	router := reviewRouter(NewReviewHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/review/rating/5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{five.ID}, reviewIDs(t, decodeResponse(t, w)))

	w = doJSON(t, router, http.MethodGet, "/review/rating/4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, bad := range []string{"0", "6", "abc"} {
		w = doJSON(t, router, http.MethodGet, "/review/rating/"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Equal(t, ValidationErrorsMessage, decodeResponse(t, w).Message)
	}
}

func TestReviewHandler_Sorted(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	oldHigh := seedReview(t, catalog, p.ID, 5, start)
	newLow := seedReview(t, catalog, p.ID, 1, start.Add(48*time.Hour))
	midMid := seedReview(t, catalog, p.ID, 3, start.Add(24*time.Hour))
	router := reviewRouter(NewReviewHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/review/sorted?sortBy=rating", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{oldHigh.ID, midMid.ID, newLow.ID}, reviewIDs(t, decodeResponse(t, w)))

	w = doJSON(t, router, http.MethodGet, "/review/sorted?sortBy=date", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{newLow.ID, midMid.ID, oldHigh.ID}, reviewIDs(t, decodeResponse(t, w)))

	for _, target := range []string{"/review/sorted", "/review/sorted?sortBy=name"} {
		w = doJSON(t, router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid sortBy parameter", decodeResponse(t, w).Message)
	}
}

func TestReviewHandler_TopRated(t *testing.T) {
	catalog := newMockCatalog()
	hammer := seedProduct(t, catalog, "Hammer")
	saw := seedProduct(t, catalog, "Saw")
	seedProduct(t, catalog, "Drill")
	seedReview(t, catalog, hammer.ID, 2, time.Now())
	seedReview(t, catalog, saw.ID, 5, time.Now())
	seedReview(t, catalog, saw.ID, 4, time.Now())
	router := reviewRouter(NewReviewHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/review/average", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, "Top rated products found", resp.Message)

	items, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, items, 2)

	first := items[0].(map[string]any)
	assert.Equal(t, saw.ID, first["product_id"])
	assert.InDelta(t, 4.5, first["average_rating"], 0.001)
}

func TestReviewHandler_GetUpdateDelete(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	review := seedReview(t, catalog, p.ID, 3, time.Now())
	router := reviewRouter(NewReviewHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/review/"+review.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Review found", decodeResponse(t, w).Message)

	w = doJSON(t, router, http.MethodGet, "/review/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Review not found", decodeResponse(t, w).Message)

	// частичное обновление: comment не меняется
	w = doJSON(t, router, http.MethodPut, "/review/"+review.ID, api.ReviewRequest{Rating: intPtr(5)})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, catalog.reviews[review.ID].Rating)
	assert.Equal(t, "comment", catalog.reviews[review.ID].Comment)

	w = doJSON(t, router, http.MethodPut, "/review/"+review.ID, api.ReviewRequest{ProductID: strPtr("other")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPut, "/review/missing", api.ReviewRequest{Rating: intPtr(5)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/review/"+review.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Review deleted", decodeResponse(t, w).Message)
	assert.Empty(t, catalog.products[p.ID].Reviews)

	w = doJSON(t, router, http.MethodDelete, "/review/"+review.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
