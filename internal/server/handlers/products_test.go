package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/storage"
	"github.com/iudanet/productreviews/pkg/api"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// productRouter монтирует ProductHandler так же, как основной роутер
func productRouter(h *ProductHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/product/search", h.Search)
	r.Get("/product/average/{productId}", h.AverageRating)
	r.Get("/product/", h.List)
	r.Get("/product/{id}", h.Get)
	r.Post("/product/", h.Create)
	r.Put("/product/{id}", h.Update)
	r.Delete("/product/{id}", h.Delete)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, &buf))
	return w
}

func seedProduct(t *testing.T, catalog *mockCatalog, name string) *models.Product {
	t.Helper()

	p := &models.Product{Name: name, Description: name + " description", Category: "tools"}
	require.NoError(t, catalog.CreateProduct(context.Background(), p))
	return p
}

func TestProductHandler_Create(t *testing.T) {
	catalog := newMockCatalog()
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodPost, "/product/", api.ProductRequest{
		Name:        strPtr("Hammer"),
		Description: strPtr("Steel hammer"),
		Category:    strPtr("tools"),
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, "Product created", resp.Message)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Hammer", data["name"])
	assert.NotEmpty(t, data["id"])
	assert.Len(t, catalog.products, 1)
}

func TestProductHandler_Create_Validation(t *testing.T) {
	catalog := newMockCatalog()
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodPost, "/product/", api.ProductRequest{Name: strPtr("Hammer")})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, ValidationErrorsMessage, resp.Message)
	fields, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, fields, 2)
	assert.Empty(t, catalog.products)
}

func TestProductHandler_Create_Duplicate(t *testing.T) {
	catalog := newMockCatalog()
	seedProduct(t, catalog, "Hammer")
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodPost, "/product/", api.ProductRequest{
		Name:        strPtr("Hammer"),
		Description: strPtr("Another"),
		Category:    strPtr("tools"),
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "Error creating product", resp.Message)
	assert.Contains(t, resp.Error, storage.ErrProductAlreadyExists.Error())
}

func TestProductHandler_List(t *testing.T) {
	catalog := newMockCatalog()
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/product/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No products found", decodeResponse(t, w).Message)

	seedProduct(t, catalog, "Hammer")
	seedProduct(t, catalog, "Saw")

	w = doJSON(t, router, http.MethodGet, "/product/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, "Products found", resp.Message)
	items, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestProductHandler_Search(t *testing.T) {
	catalog := newMockCatalog()
	seedProduct(t, catalog, "Hammer")
	seedProduct(t, catalog, "Saw")
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	tests := []struct {
		name        string
		target      string
		wantMessage string
		wantStatus  int
		wantCount   int
	}{
		{name: "match is case-insensitive", target: "/product/search?query=hAMm", wantStatus: http.StatusOK, wantMessage: "Products found", wantCount: 1},
		{name: "no match", target: "/product/search?query=drill", wantStatus: http.StatusNotFound, wantMessage: "No products found"},
		{name: "missing query", target: "/product/search", wantStatus: http.StatusBadRequest, wantMessage: "Query parameter is required"},
		{name: "blank query", target: "/product/search?query=%20%20", wantStatus: http.StatusBadRequest, wantMessage: "Query parameter is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, tt.target, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantMessage, resp.Message)
			if tt.wantCount > 0 {
				items, ok := resp.Data.([]any)
				require.True(t, ok)
				assert.Len(t, items, tt.wantCount)
			}
		})
	}
}

func TestProductHandler_Get(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/product/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Product found", decodeResponse(t, w).Message)

	w = doJSON(t, router, http.MethodGet, "/product/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decodeResponse(t, w).Message)
}

func TestProductHandler_Update_Partial(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodPut, "/product/"+p.ID, api.ProductRequest{Category: strPtr("hardware")})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Product updated", decodeResponse(t, w).Message)

	updated := catalog.products[p.ID]
	assert.Equal(t, "Hammer", updated.Name)
	assert.Equal(t, "Hammer description", updated.Description)
	assert.Equal(t, "hardware", updated.Category)
}

func TestProductHandler_Update_Errors(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodPut, "/product/missing", api.ProductRequest{Name: strPtr("Saw")})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPut, "/product/"+p.ID, api.ProductRequest{Name: strPtr("  ")})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ValidationErrorsMessage, decodeResponse(t, w).Message)
	assert.Equal(t, "Hammer", catalog.products[p.ID].Name)
}

func TestProductHandler_Delete(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodDelete, "/product/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Product deleted", decodeResponse(t, w).Message)
	assert.Empty(t, catalog.products)

	w = doJSON(t, router, http.MethodDelete, "/product/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_AverageRating(t *testing.T) {
	catalog := newMockCatalog()
	p := seedProduct(t, catalog, "Hammer")
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/product/average/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.0, decodeResponse(t, w).Data, 0.001)

	for _, rating := range []int{4, 5} {
		require.NoError(t, catalog.CreateReview(context.Background(), &models.Review{ProductID: p.ID, Rating: rating, Comment: "ok"}))
	}

	w = doJSON(t, router, http.MethodGet, "/product/average/"+p.ID, nil)
	resp := decodeResponse(t, w)
	assert.Equal(t, "Average rating", resp.Message)
	assert.InDelta(t, 4.5, resp.Data, 0.001)

	w = doJSON(t, router, http.MethodGet, "/product/average/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_StorageError(t *testing.T) {
	catalog := newMockCatalog()
	catalog.err = errors.New("disk I/O error")
	router := productRouter(NewProductHandler(setupTestLogger(), catalog, time.Second))

	w := doJSON(t, router, http.MethodGet, "/product/", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "Error getting products", resp.Message)
	assert.Equal(t, "disk I/O error", resp.Error)
}
