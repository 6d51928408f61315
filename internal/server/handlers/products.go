package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/response"
	"github.com/iudanet/productreviews/internal/server/storage"
	"github.com/iudanet/productreviews/internal/validation"
	"github.com/iudanet/productreviews/pkg/api"
)

// ProductHandler обрабатывает CRUD запросы товаров
type ProductHandler struct {
	products storage.ProductStorage
	base
}

// NewProductHandler создает handler товаров
func NewProductHandler(logger *slog.Logger, products storage.ProductStorage, storeTimeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		base:     base{logger: logger, storeTimeout: storeTimeout},
	}
}

// Create обрабатывает POST /product/
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.ProductRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if h.validationFailed(w, r, validation.CreateProduct(req)) {
		return
	}

	product := &models.Product{
		Name:        *req.Name,
		Description: *req.Description,
		Category:    *req.Category,
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	if err := h.products.CreateProduct(ctx, product); err != nil {
		h.internalError(w, r, "Error creating product", err)
		return
	}

	h.logger.InfoContext(r.Context(), "product created", slog.String("product_id", product.ID))

	h.reply(r, response.Data(w, http.StatusCreated, "Product created", product))
}

// List обрабатывает GET /product/
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	products, err := h.products.ListProducts(ctx)
	if err != nil {
		h.internalError(w, r, "Error getting products", err)
		return
	}

	h.replyProducts(w, r, products)
}

// Search обрабатывает GET /product/search?query=
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		h.reply(r, response.Message(w, http.StatusBadRequest, "Query parameter is required"))
		return
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	products, err := h.products.SearchProducts(ctx, query)
	if err != nil {
		h.internalError(w, r, "Error searching products", err)
		return
	}

	h.replyProducts(w, r, products)
}

// Get обрабатывает GET /product/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	product, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.productError(w, r, "Error getting product", err)
		return
	}

	h.reply(r, response.Data(w, http.StatusOK, "Product found", product))
}

// Update обрабатывает PUT /product/{id}
// Обновляются только переданные поля
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req api.ProductRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if h.validationFailed(w, r, validation.UpdateProduct(req)) {
		return
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	product, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.productError(w, r, "Error updating product", err)
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Category != nil {
		product.Category = *req.Category
	}

	if err := h.products.UpdateProduct(ctx, product); err != nil {
		h.productError(w, r, "Error updating product", err)
		return
	}

	h.reply(r, response.Data(w, http.StatusOK, "Product updated", product))
}

// Delete обрабатывает DELETE /product/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.products.DeleteProduct(ctx, id); err != nil {
		h.productError(w, r, "Error deleting product", err)
		return
	}

	h.logger.InfoContext(r.Context(), "product deleted", slog.String("product_id", id))

	h.reply(r, response.Message(w, http.StatusOK, "Product deleted"))
}

// AverageRating обрабатывает GET /product/average/{productId}
func (h *ProductHandler) AverageRating(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	avg, err := h.products.ProductAverageRating(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		h.productError(w, r, "Error getting average rating", err)
		return
	}

	h.reply(r, response.Data(w, http.StatusOK, "Average rating", avg))
}

func (h *ProductHandler) replyProducts(w http.ResponseWriter, r *http.Request, products []*models.Product) {
	if len(products) == 0 {
		h.reply(r, response.Message(w, http.StatusNotFound, "No products found"))
		return
	}

	h.reply(r, response.Data(w, http.StatusOK, "Products found", products))
}

// productError переводит ErrProductNotFound в 404, остальное в 500
func (h *ProductHandler) productError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if errors.Is(err, storage.ErrProductNotFound) {
		h.reply(r, response.Message(w, http.StatusNotFound, "Product not found"))
		return
	}
	h.internalError(w, r, message, err)
}
