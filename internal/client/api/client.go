package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/pkg/api"
)

// versionHeader заголовок с версией API
const versionHeader = "x-version"

// Error ответ сервера с кодом вне 2xx
type Error struct {
	Message string
	Detail  string // поле error конверта
	Status  int
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server error (%d): %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// StatusCode возвращает HTTP код из ошибки клиента или 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// envelope конверт ответа с отложенным разбором data
type envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message"`
	Error   string          `json:"error,omitempty"`
	Status  int             `json:"status"`
}

// Client представляет HTTP клиент для взаимодействия с сервером.
// Cookie сессии хранится в jar, поэтому после Login запросы аутентифицированы.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
}

// NewClient создает новый API клиент для версии API version
func NewClient(baseURL, version string) *Client {
	// cookiejar.New с nil опциями не возвращает ошибку
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL: baseURL,
		version: version,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
			// Ограничиваем количество редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				req.Header.Set(versionHeader, via[0].Header.Get(versionHeader))
				return nil
			},
		},
	}
}

// CreateAccount регистрирует нового пользователя
func (c *Client) CreateAccount(ctx context.Context, req api.CreateAccountRequest) (*models.User, error) {
	var user models.User
	if err := c.doRequest(ctx, http.MethodPost, "/auth/create", req, &user); err != nil {
		return nil, fmt.Errorf("create account request failed: %w", err)
	}
	return &user, nil
}

// Login выполняет вход, сессия сохраняется в cookie jar
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*models.User, error) {
	var user models.User
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", req, &user); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &user, nil
}

// Logout завершает сессию
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// CreateProduct создает товар
func (c *Client) CreateProduct(ctx context.Context, req api.ProductRequest) (*models.Product, error) {
	var product models.Product
	if err := c.doRequest(ctx, http.MethodPost, "/product/", req, &product); err != nil {
		return nil, fmt.Errorf("create product request failed: %w", err)
	}
	return &product, nil
}

// GetProduct возвращает товар по id
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.doRequest(ctx, http.MethodGet, "/product/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, fmt.Errorf("get product request failed: %w", err)
	}
	return &product, nil
}

// ListProducts возвращает все товары
func (c *Client) ListProducts(ctx context.Context) ([]*models.Product, error) {
	var products []*models.Product
	if err := c.doRequest(ctx, http.MethodGet, "/product/", nil, &products); err != nil {
		return nil, fmt.Errorf("list products request failed: %w", err)
	}
	return products, nil
}

// SearchProducts ищет товары по названию и описанию
func (c *Client) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	var products []*models.Product
	path := "/product/search?query=" + url.QueryEscape(query)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &products); err != nil {
		return nil, fmt.Errorf("search products request failed: %w", err)
	}
	return products, nil
}

// UpdateProduct частично обновляет товар
func (c *Client) UpdateProduct(ctx context.Context, id string, req api.ProductRequest) (*models.Product, error) {
	var product models.Product
	if err := c.doRequest(ctx, http.MethodPut, "/product/"+url.PathEscape(id), req, &product); err != nil {
		return nil, fmt.Errorf("update product request failed: %w", err)
	}
	return &product, nil
}

// DeleteProduct удаляет товар вместе с отзывами
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/product/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete product request failed: %w", err)
	}
	return nil
}

// ProductAverageRating возвращает среднюю оценку товара
func (c *Client) ProductAverageRating(ctx context.Context, productID string) (float64, error) {
	var avg float64
	if err := c.doRequest(ctx, http.MethodGet, "/product/average/"+url.PathEscape(productID), nil, &avg); err != nil {
		return 0, fmt.Errorf("average rating request failed: %w", err)
	}
	return avg, nil
}

// CreateReview создает отзыв на товар
func (c *Client) CreateReview(ctx context.Context, req api.ReviewRequest) (*models.Review, error) {
	var review models.Review
	if err := c.doRequest(ctx, http.MethodPost, "/review/", req, &review); err != nil {
		return nil, fmt.Errorf("create review request failed: %w", err)
	}
	return &review, nil
}

// ListReviews возвращает все отзывы
func (c *Client) ListReviews(ctx context.Context) ([]*models.Review, error) {
	return c.reviews(ctx, "/review/")
}

// ReviewsByRating возвращает отзывы с оценкой rating
func (c *Client) ReviewsByRating(ctx context.Context, rating int) ([]*models.Review, error) {
	return c.reviews(ctx, "/review/rating/"+strconv.Itoa(rating))
}

// SortedReviews возвращает отзывы, отсортированные по "rating" или "date"
func (c *Client) SortedReviews(ctx context.Context, sortBy string) ([]*models.Review, error) {
	return c.reviews(ctx, "/review/sorted?sortBy="+url.QueryEscape(sortBy))
}

// TopRatedProducts возвращает товары с наибольшей средней оценкой
func (c *Client) TopRatedProducts(ctx context.Context) ([]models.ProductRating, error) {
	var ratings []models.ProductRating
	if err := c.doRequest(ctx, http.MethodGet, "/review/average", nil, &ratings); err != nil {
		return nil, fmt.Errorf("top rated request failed: %w", err)
	}
	return ratings, nil
}

// GetReview возвращает отзыв по id
func (c *Client) GetReview(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := c.doRequest(ctx, http.MethodGet, "/review/"+url.PathEscape(id), nil, &review); err != nil {
		return nil, fmt.Errorf("get review request failed: %w", err)
	}
	return &review, nil
}

// UpdateReview частично обновляет отзыв
func (c *Client) UpdateReview(ctx context.Context, id string, req api.ReviewRequest) (*models.Review, error) {
	var review models.Review
	if err := c.doRequest(ctx, http.MethodPut, "/review/"+url.PathEscape(id), req, &review); err != nil {
		return nil, fmt.Errorf("update review request failed: %w", err)
	}
	return &review, nil
}

// DeleteReview удаляет отзыв
func (c *Client) DeleteReview(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/review/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete review request failed: %w", err)
	}
	return nil
}

func (c *Client) reviews(ctx context.Context, path string) ([]*models.Review, error) {
	var reviews []*models.Review
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &reviews); err != nil {
		return nil, fmt.Errorf("list reviews request failed: %w", err)
	}
	return reviews, nil
}

// doRequest выполняет HTTP запрос и разбирает data конверта в result
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(versionHeader, c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: env.Message, Detail: env.Error}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
