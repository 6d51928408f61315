package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/storage"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockUserStorage is a mock implementation of UserStorage for testing
type mockUserStorage struct {
	users        map[string]*models.User // username -> User
	createError  error
	getUserError error
	nextID       int
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[string]*models.User)}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	if m.createError != nil {
		return m.createError
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("%w: duplicate key", storage.ErrUserAlreadyExists)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	m.users[user.Username] = user
	return nil
}

func (m *mockUserStorage) GetUserByLogin(ctx context.Context, username, email string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	if user, ok := m.users[username]; ok && username != "" {
		return user, nil
	}
	for _, user := range m.users {
		if email != "" && user.Email == email {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// mockIssuer выдает предсказуемые токены
type mockIssuer struct {
	err error
}

func (m *mockIssuer) Issue(userID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "token-for-" + userID, nil
}

// mockSessions запоминает записанный токен и удаление
type mockSessions struct {
	setError  error
	token     string
	destroyed bool
}

func (m *mockSessions) SetAuthToken(w http.ResponseWriter, r *http.Request, token string) error {
	if m.setError != nil {
		return m.setError
	}
	m.token = token
	return nil
}

func (m *mockSessions) Destroy(w http.ResponseWriter, r *http.Request) error {
	m.destroyed = true
	m.token = ""
	return nil
}

// mockCatalog is an in-memory ProductStorage and ReviewStorage
type mockCatalog struct {
	products map[string]*models.Product
	reviews  map[string]*models.Review
	err      error // возвращается всеми методами, если задана
	order    []string
	nextID   int
	mu       sync.Mutex
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: make(map[string]*models.Product),
		reviews:  make(map[string]*models.Review),
	}
}

func (m *mockCatalog) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockCatalog) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.products {
		if existing.Name == p.Name {
			return fmt.Errorf("%w: name", storage.ErrProductAlreadyExists)
		}
	}
	p.ID = m.id("product")
	p.Reviews = []string{}
	c := *p
	m.products[p.ID] = &c
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	c := *p
	c.Reviews = append([]string{}, p.Reviews...)
	return &c, nil
}

func (m *mockCatalog) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return m.SearchProducts(ctx, "")
}

func (m *mockCatalog) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	q := strings.ToLower(query)
	out := make([]*models.Product, 0)
	for _, id := range m.order {
		p, ok := m.products[id]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockCatalog) UpdateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	existing, ok := m.products[p.ID]
	if !ok {
		return storage.ErrProductNotFound
	}
	existing.Name, existing.Description, existing.Category = p.Name, p.Description, p.Category
	return nil
}

func (m *mockCatalog) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockCatalog) ProductAverageRating(ctx context.Context, productID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return 0, storage.ErrProductNotFound
	}
	if len(p.Reviews) == 0 {
		return 0, nil
	}
	total := 0
	for _, id := range p.Reviews {
		total += m.reviews[id].Rating
	}
	return float64(total) / float64(len(p.Reviews)), nil
}

func (m *mockCatalog) CreateReview(ctx context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p, ok := m.products[r.ProductID]
	if !ok {
		return storage.ErrProductNotFound
	}
	r.ID = m.id("review")
	c := *r
	m.reviews[r.ID] = &c
	p.Reviews = append(p.Reviews, r.ID)
	return nil
}

func (m *mockCatalog) GetReview(ctx context.Context, id string) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.reviews[id]
	if !ok {
		return nil, storage.ErrReviewNotFound
	}
	c := *r
	return &c, nil
}

func (m *mockCatalog) ListReviews(ctx context.Context, filter storage.ReviewFilter) ([]*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Review, 0)
	for _, r := range m.reviews {
		if filter.Rating != 0 && r.Rating != filter.Rating {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		switch filter.SortBy {
		case storage.SortByRating:
			return out[i].Rating > out[j].Rating
		case storage.SortByDate:
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockCatalog) UpdateReview(ctx context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	existing, ok := m.reviews[r.ID]
	if !ok {
		return storage.ErrReviewNotFound
	}
	existing.Rating, existing.Comment = r.Rating, r.Comment
	return nil
}

func (m *mockCatalog) DeleteReview(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	r, ok := m.reviews[id]
	if !ok {
		return storage.ErrReviewNotFound
	}
	delete(m.reviews, id)
	if p, ok := m.products[r.ProductID]; ok {
		for i, rid := range p.Reviews {
			if rid == id {
				p.Reviews = append(p.Reviews[:i], p.Reviews[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *mockCatalog) TopRatedProducts(ctx context.Context, limit int) ([]models.ProductRating, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	ids := make([]string, 0, len(m.products))
	for id, p := range m.products {
		if len(p.Reviews) > 0 {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	out := make([]models.ProductRating, 0, len(ids))
	for _, id := range ids {
		avg, _ := m.ProductAverageRating(ctx, id)
		out = append(out, models.ProductRating{ProductID: id, Name: m.products[id].Name, AverageRating: avg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AverageRating > out[j].AverageRating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
