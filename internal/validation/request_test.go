package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/productreviews/pkg/api"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func fields(errs Errors) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestCreateAccount(t *testing.T) {
	errs := CreateAccount(api.CreateAccountRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	assert.Empty(t, errs)

	for _, username := range []string{"jo", "juan.perez", "Juan Perez", "josé"} {
		errs = CreateAccount(api.CreateAccountRequest{Username: username, Email: "juan@example.com", Password: "secret1"})
		assert.Empty(t, errs, username)
	}

	errs = CreateAccount(api.CreateAccountRequest{})
	assert.ElementsMatch(t, []string{"username", "email", "password"}, fields(errs))
}

func TestLogin(t *testing.T) {
	t.Run("username only", func(t *testing.T) {
		assert.Empty(t, Login(api.LoginRequest{Username: "alice", Password: "secret1"}))
	})

	t.Run("email only", func(t *testing.T) {
		assert.Empty(t, Login(api.LoginRequest{Email: "alice@example.com", Password: "secret1"}))
	})

	t.Run("neither username nor email", func(t *testing.T) {
		assert.Equal(t, []string{"username"}, fields(Login(api.LoginRequest{Password: "secret1"})))
	})

	t.Run("short password", func(t *testing.T) {
		assert.Equal(t, []string{"password"}, fields(Login(api.LoginRequest{Username: "alice", Password: "123"})))
	})
}

func TestProductRules(t *testing.T) {
	assert.ElementsMatch(t, []string{"name", "description", "category"}, fields(CreateProduct(api.ProductRequest{})))
	assert.Empty(t, CreateProduct(api.ProductRequest{
		Name:        strPtr("Phone"),
		Description: strPtr("A phone"),
		Category:    strPtr("electronics"),
	}))

	// Обновление: отсутствующие поля допустимы, пустые строки нет
	assert.Empty(t, UpdateProduct(api.ProductRequest{}))
	assert.Equal(t, []string{"name"}, fields(UpdateProduct(api.ProductRequest{Name: strPtr("  ")})))
}

func TestReviewRules(t *testing.T) {
	assert.ElementsMatch(t, []string{"productId", "rating", "comment"}, fields(CreateReview(api.ReviewRequest{})))
	assert.Equal(t, []string{"rating"}, fields(CreateReview(api.ReviewRequest{
		ProductID: strPtr("p1"),
		Rating:    intPtr(6),
		Comment:   strPtr("great"),
	})))
	assert.Empty(t, CreateReview(api.ReviewRequest{
		ProductID: strPtr("p1"),
		Rating:    intPtr(5),
		Comment:   strPtr("great"),
	}))

	assert.Empty(t, UpdateReview(api.ReviewRequest{Rating: intPtr(1)}))
	assert.Equal(t, []string{"productId"}, fields(UpdateReview(api.ReviewRequest{ProductID: strPtr("p2")})))
	assert.Equal(t, []string{"rating"}, fields(UpdateReview(api.ReviewRequest{Rating: intPtr(0)})))
}
