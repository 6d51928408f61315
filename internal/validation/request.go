package validation

import (
	"fmt"
	"strings"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/pkg/api"
)

// Errors набор ошибок валидации по полям
type Errors []api.FieldError

func (e *Errors) add(field, message string) {
	*e = append(*e, api.FieldError{Field: field, Message: message})
}

func (e *Errors) check(field string, err error) {
	if err != nil {
		e.add(field, err.Error())
	}
}

// CreateAccount валидирует запрос на создание учетной записи
func CreateAccount(req api.CreateAccountRequest) Errors {
	var errs Errors
	errs.check("username", ValidateUsername(req.Username))
	errs.check("email", ValidateEmail(req.Email))
	errs.check("password", ValidatePassword(req.Password))
	return errs
}

// Login валидирует запрос на вход. username и email опциональны, но хотя бы один нужен.
func Login(req api.LoginRequest) Errors {
	var errs Errors
	if req.Username == "" && req.Email == "" {
		errs.add("username", "username or email is required")
	}
	if req.Email != "" {
		errs.check("email", ValidateEmail(req.Email))
	}
	errs.check("password", ValidatePassword(req.Password))
	return errs
}

// CreateProduct валидирует создание товара: все поля обязательны
func CreateProduct(req api.ProductRequest) Errors {
	var errs Errors
	requireText(&errs, "name", req.Name, "product name is required")
	requireText(&errs, "description", req.Description, "product description is required")
	requireText(&errs, "category", req.Category, "product category is required")
	return errs
}

// UpdateProduct валидирует частичное обновление товара
func UpdateProduct(req api.ProductRequest) Errors {
	var errs Errors
	optionalText(&errs, "name", req.Name, "product name cannot be empty")
	optionalText(&errs, "description", req.Description, "product description cannot be empty")
	optionalText(&errs, "category", req.Category, "product category cannot be empty")
	return errs
}

// CreateReview валидирует создание отзыва
func CreateReview(req api.ReviewRequest) Errors {
	var errs Errors
	requireText(&errs, "productId", req.ProductID, "product id is required")
	if req.Rating == nil {
		errs.add("rating", "rating is required")
	} else {
		errs.check("rating", ValidateRating(*req.Rating))
	}
	requireText(&errs, "comment", req.Comment, "comment is required")
	return errs
}

// UpdateReview валидирует частичное обновление отзыва. Товар отзыва не меняется.
func UpdateReview(req api.ReviewRequest) Errors {
	var errs Errors
	if req.ProductID != nil {
		errs.add("productId", "product id cannot be changed")
	}
	if req.Rating != nil {
		errs.check("rating", ValidateRating(*req.Rating))
	}
	optionalText(&errs, "comment", req.Comment, "comment cannot be empty")
	return errs
}

// ValidateRating проверяет диапазон оценки
func ValidateRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return fmt.Errorf("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	return nil
}

func requireText(errs *Errors, field string, value *string, message string) {
	if value == nil || strings.TrimSpace(*value) == "" {
		errs.add(field, message)
	}
}

func optionalText(errs *Errors, field string, value *string, message string) {
	if value != nil && strings.TrimSpace(*value) == "" {
		errs.add(field, message)
	}
}
