package models

import "time"

const (
	// MinRating минимальная оценка отзыва
	MinRating = 1
	// MaxRating максимальная оценка отзыва
	MaxRating = 5
)

// Product представляет товар каталога
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"` // уникальное название
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Reviews     []string `json:"reviews"` // идентификаторы отзывов
}

// Review представляет отзыв на товар
type Review struct {
	Date      time.Time `json:"date"`
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating"`
}

// ProductRating агрегированная средняя оценка товара
type ProductRating struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	AverageRating float64 `json:"average_rating"`
}
