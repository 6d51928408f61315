package api

// ProductRequest тело POST/PUT запросов для товаров.
// Указатели позволяют отличить отсутствующее поле от пустого при частичном обновлении.
type ProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// ReviewRequest тело POST/PUT запросов для отзывов
type ReviewRequest struct {
	ProductID *string `json:"productId,omitempty"`
	Rating    *int    `json:"rating,omitempty"`
	Comment   *string `json:"comment,omitempty"`
}
