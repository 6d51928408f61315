package api

// Response единый конверт ответа для всех эндпоинтов
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status"`
}

// FieldError описывает ошибку валидации конкретного поля
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
