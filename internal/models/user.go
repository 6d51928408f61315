package models

import "time"

// User представляет учетную запись пользователя API
type User struct {
	CreatedAt    time.Time `json:"created_at"`    // время создания
	ID           string    `json:"id"`            // UUID пользователя
	Username     string    `json:"username"`      // уникальный username
	Email        string    `json:"email"`         // уникальный email
	PasswordHash string    `json:"-"`             // bcrypt хеш пароля, наружу не отдается
}
