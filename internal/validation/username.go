package validation

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 6
	// MaxPasswordLen ограничение bcrypt на длину входа в байтах
	MaxPasswordLen = 72
)

// ValidateUsername проверяет, что username задан.
// Формат не ограничивается: точки, пробелы и не-ASCII символы допустимы.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username is required")
	}

	return nil
}

// ValidateEmail проверяет, что строка является одиночным email адресом без display name
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email is invalid")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}

	return nil
}
