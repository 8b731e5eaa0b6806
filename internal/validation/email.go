package validation

import (
	"net/mail"
	"strings"
)

// NormalizeEmail приводит адрес к нижнему регистру и обрезает пробелы.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail проверяет, что строка является одиночным адресом без отображаемого имени.
func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
