package auth

import (
	"strings"
	"unicode"
)

const MinPasswordLength = 8

var commonPasswords = map[string]bool{
	"password": true, "password1": true, "password123": true, "12345678": true,
	"123456789": true, "1234567890": true, "qwertyuiop": true, "qwerty123": true,
	"iloveyou": true, "sunshine": true, "princess": true, "football": true,
	"baseball": true, "welcome1": true, "letmein1": true, "trustno1": true,
	"superman": true, "abc12345": true, "11111111": true, "00000000": true,
	"changeme": true, "dragon123": true, "passw0rd": true, "monkey123": true,
}

// ValidatePassword returns every rule password breaks for the account with email
func ValidatePassword(password, email string) []string {
	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if commonPasswords[strings.ToLower(password)] {
		problems = append(problems, "This password is too common.")
	}
	if isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	if local, _, ok := strings.Cut(strings.ToLower(email), "@"); ok && len(local) >= 3 &&
		strings.Contains(strings.ToLower(password), local) {
		problems = append(problems, "The password is too similar to the email address.")
	}
	return problems
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
