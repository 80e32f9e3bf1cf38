package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "11111111": {}, "abc12345": {},
	"letmein1": {}, "welcome1": {}, "admin123": {}, "football": {}, "baseball": {},
	"sunshine": {}, "princess": {}, "trustno1": {}, "passw0rd": {}, "00000000": {},
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// PasswordProblems lists every strength rule password breaks. An empty result means
// the password is acceptable.
func PasswordProblems(password, username string) []string {
	var problems []string
	if len(password) < minPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}
	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		problems = append(problems, "The password is too similar to the username.")
	}
	return problems
}
