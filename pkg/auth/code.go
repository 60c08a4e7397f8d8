// pkg/auth/code.go
package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// CodeLength длина кода подтверждения
const CodeLength = 6

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewConfirmationCode генерирует случайный код из CodeLength символов.
func NewConfirmationCode() (string, error) {
	buf := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate confirmation code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// HashCode возвращает bcrypt хеш кода. В базе хранится только хеш.
func HashCode(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash confirmation code: %w", err)
	}
	return string(hashed), nil
}

// CheckCode сравнивает код с хешем. Пустой хеш (код не выдавался) никогда не совпадает.
func CheckCode(code, hashed string) bool {
	if hashed == "" || code == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(code)) == nil
}
