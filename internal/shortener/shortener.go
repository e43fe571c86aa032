package shortener

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Base62 character set (0-9, A-Z, a-z) - 62 characters total
// Using base62 instead of base64 avoids special characters that might cause URL issues
const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// CodeGenerator generates short codes using cryptographically secure random
// numbers. Thread-safe and collision-resistant.
type CodeGenerator struct {
	length int // Length of generated codes
}

// NewCodeGenerator creates a new code generator with specified length
// Recommended length: 6-8 characters for good collision resistance
func NewCodeGenerator(length int) *CodeGenerator {
	if length < 4 {
		length = 6 // Minimum safe length
	}
	if length > 12 {
		length = 12 // Maximum reasonable length
	}

	return &CodeGenerator{
		length: length,
	}
}

// Generate creates a random short code using base62 encoding
// Uses crypto/rand to keep codes unpredictable
func (g *CodeGenerator) Generate() string {
	result := make([]byte, g.length)

	for i := 0; i < g.length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Chars))))
		if err != nil {
			// Fallback if crypto/rand fails; should rarely happen in practice
			num = big.NewInt(int64(i % len(base62Chars)))
		}

		result[i] = base62Chars[num.Int64()]
	}

	return string(result)
}

// IsValid checks if a short code contains only valid base62 characters
func (g *CodeGenerator) IsValid(code string) bool {
	if len(code) == 0 || len(code) > g.length {
		return false
	}

	for _, char := range code {
		found := false
		for _, validChar := range base62Chars {
			if char == validChar {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// NewSessionToken returns a 64-character hex token for click sessions.
// 32 bytes of crypto/rand entropy makes tokens unguessable.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
