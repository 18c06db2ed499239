// Package password generates random passwords for VM admin accounts and
// vault-stored secrets.
package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	lower   = "abcdefghijklmnopqrstuvwxyz"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!#$%&*+-=?@_"
)

// MinLength is the shortest password Generate will produce. Azure requires
// 12+ characters for VM admin passwords.
const MinLength = 12

// Generate returns a random password of the given length containing at
// least one lowercase letter, one uppercase letter, one digit and one
// symbol. Lengths below MinLength are raised to it.
func Generate(length int) (string, error) {
	if length < MinLength {
		length = MinLength
	}

	alphabet := lower + upper + digits + symbols
	out := make([]byte, length)

	// One guaranteed character per class, the rest from the full alphabet.
	classes := []string{lower, upper, digits, symbols}
	for i, class := range classes {
		ch, err := pick(class)
		if err != nil {
			return "", err
		}
		out[i] = ch
	}
	for i := len(classes); i < length; i++ {
		ch, err := pick(alphabet)
		if err != nil {
			return "", err
		}
		out[i] = ch
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("failed to draw randomness: %w", err)
	}
	return alphabet[n.Int64()], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("failed to draw randomness: %w", err)
		}
		j := n.Int64()
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
