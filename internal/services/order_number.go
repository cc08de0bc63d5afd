package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newOrderNumber returns ORD + UTC timestamp (YYYYMMDDHHMMSS) + 6 random [A-Z0-9] characters
// drawn from random.
func newOrderNumber(now time.Time, random io.Reader) (string, error) {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(random, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return "ORD" + now.UTC().Format("20060102150405") + string(suffix), nil
}
