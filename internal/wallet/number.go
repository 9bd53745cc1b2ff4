package wallet

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var (
	numberFloor = big.NewInt(100_000_000_000)         // smallest 12 digit numeral
	numberSpan  = new(big.Int).Sub(big.NewInt(100_000_000_000_000), numberFloor)
)

// newWalletNumber draws a random 12-14 digit numeral. Uniqueness is enforced
// by the storage layer; callers retry on collision.
func newWalletNumber() (string, error) {
	n, err := rand.Int(rand.Reader, numberSpan)
	if err != nil {
		return "", fmt.Errorf("generate wallet number: %w", err)
	}
	return n.Add(n, numberFloor).String(), nil
}
