package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// winnerDigits is the fixed width of a winning number.
const winnerDigits = 10

// winnerBound is the exclusive upper bound for a winning number, 10^10.
var winnerBound = new(big.Int).Exp(big.NewInt(10), big.NewInt(winnerDigits), nil)

// ErrEntropyUnavailable indicates the system entropy source failed. A
// session must never be marked successful without a winner, so the caller
// aborts the transition and may retry later.
var ErrEntropyUnavailable = errors.New("entropy source unavailable")

// DrawWinner returns a uniformly distributed winning number as a string of
// exactly ten digits, left-zero-padded.
func DrawWinner() (string, error) {
	n, err := rand.Int(rand.Reader, winnerBound)
	if err != nil {
		return "", fmt.Errorf("draw winning number: %w", ErrEntropyUnavailable)
	}
	return fmt.Sprintf("%0*d", winnerDigits, n), nil
}
