// Package mathutil implements the 256-bit checked arithmetic used by the
// swap execution path. All amounts are unsigned 256-bit integers carried as
// *big.Int; any intermediate result above 2^256-1 is an error, never a wrap.
package mathutil

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrOverflow is returned when a checked operation would exceed 2^256-1.
	ErrOverflow = errors.New("mathutil: arithmetic overflow")

	// ErrUnderflow is returned when a checked subtraction would go negative.
	ErrUnderflow = errors.New("mathutil: arithmetic underflow")

	// ErrDivisionByZero is returned on division with a zero denominator.
	ErrDivisionByZero = errors.New("mathutil: division by zero")
)

// MaxUint256 is the largest representable amount (2^256 - 1).
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// FitsWord reports whether v is representable as an EVM word (0 <= v < 2^256).
func FitsWord(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(MaxUint256) <= 0
}

// CheckedMul returns a*b, failing with ErrOverflow above 2^256-1.
func CheckedMul(a, b *big.Int) (*big.Int, error) {
	res := new(big.Int).Mul(a, b)
	if res.Cmp(MaxUint256) > 0 {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, a, b)
	}
	return res, nil
}

// CheckedAdd returns a+b, failing with ErrOverflow above 2^256-1.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	res := new(big.Int).Add(a, b)
	if res.Cmp(MaxUint256) > 0 {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return res, nil
}

// CheckedSub returns a-b, failing with ErrUnderflow when b > a.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	return new(big.Int).Sub(a, b), nil
}

// Div returns a/b truncated toward zero.
func Div(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	return new(big.Int).Quo(a, b), nil
}

// Pow10 returns 10^exp. Token decimals never exceed 77 within a word,
// so the result always fits.
func Pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
