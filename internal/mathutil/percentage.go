package mathutil

import "math/big"

// Percentages are expressed in basis points: 10_000 = 100.00%.
const (
	// PercentageFactor is the fixed-point base for percentage math.
	PercentageFactor = 10_000

	// HalfPercentageFactor rounds half-up in PercentMul.
	HalfPercentageFactor = PercentageFactor / 2
)

var (
	percentageFactor     = big.NewInt(PercentageFactor)
	halfPercentageFactor = big.NewInt(HalfPercentageFactor)
)

// PercentMul returns value * bps / PercentageFactor, rounded half-up,
// with overflow detection on the intermediate product.
func PercentMul(value *big.Int, bps uint64) (*big.Int, error) {
	product, err := CheckedMul(value, new(big.Int).SetUint64(bps))
	if err != nil {
		return nil, err
	}
	rounded, err := CheckedAdd(product, halfPercentageFactor)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Quo(rounded, percentageFactor), nil
}
