package mathutil

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedMulOverflow(t *testing.T) {
	// MaxUint256 * 2 must refuse to wrap
	_, err := CheckedMul(MaxUint256, big.NewInt(2))
	assert.ErrorIs(t, err, ErrOverflow)

	// MaxUint256 * 1 is still representable
	res, err := CheckedMul(MaxUint256, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cmp(MaxUint256))
}

func TestCheckedAddOverflow(t *testing.T) {
	_, err := CheckedAdd(MaxUint256, big.NewInt(1))
	assert.ErrorIs(t, err, ErrOverflow)

	res, err := CheckedAdd(big.NewInt(2), big.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Int64())
}

func TestCheckedSubUnderflow(t *testing.T) {
	_, err := CheckedSub(big.NewInt(1), big.NewInt(2))
	assert.ErrorIs(t, err, ErrUnderflow)

	res, err := CheckedSub(big.NewInt(5), big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Int64())
}

func TestDivTruncatesTowardZero(t *testing.T) {
	res, err := Div(big.NewInt(7), big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Int64())

	_, err = Div(big.NewInt(7), big.NewInt(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestPercentMul(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		bps   uint64
		want  int64
	}{
		{"100% is identity", 1_000_000, PercentageFactor, 1_000_000},
		{"3% slippage buffer", 1_000_000, PercentageFactor + 300, 1_030_000},
		{"rounds half up", 1, PercentageFactor/2 + 1, 1}, // 1*5001/10000 = 0.5001 -> 1
		{"rounds down below half", 1, PercentageFactor/2 - 1, 0},
		{"zero value", 0, 300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PercentMul(big.NewInt(tt.value), tt.bps)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64())
			t.Logf("%d * %d bps = %s", tt.value, tt.bps, got)
		})
	}

	_, err := PercentMul(MaxUint256, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestPow10(t *testing.T) {
	assert.Equal(t, int64(1), Pow10(0).Int64())
	assert.Equal(t, int64(1_000_000_000_000_000_000), Pow10(18).Int64())
}
