package paraswap

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Distopian-UN/aave-v3-origin/internal/mathutil"
)

var (
	// ErrInvalidTarget: целевой контракт не авторизован реестром Augustus.
	ErrInvalidTarget = errors.New("paraswap: augustus contract is not authorized")

	// ErrSlippageExceeded: запрошенный потолок трат выше границы по цене оракула.
	ErrSlippageExceeded = errors.New("paraswap: max amount to swap exceeds price-derived bound")

	// ErrInsufficientBalance: на счету нет средств под заявленный максимум.
	ErrInsufficientBalance = errors.New("paraswap: balance below max amount to swap")

	// ErrOffsetOutOfRange: оффсет патча задевает селектор или выходит за буфер.
	ErrOffsetOutOfRange = errors.New("paraswap: to-amount offset out of range")

	// ErrBalanceAccountingMismatch: целевой контракт забрал больше разрешенного.
	ErrBalanceAccountingMismatch = errors.New("paraswap: amount sold exceeds authorized maximum")

	// ErrInsufficientOutputReceived: получено меньше запрошенного количества.
	ErrInsufficientOutputReceived = errors.New("paraswap: amount received below requested amount")

	// ErrArithmeticOverflow is surfaced when any intermediate 256-bit
	// computation would overflow instead of wrapping.
	ErrArithmeticOverflow = mathutil.ErrOverflow
)

// SlippageError carries the two amounts that violated the price bound.
type SlippageError struct {
	MaxAmountToSwap *big.Int
	PriceBound      *big.Int
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("%v: max %s > bound %s", ErrSlippageExceeded, e.MaxAmountToSwap, e.PriceBound)
}

func (e *SlippageError) Unwrap() error {
	return ErrSlippageExceeded
}

// OffsetError reports an invalid calldata patch location.
type OffsetError struct {
	Offset      uint64
	CallDataLen int
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("%v: offset %d, calldata %d bytes", ErrOffsetOutOfRange, e.Offset, e.CallDataLen)
}

func (e *OffsetError) Unwrap() error {
	return ErrOffsetOutOfRange
}

// CallError is the failure of the external Augustus call. Data holds the raw
// revert payload exactly as the target produced it, never rewritten; that is
// the only debuggable trail a third-party failure leaves.
type CallError struct {
	Augustus common.Address
	Data     []byte
}

func (e *CallError) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("paraswap: augustus %s reverted without payload", e.Augustus.Hex())
	}
	return fmt.Sprintf("paraswap: augustus %s reverted: 0x%s", e.Augustus.Hex(), hex.EncodeToString(e.Data))
}
