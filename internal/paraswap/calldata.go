package paraswap

import (
	"fmt"
	"math/big"

	"github.com/Distopian-UN/aave-v3-origin/internal/mathutil"
)

const (
	// SelectorLength: первые 4 байта calldata, которые патч не должен задевать.
	SelectorLength = 4

	// WordLength: ширина одного ABI-слова.
	WordLength = 32
)

// PatchAmount returns a copy of callData with the 32-byte word at offset
// replaced by the big-endian 256-bit encoding of amount. The input buffer is
// never mutated, so a shared pre-built instruction can be retargeted safely.
//
// The offset must not overlap the leading 4-byte selector and must leave
// room for a full word.
func PatchAmount(callData []byte, offset uint64, amount *big.Int) ([]byte, error) {
	if !validOffset(offset, len(callData)) {
		return nil, &OffsetError{Offset: offset, CallDataLen: len(callData)}
	}
	if !mathutil.FitsWord(amount) {
		return nil, fmt.Errorf("%w: amount %s does not fit a word", ErrArithmeticOverflow, amount)
	}

	patched := make([]byte, len(callData))
	copy(patched, callData)
	amount.FillBytes(patched[offset : offset+WordLength])
	return patched, nil
}

// WordAt reads the 32-byte big-endian word at offset. Used by the dry-run
// simulator to recover the patched amount from an instruction.
func WordAt(callData []byte, offset uint64) (*big.Int, error) {
	if !validOffset(offset, len(callData)) {
		return nil, &OffsetError{Offset: offset, CallDataLen: len(callData)}
	}
	return new(big.Int).SetBytes(callData[offset : offset+WordLength]), nil
}

func validOffset(offset uint64, callDataLen int) bool {
	if callDataLen < SelectorLength+WordLength {
		return false
	}
	return offset >= SelectorLength && offset <= uint64(callDataLen-WordLength)
}
