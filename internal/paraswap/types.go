package paraswap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ParaSwapData is the pre-built swap instruction handed over by the caller:
// an opaque byte payload and the Augustus aggregator that should receive it.
type ParaSwapData struct {
	CallData []byte
	Augustus common.Address
}

// SwapRequest describes one exact-output ("buy") swap delegated to an
// Augustus aggregator. The request is immutable for the duration of one
// execution.
type SwapRequest struct {
	AssetFrom       common.Address
	AssetTo         common.Address
	MaxAmountToSwap *big.Int
	AmountToReceive *big.Int
	// ToAmountOffset points at the 32-byte word inside CallData that holds
	// the output amount; 0 disables the patch.
	ToAmountOffset uint64
	ParaSwapData   ParaSwapData
}

// SwapResult reports the reconciled outcome of a successful execution,
// derived from balance deltas rather than from anything the target returned.
type SwapResult struct {
	AmountSold   *big.Int
	AmountBought *big.Int
}

// AugustusCaller performs the opaque external call. Implementations may run
// arbitrary third-party code: nothing the call reports is trusted, outcomes
// are verified through balance deltas only. A revert must surface as a
// *CallError carrying the raw payload.
type AugustusCaller interface {
	Call(ctx context.Context, augustus common.Address, input []byte) error
}

// CallerFunc adapts a function to the AugustusCaller interface.
type CallerFunc func(ctx context.Context, augustus common.Address, input []byte) error

func (f CallerFunc) Call(ctx context.Context, augustus common.Address, input []byte) error {
	return f(ctx, augustus, input)
}

// paraSwapDataArgs mirrors the wire layout of the entry point parameter:
// ABI-encoded (bytes callData, address augustus).
var paraSwapDataArgs = mustParaSwapDataArgs()

func mustParaSwapDataArgs() abi.Arguments {
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	addressT, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "callData", Type: bytesT},
		{Name: "augustus", Type: addressT},
	}
}

// DecodeParaSwapData unpacks ABI-encoded (bytes, address) paraswap data.
func DecodeParaSwapData(data []byte) (ParaSwapData, error) {
	values, err := paraSwapDataArgs.Unpack(data)
	if err != nil {
		return ParaSwapData{}, fmt.Errorf("paraswap: decode paraswap data: %w", err)
	}

	callData, ok := values[0].([]byte)
	if !ok {
		return ParaSwapData{}, fmt.Errorf("paraswap: unexpected calldata type %T", values[0])
	}
	augustus, ok := values[1].(common.Address)
	if !ok {
		return ParaSwapData{}, fmt.Errorf("paraswap: unexpected augustus type %T", values[1])
	}

	return ParaSwapData{CallData: callData, Augustus: augustus}, nil
}

// EncodeParaSwapData packs paraswap data into its ABI wire form.
func EncodeParaSwapData(data ParaSwapData) ([]byte, error) {
	packed, err := paraSwapDataArgs.Pack(data.CallData, data.Augustus)
	if err != nil {
		return nil, fmt.Errorf("paraswap: encode paraswap data: %w", err)
	}
	return packed, nil
}
