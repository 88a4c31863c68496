// Package task defines operator-declared buy tasks and the wallets that
// fund them.
package task

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Distopian-UN/aave-v3-origin/internal/paraswap"
)

// Task represents one buy-swap order from the tasks file.
type Task struct {
	ID              int
	TaskName        string
	WalletName      string
	AssetFrom       string // адрес токена, которым платим
	AssetTo         string // адрес токена, который покупаем
	MaxAmountToSwap string // предел трат в базовых единицах AssetFrom
	AmountToReceive string // точный требуемый выход в базовых единицах AssetTo
	ToAmountOffset  uint64 // оффсет слова с выходом внутри calldata, 0 = без патча
	CallData        string // готовая hex-инструкция для Augustus
	Augustus        string // адрес агрегатора
	CreatedAt       time.Time
}

// Validate checks if the task has valid parameters.
func (t *Task) Validate() error {
	if t.TaskName == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if t.WalletName == "" {
		return fmt.Errorf("wallet name cannot be empty")
	}
	if !common.IsHexAddress(t.AssetFrom) {
		return fmt.Errorf("asset_from is not a valid address: %q", t.AssetFrom)
	}
	if !common.IsHexAddress(t.AssetTo) {
		return fmt.Errorf("asset_to is not a valid address: %q", t.AssetTo)
	}
	if !common.IsHexAddress(t.Augustus) {
		return fmt.Errorf("augustus is not a valid address: %q", t.Augustus)
	}

	if _, err := parseAmount(t.MaxAmountToSwap); err != nil {
		return fmt.Errorf("max_amount_to_swap: %w", err)
	}
	if _, err := parseAmount(t.AmountToReceive); err != nil {
		return fmt.Errorf("amount_to_receive: %w", err)
	}

	callData, err := hexutil.Decode(t.CallData)
	if err != nil {
		return fmt.Errorf("calldata is not valid hex: %w", err)
	}
	if len(callData) < paraswap.SelectorLength {
		return fmt.Errorf("calldata shorter than a 4-byte selector")
	}
	return nil
}

// ToSwapRequest converts the task into the executor's request form.
// Validate must have passed.
func (t *Task) ToSwapRequest() (paraswap.SwapRequest, error) {
	maxAmount, err := parseAmount(t.MaxAmountToSwap)
	if err != nil {
		return paraswap.SwapRequest{}, fmt.Errorf("max_amount_to_swap: %w", err)
	}
	amountToReceive, err := parseAmount(t.AmountToReceive)
	if err != nil {
		return paraswap.SwapRequest{}, fmt.Errorf("amount_to_receive: %w", err)
	}
	callData, err := hexutil.Decode(t.CallData)
	if err != nil {
		return paraswap.SwapRequest{}, fmt.Errorf("calldata: %w", err)
	}

	return paraswap.SwapRequest{
		AssetFrom:       common.HexToAddress(t.AssetFrom),
		AssetTo:         common.HexToAddress(t.AssetTo),
		MaxAmountToSwap: maxAmount,
		AmountToReceive: amountToReceive,
		ToAmountOffset:  t.ToAmountOffset,
		ParaSwapData: paraswap.ParaSwapData{
			CallData: callData,
			Augustus: common.HexToAddress(t.Augustus),
		},
	}, nil
}

// parseAmount принимает десятичную строку без знака, больше нуля.
func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", s)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("must be greater than zero: %q", s)
	}
	return amount, nil
}
