// internal/bot/simulator.go
package bot

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Distopian-UN/aave-v3-origin/internal/ledger"
	"github.com/Distopian-UN/aave-v3-origin/internal/mathutil"
	"github.com/Distopian-UN/aave-v3-origin/internal/oracle"
	"github.com/Distopian-UN/aave-v3-origin/internal/paraswap"
	"github.com/Distopian-UN/aave-v3-origin/internal/registry"
)

const (
	dryRunDecimals uint8 = 18
	// Оракульные цены плоские: 1 токен = 1e8 базовых единиц цены. При равных
	// ценах и десятичных потолок трат равен amountToReceive плюс слиппедж.
	dryRunPrice = 100_000_000
)

// DryRunEnv is a self-contained offline environment for one task: an
// in-memory ledger seeded with both legs of the swap, flat oracle prices and
// a registry that authorizes exactly the task's augustus address. No RPC
// endpoint is touched.
type DryRunEnv struct {
	Ledger   *ledger.Memory
	Oracle   oracle.Static
	Registry registry.Static
	Caller   paraswap.CallerFunc
}

// NewDryRunEnv собирает окружение под конкретный запрос: регистрирует оба
// токена, минтит счету ровно MaxAmountToSwap и строит симулятор Augustus.
func NewDryRunEnv(req paraswap.SwapRequest, account common.Address, logger *zap.Logger) *DryRunEnv {
	led := ledger.NewMemory()
	led.RegisterToken(req.AssetFrom, dryRunDecimals)
	led.RegisterToken(req.AssetTo, dryRunDecimals)
	led.Mint(req.AssetFrom, account, new(big.Int).Set(req.MaxAmountToSwap))

	prices := oracle.Static{
		req.AssetFrom: big.NewInt(dryRunPrice),
		req.AssetTo:   big.NewInt(dryRunPrice),
	}

	sim := &simulator{
		ledger:  led,
		prices:  prices,
		account: account,
		req:     req,
		logger:  logger.Named("simulator"),
	}

	return &DryRunEnv{
		Ledger:   led,
		Oracle:   prices,
		Registry: registry.Static{req.ParaSwapData.Augustus: true},
		Caller:   sim.call,
	}
}

// simulator plays the part of an honest Augustus: it reads the requested
// output amount from the (possibly patched) calldata, pulls the oracle-fair
// cost from the account through its allowance and credits the output tokens.
type simulator struct {
	ledger  *ledger.Memory
	prices  oracle.Static
	account common.Address
	req     paraswap.SwapRequest
	logger  *zap.Logger
}

func (s *simulator) call(ctx context.Context, augustus common.Address, input []byte) error {
	amount := s.req.AmountToReceive
	if s.req.ToAmountOffset != 0 {
		word, err := paraswap.WordAt(input, s.req.ToAmountOffset)
		if err != nil {
			return err
		}
		amount = word
	}

	cost, err := s.quote(ctx, amount)
	if err != nil {
		return err
	}

	// Забираем вход строго через allowance: симуляция проверяет те же
	// разрешения, что и настоящий контракт.
	if err := s.ledger.TransferFrom(s.req.AssetFrom, s.account, augustus, augustus, cost); err != nil {
		return fmt.Errorf("simulated augustus pull: %w", err)
	}
	s.ledger.Mint(s.req.AssetTo, s.account, amount)

	s.logger.Debug("🧪 Simulated swap filled",
		zap.String("augustus", augustus.Hex()),
		zap.String("amount_out", amount.String()),
		zap.String("cost", cost.String()))
	return nil
}

// quote converts the output amount into input units at oracle prices, the
// same conversion the price bound uses but without the slippage buffer.
func (s *simulator) quote(ctx context.Context, amount *big.Int) (*big.Int, error) {
	priceFrom, err := s.prices.GetAssetPrice(ctx, s.req.AssetFrom)
	if err != nil {
		return nil, err
	}
	priceTo, err := s.prices.GetAssetPrice(ctx, s.req.AssetTo)
	if err != nil {
		return nil, err
	}
	decimalsFrom, err := s.ledger.Decimals(ctx, s.req.AssetFrom)
	if err != nil {
		return nil, err
	}
	decimalsTo, err := s.ledger.Decimals(ctx, s.req.AssetTo)
	if err != nil {
		return nil, err
	}

	numerator, err := mathutil.CheckedMul(amount, priceTo)
	if err != nil {
		return nil, err
	}
	numerator, err = mathutil.CheckedMul(numerator, mathutil.Pow10(decimalsFrom))
	if err != nil {
		return nil, err
	}
	denominator, err := mathutil.CheckedMul(priceFrom, mathutil.Pow10(decimalsTo))
	if err != nil {
		return nil, err
	}
	return mathutil.Div(numerator, denominator)
}
