// Package paraswap implements the bounded-slippage exact-output swap through
// an external Augustus aggregator: price-bound computation, calldata patch,
// the untrusted external call, and balance-delta reconciliation.
package paraswap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Distopian-UN/aave-v3-origin/internal/events"
	"github.com/Distopian-UN/aave-v3-origin/internal/ledger"
	"github.com/Distopian-UN/aave-v3-origin/internal/mathutil"
	"github.com/Distopian-UN/aave-v3-origin/internal/oracle"
	"github.com/Distopian-UN/aave-v3-origin/internal/registry"
)

// BuyExecutor orchestrates one exact-output swap at a time. It owns no state
// between invocations: every price bound is recomputed, every balance is
// re-read, nothing is cached.
type BuyExecutor struct {
	account        common.Address
	registry       registry.AugustusRegistry
	oracle         oracle.PriceOracle
	ledger         ledger.TokenLedger
	caller         AugustusCaller
	bus            *events.Bus
	logger         *zap.Logger
	maxSlippageBps uint64
}

// NewBuyExecutor создает исполнитель для счета account. bus может быть nil,
// остальные коллабораторы обязательны.
func NewBuyExecutor(
	account common.Address,
	reg registry.AugustusRegistry,
	orc oracle.PriceOracle,
	led ledger.TokenLedger,
	caller AugustusCaller,
	bus *events.Bus,
	logger *zap.Logger,
	maxSlippageBps uint64,
) (*BuyExecutor, error) {
	if reg == nil || orc == nil || led == nil || caller == nil || logger == nil {
		return nil, fmt.Errorf("registry, oracle, ledger, caller и logger не могут быть nil")
	}
	if maxSlippageBps == 0 || maxSlippageBps >= mathutil.PercentageFactor {
		return nil, fmt.Errorf("max slippage must be in (0, %d) bps, got %d", mathutil.PercentageFactor, maxSlippageBps)
	}
	return &BuyExecutor{
		account:        account,
		registry:       reg,
		oracle:         orc,
		ledger:         led,
		caller:         caller,
		bus:            bus,
		logger:         logger.Named("buy_executor"),
		maxSlippageBps: maxSlippageBps,
	}, nil
}

// ExecuteBuy runs the whole buy sequence: validate target, compute the
// price-derived spend ceiling, snapshot balances, approve, patch the opaque
// instruction, call the aggregator, reset the approval and reconcile
// balances. On any failure no observable mutation survives: ledgers that
// support snapshots are reverted wholesale, otherwise the approval is reset
// on every failure branch that granted it.
func (e *BuyExecutor) ExecuteBuy(ctx context.Context, req SwapRequest) (result *SwapResult, err error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	execID := uuid.New().String()
	augustus := req.ParaSwapData.Augustus
	logger := e.logger.With(
		zap.String("execution_id", execID),
		zap.String("asset_from", req.AssetFrom.Hex()),
		zap.String("asset_to", req.AssetTo.Hex()),
		zap.String("augustus", augustus.Hex()),
	)

	// 1. Только авторизованные реестром контракты получают управление.
	valid, err := e.registry.IsValidAugustus(ctx, augustus)
	if err != nil {
		return nil, fmt.Errorf("augustus registry lookup: %w", err)
	}
	if !valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, augustus.Hex())
	}

	// 2-3. Потолок трат по текущим ценам оракула.
	bound, err := e.priceBound(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.MaxAmountToSwap.Cmp(bound) > 0 {
		return nil, &SlippageError{
			MaxAmountToSwap: new(big.Int).Set(req.MaxAmountToSwap),
			PriceBound:      bound,
		}
	}

	// 4-5. Снимки балансов до передачи управления.
	balanceBeforeFrom, err := e.ledger.BalanceOf(ctx, req.AssetFrom, e.account)
	if err != nil {
		return nil, fmt.Errorf("read %s balance: %w", req.AssetFrom.Hex(), err)
	}
	if balanceBeforeFrom.Cmp(req.MaxAmountToSwap) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balanceBeforeFrom, req.MaxAmountToSwap)
	}
	balanceBeforeTo, err := e.ledger.BalanceOf(ctx, req.AssetTo, e.account)
	if err != nil {
		return nil, fmt.Errorf("read %s balance: %w", req.AssetTo.Hex(), err)
	}

	e.publish(&events.ExecutionStartedEvent{
		BaseEvent:       events.BaseEvent{EventType: events.ExecutionStarted, EventTime: time.Now()},
		ExecutionID:     execID,
		AssetFrom:       req.AssetFrom,
		AssetTo:         req.AssetTo,
		MaxAmountToSwap: new(big.Int).Set(req.MaxAmountToSwap),
		AmountToReceive: new(big.Int).Set(req.AmountToReceive),
		Augustus:        augustus,
	})

	// Леджеры со снапшотами откатываются целиком; остальным на проваленных
	// ветках после approve возвращаем нулевой allowance.
	txnal, canRevert := e.ledger.(ledger.Transactional)
	if canRevert {
		rev := txnal.Snapshot()
		defer func() {
			if err != nil {
				txnal.RevertTo(rev)
			}
		}()
	}

	// 6. Разрешаем снять ровно MaxAmountToSwap, не больше.
	if err = e.ledger.Approve(ctx, req.AssetFrom, e.account, augustus, req.MaxAmountToSwap); err != nil {
		return nil, fmt.Errorf("grant approval: %w", err)
	}
	if !canRevert {
		defer func() {
			if err != nil {
				if resetErr := e.ledger.Approve(ctx, req.AssetFrom, e.account, augustus, big.NewInt(0)); resetErr != nil {
					logger.Error("Failed to reset approval after aborted execution", zap.Error(resetErr))
				}
			}
		}()
	}

	// 7. Патчим чужую инструкцию на точный требуемый выход.
	callData := req.ParaSwapData.CallData
	if req.ToAmountOffset != 0 {
		callData, err = PatchAmount(callData, req.ToAmountOffset, req.AmountToReceive)
		if err != nil {
			return nil, err
		}
	}

	// 8. Единственная точка передачи управления недоверенному коду. Ошибка
	// цели уходит вызывающему как есть, без обертки.
	if err = e.caller.Call(ctx, augustus, callData); err != nil {
		e.publishFailure(execID, req, err)
		return nil, err
	}

	// 9. Сбрасываем allowance независимо от того, сколько забрала цель.
	if err = e.ledger.Approve(ctx, req.AssetFrom, e.account, augustus, big.NewInt(0)); err != nil {
		return nil, fmt.Errorf("reset approval: %w", err)
	}

	// 10-11. Итог считаем только по дельтам балансов: возвращаемым значениям
	// цели веры нет.
	balanceAfterFrom, err := e.ledger.BalanceOf(ctx, req.AssetFrom, e.account)
	if err != nil {
		return nil, fmt.Errorf("re-read %s balance: %w", req.AssetFrom.Hex(), err)
	}
	amountSold, err := mathutil.CheckedSub(balanceBeforeFrom, balanceAfterFrom)
	if err != nil || amountSold.Cmp(req.MaxAmountToSwap) > 0 {
		err = fmt.Errorf("%w: authorized %s", ErrBalanceAccountingMismatch, req.MaxAmountToSwap)
		e.publishFailure(execID, req, err)
		return nil, err
	}

	balanceAfterTo, err := e.ledger.BalanceOf(ctx, req.AssetTo, e.account)
	if err != nil {
		return nil, fmt.Errorf("re-read %s balance: %w", req.AssetTo.Hex(), err)
	}
	amountBought, err := mathutil.CheckedSub(balanceAfterTo, balanceBeforeTo)
	if err != nil || amountBought.Cmp(req.AmountToReceive) < 0 {
		err = fmt.Errorf("%w: requested %s", ErrInsufficientOutputReceived, req.AmountToReceive)
		e.publishFailure(execID, req, err)
		return nil, err
	}

	// 12. Уведомление Bought: информационное, на инварианты не влияет.
	e.publish(&events.BoughtEvent{
		BaseEvent:    events.BaseEvent{EventType: events.Bought, EventTime: time.Now()},
		ExecutionID:  execID,
		AssetFrom:    req.AssetFrom,
		AssetTo:      req.AssetTo,
		AmountSold:   new(big.Int).Set(amountSold),
		AmountBought: new(big.Int).Set(amountBought),
	})
	logger.Info("💱 Bought",
		zap.String("amount_sold", amountSold.String()),
		zap.String("amount_bought", amountBought.String()),
		zap.String("price_bound", bound.String()))

	return &SwapResult{AmountSold: amountSold, AmountBought: amountBought}, nil
}

// ExecuteBuyEncoded is the wire-form entry point: paraswapData carries the
// ABI-encoded (callData, augustus) pair exactly as external callers submit
// it. Decodes and delegates to ExecuteBuy.
func (e *BuyExecutor) ExecuteBuyEncoded(
	ctx context.Context,
	toAmountOffset uint64,
	paraswapData []byte,
	assetFrom, assetTo common.Address,
	maxAmountToSwap, amountToReceive *big.Int,
) (*SwapResult, error) {
	decoded, err := DecodeParaSwapData(paraswapData)
	if err != nil {
		return nil, err
	}
	return e.ExecuteBuy(ctx, SwapRequest{
		AssetFrom:       assetFrom,
		AssetTo:         assetTo,
		MaxAmountToSwap: maxAmountToSwap,
		AmountToReceive: amountToReceive,
		ToAmountOffset:  toAmountOffset,
		ParaSwapData:    decoded,
	})
}

// priceBound computes the maximum acceptable input spend:
//
//	amountToReceive * priceTo * 10^decimalsFrom
//	------------------------------------------- * (1 + maxSlippage)
//	        priceFrom * 10^decimalsTo
//
// The division truncates toward zero; the slippage buffer rounds half-up.
func (e *BuyExecutor) priceBound(ctx context.Context, req SwapRequest) (*big.Int, error) {
	decimalsFrom, err := e.ledger.Decimals(ctx, req.AssetFrom)
	if err != nil {
		return nil, fmt.Errorf("decimals of %s: %w", req.AssetFrom.Hex(), err)
	}
	decimalsTo, err := e.ledger.Decimals(ctx, req.AssetTo)
	if err != nil {
		return nil, fmt.Errorf("decimals of %s: %w", req.AssetTo.Hex(), err)
	}

	priceFrom, err := e.oracle.GetAssetPrice(ctx, req.AssetFrom)
	if err != nil {
		return nil, fmt.Errorf("price of %s: %w", req.AssetFrom.Hex(), err)
	}
	priceTo, err := e.oracle.GetAssetPrice(ctx, req.AssetTo)
	if err != nil {
		return nil, fmt.Errorf("price of %s: %w", req.AssetTo.Hex(), err)
	}

	numerator, err := mathutil.CheckedMul(req.AmountToReceive, priceTo)
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
	ratio, err := mathutil.Div(numerator, denominator)
	if err != nil {
		return nil, err
	}

	return mathutil.PercentMul(ratio, mathutil.PercentageFactor+e.maxSlippageBps)
}

func validateRequest(req SwapRequest) error {
	if req.MaxAmountToSwap == nil || req.AmountToReceive == nil {
		return fmt.Errorf("paraswap: amounts must not be nil")
	}
	if !mathutil.FitsWord(req.MaxAmountToSwap) || !mathutil.FitsWord(req.AmountToReceive) {
		return fmt.Errorf("%w: request amounts must fit a 256-bit word", ErrArithmeticOverflow)
	}
	if len(req.ParaSwapData.CallData) < SelectorLength {
		return fmt.Errorf("paraswap: calldata shorter than a selector")
	}
	return nil
}

func (e *BuyExecutor) publish(event events.Event) {
	if e.bus == nil {
		return
	}
	_ = e.bus.Publish(event)
}

func (e *BuyExecutor) publishFailure(execID string, req SwapRequest, cause error) {
	e.publish(&events.ExecutionFailedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.ExecutionFailed, EventTime: time.Now()},
		ExecutionID: execID,
		AssetFrom:   req.AssetFrom,
		AssetTo:     req.AssetTo,
		Err:         cause,
	})
}
