// internal/bot/worker.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Distopian-UN/aave-v3-origin/internal/chain"
	"github.com/Distopian-UN/aave-v3-origin/internal/config"
	"github.com/Distopian-UN/aave-v3-origin/internal/events"
	"github.com/Distopian-UN/aave-v3-origin/internal/ledger"
	"github.com/Distopian-UN/aave-v3-origin/internal/metrics"
	"github.com/Distopian-UN/aave-v3-origin/internal/oracle"
	"github.com/Distopian-UN/aave-v3-origin/internal/paraswap"
	"github.com/Distopian-UN/aave-v3-origin/internal/registry"
	"github.com/Distopian-UN/aave-v3-origin/internal/task"
)

type WorkerPool struct {
	wg        sync.WaitGroup
	ctx       context.Context
	tasks     <-chan *task.Task
	logger    *zap.Logger
	config    *config.Config
	client    *chain.Client
	wallets   map[string]*task.Wallet
	bus       *events.Bus
	collector *metrics.Collector
}

func NewWorkerPool(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	client *chain.Client,
	wallets map[string]*task.Wallet,
	tasks <-chan *task.Task,
	bus *events.Bus,
	collector *metrics.Collector,
) *WorkerPool {
	return &WorkerPool{
		ctx:       ctx,
		config:    cfg,
		logger:    logger,
		tasks:     tasks,
		client:    client,
		wallets:   wallets,
		bus:       bus,
		collector: collector,
	}
}

func (wp *WorkerPool) Start(n int) {
	for i := 0; i < n; i++ {
		wp.wg.Add(1)
		go wp.worker(i + 1)
	}
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	logger := wp.logger.With(zap.Int("worker_id", id))
	logger.Info("Worker started")

	for {
		select {
		case <-wp.ctx.Done():
			logger.Info("Worker shutting down due to context cancellation")
			return
		case t, ok := <-wp.tasks:
			if !ok {
				logger.Info("Task channel closed")
				return
			}
			wp.handleTask(wp.ctx, t, logger)

			// Пауза между задачами, чтобы не захлебнуть RPC.
			if wp.config.RPCDelay > 0 {
				select {
				case <-wp.ctx.Done():
				case <-time.After(wp.config.RPCDelay):
				}
			}
		}
	}
}

func (wp *WorkerPool) handleTask(ctx context.Context, t *task.Task, logger *zap.Logger) {
	w := wp.wallets[t.WalletName]
	if w == nil {
		logger.Warn("Skipping task - no wallet found", zap.String("wallet", t.WalletName))
		return
	}

	req, err := t.ToSwapRequest()
	if err != nil {
		logger.Error("Task to swap request", zap.String("task", t.TaskName), zap.Error(err))
		return
	}

	executor, err := wp.buildExecutor(req, w)
	if err != nil {
		logger.Error("Executor init error", zap.String("task", t.TaskName), zap.Error(err))
		return
	}

	logger.Info("Executing task",
		zap.String("task", t.TaskName),
		zap.String("wallet", t.WalletName),
		zap.String("asset_from", t.AssetFrom),
		zap.String("asset_to", t.AssetTo),
		zap.Bool("dry_run", wp.config.DryRun),
	)

	start := time.Now()
	result, err := executor.ExecuteBuy(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		wp.collector.RecordExecution(ctx, elapsed, false, classifyFailure(err))
		logger.Error("Task execution failed", zap.String("task", t.TaskName), zap.Error(err))
		return
	}

	wp.collector.RecordExecution(ctx, elapsed, true, metrics.ReasonNone)
	logger.Info("Task executed successfully",
		zap.String("task", t.TaskName),
		zap.String("amount_sold", result.AmountSold.String()),
		zap.String("amount_bought", result.AmountBought.String()),
		zap.Duration("elapsed", elapsed),
	)
}

// buildExecutor wires the collaborator set for one task: chain-backed in live
// mode, the self-contained memory environment in dry-run.
func (wp *WorkerPool) buildExecutor(req paraswap.SwapRequest, w *task.Wallet) (*paraswap.BuyExecutor, error) {
	if wp.config.DryRun {
		env := NewDryRunEnv(req, w.Address(), wp.logger)
		return paraswap.NewBuyExecutor(
			w.Address(),
			env.Registry,
			env.Oracle,
			env.Ledger,
			env.Caller,
			wp.bus,
			wp.logger,
			wp.config.MaxSlippageBps,
		)
	}

	if wp.client == nil {
		return nil, fmt.Errorf("chain client is not initialized")
	}
	return paraswap.NewBuyExecutor(
		w.Address(),
		registry.NewChain(wp.client, wp.config.Registry()),
		oracle.NewChain(wp.client, wp.config.Oracle()),
		ledger.NewERC20(wp.client, w),
		paraswap.NewChainCaller(wp.client, w),
		wp.bus,
		wp.logger,
		wp.config.MaxSlippageBps,
	)
}

// classifyFailure сворачивает ошибку в метку метрики с низкой кардинальностью.
func classifyFailure(err error) metrics.FailureReason {
	var callErr *paraswap.CallError
	switch {
	case errors.Is(err, paraswap.ErrSlippageExceeded):
		return metrics.ReasonSlippage
	case errors.Is(err, paraswap.ErrInvalidTarget),
		errors.Is(err, paraswap.ErrInsufficientBalance),
		errors.Is(err, paraswap.ErrOffsetOutOfRange),
		errors.Is(err, paraswap.ErrArithmeticOverflow):
		return metrics.ReasonValidation
	case errors.Is(err, paraswap.ErrBalanceAccountingMismatch),
		errors.Is(err, paraswap.ErrInsufficientOutputReceived):
		return metrics.ReasonAccounting
	case errors.As(err, &callErr):
		return metrics.ReasonExternal
	default:
		return metrics.ReasonOther
	}
}
