// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Distopian-UN/aave-v3-origin/internal/chain"
	"github.com/Distopian-UN/aave-v3-origin/internal/config"
	"github.com/Distopian-UN/aave-v3-origin/internal/events"
	"github.com/Distopian-UN/aave-v3-origin/internal/metrics"
	"github.com/Distopian-UN/aave-v3-origin/internal/task"
)

const eventBusBuffer = 64

type Runner struct {
	logger      *zap.Logger
	config      *config.Config
	client      *chain.Client
	taskManager *task.Manager
	wallets     map[string]*task.Wallet
	bus         *events.Bus
	collector   *metrics.Collector
	shutdownCh  chan os.Signal
}

// NewRunner собирает приложение: кошельки, клиент сети (кроме dry-run),
// шину событий и коллектор метрик.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	wallets, err := task.LoadWallets(cfg.WalletsFile)
	if err != nil {
		if !cfg.DryRun {
			return nil, fmt.Errorf("load wallets: %w", err)
		}
		// Симуляции реальные ключи не нужны.
		logger.Warn("🔑 Wallets file unavailable, using ephemeral dry-run wallet", zap.Error(err))
		w, genErr := task.NewRandomWallet()
		if genErr != nil {
			return nil, fmt.Errorf("generate dry-run wallet: %w", genErr)
		}
		wallets = map[string]*task.Wallet{"default": w}
	}

	var client *chain.Client
	if !cfg.DryRun {
		client, err = chain.NewClient(cfg.RPCList, cfg.ChainID, logger)
		if err != nil {
			return nil, fmt.Errorf("init chain client: %w", err)
		}
		logger.Info("🌐 Chain client ready",
			zap.Int64("chain_id", cfg.ChainID),
			zap.Strings("rpc", cfg.GetMaskedRPCList()))
	}

	r := &Runner{
		logger:      logger,
		config:      cfg,
		client:      client,
		taskManager: task.NewManager(logger),
		wallets:     wallets,
		bus:         events.NewBus(logger, eventBusBuffer),
		collector:   metrics.NewCollector(),
		shutdownCh:  make(chan os.Signal, 1),
	}
	if client != nil {
		client.SetRequestObserver(r.collector.RecordRPCLatency)
	}
	r.subscribeEventLog()
	return r, nil
}

// subscribeEventLog wires the audit trail: every lifecycle event lands in the
// structured log regardless of which worker produced it.
func (r *Runner) subscribeEventLog() {
	log := r.logger.Named("events")

	r.bus.SubscribeFunc(events.ExecutionStarted, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(*events.ExecutionStartedEvent); ok {
			log.Info("▶️ Execution started",
				zap.String("execution_id", ev.ExecutionID),
				zap.String("asset_from", ev.AssetFrom.Hex()),
				zap.String("asset_to", ev.AssetTo.Hex()),
				zap.String("max_amount", ev.MaxAmountToSwap.String()),
				zap.String("amount_to_receive", ev.AmountToReceive.String()))
		}
		return nil
	})

	r.bus.SubscribeFunc(events.Bought, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(*events.BoughtEvent); ok {
			log.Info("💰 Bought",
				zap.String("execution_id", ev.ExecutionID),
				zap.String("amount_sold", ev.AmountSold.String()),
				zap.String("amount_bought", ev.AmountBought.String()))
		}
		return nil
	})

	r.bus.SubscribeFunc(events.ExecutionFailed, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(*events.ExecutionFailedEvent); ok {
			log.Warn("⚠️ Execution failed",
				zap.String("execution_id", ev.ExecutionID),
				zap.Error(ev.Err))
		}
		return nil
	})
}

func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("📡 Signal received: " + sig.String())
			cancel()
		case <-shutdownCtx.Done():
		}
	}()

	tasks, err := r.taskManager.LoadTasks(r.config.TasksFile)
	if err != nil {
		return err
	}
	r.logger.Info(fmt.Sprintf("📋 Loaded %d swap tasks", len(tasks)))

	taskCh := make(chan *task.Task, len(tasks))
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	numWorkers := r.config.Workers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	r.logger.Info(fmt.Sprintf("🚀 Starting execution with %d workers", numWorkers))

	workerPool := NewWorkerPool(
		shutdownCtx,
		r.config,
		r.logger,
		r.client,
		r.wallets,
		taskCh,
		r.bus,
		r.collector,
	)

	workerPool.Start(numWorkers)
	workerPool.Wait()

	// Дожимаем события, уже поставленные в очередь шины.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if err := r.bus.Shutdown(drainCtx); err != nil {
		r.logger.Warn("Event bus shutdown", zap.Error(err))
	}

	r.logger.Info("✅ All workers finished")
	return nil
}

func (r *Runner) Shutdown() {
	r.logger.Info("👋 Adapter shutting down gracefully")

	if err := r.logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}
