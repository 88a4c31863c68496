// Package chain provides a pooled JSON-RPC client over multiple EVM
// endpoints. Idempotent reads are retried with exponential backoff across
// nodes; state-changing submissions are sent exactly once.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	readMaxElapsed  = 15 * time.Second
	receiptInterval = 500 * time.Millisecond
)

// Client is a health-scored pool of EVM JSON-RPC endpoints.
type Client struct {
	pool      *Pool
	logger    *zap.Logger
	chainID   *big.Int
	onRequest func(method, endpoint string, elapsed time.Duration)
}

// SetRequestObserver registers a callback invoked after every JSON-RPC
// request, successful or not. Used to feed latency metrics.
func (c *Client) SetRequestObserver(fn func(method, endpoint string, elapsed time.Duration)) {
	c.onRequest = fn
}

func (c *Client) observe(method, endpoint string, elapsed time.Duration) {
	if c.onRequest != nil {
		c.onRequest(method, endpoint, elapsed)
	}
}

// NewClient dials every URL and builds the pool. Endpoints that fail to dial
// are skipped; at least one must survive.
func NewClient(urls []string, chainID int64, logger *zap.Logger) (*Client, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no RPC URLs provided")
	}

	// Узлы поднимаем параллельно, порядок пула сохраняется.
	dialed := make([]*Node, len(urls))
	var g errgroup.Group
	for i, url := range urls {
		g.Go(func() error {
			ec, err := ethclient.Dial(url)
			if err != nil {
				logger.Warn("Failed to dial node", zap.String("url", url), zap.Error(err))
				return nil
			}
			node := &Node{Client: ec, URL: url}
			node.SetActive(true)
			dialed[i] = node
			return nil
		})
	}
	_ = g.Wait()

	nodes := make([]*Node, 0, len(urls))
	for _, node := range dialed {
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("failed to dial any of %d nodes", len(urls))
	}

	return &Client{
		pool:    NewPool(nodes),
		logger:  logger.Named("chain"),
		chainID: big.NewInt(chainID),
	}, nil
}

// ChainID returns the configured chain ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// CallContract выполняет eth_call с ретраями по узлам пула.
func (c *Client) CallContract(ctx context.Context, from, to common.Address, input []byte) ([]byte, error) {
	return read(c, ctx, "eth_call", func(node *Node) ([]byte, error) {
		out, err := node.Client.CallContract(ctx, ethereum.CallMsg{
			From: from,
			To:   &to,
			Data: input,
		}, nil)
		if err != nil {
			// Ошибка reverted несет данные контракта - ретраи бессмысленны
			if _, ok := RevertData(err); ok {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return out, nil
	})
}

// PendingNonceAt возвращает nonce аккаунта с учетом pending транзакций.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return read(c, ctx, "eth_getTransactionCount", func(node *Node) (uint64, error) {
		return node.Client.PendingNonceAt(ctx, account)
	})
}

// SuggestGasTipCap возвращает рекомендованный priority fee.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return read(c, ctx, "eth_maxPriorityFeePerGas", func(node *Node) (*big.Int, error) {
		return node.Client.SuggestGasTipCap(ctx)
	})
}

// HeadBaseFee возвращает base fee последнего блока.
func (c *Client) HeadBaseFee(ctx context.Context) (*big.Int, error) {
	return read(c, ctx, "eth_getBlockByNumber", func(node *Node) (*big.Int, error) {
		header, err := node.Client.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}
		if header.BaseFee == nil {
			return big.NewInt(0), nil
		}
		return header.BaseFee, nil
	})
}

// SendTransaction отправляет подписанную транзакцию. Без ретраев: повторная
// отправка меняющей состояние операции недопустима.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	node := c.pool.GetNextNode()
	if node == nil {
		return ErrNoActiveNodes
	}

	start := time.Now()
	err := node.Client.SendTransaction(ctx, tx)
	elapsed := time.Since(start)
	node.UpdateMetrics(err == nil, elapsed)
	c.observe("eth_sendRawTransaction", node.URL, elapsed)
	if err != nil {
		return NewError(err, node.URL, "eth_sendRawTransaction")
	}
	return nil
}

// WaitMined блокирует до включения транзакции в блок или отмены контекста.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptInterval)
	defer ticker.Stop()

	for {
		node := c.pool.GetNextNode()
		if node == nil {
			return nil, ErrNoActiveNodes
		}

		receipt, err := node.Client.TransactionReceipt(ctx, txHash)
		node.UpdateMetrics(err == nil || errors.Is(err, ethereum.NotFound), receiptInterval)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.Debug("Receipt poll failed",
				zap.String("tx", txHash.Hex()),
				zap.String("node", node.URL),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, txHash.Hex())
		case <-ticker.C:
		}
	}
}

// read выполняет идемпотентный запрос с экспоненциальным backoff по узлам.
func read[T any](c *Client, ctx context.Context, method string, fn func(*Node) (T, error)) (T, error) {
	op := func() (T, error) {
		var zero T
		node := c.pool.GetNextNode()
		if node == nil {
			return zero, backoff.Permanent(ErrNoActiveNodes)
		}

		start := time.Now()
		out, err := fn(node)
		elapsed := time.Since(start)
		node.UpdateMetrics(err == nil, elapsed)
		c.observe(method, node.URL, elapsed)
		if err != nil {
			c.logger.Debug("RPC read failed",
				zap.String("method", method),
				zap.String("node", node.URL),
				zap.Error(err))
			return zero, err
		}
		return out, nil
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(readMaxElapsed),
	)
}

// RevertData extracts the raw revert payload from a JSON-RPC error, if the
// node attached one. The payload is returned exactly as the contract
// produced it.
func RevertData(err error) ([]byte, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil, false
	}

	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return nil, false
	}
	payload, decodeErr := hexutil.Decode(hexData)
	if decodeErr != nil {
		return nil, false
	}
	return payload, true
}
