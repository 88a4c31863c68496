package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Signer signs transactions on behalf of a fixed account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// RevertError is returned when a submitted transaction reverted on-chain.
// Data carries the raw revert payload recovered by replaying the call.
type RevertError struct {
	TxHash common.Hash
	Data   []byte
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("transaction %s reverted (%d bytes of revert data)", e.TxHash.Hex(), len(e.Data))
}

// Execute подписывает и отправляет вызов контракта, дожидается включения в
// блок и при реверте восстанавливает payload повтором через eth_call.
func (c *Client) Execute(ctx context.Context, signer Signer, to common.Address, input []byte) (*types.Receipt, error) {
	from := signer.Address()

	nonce, err := c.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	tip, err := c.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch gas tip: %w", err)
	}
	baseFee, err := c.HeadBaseFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch base fee: %w", err)
	}
	gasLimit, err := c.estimateGas(ctx, from, to, input)
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	// feeCap = 2*baseFee + tip даёт запас на рост base fee между блоками
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Data:      input,
	})

	signed, err := signer.SignTx(tx, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}

	txHash := signed.Hash()
	c.logger.Debug("Transaction submitted",
		zap.String("tx", txHash.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce))

	receipt, err := c.WaitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		// Реплей вызова восстанавливает данные реверта контракта
		data := c.replayRevert(ctx, from, to, input)
		return receipt, &RevertError{TxHash: txHash, Data: data}
	}
	return receipt, nil
}

func (c *Client) estimateGas(ctx context.Context, from, to common.Address, input []byte) (uint64, error) {
	return read(c, ctx, "eth_estimateGas", func(node *Node) (uint64, error) {
		return node.Client.EstimateGas(ctx, ethereum.CallMsg{
			From: from,
			To:   &to,
			Data: input,
		})
	})
}

func (c *Client) replayRevert(ctx context.Context, from, to common.Address, input []byte) []byte {
	_, err := c.CallContract(ctx, from, to, input)
	if err == nil {
		return nil
	}
	data, ok := RevertData(err)
	if !ok {
		return nil
	}
	return data
}
