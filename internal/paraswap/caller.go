package paraswap

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Distopian-UN/aave-v3-origin/internal/chain"
)

// ChainCaller submits the opaque instruction to the Augustus contract as a
// real transaction. A revert surfaces as *CallError with the payload the
// contract produced, byte for byte.
type ChainCaller struct {
	client *chain.Client
	signer chain.Signer
}

// NewChainCaller создает вызыватель поверх JSON-RPC клиента.
func NewChainCaller(client *chain.Client, signer chain.Signer) *ChainCaller {
	return &ChainCaller{client: client, signer: signer}
}

// Call implements AugustusCaller.
func (c *ChainCaller) Call(ctx context.Context, augustus common.Address, input []byte) error {
	_, err := c.client.Execute(ctx, c.signer, augustus, input)
	if err == nil {
		return nil
	}

	var reverted *chain.RevertError
	if errors.As(err, &reverted) {
		return &CallError{Augustus: augustus, Data: reverted.Data}
	}
	if data, ok := chain.RevertData(err); ok {
		return &CallError{Augustus: augustus, Data: data}
	}
	return err
}
