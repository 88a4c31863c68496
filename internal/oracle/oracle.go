// Package oracle exposes spot asset prices to the execution path. Prices are
// unit-agnostic; the executor only requires that both assets are quoted in
// the same base currency.
package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Distopian-UN/aave-v3-origin/internal/chain"
)

// PriceOracle returns the current spot price of an asset.
type PriceOracle interface {
	GetAssetPrice(ctx context.Context, asset common.Address) (*big.Int, error)
}

// getAssetPrice(address)
var getAssetPriceSelector = crypto.Keccak256([]byte("getAssetPrice(address)"))[:4]

// Chain reads prices from the on-chain price oracle contract.
type Chain struct {
	client  *chain.Client
	address common.Address
}

// NewChain создает оракул поверх контракта по указанному адресу.
func NewChain(client *chain.Client, address common.Address) *Chain {
	return &Chain{client: client, address: address}
}

// GetAssetPrice выполняет eth_call getAssetPrice(asset). Нулевая цена
// считается ошибкой: граница по ней не имеет смысла.
func (o *Chain) GetAssetPrice(ctx context.Context, asset common.Address) (*big.Int, error) {
	input := make([]byte, 0, 4+32)
	input = append(input, getAssetPriceSelector...)
	input = append(input, common.LeftPadBytes(asset.Bytes(), 32)...)

	out, err := o.client.CallContract(ctx, common.Address{}, o.address, input)
	if err != nil {
		return nil, fmt.Errorf("oracle: getAssetPrice call: %w", err)
	}
	if len(out) != 32 {
		return nil, fmt.Errorf("oracle: unexpected return of %d bytes", len(out))
	}

	price := new(big.Int).SetBytes(out)
	if price.Sign() == 0 {
		return nil, fmt.Errorf("oracle: zero price for asset %s", asset.Hex())
	}
	return price, nil
}

// Static serves fixed prices from a map; used in dry-run mode and tests.
type Static map[common.Address]*big.Int

// GetAssetPrice returns the configured price for asset.
func (s Static) GetAssetPrice(_ context.Context, asset common.Address) (*big.Int, error) {
	price, ok := s[asset]
	if !ok || price.Sign() == 0 {
		return nil, fmt.Errorf("oracle: no price configured for asset %s", asset.Hex())
	}
	return new(big.Int).Set(price), nil
}
