// Package registry answers the single question the executor asks before any
// external control transfer: is this Augustus aggregator contract authorized.
package registry

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Distopian-UN/aave-v3-origin/internal/chain"
)

// AugustusRegistry authorizes external aggregator contracts.
type AugustusRegistry interface {
	IsValidAugustus(ctx context.Context, augustus common.Address) (bool, error)
}

// isValidAugustus(address)
var isValidAugustusSelector = crypto.Keccak256([]byte("isValidAugustus(address)"))[:4]

// Chain queries the on-chain Augustus registry contract.
type Chain struct {
	client  *chain.Client
	address common.Address
}

// NewChain создает реестр поверх контракта по указанному адресу.
func NewChain(client *chain.Client, address common.Address) *Chain {
	return &Chain{client: client, address: address}
}

// IsValidAugustus выполняет eth_call isValidAugustus(augustus).
func (r *Chain) IsValidAugustus(ctx context.Context, augustus common.Address) (bool, error) {
	input := make([]byte, 0, 4+32)
	input = append(input, isValidAugustusSelector...)
	input = append(input, common.LeftPadBytes(augustus.Bytes(), 32)...)

	out, err := r.client.CallContract(ctx, common.Address{}, r.address, input)
	if err != nil {
		return false, fmt.Errorf("registry: isValidAugustus call: %w", err)
	}
	if len(out) != 32 {
		return false, fmt.Errorf("registry: unexpected return of %d bytes", len(out))
	}
	return new(big.Int).SetBytes(out).Sign() != 0, nil
}

// Static is a fixed allowlist used in dry-run mode and tests.
type Static map[common.Address]bool

// IsValidAugustus reports membership in the allowlist.
func (s Static) IsValidAugustus(_ context.Context, augustus common.Address) (bool, error) {
	return s[augustus], nil
}
