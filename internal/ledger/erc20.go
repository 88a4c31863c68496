package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Distopian-UN/aave-v3-origin/internal/chain"
)

var (
	balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	decimalsSelector  = crypto.Keccak256([]byte("decimals()"))[:4]
	approveSelector   = crypto.Keccak256([]byte("approve(address,uint256)"))[:4]
)

// ERC20 is the chain-backed ledger: reads go through pooled eth_call,
// approvals are signed and submitted by the wallet that owns the funds.
type ERC20 struct {
	client *chain.Client
	signer chain.Signer
}

// NewERC20 создает леджер поверх реальных токен-контрактов.
func NewERC20(client *chain.Client, signer chain.Signer) *ERC20 {
	return &ERC20{client: client, signer: signer}
}

// Decimals implements TokenLedger.
func (l *ERC20) Decimals(ctx context.Context, asset common.Address) (uint8, error) {
	out, err := l.client.CallContract(ctx, l.signer.Address(), asset, decimalsSelector)
	if err != nil {
		return 0, fmt.Errorf("ledger: decimals of %s: %w", asset.Hex(), err)
	}
	if len(out) != 32 {
		return 0, fmt.Errorf("ledger: unexpected decimals return of %d bytes", len(out))
	}

	dec := new(big.Int).SetBytes(out)
	if !dec.IsUint64() || dec.Uint64() > 255 {
		return 0, fmt.Errorf("ledger: implausible decimals %s for %s", dec, asset.Hex())
	}
	return uint8(dec.Uint64()), nil
}

// BalanceOf implements TokenLedger.
func (l *ERC20) BalanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error) {
	input := make([]byte, 0, 4+32)
	input = append(input, balanceOfSelector...)
	input = append(input, common.LeftPadBytes(owner.Bytes(), 32)...)

	out, err := l.client.CallContract(ctx, l.signer.Address(), asset, input)
	if err != nil {
		return nil, fmt.Errorf("ledger: balanceOf %s: %w", asset.Hex(), err)
	}
	if len(out) != 32 {
		return nil, fmt.Errorf("ledger: unexpected balanceOf return of %d bytes", len(out))
	}
	return new(big.Int).SetBytes(out), nil
}

// Approve implements TokenLedger. Only the wallet's own funds can be
// approved: the chain knows no other owner for this signer.
func (l *ERC20) Approve(ctx context.Context, asset, owner, spender common.Address, amount *big.Int) error {
	if owner != l.signer.Address() {
		return fmt.Errorf("ledger: cannot approve on behalf of %s", owner.Hex())
	}

	input := make([]byte, 0, 4+64)
	input = append(input, approveSelector...)
	input = append(input, common.LeftPadBytes(spender.Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(amount.Bytes(), 32)...)

	if _, err := l.client.Execute(ctx, l.signer, asset, input); err != nil {
		return fmt.Errorf("ledger: approve %s for %s: %w", asset.Hex(), spender.Hex(), err)
	}
	return nil
}
