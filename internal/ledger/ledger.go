// Package ledger abstracts the ERC20 token surface the swap adapter needs:
// decimals, balance queries and spending approvals. Two implementations are
// provided: a journaled in-memory ledger for dry runs and tests, and a
// chain-backed one speaking to real token contracts over JSON-RPC.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenLedger is the narrow token interface consumed by the executor.
type TokenLedger interface {
	// Decimals returns the token's decimal precision.
	Decimals(ctx context.Context, asset common.Address) (uint8, error)

	// BalanceOf returns owner's balance of asset.
	BalanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error)

	// Approve sets spender's allowance over owner's asset to exactly amount.
	Approve(ctx context.Context, asset, owner, spender common.Address, amount *big.Int) error
}

// Transactional is implemented by ledgers that can undo every mutation made
// after a snapshot. The executor uses it to guarantee that a failed execution
// leaves no observable state change.
type Transactional interface {
	// Snapshot marks the current state and returns a revision handle.
	Snapshot() int

	// RevertTo undoes all mutations made after the given revision.
	RevertTo(rev int)
}
