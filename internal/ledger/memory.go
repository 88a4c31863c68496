package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Distopian-UN/aave-v3-origin/internal/mathutil"
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// Memory is a deterministic in-memory token world. Every mutation is recorded
// in a journal so the whole ledger can be reverted to a prior snapshot, which
// is how dry runs and tests get the all-or-nothing semantics of the real
// execution environment.
type Memory struct {
	mu         sync.Mutex
	decimals   map[common.Address]uint8
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[allowanceKey]*big.Int
	journal    []func()
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		decimals:   make(map[common.Address]uint8),
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[allowanceKey]*big.Int),
	}
}

// RegisterToken declares a token and its decimal precision.
func (m *Memory) RegisterToken(asset common.Address, decimals uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, existed := m.decimals[asset]
	m.decimals[asset] = decimals
	m.journal = append(m.journal, func() {
		if existed {
			m.decimals[asset] = prev
		} else {
			delete(m.decimals, asset)
		}
	})
}

// Mint credits amount of asset to owner.
func (m *Memory) Mint(asset, owner common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setBalance(asset, owner, new(big.Int).Add(m.balance(asset, owner), amount))
}

// Decimals implements TokenLedger.
func (m *Memory) Decimals(_ context.Context, asset common.Address) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dec, ok := m.decimals[asset]
	if !ok {
		return 0, fmt.Errorf("ledger: unknown token %s", asset.Hex())
	}
	return dec, nil
}

// BalanceOf implements TokenLedger. The returned value is a copy.
func (m *Memory) BalanceOf(_ context.Context, asset, owner common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balance(asset, owner)), nil
}

// Approve implements TokenLedger.
func (m *Memory) Approve(_ context.Context, asset, owner, spender common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("ledger: negative approval amount %s", amount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setAllowance(asset, owner, spender, new(big.Int).Set(amount))
	return nil
}

// Allowance returns spender's remaining allowance over owner's asset.
func (m *Memory) Allowance(asset, owner, spender common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.allowance(asset, owner, spender))
}

// Transfer moves amount of asset from one owner to another.
func (m *Memory) Transfer(asset, from, to common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(asset, from, to, amount)
}

// TransferFrom moves owner funds on behalf of spender, consuming allowance.
// This is the path an aggregator target uses to pull the input asset.
func (m *Memory) TransferFrom(asset, owner, to, spender common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	remaining, err := mathutil.CheckedSub(m.allowance(asset, owner, spender), amount)
	if err != nil {
		return fmt.Errorf("ledger: allowance exceeded for %s: %w", spender.Hex(), err)
	}
	if err := m.move(asset, owner, to, amount); err != nil {
		return err
	}
	m.setAllowance(asset, owner, spender, remaining)
	return nil
}

// Snapshot implements Transactional.
func (m *Memory) Snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.journal)
}

// RevertTo implements Transactional. Undo entries are replayed in reverse.
func (m *Memory) RevertTo(rev int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rev < 0 || rev > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= rev; i-- {
		m.journal[i]()
	}
	m.journal = m.journal[:rev]
}

// balance returns the live balance entry, zero if absent. Caller holds mu.
func (m *Memory) balance(asset, owner common.Address) *big.Int {
	if owners, ok := m.balances[asset]; ok {
		if bal, ok := owners[owner]; ok {
			return bal
		}
	}
	return new(big.Int)
}

func (m *Memory) setBalance(asset, owner common.Address, amount *big.Int) {
	owners, ok := m.balances[asset]
	if !ok {
		owners = make(map[common.Address]*big.Int)
		m.balances[asset] = owners
	}

	prev, existed := owners[owner]
	owners[owner] = amount
	m.journal = append(m.journal, func() {
		if existed {
			owners[owner] = prev
		} else {
			delete(owners, owner)
		}
	})
}

func (m *Memory) allowance(asset, owner, spender common.Address) *big.Int {
	if keys, ok := m.allowances[asset]; ok {
		if a, ok := keys[allowanceKey{owner, spender}]; ok {
			return a
		}
	}
	return new(big.Int)
}

func (m *Memory) setAllowance(asset, owner, spender common.Address, amount *big.Int) {
	keys, ok := m.allowances[asset]
	if !ok {
		keys = make(map[allowanceKey]*big.Int)
		m.allowances[asset] = keys
	}

	key := allowanceKey{owner, spender}
	prev, existed := keys[key]
	keys[key] = amount
	m.journal = append(m.journal, func() {
		if existed {
			keys[key] = prev
		} else {
			delete(keys, key)
		}
	})
}

func (m *Memory) move(asset, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("ledger: negative transfer amount %s", amount)
	}

	fromBal, err := mathutil.CheckedSub(m.balance(asset, from), amount)
	if err != nil {
		return fmt.Errorf("ledger: insufficient balance of %s for %s: %w", asset.Hex(), from.Hex(), err)
	}
	toBal := new(big.Int).Add(m.balance(asset, to), amount)

	m.setBalance(asset, from, fromBal)
	m.setBalance(asset, to, toBal)
	return nil
}
