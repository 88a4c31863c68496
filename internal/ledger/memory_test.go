package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob     = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	spender = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

func TestMemory_BasicAccounting(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.RegisterToken(tokenA, 18)
	m.Mint(tokenA, alice, big.NewInt(500))

	dec, err := m.Decimals(ctx, tokenA)
	require.NoError(t, err)
	assert.Equal(t, uint8(18), dec)

	_, err = m.Decimals(ctx, common.HexToAddress("0xdead"))
	require.Error(t, err, "unknown token")

	require.NoError(t, m.Transfer(tokenA, alice, bob, big.NewInt(200)))

	balA, _ := m.BalanceOf(ctx, tokenA, alice)
	balB, _ := m.BalanceOf(ctx, tokenA, bob)
	assert.Equal(t, big.NewInt(300), balA)
	assert.Equal(t, big.NewInt(200), balB)

	err = m.Transfer(tokenA, alice, bob, big.NewInt(301))
	require.Error(t, err, "overdraft must fail")
}

func TestMemory_TransferFromConsumesAllowance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.RegisterToken(tokenA, 18)
	m.Mint(tokenA, alice, big.NewInt(1000))

	require.NoError(t, m.Approve(ctx, tokenA, alice, spender, big.NewInt(400)))

	require.NoError(t, m.TransferFrom(tokenA, alice, bob, spender, big.NewInt(250)))
	assert.Equal(t, big.NewInt(150), m.Allowance(tokenA, alice, spender))

	// Остатка allowance уже не хватает, хотя баланс позволяет.
	err := m.TransferFrom(tokenA, alice, bob, spender, big.NewInt(151))
	require.Error(t, err)

	bal, _ := m.BalanceOf(ctx, tokenA, alice)
	assert.Equal(t, big.NewInt(750), bal)
}

func TestMemory_SnapshotRevert(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.RegisterToken(tokenA, 18)
	m.Mint(tokenA, alice, big.NewInt(1000))

	rev := m.Snapshot()

	require.NoError(t, m.Approve(ctx, tokenA, alice, spender, big.NewInt(500)))
	require.NoError(t, m.TransferFrom(tokenA, alice, bob, spender, big.NewInt(500)))
	m.Mint(tokenA, alice, big.NewInt(42))

	m.RevertTo(rev)

	balA, _ := m.BalanceOf(ctx, tokenA, alice)
	balB, _ := m.BalanceOf(ctx, tokenA, bob)
	assert.Equal(t, big.NewInt(1000), balA, "balance restored to the snapshot")
	assert.Zero(t, balB.Sign())
	assert.Zero(t, m.Allowance(tokenA, alice, spender).Sign())
}

func TestMemory_NestedSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.RegisterToken(tokenA, 18)
	m.Mint(tokenA, alice, big.NewInt(100))

	outer := m.Snapshot()
	m.Mint(tokenA, alice, big.NewInt(10))

	inner := m.Snapshot()
	m.Mint(tokenA, alice, big.NewInt(1))

	m.RevertTo(inner)
	bal, _ := m.BalanceOf(ctx, tokenA, alice)
	assert.Equal(t, big.NewInt(110), bal)

	m.RevertTo(outer)
	bal, _ = m.BalanceOf(ctx, tokenA, alice)
	assert.Equal(t, big.NewInt(100), bal)
}

func TestMemory_RevertIgnoresStaleMarks(t *testing.T) {
	m := NewMemory()
	m.RegisterToken(tokenA, 18)

	rev := m.Snapshot()
	m.Mint(tokenA, alice, big.NewInt(5))
	m.RevertTo(rev)

	// Повторный откат и откаты за границы журнала ничего не ломают.
	m.RevertTo(rev)
	m.RevertTo(-1)
	m.RevertTo(10_000)

	bal, _ := m.BalanceOf(context.Background(), tokenA, alice)
	assert.Zero(t, bal.Sign())
}

func TestMemory_BalanceOfReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.RegisterToken(tokenA, 18)
	m.Mint(tokenA, alice, big.NewInt(100))

	bal, _ := m.BalanceOf(ctx, tokenA, alice)
	bal.SetInt64(0)

	fresh, _ := m.BalanceOf(ctx, tokenA, alice)
	assert.Equal(t, big.NewInt(100), fresh, "callers must not alias internal state")
}
