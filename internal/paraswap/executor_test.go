package paraswap

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Distopian-UN/aave-v3-origin/internal/ledger"
	"github.com/Distopian-UN/aave-v3-origin/internal/oracle"
	"github.com/Distopian-UN/aave-v3-origin/internal/registry"
)

var (
	testAccount  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testAugustus = common.HexToAddress("0x00000000000000000000000000000000000000a6")
	testUSDC     = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testDAI      = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

type fixture struct {
	ledger   *ledger.Memory
	oracle   oracle.Static
	registry registry.Static
}

// newFixture строит симметричное окружение: оба токена по 18 десятичных,
// одинаковая цена, на счету 10_000 единиц входного токена.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	led := ledger.NewMemory()
	led.RegisterToken(testUSDC, 18)
	led.RegisterToken(testDAI, 18)
	led.Mint(testUSDC, testAccount, big.NewInt(10_000))

	return &fixture{
		ledger: led,
		oracle: oracle.Static{
			testUSDC: big.NewInt(100_000_000),
			testDAI:  big.NewInt(100_000_000),
		},
		registry: registry.Static{testAugustus: true},
	}
}

func (f *fixture) executor(t *testing.T, caller AugustusCaller) *BuyExecutor {
	t.Helper()
	exec, err := NewBuyExecutor(
		testAccount, f.registry, f.oracle, f.ledger, caller,
		nil, zap.NewNop(), 300,
	)
	require.NoError(t, err)
	return exec
}

// honestCaller plays a well-behaved augustus against the memory ledger: it
// pulls cost through the allowance and credits out tokens.
func (f *fixture) honestCaller(cost, out *big.Int, assetFrom, assetTo common.Address) CallerFunc {
	return func(_ context.Context, augustus common.Address, _ []byte) error {
		if err := f.ledger.TransferFrom(assetFrom, testAccount, augustus, augustus, cost); err != nil {
			return err
		}
		f.ledger.Mint(assetTo, testAccount, out)
		return nil
	}
}

func testRequest(maxAmount, toReceive int64) SwapRequest {
	return SwapRequest{
		AssetFrom:       testUSDC,
		AssetTo:         testDAI,
		MaxAmountToSwap: big.NewInt(maxAmount),
		AmountToReceive: big.NewInt(toReceive),
		ParaSwapData: ParaSwapData{
			CallData: make([]byte, 68),
			Augustus: testAugustus,
		},
	}
}

func TestExecuteBuy_Success(t *testing.T) {
	f := newFixture(t)
	// Честный augustus забирает 1000 и отдает ровно 1000.
	exec := f.executor(t, f.honestCaller(big.NewInt(1000), big.NewInt(1000), testUSDC, testDAI))

	result, err := exec.ExecuteBuy(context.Background(), testRequest(1020, 1000))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(1000), result.AmountSold)
	assert.Equal(t, big.NewInt(1000), result.AmountBought)

	balFrom, _ := f.ledger.BalanceOf(context.Background(), testUSDC, testAccount)
	balTo, _ := f.ledger.BalanceOf(context.Background(), testDAI, testAccount)
	assert.Equal(t, big.NewInt(9000), balFrom)
	assert.Equal(t, big.NewInt(1000), balTo)

	// Allowance всегда обнуляется после исполнения.
	assert.Zero(t, f.ledger.Allowance(testUSDC, testAccount, testAugustus).Sign())
}

func TestExecuteBuy_PartialSpendKept(t *testing.T) {
	f := newFixture(t)
	// Цель забрала меньше разрешенного максимума: это успех, остаток остается.
	exec := f.executor(t, f.honestCaller(big.NewInt(700), big.NewInt(1000), testUSDC, testDAI))

	result, err := exec.ExecuteBuy(context.Background(), testRequest(1020, 1000))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(700), result.AmountSold)
	assert.Equal(t, big.NewInt(1000), result.AmountBought)
	assert.Zero(t, f.ledger.Allowance(testUSDC, testAccount, testAugustus).Sign())
}

func TestExecuteBuy_SlippageBoundary(t *testing.T) {
	f := newFixture(t)
	calls := 0
	exec := f.executor(t, CallerFunc(func(context.Context, common.Address, []byte) error {
		calls++
		f.ledger.Mint(testDAI, testAccount, big.NewInt(1000))
		return nil
	}))

	// При равных ценах и 300 bps потолок для 1000 равен 1030.
	_, err := exec.ExecuteBuy(context.Background(), testRequest(1030, 1000))
	require.NoError(t, err, "max exactly at the bound must pass")

	_, err = exec.ExecuteBuy(context.Background(), testRequest(1031, 1000))
	require.ErrorIs(t, err, ErrSlippageExceeded)

	var slippageErr *SlippageError
	require.ErrorAs(t, err, &slippageErr)
	assert.Equal(t, big.NewInt(1031), slippageErr.MaxAmountToSwap)
	assert.Equal(t, big.NewInt(1030), slippageErr.PriceBound)

	// Отказ до передачи управления: второй вызов цели не состоялся.
	assert.Equal(t, 1, calls)
}

func TestExecuteBuy_PriceBoundAsymmetric(t *testing.T) {
	led := ledger.NewMemory()
	led.RegisterToken(testUSDC, 6)
	led.RegisterToken(testDAI, 18)
	led.Mint(testUSDC, testAccount, new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil))

	f := &fixture{
		ledger: led,
		oracle: oracle.Static{
			testUSDC: big.NewInt(200_000_000),
			testDAI:  big.NewInt(100_000_000),
		},
		registry: registry.Static{testAugustus: true},
	}
	exec := f.executor(t, CallerFunc(func(context.Context, common.Address, []byte) error {
		return nil
	}))

	// 4e18 DAI по цене 1:2 стоит 2e6 USDC; с буфером 300 bps потолок 2_060_000.
	req := testRequest(0, 0)
	req.AmountToReceive, _ = new(big.Int).SetString("4000000000000000000", 10)
	req.MaxAmountToSwap = big.NewInt(2_060_001)

	_, err := exec.ExecuteBuy(context.Background(), req)
	var slippageErr *SlippageError
	require.ErrorAs(t, err, &slippageErr)
	assert.Equal(t, big.NewInt(2_060_000), slippageErr.PriceBound)
}

func TestExecuteBuy_InvalidTarget(t *testing.T) {
	f := newFixture(t)
	exec := f.executor(t, CallerFunc(func(context.Context, common.Address, []byte) error {
		t.Fatal("unauthorized augustus must never be called")
		return nil
	}))

	req := testRequest(1020, 1000)
	req.ParaSwapData.Augustus = common.HexToAddress("0xdead")

	_, err := exec.ExecuteBuy(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestExecuteBuy_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	exec := f.executor(t, CallerFunc(func(context.Context, common.Address, []byte) error {
		return nil
	}))

	// Под потолком цены, но сверх баланса в 10_000.
	_, err := exec.ExecuteBuy(context.Background(), testRequest(10_001, 9800))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestExecuteBuy_PatchRejectsBadOffsets(t *testing.T) {
	f := newFixture(t)
	exec := f.executor(t, CallerFunc(func(context.Context, common.Address, []byte) error {
		return nil
	}))

	for _, offset := range []uint64{1, 2, 3, 37, 1000} {
		req := testRequest(1020, 1000)
		req.ToAmountOffset = offset

		_, err := exec.ExecuteBuy(context.Background(), req)
		require.ErrorIs(t, err, ErrOffsetOutOfRange, "offset %d", offset)

		var offsetErr *OffsetError
		require.ErrorAs(t, err, &offsetErr)
		assert.Equal(t, offset, offsetErr.Offset)
		assert.Equal(t, 68, offsetErr.CallDataLen)
	}

	// Патч откатывается целиком: allowance не остается висеть.
	assert.Zero(t, f.ledger.Allowance(testUSDC, testAccount, testAugustus).Sign())
}

func TestExecuteBuy_PatchesCallData(t *testing.T) {
	f := newFixture(t)

	original := make([]byte, 68)
	for i := range original {
		original[i] = byte(i)
	}
	originalCopy := append([]byte(nil), original...)

	var seen []byte
	caller := CallerFunc(func(_ context.Context, _ common.Address, input []byte) error {
		seen = append([]byte(nil), input...)
		f.ledger.Mint(testDAI, testAccount, big.NewInt(1000))
		return nil
	})
	exec := f.executor(t, caller)

	req := testRequest(1020, 1000)
	req.ParaSwapData.CallData = original
	req.ToAmountOffset = 4

	_, err := exec.ExecuteBuy(context.Background(), req)
	require.NoError(t, err)

	// Слово по оффсету заменено big-endian значением 1000, хвост не тронут.
	want := make([]byte, 32)
	big.NewInt(1000).FillBytes(want)
	assert.Equal(t, want, seen[4:36])
	assert.Equal(t, originalCopy[:4], seen[:4])
	assert.Equal(t, originalCopy[36:], seen[36:])

	// Исходный буфер никогда не мутируется.
	assert.Equal(t, originalCopy, original)
}

func TestExecuteBuy_PropagatesRawRevert(t *testing.T) {
	f := newFixture(t)
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	exec := f.executor(t, CallerFunc(func(_ context.Context, augustus common.Address, _ []byte) error {
		return &CallError{Augustus: augustus, Data: payload}
	}))

	_, err := exec.ExecuteBuy(context.Background(), testRequest(1020, 1000))
	require.Error(t, err)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.True(t, bytes.Equal(payload, callErr.Data), "revert payload must survive byte for byte")
	assert.Equal(t, testAugustus, callErr.Augustus)

	// Откат полный: баланс и allowance как до вызова.
	bal, _ := f.ledger.BalanceOf(context.Background(), testUSDC, testAccount)
	assert.Equal(t, big.NewInt(10_000), bal)
	assert.Zero(t, f.ledger.Allowance(testUSDC, testAccount, testAugustus).Sign())
}

func TestExecuteBuy_OverdrainDetected(t *testing.T) {
	f := newFixture(t)
	// Злонамеренная цель уводит больше разрешенного мимо allowance.
	exec := f.executor(t, CallerFunc(func(_ context.Context, augustus common.Address, _ []byte) error {
		if err := f.ledger.Transfer(testUSDC, testAccount, augustus, big.NewInt(1021)); err != nil {
			return err
		}
		f.ledger.Mint(testDAI, testAccount, big.NewInt(1000))
		return nil
	}))

	_, err := exec.ExecuteBuy(context.Background(), testRequest(1020, 1000))
	require.ErrorIs(t, err, ErrBalanceAccountingMismatch)

	// Весь эффект злоупотребления откатан.
	balFrom, _ := f.ledger.BalanceOf(context.Background(), testUSDC, testAccount)
	balTo, _ := f.ledger.BalanceOf(context.Background(), testDAI, testAccount)
	assert.Equal(t, big.NewInt(10_000), balFrom)
	assert.Zero(t, balTo.Sign())
}

func TestExecuteBuy_UnderDeliveryDetected(t *testing.T) {
	f := newFixture(t)
	exec := f.executor(t, f.honestCaller(big.NewInt(1000), big.NewInt(999), testUSDC, testDAI))

	_, err := exec.ExecuteBuy(context.Background(), testRequest(1020, 1000))
	require.ErrorIs(t, err, ErrInsufficientOutputReceived)

	balFrom, _ := f.ledger.BalanceOf(context.Background(), testUSDC, testAccount)
	assert.Equal(t, big.NewInt(10_000), balFrom, "partial fill must not survive")
}

func TestExecuteBuy_FailureIsRepeatable(t *testing.T) {
	f := newFixture(t)
	fail := errors.New("augustus down")
	attempts := 0
	exec := f.executor(t, CallerFunc(func(context.Context, common.Address, []byte) error {
		attempts++
		if attempts < 3 {
			return fail
		}
		f.ledger.TransferFrom(testUSDC, testAccount, testAugustus, testAugustus, big.NewInt(1000)) //nolint:errcheck
		f.ledger.Mint(testDAI, testAccount, big.NewInt(1000))
		return nil
	}))

	req := testRequest(1020, 1000)
	for i := 0; i < 2; i++ {
		_, err := exec.ExecuteBuy(context.Background(), req)
		require.ErrorIs(t, err, fail)
	}

	// После двух откатов третья попытка проходит с нетронутого состояния.
	result, err := exec.ExecuteBuy(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), result.AmountSold)
}

// plainLedger hides the snapshot capability of the memory ledger so the
// compensation path (approval reset without rollback) gets exercised.
type plainLedger struct {
	mem *ledger.Memory
}

func (p plainLedger) Decimals(ctx context.Context, asset common.Address) (uint8, error) {
	return p.mem.Decimals(ctx, asset)
}

func (p plainLedger) BalanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error) {
	return p.mem.BalanceOf(ctx, asset, owner)
}

func (p plainLedger) Approve(ctx context.Context, asset, owner, spender common.Address, amount *big.Int) error {
	return p.mem.Approve(ctx, asset, owner, spender, amount)
}

func TestExecuteBuy_NonTransactionalResetsApproval(t *testing.T) {
	f := newFixture(t)
	fail := errors.New("augustus reverted")

	exec, err := NewBuyExecutor(
		testAccount, f.registry, f.oracle, plainLedger{mem: f.ledger},
		CallerFunc(func(context.Context, common.Address, []byte) error { return fail }),
		nil, zap.NewNop(), 300,
	)
	require.NoError(t, err)

	_, err = exec.ExecuteBuy(context.Background(), testRequest(1020, 1000))
	require.ErrorIs(t, err, fail)

	// Без снапшотов единственная компенсация: отозвать allowance.
	assert.Zero(t, f.ledger.Allowance(testUSDC, testAccount, testAugustus).Sign())
}

func TestExecuteBuy_RejectsMalformedRequests(t *testing.T) {
	f := newFixture(t)
	exec := f.executor(t, CallerFunc(func(context.Context, common.Address, []byte) error {
		return nil
	}))

	t.Run("nil amounts", func(t *testing.T) {
		req := testRequest(1020, 1000)
		req.MaxAmountToSwap = nil
		_, err := exec.ExecuteBuy(context.Background(), req)
		require.Error(t, err)
	})

	t.Run("amount beyond word", func(t *testing.T) {
		req := testRequest(1020, 1000)
		req.AmountToReceive = new(big.Int).Lsh(big.NewInt(1), 256)
		_, err := exec.ExecuteBuy(context.Background(), req)
		require.ErrorIs(t, err, ErrArithmeticOverflow)
	})

	t.Run("calldata shorter than selector", func(t *testing.T) {
		req := testRequest(1020, 1000)
		req.ParaSwapData.CallData = []byte{0x01, 0x02}
		_, err := exec.ExecuteBuy(context.Background(), req)
		require.Error(t, err)
	})
}

func TestExecuteBuyEncoded(t *testing.T) {
	f := newFixture(t)
	exec := f.executor(t, f.honestCaller(big.NewInt(1000), big.NewInt(1000), testUSDC, testDAI))

	encoded, err := EncodeParaSwapData(ParaSwapData{
		CallData: make([]byte, 68),
		Augustus: testAugustus,
	})
	require.NoError(t, err)

	result, err := exec.ExecuteBuyEncoded(
		context.Background(), 0, encoded,
		testUSDC, testDAI, big.NewInt(1020), big.NewInt(1000),
	)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), result.AmountBought)

	_, err = exec.ExecuteBuyEncoded(
		context.Background(), 0, []byte{0x01},
		testUSDC, testDAI, big.NewInt(1020), big.NewInt(1000),
	)
	require.Error(t, err, "malformed wire data is rejected before any state change")
}

func TestNewBuyExecutor_Validation(t *testing.T) {
	f := newFixture(t)
	caller := CallerFunc(func(context.Context, common.Address, []byte) error { return nil })

	_, err := NewBuyExecutor(testAccount, nil, f.oracle, f.ledger, caller, nil, zap.NewNop(), 300)
	require.Error(t, err)

	_, err = NewBuyExecutor(testAccount, f.registry, f.oracle, f.ledger, caller, nil, zap.NewNop(), 0)
	require.Error(t, err, "zero slippage is rejected")

	_, err = NewBuyExecutor(testAccount, f.registry, f.oracle, f.ledger, caller, nil, zap.NewNop(), 10_000)
	require.Error(t, err, "slippage of 100% is rejected")
}
