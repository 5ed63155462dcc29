package flows

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/chainvoice/contracts"
	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/registry"
	"github.com/vitwit/chainvoice/types"
)

var (
	invoiceAddr    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	automationAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	usdcAddr       = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	merchantAddr   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	payerAddr      = common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1")
)

type fakeBackend struct {
	chainID *big.Int
	calls   map[string][]byte
	code    map[common.Address][]byte
}

func newFakeBackend(chainID uint64) *fakeBackend {
	return &fakeBackend{
		chainID: new(big.Int).SetUint64(chainID),
		calls:   make(map[string][]byte),
		code:    make(map[common.Address][]byte),
	}
}

func (b *fakeBackend) expect(data, ret []byte) { b.calls[hex.EncodeToString(data)] = ret }

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) { return b.chainID, nil }

func (b *fakeBackend) CodeAt(_ context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	return b.code[addr], nil
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if ret, ok := b.calls[hex.EncodeToString(msg.Data)]; ok {
		return ret, nil
	}
	return nil, errors.New("execution reverted")
}

func (b *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*ethtypes.Receipt, error) {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil
}

type stubWallet struct {
	chainID uint64
	backend providers.Backend
	sent    []*providers.TxRequest
	sendErr error
}

func (w *stubWallet) ChainID(context.Context) (uint64, error) { return w.chainID, nil }

func (w *stubWallet) Account(context.Context) (common.Address, error) { return payerAddr, nil }

func (w *stubWallet) SendTransaction(_ context.Context, req *providers.TxRequest) (common.Hash, error) {
	if w.sendErr != nil {
		return common.Hash{}, w.sendErr
	}
	w.sent = append(w.sent, req)
	return common.HexToHash("0xfeed"), nil
}

func (w *stubWallet) Backend() providers.Backend { return w.backend }

func testConfig() registry.Config {
	return registry.Config{
		ChainID: 84532,
		Name:    "base-sepolia",
		Tokens: []types.Token{
			{Symbol: "ETH", Decimals: 18},
			{Address: usdcAddr, Symbol: "USDC", Decimals: 6},
		},
		InvoiceAddr:    invoiceAddr,
		AutomationAddr: automationAddr,
	}
}

func newTestService(t *testing.T, cfg registry.Config, backend *fakeBackend) (*Service, *stubWallet) {
	t.Helper()
	reg, err := registry.New([]registry.Config{cfg}, cfg.ChainID)
	require.NoError(t, err)
	wallet := &stubWallet{chainID: cfg.ChainID, backend: backend}
	resolver := providers.NewResolver(nil, nil)
	locator := contracts.NewLocator(reg, nil, nil)
	// Zero settle delay keeps tests fast; the refresh step still runs.
	return NewService(reg, resolver, wallet, locator, nil, nil, 0), wallet
}

func packInvoice(t *testing.T, token common.Address, amount *big.Int, isPaid bool) []byte {
	t.Helper()
	out, err := contracts.InvoiceABI().Methods["getInvoice"].Outputs.Pack(
		merchantAddr, token, amount, big.NewInt(0), isPaid, "consulting", "", "", big.NewInt(0))
	require.NoError(t, err)
	return out
}

func uint256Word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func TestPayInvoiceWithSufficientAllowanceSendsExactlyOneTransaction(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend(cfg.ChainID)
	svc, wallet := newTestService(t, cfg, backend)

	hash := common.HexToHash("0x11aa")
	amount := big.NewInt(1_000_000)

	getData, err := contracts.InvoiceABI().Pack("getInvoice", hash)
	require.NoError(t, err)
	backend.expect(getData, packInvoice(t, usdcAddr, amount, false))

	backend.code[usdcAddr] = []byte{0x60, 0x80}
	balData, err := contracts.ERC20ABI().Pack("balanceOf", payerAddr)
	require.NoError(t, err)
	backend.expect(balData, uint256Word(big.NewInt(9_000_000)))
	allowData, err := contracts.ERC20ABI().Pack("allowance", payerAddr, invoiceAddr)
	require.NoError(t, err)
	backend.expect(allowData, uint256Word(amount))

	require.NoError(t, svc.PayInvoice(context.Background(), hash))

	// An already-sufficient allowance must not cost an approval tx.
	require.Len(t, wallet.sent, 1)
	payData, err := contracts.InvoiceABI().Pack("payInvoice", hash)
	require.NoError(t, err)
	assert.Equal(t, invoiceAddr, wallet.sent[0].To)
	assert.Equal(t, payData, wallet.sent[0].Data)
	assert.Nil(t, wallet.sent[0].Value)
	assert.Equal(t, StateIdle, svc.State())
}

func TestPayInvoiceNativeSendsValue(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend(cfg.ChainID)
	svc, wallet := newTestService(t, cfg, backend)

	hash := common.HexToHash("0x22bb")
	amount := big.NewInt(1_500_000_000_000_000_000)

	getData, err := contracts.InvoiceABI().Pack("getInvoice", hash)
	require.NoError(t, err)
	backend.expect(getData, packInvoice(t, common.Address{}, amount, false))

	require.NoError(t, svc.PayInvoice(context.Background(), hash))

	require.Len(t, wallet.sent, 1)
	assert.Equal(t, amount.String(), wallet.sent[0].Value.String())
}

func TestPayInvoiceAlreadyPaid(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend(cfg.ChainID)
	svc, wallet := newTestService(t, cfg, backend)

	hash := common.HexToHash("0x33cc")
	getData, err := contracts.InvoiceABI().Pack("getInvoice", hash)
	require.NoError(t, err)
	backend.expect(getData, packInvoice(t, usdcAddr, big.NewInt(1), true))

	err = svc.PayInvoice(context.Background(), hash)
	require.Error(t, err)
	assert.Equal(t, ClassValidation, ClassifyFailure(err).Class)
	assert.Empty(t, wallet.sent)
	assert.Equal(t, StateFailed, svc.State())
}

func TestCreateInvoiceValidation(t *testing.T) {
	cfg := testConfig()
	svc, wallet := newTestService(t, cfg, newFakeBackend(cfg.ChainID))

	tests := []struct {
		name string
		req  CreateInvoiceRequest
	}{
		{"missing amount", CreateInvoiceRequest{Token: usdcAddr.Hex()}},
		{"non-checksummed token", CreateInvoiceRequest{
			Token:  "0x036cbd53842c5426634e7929541ec2318f3dcf7e",
			Amount: "10",
		}},
		{"non-numeric amount", CreateInvoiceRequest{Amount: "ten"}},
		{"zero amount", CreateInvoiceRequest{Amount: "0"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(context.Background(), tc.req)
			require.Error(t, err)
			var coded *types.Error
			require.ErrorAs(t, err, &coded)
			assert.Equal(t, types.ErrValidation, coded.Code)
		})
	}
	assert.Empty(t, wallet.sent)
}

func TestCreateInvoiceSubmits(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend(cfg.ChainID)
	svc, wallet := newTestService(t, cfg, backend)

	txHash, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		Token:  usdcAddr.Hex(),
		Amount: "25.50",
		Memo:   "june retainer",
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xfeed"), txHash)

	require.Len(t, wallet.sent, 1)
	want, err := contracts.InvoiceABI().Pack("createInvoice",
		usdcAddr, big.NewInt(25_500_000), big.NewInt(0), "june retainer", "", "")
	require.NoError(t, err)
	assert.Equal(t, want, wallet.sent[0].Data)
}

func TestCreateInvoiceUnknownTokenReadsDecimalsOnChain(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend(cfg.ChainID)
	svc, wallet := newTestService(t, cfg, backend)

	// A token absent from the registry's metadata table.
	wbtc := common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	decData, err := contracts.ERC20ABI().Pack("decimals")
	require.NoError(t, err)
	decRet, err := contracts.ERC20ABI().Methods["decimals"].Outputs.Pack(uint8(8))
	require.NoError(t, err)
	backend.expect(decData, decRet)

	_, err = svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		Token:  wbtc.Hex(),
		Amount: "0.5",
	})
	require.NoError(t, err)

	require.Len(t, wallet.sent, 1)
	want, err := contracts.InvoiceABI().Pack("createInvoice",
		wbtc, big.NewInt(50_000_000), big.NewInt(0), "", "", "")
	require.NoError(t, err)
	assert.Equal(t, want, wallet.sent[0].Data, "amount must be scaled by the token's own decimals")
}

func TestWritesDisabledWithoutContractAddress(t *testing.T) {
	cfg := testConfig()
	cfg.InvoiceAddr = common.Address{}
	cfg.AutomationAddr = common.Address{}
	svc, wallet := newTestService(t, cfg, newFakeBackend(cfg.ChainID))

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceRequest{Amount: "1"})
	var coded *types.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.ErrWriteDisabled, coded.Code)

	err = svc.ExecutePayment(context.Background(), 1)
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.ErrWriteDisabled, coded.Code)

	assert.Empty(t, wallet.sent)
}

func TestFlowRejectsConcurrentSubmission(t *testing.T) {
	cfg := testConfig()
	svc, _ := newTestService(t, cfg, newFakeBackend(cfg.ChainID))

	svc.setState(StateSubmitting)
	err := svc.PayInvoice(context.Background(), common.HexToHash("0x01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in flight")

	// A failed flow may be retried without an explicit reset.
	svc.setState(StateFailed)
	assert.NoError(t, svc.begin())
}

func TestSchedulePaymentDepositsTotal(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend(cfg.ChainID)
	svc, wallet := newTestService(t, cfg, backend)

	recipients := []string{
		"0x3333333333333333333333333333333333333333",
		"0x4444444444444444444444444444444444444444",
	}
	_, err := svc.SchedulePayment(context.Background(), SchedulePaymentRequest{
		Recipients:    recipients,
		AmountPer:     "0.5",
		ScheduledTime: 1_900_000_000,
	})
	require.NoError(t, err)

	require.Len(t, wallet.sent, 1)
	assert.Equal(t, automationAddr, wallet.sent[0].To)
	// 0.5 native each for two recipients: 1.0 deposited with the call.
	assert.Equal(t, "1000000000000000000", wallet.sent[0].Value.String())
}

func TestSubmitExecuteDoesNotTakeFlowLock(t *testing.T) {
	cfg := testConfig()
	backend := newFakeBackend(cfg.ChainID)
	svc, wallet := newTestService(t, cfg, backend)

	svc.setState(StateSubmitting)
	txHash, err := svc.SubmitExecute(context.Background(), 7)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, txHash)
	require.Len(t, wallet.sent, 1)

	want, err := contracts.AutomationABI().Pack("executePayment", big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, want, wallet.sent[0].Data)
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureClass
	}{
		{"user rejected", types.NewError(types.ErrUserRejected, "denied"), ClassUserRejected},
		{"reverted", types.NewError(types.ErrExecutionReverted, "revert"), ClassReverted},
		{"validation", types.NewError(types.ErrValidation, "bad input"), ClassValidation},
		{"network mismatch", &types.NetworkMismatchError{WalletChainID: 137, ProviderChainID: 1, TargetChainID: 137}, ClassValidation},
		{"insufficient balance", &types.InsufficientBalanceError{Token: usdcAddr, Required: big.NewInt(2), Available: big.NewInt(1)}, ClassValidation},
		{"unknown", errors.New("socket closed"), ClassProviderInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyFailure(tc.err).Class)
		})
	}
}
