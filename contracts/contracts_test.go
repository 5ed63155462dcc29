package contracts

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/registry"
	"github.com/vitwit/chainvoice/types"
)

// fakeBackend answers eth_call by exact call-data match.
type fakeBackend struct {
	chainID *big.Int
	calls   map[string][]byte
	code    map[common.Address][]byte
}

func newFakeBackend(chainID int64) *fakeBackend {
	return &fakeBackend{
		chainID: big.NewInt(chainID),
		calls:   make(map[string][]byte),
		code:    make(map[common.Address][]byte),
	}
}

func (b *fakeBackend) expect(data, ret []byte) {
	b.calls[hex.EncodeToString(data)] = ret
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) { return b.chainID, nil }

func (b *fakeBackend) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	return b.code[account], nil
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

var (
	invoiceAddr = common.HexToAddress("0x4444444444444444444444444444444444444444")
	merchant    = common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1")
	usdc        = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
)

func packInvoiceTuple(t *testing.T, merchant, token common.Address, amount *big.Int, dueBy uint64, isPaid bool, memo, logo, desc string, paidAt uint64) []byte {
	t.Helper()
	out, err := invoiceABI.Methods["getInvoice"].Outputs.Pack(
		merchant, token, amount, new(big.Int).SetUint64(dueBy), isPaid, memo, logo, desc, new(big.Int).SetUint64(paidAt))
	require.NoError(t, err)
	return out
}

func expectInvoice(t *testing.T, b *fakeBackend, hash common.Hash, ret []byte) {
	t.Helper()
	data, err := invoiceABI.Pack("getInvoice", hash)
	require.NoError(t, err)
	b.expect(data, ret)
}

func TestReadInvoiceTupleRoundTrip(t *testing.T) {
	hash := common.HexToHash("0xf408d6d1f1d1bca7c6396ed30f00a46ca4e5b073fff983e42b348776a5aa651c")
	amount := big.NewInt(1_000_000)

	backend := newFakeBackend(84532)
	expectInvoice(t, backend, hash,
		packInvoiceTuple(t, merchant, usdc, amount, 1_800_000_000, true, "June retainer", "https://logo.example/x.png", "consulting", 1_750_000_000))

	record, err := NewInvoicing(invoiceAddr, backend).ReadInvoice(context.Background(), hash)
	require.NoError(t, err)

	assert.Equal(t, hash, record.Hash)
	assert.Equal(t, merchant, record.Merchant)
	assert.Equal(t, usdc, record.Token)
	assert.Equal(t, "1000000", record.Amount.String())
	assert.True(t, record.IsPaid)
	assert.Equal(t, uint64(1_800_000_000), record.DueBy)
	assert.Equal(t, "June retainer", record.Memo)
	assert.Equal(t, "consulting", record.Description)
	assert.Equal(t, uint64(1_750_000_000), record.PaidAt)
}

func TestReadInvoiceZeroMerchantIsNotFound(t *testing.T) {
	hash := common.HexToHash("0x01")
	backend := newFakeBackend(84532)
	expectInvoice(t, backend, hash,
		packInvoiceTuple(t, common.Address{}, common.Address{}, big.NewInt(0), 0, false, "", "", "", 0))

	_, err := NewInvoicing(invoiceAddr, backend).ReadInvoice(context.Background(), hash)
	var notFound *types.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, hash, notFound.Hash)
}

func TestLocatorReportsOtherNetwork(t *testing.T) {
	hash := common.HexToHash("0x02")

	// Active network: invoice missing.
	active := newFakeBackend(84532)
	expectInvoice(t, active, hash,
		packInvoiceTuple(t, common.Address{}, common.Address{}, big.NewInt(0), 0, false, "", "", "", 0))

	// Polygon fallback: invoice exists.
	polygonBackend := newFakeBackend(137)
	expectInvoice(t, polygonBackend, hash,
		packInvoiceTuple(t, merchant, usdc, big.NewInt(42), 0, false, "", "", "", 0))

	reg, err := registry.New([]registry.Config{
		{ChainID: 84532, Name: "base-sepolia", InvoiceAddr: invoiceAddr, FallbackRPC: "https://sepolia.base.org"},
		{ChainID: 137, Name: "polygon", InvoiceAddr: invoiceAddr, FallbackRPC: "https://polygon-rpc.com"},
	}, 84532)
	require.NoError(t, err)

	locator := NewLocator(reg, func(_ context.Context, rawurl string) (providers.Backend, error) {
		require.Equal(t, "https://polygon-rpc.com", rawurl)
		return polygonBackend, nil
	}, nil)

	activeCfg := reg.Resolve(84532)
	_, err = locator.FindInvoice(context.Background(), hash, activeCfg, active)

	var elsewhere *types.FoundOnOtherNetworkError
	require.ErrorAs(t, err, &elsewhere)
	assert.Equal(t, "polygon", elsewhere.Network)
	assert.Equal(t, uint64(137), elsewhere.ChainID)
	require.NotNil(t, elsewhere.Record)
	assert.Equal(t, "42", elsewhere.Record.Amount.String())
}

func TestLocatorNotFoundAnywhere(t *testing.T) {
	hash := common.HexToHash("0x03")
	active := newFakeBackend(84532)
	expectInvoice(t, active, hash,
		packInvoiceTuple(t, common.Address{}, common.Address{}, big.NewInt(0), 0, false, "", "", "", 0))

	reg, err := registry.New([]registry.Config{
		{ChainID: 84532, Name: "base-sepolia", InvoiceAddr: invoiceAddr},
	}, 84532)
	require.NoError(t, err)

	locator := NewLocator(reg, nil, nil)
	_, err = locator.FindInvoice(context.Background(), hash, reg.Resolve(84532), active)

	var notFound *types.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestReadPaymentDetailsTuple(t *testing.T) {
	recipients := []common.Address{
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}
	out, err := automationABI.Methods["getPaymentDetails"].Outputs.Pack(
		big.NewInt(7), merchant, big.NewInt(200), recipients, big.NewInt(100), big.NewInt(1_700_000_000), false)
	require.NoError(t, err)

	backend := newFakeBackend(84532)
	data, err := automationABI.Pack("getPaymentDetails", big.NewInt(7))
	require.NoError(t, err)
	backend.expect(data, out)

	payment, err := NewAutomation(invoiceAddr, backend).ReadPaymentDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), payment.ID)
	assert.Equal(t, merchant, payment.Creator)
	assert.Equal(t, recipients, payment.Recipients)
	assert.Equal(t, "100", payment.AmountPerRecipient.String())
	assert.False(t, payment.Executed)
}

// rpcError mimics a provider error carrying a JSON-RPC code.
type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

func TestClassifySubmitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"user rejected by code", &rpcError{4001, "denied"}, types.ErrUserRejected},
		{"user rejected by message", errors.New("user rejected the request"), types.ErrUserRejected},
		{"reverted by code", &rpcError{3, "execution reverted: overdue"}, types.ErrExecutionReverted},
		{"reverted by message", errors.New("execution reverted"), types.ErrExecutionReverted},
		{"internal", &rpcError{-32603, "boom"}, types.ErrProviderInternal},
		{"wrapped rejection keeps its code", fmt.Errorf("send failed: %w", &rpcError{4001, "denied"}), types.ErrUserRejected},
		{"wrapped revert keeps its code", fmt.Errorf("call failed: %w", &rpcError{3, "bad state"}), types.ErrExecutionReverted},
		{"unknown", errors.New("dial tcp: refused"), types.ErrProviderInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifySubmitError(tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.want, classified.Code)
		})
	}
	assert.Nil(t, ClassifySubmitError(nil))
}
