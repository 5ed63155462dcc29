package explorer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var account = common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1")

func TestTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "account", q.Get("module"))
		assert.Equal(t, "txlist", q.Get("action"))
		assert.Equal(t, account.Hex(), q.Get("address"))
		assert.Equal(t, "desc", q.Get("sort"))
		assert.Equal(t, "testkey", q.Get("apikey"))

		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{"hash": "0xaaa", "from": "0x1", "to": "0x2", "value": "1000", "timeStamp": "1718000000", "blockNumber": "100", "isError": "0"},
				{"hash": "0xbbb", "from": "0x2", "to": "0x1", "value": "2000", "timeStamp": "1717000000", "blockNumber": "90", "isError": "1"}
			]
		}`))
	}))
	defer srv.Close()

	// The shared fallback key applies when the network has none.
	txs, err := New("testkey", nil).Transactions(context.Background(), srv.URL, "", account)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "0xaaa", txs[0].Hash)
	assert.Equal(t, "1", txs[1].IsError)
}

func TestTransactionsPerNetworkKeyWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "basescan-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"status": "1", "message": "OK", "result": []}`))
	}))
	defer srv.Close()

	_, err := New("shared-key", nil).Transactions(context.Background(), srv.URL, "basescan-key", account)
	require.NoError(t, err)
}

func TestTransactionsNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "0", "message": "No transactions found", "result": []}`))
	}))
	defer srv.Close()

	txs, err := New("", nil).Transactions(context.Background(), srv.URL, "", account)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTransactionsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New("", nil).Transactions(context.Background(), srv.URL, "", account)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestTransactionsRequiresBaseURL(t *testing.T) {
	_, err := New("", nil).Transactions(context.Background(), "", "", account)
	require.Error(t, err)
}
