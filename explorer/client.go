// Package explorer reads an account's transaction list from an
// etherscan-compatible block-explorer API. Display only; nothing here
// is authoritative for any client-side decision.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/logger"
)

// Transaction is one row of the explorer's txlist result.
type Transaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	TimeStamp   string `json:"timeStamp"`
	BlockNumber string `json:"blockNumber"`
	IsError     string `json:"isError"`
}

type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Client queries etherscan-compatible explorer APIs. Keys are issued
// per explorer, so each call names its own; the construction-time key
// is only a shared fallback.
type Client struct {
	httpClient *http.Client
	apiKey     string
	log        logger.Logger
}

func New(apiKey string, log logger.Logger) *Client {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     apiKey,
		log:        log,
	}
}

// Transactions fetches the account's transaction list from the given
// explorer API base URL, newest first. apiKey is the network's own
// key; empty selects the shared fallback key.
func (c *Client) Transactions(ctx context.Context, baseURL, apiKey string, account common.Address) ([]Transaction, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("no explorer API configured for this network")
	}
	if apiKey == "" {
		apiKey = c.apiKey
	}

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", account.Hex())
	q.Set("sort", "desc")
	if apiKey != "" {
		q.Set("apikey", apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	var parsed txListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("explorer response malformed: %w", err)
	}
	// Explorers signal "no transactions found" with status 0 and a
	// string result; treat it as an empty list, not an error.
	if parsed.Status != "1" {
		c.log.Debug("explorer returned no results", map[string]any{
			"account": account.Hex(), "message": parsed.Message,
		})
		return nil, nil
	}

	var txs []Transaction
	if err := json.Unmarshal(parsed.Result, &txs); err != nil {
		return nil, fmt.Errorf("explorer result malformed: %w", err)
	}
	return txs, nil
}
