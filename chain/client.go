package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// TxID identifies a broadcast transaction on the network.
type TxID string

// Client speaks JSON-RPC over HTTP to feed nodes. The endpoint is supplied
// per call so the failover executor can drive which node each attempt hits.
type Client struct {
	http *http.Client
}

// NewClient builds a client. The HTTP client carries no timeout of its own;
// callers bound each request through the context.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

// BroadcastFeed submits the signed transaction to the node at endpoint and
// returns the transaction identifier the node assigned.
func (c *Client) BroadcastFeed(ctx context.Context, endpoint string, tx *SignedFeedTx) (TxID, error) {
	if tx == nil {
		return "", fmt.Errorf("chain: nil signed transaction")
	}
	result, err := c.call(ctx, endpoint, "feed_submitTransaction", []interface{}{tx})
	if err != nil {
		return "", err
	}
	var txID string
	if err := json.Unmarshal(result, &txID); err != nil {
		return "", fmt.Errorf("chain: decode transaction id: %w", err)
	}
	if strings.TrimSpace(txID) == "" {
		return "", fmt.Errorf("chain: node returned empty transaction id")
	}
	return TxID(txID), nil
}

func (c *Client) call(ctx context.Context, endpoint, method string, params interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"id":     1,
		"method": method,
		"params": params,
	})
	if err != nil {
		return nil, fmt.Errorf("chain: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("chain: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chain: POST %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chain: %s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("chain: decode response from %s: %w", endpoint, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("chain: node error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}
