package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client reads the localnet inspection API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// RestResp는 API 응답 래퍼
type RestResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// LedgerStatus is the /api/v1/status response
type LedgerStatus struct {
	Slot             uint64 `json:"slot"`
	Blockhash        string `json:"blockhash"`
	TransactionCount uint64 `json:"transactionCount"`
	NetworkID        string `json:"networkId"`
	Faucet           string `json:"faucet,omitempty"`
	WSClients        int    `json:"wsClients"`
}

// Account is the /api/v1/account/{address} response
type Account struct {
	Address    string  `json:"address"`
	Lamports   uint64  `json:"lamports"`
	Owner      string  `json:"owner"`
	Executable bool    `json:"executable"`
	Space      int     `json:"space"`
	Data       string  `json:"data"`
	Result     *uint32 `json:"result,omitempty"`
}

// ErrNotFound is returned for addresses without an account
var ErrNotFound = errors.New("not found")

func (c *Client) GetStatus() (*LedgerStatus, error) {
	resp, err := c.get("/api/v1/status")
	if err != nil {
		return nil, err
	}

	var status LedgerStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &status, nil
}

func (c *Client) GetAccount(address string) (*Account, error) {
	resp, err := c.get("/api/v1/account/" + url.PathEscape(address))
	if err != nil {
		return nil, err
	}

	var account Account
	if err := json.Unmarshal(resp.Data, &account); err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	return &account, nil
}

func (c *Client) get(path string) (*RestResp, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result RestResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, result.Error)
	}
	if !result.Success {
		return nil, fmt.Errorf("api error: %s", result.Error)
	}

	return &result, nil
}
