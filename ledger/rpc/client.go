package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	cache "github.com/patrickmn/go-cache"
)

const (
	defaultBlockhashTTL = 2 * time.Second
	defaultPollInterval = 500 * time.Millisecond
	latestBlockhashKey  = "latest"
)

// Client is a ledger.Client backed by a JSON-RPC endpoint
type Client struct {
	endpoint     string
	wsURL        string
	commitment   string
	pollInterval time.Duration
	httpClient   *http.Client

	blockhashes *cache.Cache
	nextID      atomic.Uint64
}

var _ ledger.Client = (*Client)(nil)

type Option func(*Client)

// WithWebsocket enables websocket confirmation against url
func WithWebsocket(url string) Option {
	return func(c *Client) { c.wsURL = url }
}

func WithCommitment(commitment string) Option {
	return func(c *Client) {
		if commitment != "" {
			c.commitment = commitment
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBlockhashTTL sets how long a fetched blockhash is reused
func WithBlockhashTTL(ttl time.Duration) Option {
	return func(c *Client) { c.blockhashes = cache.New(ttl, 2*ttl) }
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:     endpoint,
		commitment:   CommitmentConfirmed,
		pollInterval: defaultPollInterval,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		blockhashes:  cache.New(defaultBlockhashTTL, 2*defaultBlockhashTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one JSON-RPC request and decodes its result into result
func (c *Client) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	id := strconv.FormatUint(c.nextID.Add(1), 10)

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	body, err := json.Marshal(Request{
		JSONRPC: Version,
		ID:      json.RawMessage(id),
		Method:  method,
		Params:  rawParams,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", method, err)
	}

	var rpcResp Response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("%s: unexpected response (status %d): %w", method, resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("%s: failed to decode result: %w", method, err)
	}
	return nil
}

func (c *Client) encodingConfig() EncodingConfig {
	return EncodingConfig{Encoding: "base64", Commitment: c.commitment}
}

func (c *Client) GetAccountInfo(ctx context.Context, address prt.PublicKey) (*ledger.AccountInfo, error) {
	var res ContextResult[*AccountResult]
	params := []interface{}{utils.PublicKeyToString(address), c.encodingConfig()}
	if err := c.Call(ctx, MethodGetAccountInfo, params, &res); err != nil {
		return nil, err
	}
	if res.Value == nil {
		return nil, nil
	}
	return DecodeAccount(res.Value)
}

func (c *Client) GetBalance(ctx context.Context, address prt.PublicKey) (uint64, error) {
	var res ContextResult[uint64]
	params := []interface{}{utils.PublicKeyToString(address), EncodingConfig{Commitment: c.commitment}}
	if err := c.Call(ctx, MethodGetBalance, params, &res); err != nil {
		return 0, err
	}
	return res.Value, nil
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	var lamports uint64
	if err := c.Call(ctx, MethodGetMinimumBalanceForRentExemption, []interface{}{size}, &lamports); err != nil {
		return 0, err
	}
	return lamports, nil
}

// GetLatestBlockhash serves a recently fetched blockhash from cache
func (c *Client) GetLatestBlockhash(ctx context.Context) (prt.Hash, error) {
	if cached, ok := c.blockhashes.Get(latestBlockhashKey); ok {
		return cached.(prt.Hash), nil
	}

	var res ContextResult[BlockhashResult]
	if err := c.Call(ctx, MethodGetLatestBlockhash, []interface{}{EncodingConfig{Commitment: c.commitment}}, &res); err != nil {
		return prt.Hash{}, err
	}

	hash, err := utils.StringToHash(res.Value.Blockhash)
	if err != nil {
		return prt.Hash{}, fmt.Errorf("invalid blockhash %q: %w", res.Value.Blockhash, err)
	}

	c.blockhashes.SetDefault(latestBlockhashKey, hash)
	return hash, nil
}

// InvalidateBlockhash drops the cached blockhash so the next transaction gets a fresh one
func (c *Client) InvalidateBlockhash() {
	c.blockhashes.Delete(latestBlockhashKey)
}

func (c *Client) GetFeeForMessage(ctx context.Context, msg *ledger.Message) (uint64, error) {
	data, err := msg.MarshalBinary()
	if err != nil {
		return 0, err
	}

	var res ContextResult[*uint64]
	params := []interface{}{base64.StdEncoding.EncodeToString(data), EncodingConfig{Commitment: c.commitment}}
	if err := c.Call(ctx, MethodGetFeeForMessage, params, &res); err != nil {
		return 0, err
	}
	if res.Value == nil {
		return 0, fmt.Errorf("fee unavailable: blockhash %s expired", utils.HashToString(msg.RecentBlockhash))
	}
	return *res.Value, nil
}

func (c *Client) RequestAirdrop(ctx context.Context, address prt.PublicKey, lamports uint64) (prt.Signature, error) {
	var sig string
	if err := c.Call(ctx, MethodRequestAirdrop, []interface{}{utils.PublicKeyToString(address), lamports}, &sig); err != nil {
		return prt.Signature{}, err
	}
	c.InvalidateBlockhash()
	return utils.StringToSignature(sig)
}

func (c *Client) SendTransaction(ctx context.Context, tx *ledger.Transaction) (prt.Signature, error) {
	data, err := tx.MarshalBinary()
	if err != nil {
		return prt.Signature{}, err
	}

	// A reused blockhash could make a repeated operation collide with the previous signature
	defer c.InvalidateBlockhash()

	var sig string
	params := []interface{}{base64.StdEncoding.EncodeToString(data), c.encodingConfig()}
	if err := c.Call(ctx, MethodSendTransaction, params, &sig); err != nil {
		return tx.Signature(), err
	}
	return utils.StringToSignature(sig)
}

// GetSignatureStatuses returns one entry per signature, nil for unknown ones
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs ...prt.Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i, sig := range sigs {
		encoded[i] = utils.SignatureToString(sig)
	}

	var res ContextResult[[]*SignatureStatus]
	params := []interface{}{encoded, map[string]bool{"searchTransactionHistory": true}}
	if err := c.Call(ctx, MethodGetSignatureStatuses, params, &res); err != nil {
		return nil, err
	}
	if len(res.Value) != len(sigs) {
		return nil, fmt.Errorf("expected %d statuses, got %d", len(sigs), len(res.Value))
	}
	return res.Value, nil
}

func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.Call(ctx, MethodGetSlot, nil, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

func (c *Client) GetHealth(ctx context.Context) error {
	var health string
	if err := c.Call(ctx, MethodGetHealth, nil, &health); err != nil {
		return err
	}
	if health != "ok" {
		return fmt.Errorf("node unhealthy: %s", health)
	}
	return nil
}

// DecodeAccount converts a wire account into ledger form
func DecodeAccount(res *AccountResult) (*ledger.AccountInfo, error) {
	owner, err := utils.StringToPublicKey(res.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner %q: %w", res.Owner, err)
	}
	if res.Data[1] != "" && res.Data[1] != "base64" {
		return nil, fmt.Errorf("unsupported account encoding %q", res.Data[1])
	}
	data, err := base64.StdEncoding.DecodeString(res.Data[0])
	if err != nil {
		return nil, fmt.Errorf("invalid account data: %w", err)
	}

	return &ledger.AccountInfo{
		Lamports:   res.Lamports,
		Owner:      owner,
		Data:       data,
		Executable: res.Executable,
		RentEpoch:  res.RentEpoch,
	}, nil
}

// EncodeAccount converts a ledger account into wire form
func EncodeAccount(info *ledger.AccountInfo) *AccountResult {
	return &AccountResult{
		Lamports:   info.Lamports,
		Owner:      utils.PublicKeyToString(info.Owner),
		Data:       [2]string{base64.StdEncoding.EncodeToString(info.Data), "base64"},
		Executable: info.Executable,
		RentEpoch:  info.RentEpoch,
		Space:      uint64(len(info.Data)),
	}
}
