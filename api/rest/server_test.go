package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/core"
	"github.com/abcfe/abcfe-calculator/ledger/rpc"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/abcfe/abcfe-calculator/storage"
	"github.com/abcfe/abcfe-calculator/wallet"
)

const testProgram = "CaLcuLatoR1111111111111111111111111111111111"

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) (*core.Ledger, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.Common.NetworkID = "test"
	cfg.Genesis.FaucetLamports = 1_000 * prt.LamportsPerSol
	cfg.Genesis.Programs = []string{testProgram}
	if mutate != nil {
		mutate(cfg)
	}

	db, err := storage.OpenMemDB()
	require.NoError(t, err)
	l, err := core.NewLedger(db, cfg)
	require.NoError(t, err)

	srv := NewServer(cfg, l)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop(context.Background())
		db.Close()
	})
	return l, ts
}

func postRPC(t *testing.T, url, body string) rpc.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out rpc.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func getREST(t *testing.T, url string, data interface{}) (int, RestResp) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out RestResp
	require.NoError(t, json.Unmarshal(raw, &out))
	if data != nil && out.Data != nil {
		// Re-decode the data field into the typed response
		var wrapper struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &wrapper))
		require.NoError(t, json.Unmarshal(wrapper.Data, data))
	}
	return resp.StatusCode, out
}

func TestJSONRPCEnvelope(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postRPC(t, ts.URL, `{"jsonrpc":"2.0","id":7,"method":"getHealth"}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "7", string(resp.ID))
	assert.Equal(t, `"ok"`, string(resp.Result))

	resp = postRPC(t, ts.URL, `{not json`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeParseError, resp.Error.Code)

	resp = postRPC(t, ts.URL, `{"jsonrpc":"1.0","id":1,"method":"getHealth"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidRequest, resp.Error.Code)

	resp = postRPC(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"getBalance","params":{"a":1}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	resp = postRPC(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"getBalance","params":["not-base58!"]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	resp = postRPC(t, ts.URL, `{"jsonrpc":"2.0","id":1,"method":"sendTransaction","params":["AAAA"]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
}

func TestAirdropRateLimit(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.AirdropPerSecond = 0.001
		cfg.Server.AirdropBurst = 2
	})

	kp, err := wallet.NewKeypair()
	require.NoError(t, err)
	body := `{"jsonrpc":"2.0","id":1,"method":"requestAirdrop","params":["` + kp.Address() + `",1000]}`

	for i := 0; i < 2; i++ {
		resp := postRPC(t, ts.URL, body)
		require.Nil(t, resp.Error, "airdrop %d", i)
	}
	resp := postRPC(t, ts.URL, body)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeRateLimited, resp.Error.Code)
}

func TestInspectionAPI(t *testing.T) {
	l, ts := newTestServer(t, nil)

	payer, err := wallet.NewKeypair()
	require.NoError(t, err)
	program, err := utils.StringToPublicKey(testProgram)
	require.NoError(t, err)
	session, err := calculator.NewSession(core.NewLocalClient(l), payer, program)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = session.Run(ctx, "add", 20, 22)
	require.NoError(t, err)

	var status LedgerStatResp
	code, resp := getREST(t, ts.URL+"/api/v1/status", &status)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "test", status.NetworkID)
	assert.Equal(t, l.GetLatestSlot(), status.Slot)
	assert.NotEmpty(t, status.Faucet)

	var account AccountResp
	address := utils.PublicKeyToString(session.Handle().Address)
	code, _ = getREST(t, ts.URL+"/api/v1/account/"+address, &account)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, testProgram, account.Owner)
	assert.Equal(t, calculator.StateSize, account.Space)
	require.NotNil(t, account.Result)
	assert.Equal(t, uint32(42), *account.Result)

	var payerAccount AccountResp
	code, _ = getREST(t, ts.URL+"/api/v1/account/"+payer.Address(), &payerAccount)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, payerAccount.Result)

	stranger, err := wallet.NewKeypair()
	require.NoError(t, err)
	code, resp = getREST(t, ts.URL+"/api/v1/account/"+stranger.Address(), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)

	code, _ = getREST(t, ts.URL+"/api/v1/account/bad", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getREST(t, ts.URL+"/api/v1/ws/status", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestTransactionLookup(t *testing.T) {
	l, ts := newTestServer(t, nil)

	kp, err := wallet.NewKeypair()
	require.NoError(t, err)
	sig, err := l.RequestAirdrop(kp.PublicKey(), 5000)
	require.NoError(t, err)

	var tx TxResp
	code, _ := getREST(t, ts.URL+"/api/v1/tx/"+utils.SignatureToString(sig), &tx)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(5000), tx.Fee)
	assert.Empty(t, tx.Err)
	assert.Equal(t, 1, tx.Instructions)
	assert.Contains(t, tx.Accounts, kp.Address())

	var unknown prt.Signature
	unknown[0] = 1
	code, _ = getREST(t, ts.URL+"/api/v1/tx/"+utils.SignatureToString(unknown), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	kp, err := wallet.NewKeypair()
	require.NoError(t, err)
	body := `{"jsonrpc":"2.0","id":1,"method":"requestAirdrop","params":["` + kp.Address() + `",1000]}`
	require.Nil(t, postRPC(t, ts.URL, body).Error)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, `localnet_rpc_requests_total{code="0",method="requestAirdrop"} 1`)
	assert.Contains(t, text, "localnet_airdropped_lamports_total 1000")
	assert.Contains(t, text, `localnet_transactions_total{result="success"} 1`)
}

func TestAirdropLimiter(t *testing.T) {
	assert.Nil(t, NewAirdropLimiter(0, 1, 0))

	var disabled *AirdropLimiter
	assert.True(t, disabled.Allow("anyone", time.Now()))

	l := NewAirdropLimiter(1, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	assert.True(t, l.Allow("a", now))
	assert.False(t, l.Allow("a", now))
	assert.True(t, l.Allow("b", now), "buckets are per key")
	assert.True(t, l.Allow("a", now.Add(time.Second)))
}

func TestHomeHandler(t *testing.T) {
	_, ts := newTestServer(t, nil)

	code, resp := getREST(t, ts.URL+"/", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	// Only POST reaches the JSON-RPC handler
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/", bytes.NewReader(nil))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}
