package rpc_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcfe/abcfe-calculator/api/rest"
	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/core"
	"github.com/abcfe/abcfe-calculator/ledger"
	"github.com/abcfe/abcfe-calculator/ledger/rpc"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/abcfe/abcfe-calculator/storage"
	"github.com/abcfe/abcfe-calculator/wallet"
)

const testProgram = "CaLcuLatoR1111111111111111111111111111111111"

type testNode struct {
	ledger *core.Ledger
	server *rest.Server
	http   *httptest.Server
}

func startNode(t *testing.T) *testNode {
	t.Helper()

	cfg := config.Default()
	cfg.Common.NetworkID = "test"
	cfg.Genesis.FaucetLamports = 1_000 * prt.LamportsPerSol
	cfg.Genesis.Programs = []string{testProgram}
	cfg.Server.MaxAirdropLamports = 10 * prt.LamportsPerSol

	db, err := storage.OpenMemDB()
	require.NoError(t, err)

	l, err := core.NewLedger(db, cfg)
	require.NoError(t, err)

	srv := rest.NewServer(cfg, l)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		srv.Stop(context.Background())
		db.Close()
	})
	return &testNode{ledger: l, server: srv, http: ts}
}

func (n *testNode) wsURL() string {
	return "ws" + strings.TrimPrefix(n.http.URL, "http") + "/ws"
}

func newSession(t *testing.T, client ledger.Client) *calculator.Session {
	t.Helper()

	payer, err := wallet.NewKeypair()
	require.NoError(t, err)
	program, err := utils.StringToPublicKey(testProgram)
	require.NoError(t, err)

	session, err := calculator.NewSession(client, payer, program)
	require.NoError(t, err)
	return session
}

func TestCalculatorOverRPC(t *testing.T) {
	node := startNode(t)
	client := rpc.NewClient(node.http.URL, rpc.WithPollInterval(20*time.Millisecond))
	session := newSession(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state, err := session.Run(ctx, "add", 7, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), state.Result)

	state, err = session.Run(ctx, "sub", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), state.Result)

	info, err := client.GetAccountInfo(ctx, session.Handle().Address)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Len(t, info.Data, calculator.StateSize)
}

func TestConfirmOverWebsocket(t *testing.T) {
	node := startNode(t)
	// Polling slow enough that the websocket notification wins
	client := rpc.NewClient(node.http.URL, rpc.WithWebsocket(node.wsURL()), rpc.WithPollInterval(time.Minute))
	session := newSession(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state, err := session.Run(ctx, "add", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), state.Result)
}

func TestWebsocketReportsFailedTransaction(t *testing.T) {
	node := startNode(t)
	client := rpc.NewClient(node.http.URL, rpc.WithWebsocket(node.wsURL()), rpc.WithPollInterval(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alice, err := wallet.NewKeypair()
	require.NoError(t, err)
	bob, err := wallet.NewKeypair()
	require.NoError(t, err)

	sig, err := client.RequestAirdrop(ctx, alice.PublicKey(), 100_000)
	require.NoError(t, err)
	require.NoError(t, client.ConfirmTransaction(ctx, sig))

	_, err = ledger.SendAndConfirm(ctx, client, []ledger.Signer{alice}, ledger.Transfer(alice.PublicKey(), bob.PublicKey(), prt.LamportsPerSol))
	var txErr *ledger.TransactionError
	require.True(t, errors.As(err, &txErr), "got %v", err)
	assert.Equal(t, 0, txErr.InstructionIndex)
}

func TestRPCErrors(t *testing.T) {
	node := startNode(t)
	client := rpc.NewClient(node.http.URL)
	ctx := context.Background()

	require.NoError(t, client.GetHealth(ctx))

	var rpcErr *rpc.Error
	err := client.Call(ctx, "getNothing", nil, nil)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeMethodNotFound, rpcErr.Code)

	kp, err := wallet.NewKeypair()
	require.NoError(t, err)
	_, err = client.RequestAirdrop(ctx, kp.PublicKey(), 100*prt.LamportsPerSol)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeAirdropFailed, rpcErr.Code)

	// A transaction anchored to an unknown blockhash is rejected at submission
	tx, err := ledger.NewTransaction(kp.PublicKey(), utils.HashBytes([]byte("unknown")), ledger.Transfer(kp.PublicKey(), kp.PublicKey(), 1))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(kp))
	_, err = client.SendTransaction(ctx, tx)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeBlockhashExpired, rpcErr.Code)
}

func TestAccountQueries(t *testing.T) {
	node := startNode(t)
	client := rpc.NewClient(node.http.URL)
	ctx := context.Background()

	kp, err := wallet.NewKeypair()
	require.NoError(t, err)

	info, err := client.GetAccountInfo(ctx, kp.PublicKey())
	require.NoError(t, err)
	assert.Nil(t, info)

	balance, err := client.GetBalance(ctx, kp.PublicKey())
	require.NoError(t, err)
	assert.Zero(t, balance)

	rent, err := client.GetMinimumBalanceForRentExemption(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, core.MinimumBalanceForRentExemption(4), rent)

	program, _ := utils.StringToPublicKey(testProgram)
	info, err = client.GetAccountInfo(ctx, program)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.Executable)

	blockhash, err := client.GetLatestBlockhash(ctx)
	require.NoError(t, err)
	msg, err := ledger.NewMessage(kp.PublicKey(), blockhash, ledger.Transfer(kp.PublicKey(), program, 1))
	require.NoError(t, err)
	fee, err := client.GetFeeForMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), fee)

	slot, err := client.GetSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, node.ledger.GetLatestSlot(), slot)
}

func TestBlockhashCacheInvalidatedAfterSend(t *testing.T) {
	node := startNode(t)
	client := rpc.NewClient(node.http.URL, rpc.WithBlockhashTTL(time.Hour))
	ctx := context.Background()

	first, err := client.GetLatestBlockhash(ctx)
	require.NoError(t, err)

	kp, err := wallet.NewKeypair()
	require.NoError(t, err)
	_, err = client.RequestAirdrop(ctx, kp.PublicKey(), 1000)
	require.NoError(t, err)

	second, err := client.GetLatestBlockhash(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
