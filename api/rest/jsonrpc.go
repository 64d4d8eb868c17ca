package rest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/core"
	"github.com/abcfe/abcfe-calculator/ledger"
	"github.com/abcfe/abcfe-calculator/ledger/rpc"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

const maxRequestBody = 64 * 1024

type rpcMethod func(params []json.RawMessage) (interface{}, *rpc.Error)

// RPCHandler serves the ledger JSON-RPC methods
type RPCHandler struct {
	ledger  *core.Ledger
	limiter *AirdropLimiter
	metrics *Metrics
	methods map[string]rpcMethod
}

func NewRPCHandler(l *core.Ledger, limiter *AirdropLimiter, metrics *Metrics) *RPCHandler {
	h := &RPCHandler{ledger: l, limiter: limiter, metrics: metrics}
	h.methods = map[string]rpcMethod{
		rpc.MethodGetAccountInfo:                    h.getAccountInfo,
		rpc.MethodGetBalance:                        h.getBalance,
		rpc.MethodGetMinimumBalanceForRentExemption: h.getMinimumBalanceForRentExemption,
		rpc.MethodGetLatestBlockhash:                h.getLatestBlockhash,
		rpc.MethodGetFeeForMessage:                  h.getFeeForMessage,
		rpc.MethodRequestAirdrop:                    h.requestAirdrop,
		rpc.MethodSendTransaction:                   h.sendTransaction,
		rpc.MethodGetSignatureStatuses:              h.getSignatureStatuses,
		rpc.MethodGetSlot:                           h.getSlot,
		rpc.MethodGetHealth:                         h.getHealth,
	}
	return h
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeRPC(w, rpc.Response{JSONRPC: rpc.Version, Error: rpcErr(rpc.CodeParseError, "failed to read body")})
		return
	}

	var req rpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeRPC(w, rpc.Response{JSONRPC: rpc.Version, Error: rpcErr(rpc.CodeParseError, "invalid json")})
		return
	}

	writeRPC(w, h.Handle(&req))
}

// Handle executes one request and builds its response
func (h *RPCHandler) Handle(req *rpc.Request) rpc.Response {
	resp := rpc.Response{JSONRPC: rpc.Version, ID: req.ID}
	if resp.ID == nil {
		resp.ID = json.RawMessage("null")
	}

	method, ok := h.methods[req.Method]
	if req.JSONRPC != rpc.Version || !ok {
		code := rpc.CodeMethodNotFound
		if req.JSONRPC != rpc.Version {
			code = rpc.CodeInvalidRequest
		}
		resp.Error = rpcErr(code, "unsupported request: "+req.Method)
		h.metrics.ObserveRPC("unknown", code)
		return resp
	}

	var params []json.RawMessage
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = rpcErr(rpc.CodeInvalidParams, "params must be an array")
			h.metrics.ObserveRPC(req.Method, rpc.CodeInvalidParams)
			return resp
		}
	}

	result, rerr := method(params)
	if rerr != nil {
		resp.Error = rerr
		h.metrics.ObserveRPC(req.Method, rerr.Code)
		return resp
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = rpcErr(rpc.CodeInternalError, err.Error())
		h.metrics.ObserveRPC(req.Method, rpc.CodeInternalError)
		return resp
	}
	resp.Result = data
	h.metrics.ObserveRPC(req.Method, 0)
	return resp
}

func writeRPC(w http.ResponseWriter, resp rpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func rpcErr(code int, message string) *rpc.Error {
	return &rpc.Error{Code: code, Message: message}
}

func internalErr(err error) *rpc.Error {
	logger.Error("rpc internal error: ", err)
	return rpcErr(rpc.CodeInternalError, err.Error())
}

// param decodes the i-th positional parameter
func param(params []json.RawMessage, i int, v interface{}) *rpc.Error {
	if i >= len(params) {
		return rpcErr(rpc.CodeInvalidParams, fmt.Sprintf("missing parameter %d", i))
	}
	if err := json.Unmarshal(params[i], v); err != nil {
		return rpcErr(rpc.CodeInvalidParams, fmt.Sprintf("invalid parameter %d: %v", i, err))
	}
	return nil
}

func publicKeyParam(params []json.RawMessage, i int) (prt.PublicKey, *rpc.Error) {
	var s string
	if rerr := param(params, i, &s); rerr != nil {
		return prt.PublicKey{}, rerr
	}
	pk, err := utils.StringToPublicKey(s)
	if err != nil {
		return prt.PublicKey{}, rpcErr(rpc.CodeInvalidParams, err.Error())
	}
	return pk, nil
}

func base64Param(params []json.RawMessage, i int) ([]byte, *rpc.Error) {
	var s string
	if rerr := param(params, i, &s); rerr != nil {
		return nil, rerr
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, rpcErr(rpc.CodeInvalidParams, "invalid base64: "+err.Error())
	}
	return data, nil
}

func (h *RPCHandler) context() rpc.Context {
	return rpc.Context{Slot: h.ledger.GetLatestSlot()}
}

func (h *RPCHandler) getAccountInfo(params []json.RawMessage) (interface{}, *rpc.Error) {
	address, rerr := publicKeyParam(params, 0)
	if rerr != nil {
		return nil, rerr
	}

	account, err := h.ledger.GetAccount(address)
	if err != nil {
		return nil, internalErr(err)
	}

	res := rpc.ContextResult[*rpc.AccountResult]{Context: h.context()}
	if account != nil {
		res.Value = rpc.EncodeAccount(account)
	}
	return res, nil
}

func (h *RPCHandler) getBalance(params []json.RawMessage) (interface{}, *rpc.Error) {
	address, rerr := publicKeyParam(params, 0)
	if rerr != nil {
		return nil, rerr
	}

	balance, err := h.ledger.GetBalance(address)
	if err != nil {
		return nil, internalErr(err)
	}
	return rpc.ContextResult[uint64]{Context: h.context(), Value: balance}, nil
}

func (h *RPCHandler) getMinimumBalanceForRentExemption(params []json.RawMessage) (interface{}, *rpc.Error) {
	var size uint64
	if rerr := param(params, 0, &size); rerr != nil {
		return nil, rerr
	}
	return core.MinimumBalanceForRentExemption(size), nil
}

func (h *RPCHandler) getLatestBlockhash(params []json.RawMessage) (interface{}, *rpc.Error) {
	status := h.ledger.GetStatus()
	return rpc.ContextResult[rpc.BlockhashResult]{
		Context: rpc.Context{Slot: status.Slot},
		Value: rpc.BlockhashResult{
			Blockhash:            utils.HashToString(status.Blockhash),
			LastValidBlockHeight: status.Slot + prt.MaxRecentBlockhashes,
		},
	}, nil
}

func (h *RPCHandler) getFeeForMessage(params []json.RawMessage) (interface{}, *rpc.Error) {
	data, rerr := base64Param(params, 0)
	if rerr != nil {
		return nil, rerr
	}

	msg, err := ledger.UnmarshalMessage(data)
	if err != nil {
		return nil, rpcErr(rpc.CodeInvalidParams, err.Error())
	}

	res := rpc.ContextResult[*uint64]{Context: h.context()}
	valid, err := h.ledger.IsBlockhashValid(msg.RecentBlockhash)
	if err != nil {
		return nil, internalErr(err)
	}
	if valid {
		fee := h.ledger.FeeForSignatures(int(msg.Header.NumRequiredSignatures))
		res.Value = &fee
	}
	return res, nil
}

func (h *RPCHandler) requestAirdrop(params []json.RawMessage) (interface{}, *rpc.Error) {
	address, rerr := publicKeyParam(params, 0)
	if rerr != nil {
		return nil, rerr
	}
	var lamports uint64
	if rerr := param(params, 1, &lamports); rerr != nil {
		return nil, rerr
	}

	if !h.limiter.Allow(utils.PublicKeyToString(address), time.Now()) {
		return nil, rpcErr(rpc.CodeRateLimited, "airdrop rate limit exceeded")
	}

	sig, err := h.ledger.RequestAirdrop(address, lamports)
	if err != nil {
		if errors.Is(err, core.ErrFaucetDisabled) || errors.Is(err, core.ErrAirdropTooLarge) {
			return nil, rpcErr(rpc.CodeAirdropFailed, err.Error())
		}
		return nil, rpcErr(rpc.CodeAirdropFailed, "airdrop failed: "+err.Error())
	}

	h.metrics.ObserveAirdrop(lamports)
	return utils.SignatureToString(sig), nil
}

func (h *RPCHandler) sendTransaction(params []json.RawMessage) (interface{}, *rpc.Error) {
	data, rerr := base64Param(params, 0)
	if rerr != nil {
		return nil, rerr
	}

	tx, err := ledger.UnmarshalTransaction(data)
	if err != nil {
		h.metrics.ObserveTransaction("rejected")
		return nil, rpcErr(rpc.CodeInvalidParams, "failed to decode transaction: "+err.Error())
	}

	sig, err := h.ledger.ProcessTransaction(tx)
	if err != nil {
		h.metrics.ObserveTransaction("rejected")
		switch {
		case errors.Is(err, ledger.ErrInvalidSignature), errors.Is(err, ledger.ErrMissingSignature):
			return nil, rpcErr(rpc.CodeSignatureFailure, err.Error())
		case errors.Is(err, core.ErrBlockhashNotFound):
			return nil, rpcErr(rpc.CodeBlockhashExpired, err.Error())
		default:
			return nil, rpcErr(rpc.CodeTransactionError, err.Error())
		}
	}

	return utils.SignatureToString(sig), nil
}

func (h *RPCHandler) getSignatureStatuses(params []json.RawMessage) (interface{}, *rpc.Error) {
	var encoded []string
	if rerr := param(params, 0, &encoded); rerr != nil {
		return nil, rerr
	}
	if len(encoded) > 256 {
		return nil, rpcErr(rpc.CodeInvalidParams, "too many signatures")
	}

	res := rpc.ContextResult[[]*rpc.SignatureStatus]{
		Context: h.context(),
		Value:   make([]*rpc.SignatureStatus, len(encoded)),
	}
	for i, s := range encoded {
		sig, err := utils.StringToSignature(s)
		if err != nil {
			return nil, rpcErr(rpc.CodeInvalidParams, err.Error())
		}

		status, err := h.ledger.GetSignatureStatus(sig)
		if err != nil {
			return nil, internalErr(err)
		}
		if status != nil {
			res.Value[i] = SignatureStatus(status)
		}
	}
	return res, nil
}

func (h *RPCHandler) getSlot(params []json.RawMessage) (interface{}, *rpc.Error) {
	return h.ledger.GetLatestSlot(), nil
}

func (h *RPCHandler) getHealth(params []json.RawMessage) (interface{}, *rpc.Error) {
	return "ok", nil
}

// SignatureStatus converts a ledger status into wire form. Single node slots are final once processed.
func SignatureStatus(status *core.TxStatus) *rpc.SignatureStatus {
	return &rpc.SignatureStatus{
		Slot:               status.Slot,
		Err:                TransactionErr(status),
		ConfirmationStatus: rpc.CommitmentFinalized,
	}
}

func TransactionErr(status *core.TxStatus) *rpc.TransactionErr {
	if !status.Failed() {
		return nil
	}
	return &rpc.TransactionErr{InstructionIndex: status.InstructionIndex, Reason: status.Err}
}
