// Package rpc speaks the ledger JSON-RPC protocol. The wire types here are shared by the
// client in this package and the local ledger server.
package rpc

import (
	"encoding/json"
	"fmt"
)

const Version = "2.0"

// Standard and ledger specific JSON-RPC error codes
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeTransactionError = -32002
	CodeSignatureFailure = -32003
	CodeBlockhashExpired = -32004
	CodeAirdropFailed    = -32005
	CodeRateLimited      = -32429
)

// Method names
const (
	MethodGetAccountInfo                    = "getAccountInfo"
	MethodGetBalance                        = "getBalance"
	MethodGetMinimumBalanceForRentExemption = "getMinimumBalanceForRentExemption"
	MethodGetLatestBlockhash                = "getLatestBlockhash"
	MethodGetFeeForMessage                  = "getFeeForMessage"
	MethodRequestAirdrop                    = "requestAirdrop"
	MethodSendTransaction                   = "sendTransaction"
	MethodGetSignatureStatuses              = "getSignatureStatuses"
	MethodGetSlot                           = "getSlot"
	MethodGetHealth                         = "getHealth"

	MethodSignatureSubscribe    = "signatureSubscribe"
	MethodSignatureUnsubscribe  = "signatureUnsubscribe"
	MethodSignatureNotification = "signatureNotification"
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object returned by the server
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Notification is a server pushed websocket message
type Notification struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  NotificationParams `json:"params"`
}

type NotificationParams struct {
	Result       json.RawMessage `json:"result"`
	Subscription uint64          `json:"subscription"`
}

type Context struct {
	Slot uint64 `json:"slot"`
}

// ContextResult wraps values that are reported together with the slot they were read at
type ContextResult[T any] struct {
	Context Context `json:"context"`
	Value   T       `json:"value"`
}

type AccountResult struct {
	Lamports   uint64    `json:"lamports"`
	Owner      string    `json:"owner"`
	Data       [2]string `json:"data"` // [payload, "base64"]
	Executable bool      `json:"executable"`
	RentEpoch  uint64    `json:"rentEpoch"`
	Space      uint64    `json:"space"`
}

type BlockhashResult struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// TransactionErr describes why a processed transaction failed
type TransactionErr struct {
	InstructionIndex int    `json:"instructionIndex"`
	Reason           string `json:"reason"`
}

type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                *TransactionErr `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// SignatureNotificationResult is the value pushed once a subscribed signature is processed
type SignatureNotificationResult struct {
	Err *TransactionErr `json:"err"`
}

type EncodingConfig struct {
	Encoding   string `json:"encoding,omitempty"`
	Commitment string `json:"commitment,omitempty"`
}

// Commitment levels in increasing order of finality
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// CommitmentReached reports whether status satisfies the wanted commitment
func CommitmentReached(status, wanted string) bool {
	rank := map[string]int{CommitmentProcessed: 0, CommitmentConfirmed: 1, CommitmentFinalized: 2}
	got, ok := rank[status]
	if !ok {
		return false
	}
	return got >= rank[wanted]
}
