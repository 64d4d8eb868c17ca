package rest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/abcfe/abcfe-calculator/api"
	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/core"
	"github.com/gorilla/mux"
)

// get home response
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"name":    "ABCFE Calculator Localnet",
		"version": "1.0.0",
		"rpc":     "POST /",
		"ws":      "/ws",
	}
	sendResp(w, http.StatusOK, info, nil)
}

// get ledger status response
func GetStatus(l *core.Ledger, hub *api.WSHub, networkID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := l.GetStatus()

		response := LedgerStatResp{
			Slot:             status.Slot,
			Blockhash:        utils.HashToString(status.Blockhash),
			TransactionCount: status.TxCount,
			NetworkID:        networkID,
			Faucet:           status.Faucet,
			WSClients:        hub.GetClientCount(),
		}

		sendResp(w, http.StatusOK, response, nil)
	}
}

// get account response
func GetAccount(l *core.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		address, err := utils.StringToPublicKey(vars["address"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		account, err := l.GetAccount(address)
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}
		if account == nil {
			sendResp(w, http.StatusNotFound, nil, fmt.Errorf("account not found: %s", vars["address"]))
			return
		}

		response := AccountResp{
			Address:    utils.PublicKeyToString(address),
			Lamports:   account.Lamports,
			Owner:      utils.PublicKeyToString(account.Owner),
			Executable: account.Executable,
			Space:      len(account.Data),
			Data:       hex.EncodeToString(account.Data),
		}
		if l.IsProgram(account.Owner) {
			if state, err := calculator.DecodeState(account.Data); err == nil {
				response.Result = &state.Result
			}
		}

		sendResp(w, http.StatusOK, response, nil)
	}
}

// get transaction response
func GetTx(l *core.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		sig, err := utils.StringToSignature(vars["signature"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		status, err := l.GetSignatureStatus(sig)
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}
		tx, err := l.GetTransaction(sig)
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}
		if status == nil || tx == nil {
			sendResp(w, http.StatusNotFound, nil, fmt.Errorf("transaction not found: %s", vars["signature"]))
			return
		}

		accounts := make([]string, len(tx.Message.AccountKeys))
		for i, key := range tx.Message.AccountKeys {
			accounts[i] = utils.PublicKeyToString(key)
		}

		response := TxResp{
			Signature:        utils.SignatureToString(sig),
			Slot:             status.Slot,
			Fee:              status.Fee,
			Err:              status.Err,
			InstructionIndex: status.InstructionIndex,
			Accounts:         accounts,
			Instructions:     len(tx.Message.Instructions),
		}
		sendResp(w, http.StatusOK, response, nil)
	}
}

// GetWSStatus gets WebSocket connection status
func GetWSStatus(hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			sendResp(w, http.StatusInternalServerError, nil, fmt.Errorf("WebSocket hub not initialized"))
			return
		}

		status := map[string]interface{}{
			"connected_clients": hub.GetClientCount(),
			"endpoint":          "/ws",
		}

		sendResp(w, http.StatusOK, status, nil)
	}
}

// send response
func sendResp(w http.ResponseWriter, statusCode int, data interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := RestResp{
		Success: err == nil,
		Data:    data,
	}

	if err != nil {
		response.Error = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
