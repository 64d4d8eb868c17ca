package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// ConfirmTransaction blocks until sig reaches the client commitment or ctx ends.
// A websocket subscription and status polling race; the first terminal outcome wins.
func (c *Client) ConfirmTransaction(ctx context.Context, sig prt.Signature) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcome := make(chan error, 2)

	if c.wsURL != "" {
		go func() {
			ok, err := c.confirmWebsocket(ctx, sig)
			if !ok {
				// Polling still runs, so a broken subscription is not fatal
				if ctx.Err() == nil {
					logger.Debug("websocket confirmation unavailable: ", err)
				}
				return
			}
			outcome <- err
		}()
	}

	go func() {
		outcome <- c.confirmPolling(ctx, sig)
	}()

	select {
	case err := <-outcome:
		return err
	case <-ctx.Done():
		return fmt.Errorf("confirmation of %s: %w", utils.SignatureToString(sig), ctx.Err())
	}
}

// confirmPolling queries the signature status at the configured pace
func (c *Client) confirmPolling(ctx context.Context, sig prt.Signature) error {
	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("confirmation of %s: %w", utils.SignatureToString(sig), err)
		}

		statuses, err := c.GetSignatureStatuses(ctx, sig)
		if err != nil {
			var rpcErr *Error
			if errors.As(err, &rpcErr) {
				return err
			}
			logger.Debug("signature status poll failed: ", err)
			continue
		}

		status := statuses[0]
		if status == nil || !CommitmentReached(status.ConfirmationStatus, c.commitment) {
			continue
		}
		return transactionError(sig, status.Err)
	}
}

// confirmWebsocket waits for a signatureNotification. ok is false when the subscription
// itself failed and err says nothing about the transaction.
func (c *Client) confirmWebsocket(ctx context.Context, sig prt.Signature) (ok bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	params, _ := json.Marshal([]interface{}{utils.SignatureToString(sig), EncodingConfig{Commitment: c.commitment}})
	sub := Request{
		JSONRPC: Version,
		ID:      json.RawMessage("1"),
		Method:  MethodSignatureSubscribe,
		Params:  params,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return false, err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}

		var msg struct {
			Method string          `json:"method"`
			Error  *Error          `json:"error"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return false, err
		}
		if msg.Error != nil {
			return false, msg.Error
		}
		if msg.Method != MethodSignatureNotification {
			continue
		}

		var note NotificationParams
		if err := json.Unmarshal(msg.Params, &note); err != nil {
			return false, err
		}
		var res ContextResult[SignatureNotificationResult]
		if err := json.Unmarshal(note.Result, &res); err != nil {
			return false, err
		}
		return true, transactionError(sig, res.Value.Err)
	}
}

func transactionError(sig prt.Signature, txErr *TransactionErr) error {
	if txErr == nil {
		return nil
	}
	return &ledger.TransactionError{Signature: sig, InstructionIndex: txErr.InstructionIndex, Reason: txErr.Reason}
}
