package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/abcfe/abcfe-calculator/api"
	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/config"
	"github.com/abcfe/abcfe-calculator/core"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// Server serves JSON-RPC, websocket subscriptions and the inspection API of a local ledger
type Server struct {
	port       int
	httpServer *http.Server
	ledger     *core.Ledger
	wsHub      *api.WSHub
	metrics    *Metrics
	handler    http.Handler
}

// NewServer wires the ledger into the RPC handler and the websocket hub. The hub runs until Stop.
func NewServer(cfg *config.Config, l *core.Ledger) *Server {
	metrics := NewMetrics()
	limiter := NewAirdropLimiter(cfg.Server.AirdropPerSecond, cfg.Server.AirdropBurst, 0)

	wsHub := api.NewWSHub(func(sig prt.Signature) (api.SignatureEvent, bool) {
		status, err := l.GetSignatureStatus(sig)
		if err != nil || status == nil {
			return api.SignatureEvent{}, false
		}
		return api.SignatureEvent{Signature: sig, Slot: status.Slot, Err: TransactionErr(status)}, true
	})
	go wsHub.Run()

	l.Subscribe(func(sig prt.Signature, status core.TxStatus) {
		result := "success"
		if status.Failed() {
			result = "failed"
		}
		metrics.ObserveTransaction(result)
		metrics.SetSlot(status.Slot)
		wsHub.PublishSignature(api.SignatureEvent{Signature: sig, Slot: status.Slot, Err: TransactionErr(&status)})
	})
	metrics.SetSlot(l.GetLatestSlot())

	rpcHandler := NewRPCHandler(l, limiter, metrics)

	return &Server{
		port:    cfg.Server.RestPort,
		ledger:  l,
		wsHub:   wsHub,
		metrics: metrics,
		handler: setupRouter(l, rpcHandler, wsHub, metrics, cfg.Common.NetworkID),
	}
}

// Handler exposes the router, used directly by tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start API 서버 시작
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("JSON-RPC server listening on port ", s.port)
	logger.Info("WebSocket available at ws://localhost:", s.port, "/ws")
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("JSON-RPC server error:", err)
		}
	}()

	return nil
}

// Stop API 서버 종료
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down JSON-RPC server...")
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetWSHub WebSocket Hub 반환
func (s *Server) GetWSHub() *api.WSHub {
	return s.wsHub
}
