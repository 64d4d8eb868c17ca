package rest

import (
	"net/http"

	"github.com/abcfe/abcfe-calculator/api"
	"github.com/abcfe/abcfe-calculator/core"
	"github.com/gorilla/mux"
)

func setupRouter(l *core.Ledger, rpcHandler *RPCHandler, wsHub *api.WSHub, metrics *Metrics, networkID string) http.Handler {
	r := mux.NewRouter()

	// Middleware setup
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(metrics.Middleware)

	// JSON-RPC endpoint
	r.Handle("/", rpcHandler).Methods("POST")
	r.HandleFunc("/", HomeHandler).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", api.HandleWebSocket(wsHub))

	// Prometheus metrics
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Ledger inspection API
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/status", GetStatus(l, wsHub, networkID)).Methods("GET")
	apiRouter.HandleFunc("/account/{address}", GetAccount(l)).Methods("GET")
	apiRouter.HandleFunc("/tx/{signature}", GetTx(l)).Methods("GET")

	// WebSocket status API
	apiRouter.HandleFunc("/ws/status", GetWSStatus(wsHub)).Methods("GET")

	return r
}
