package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger/rpc"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (for development)
	},
}

// SignatureEvent is the outcome of one processed transaction
type SignatureEvent struct {
	Signature prt.Signature
	Slot      uint64
	Err       *rpc.TransactionErr
}

// SignatureLookup reports an already processed signature
type SignatureLookup func(sig prt.Signature) (SignatureEvent, bool)

type subscription struct {
	client *WSClient
	id     uint64
	sig    prt.Signature
}

type unsubscribeRequest struct {
	client *WSClient
	id     uint64
	reqID  json.RawMessage
}

// WSHub tracks websocket clients and their one-shot signature subscriptions
type WSHub struct {
	clients     map[*WSClient]bool
	subs        map[prt.Signature][]*subscription
	nextSubID   uint64
	register    chan *WSClient
	unregister  chan *WSClient
	subscribe   chan *subscribeRequest
	unsubscribe chan *unsubscribeRequest
	events      chan SignatureEvent
	done        chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
	lookup      SignatureLookup
}

type subscribeRequest struct {
	client *WSClient
	sig    prt.Signature
	reqID  json.RawMessage
}

// WSClient WebSocket client
type WSClient struct {
	hub  *WSHub
	conn *websocket.Conn
	send chan []byte
}

// NewWSHub creates new Hub
func NewWSHub(lookup SignatureLookup) *WSHub {
	return &WSHub{
		clients:     make(map[*WSClient]bool),
		subs:        make(map[prt.Signature][]*subscription),
		register:    make(chan *WSClient),
		unregister:  make(chan *WSClient),
		subscribe:   make(chan *subscribeRequest),
		unsubscribe: make(chan *unsubscribeRequest),
		events:      make(chan SignatureEvent, 256),
		done:        make(chan struct{}),
		lookup:      lookup,
	}
}

// Run runs the Hub until Stop
func (h *WSHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug("WebSocket client connected. Total:", h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.dropSubscriptions(client)
			logger.Debug("WebSocket client disconnected. Total:", h.GetClientCount())

		case req := <-h.subscribe:
			h.nextSubID++
			sub := &subscription{client: req.client, id: h.nextSubID, sig: req.sig}
			h.reply(req.client, req.reqID, sub.id)

			// The transaction may have been processed before the subscription arrived
			if h.lookup != nil {
				if ev, ok := h.lookup(req.sig); ok {
					h.notify(sub, ev)
					continue
				}
			}
			h.subs[req.sig] = append(h.subs[req.sig], sub)

		case req := <-h.unsubscribe:
			found := false
			for sig, subs := range h.subs {
				for i, sub := range subs {
					if sub.client == req.client && sub.id == req.id {
						h.subs[sig] = append(subs[:i], subs[i+1:]...)
						found = true
						break
					}
				}
				if len(h.subs[sig]) == 0 {
					delete(h.subs, sig)
				}
			}
			h.reply(req.client, req.reqID, found)

		case ev := <-h.events:
			subs := h.subs[ev.Signature]
			delete(h.subs, ev.Signature)
			for _, sub := range subs {
				h.notify(sub, ev)
			}
		}
	}
}

// Stop closes every client and ends Run
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// PublishSignature queues a processed transaction for its subscribers
func (h *WSHub) PublishSignature(ev SignatureEvent) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

// GetClientCount returns connected client count
func (h *WSHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHub) dropSubscriptions(client *WSClient) {
	for sig, subs := range h.subs {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.client != client {
				kept = append(kept, sub)
			}
		}
		if len(kept) == 0 {
			delete(h.subs, sig)
		} else {
			h.subs[sig] = kept
		}
	}
}

func (h *WSHub) notify(sub *subscription, ev SignatureEvent) {
	result, _ := json.Marshal(rpc.ContextResult[rpc.SignatureNotificationResult]{
		Context: rpc.Context{Slot: ev.Slot},
		Value:   rpc.SignatureNotificationResult{Err: ev.Err},
	})
	h.send(sub.client, rpc.Notification{
		JSONRPC: rpc.Version,
		Method:  rpc.MethodSignatureNotification,
		Params:  rpc.NotificationParams{Result: result, Subscription: sub.id},
	})
	logger.Debug("signature notification sent: ", utils.SignatureToString(ev.Signature))
}

func (h *WSHub) reply(client *WSClient, id json.RawMessage, result interface{}) {
	data, _ := json.Marshal(result)
	h.send(client, rpc.Response{JSONRPC: rpc.Version, ID: id, Result: data})
}

func (h *WSHub) replyError(client *WSClient, id json.RawMessage, code int, message string) {
	h.send(client, rpc.Response{JSONRPC: rpc.Version, ID: id, Error: &rpc.Error{Code: code, Message: message}})
}

// send drops the client if its buffer is full
func (h *WSHub) send(client *WSClient, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal WebSocket message:", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

// HandleWebSocket WebSocket connection handler
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error:", err)
			return
		}

		// Subscriptions outlive the HTTP server timeouts
		conn.SetReadDeadline(time.Time{})
		conn.SetWriteDeadline(time.Time{})

		client := &WSClient{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, 256),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		// Start read/write goroutines
		go client.writePump()
		go client.readPump()
	}
}

// writePump sends message to client
func (c *WSClient) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			// If channel closed, send normal close message
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			// Treat client disconnection as normal closure
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				logger.Error("WebSocket write error:", err)
			} else {
				logger.Debug("WebSocket write closed:", err)
			}
			return
		}
	}
}

// readPump receives subscription requests from client
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			// Do not log normal client closure as error
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error:", err)
			} else {
				logger.Debug("WebSocket client disconnected:", err)
			}
			break
		}

		c.handleRequest(data)
	}
}

func (c *WSClient) handleRequest(data []byte) {
	var req rpc.Request
	if err := json.Unmarshal(data, &req); err != nil {
		c.hub.replyError(c, nil, rpc.CodeParseError, "invalid json")
		return
	}

	var params []json.RawMessage
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.hub.replyError(c, req.ID, rpc.CodeInvalidParams, "params must be an array")
			return
		}
	}

	switch req.Method {
	case rpc.MethodSignatureSubscribe:
		var sigStr string
		if len(params) < 1 || json.Unmarshal(params[0], &sigStr) != nil {
			c.hub.replyError(c, req.ID, rpc.CodeInvalidParams, "expected signature")
			return
		}
		sig, err := utils.StringToSignature(sigStr)
		if err != nil {
			c.hub.replyError(c, req.ID, rpc.CodeInvalidParams, err.Error())
			return
		}
		select {
		case c.hub.subscribe <- &subscribeRequest{client: c, sig: sig, reqID: req.ID}:
		case <-c.hub.done:
		}

	case rpc.MethodSignatureUnsubscribe:
		var id uint64
		if len(params) < 1 || json.Unmarshal(params[0], &id) != nil {
			c.hub.replyError(c, req.ID, rpc.CodeInvalidParams, "expected subscription id")
			return
		}
		select {
		case c.hub.unsubscribe <- &unsubscribeRequest{client: c, id: id, reqID: req.ID}:
		case <-c.hub.done:
		}

	default:
		c.hub.replyError(c, req.ID, rpc.CodeMethodNotFound, "method not found: "+req.Method)
	}
}
