package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/magefree/deckplay-server-go/internal/config"
	"github.com/magefree/deckplay-server-go/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is the envelope for every websocket frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Inbound message types.
const (
	MsgSubscribe = "subscribe"
	MsgCommand   = "command"
	MsgView      = "view"
	MsgPresets   = "presets"
	MsgExport    = "export"
	MsgImport    = "import"
)

// Outbound message types.
const (
	MsgResult = "result"
	MsgError  = "error"
)

type adminRequest struct {
	Password string          `json:"password"`
	Bundle   json.RawMessage `json:"bundle,omitempty"`
	Confirm  bool            `json:"confirm,omitempty"`
}

type keyedMessage struct {
	key     string
	from    *Client
	payload []byte
}

// Client is one websocket connection. It is subscribed to at most one
// builder key at a time.
type Client struct {
	ID      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	// current is owned by the read pump, key by Hub.Run.
	current string
	key     string
}

// Hub routes websocket messages to the session manager and fans out view
// updates to every client subscribed to the same builder.
type Hub struct {
	manager *session.Manager
	admin   *AdminAuth
	logger  *zap.Logger
	limit   rate.Limit
	burst   int

	clients    map[*Client]bool
	broadcast  chan keyedMessage
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
}

type subscription struct {
	client *Client
	key    string
}

// NewHub returns a hub; call Run before serving connections.
func NewHub(cfg config.WebSocketConfig, manager *session.Manager, admin *AdminAuth, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.CommandsPerSecond > 0 {
		limit = rate.Limit(cfg.CommandsPerSecond)
	}
	burst := cfg.CommandBurst
	if burst <= 0 {
		burst = 1
	}
	return &Hub{
		manager:    manager,
		admin:      admin,
		logger:     logger,
		limit:      limit,
		burst:      burst,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan keyedMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
	}
}

// Run owns the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("client registered", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("client unregistered", zap.String("client_id", client.ID))
			}

		case sub := <-h.subscribe:
			sub.client.key = sub.key

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client == msg.from || client.key != msg.key {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					h.logger.Warn("dropping view update for slow client", zap.String("client_id", client.ID))
				}
			}
		}
	}
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, 256),
		limiter: rate.NewLimiter(h.limit, h.burst),
	}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (h *Hub) handleMessage(ctx context.Context, client *Client, msg WSMessage) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			h.logger.Error("panic in websocket handler",
				zap.String("client_id", client.ID),
				zap.String("type", msg.Type),
				zap.Any("panic", r),
				zap.ByteString("stack", buf),
			)
			h.reply(client, msg, MsgError, map[string]string{"error": "internal error"})
		}
	}()

	h.logger.Debug("websocket message",
		zap.String("client_id", client.ID),
		zap.String("type", msg.Type),
	)

	if !client.limiter.Allow() {
		h.reply(client, msg, MsgError, map[string]string{"error": "rate limit exceeded"})
		return
	}

	switch msg.Type {
	case MsgSubscribe:
		view, err := h.manager.View(ctx, msg.Key)
		if err != nil {
			h.reply(client, msg, MsgError, map[string]string{"error": err.Error()})
			return
		}
		client.current = msg.Key
		h.subscribe <- subscription{client: client, key: msg.Key}
		h.reply(client, msg, MsgView, view)

	case MsgView:
		view, err := h.manager.View(ctx, h.keyFor(client, msg))
		if err != nil {
			h.reply(client, msg, MsgError, map[string]string{"error": err.Error()})
			return
		}
		h.reply(client, msg, MsgView, view)

	case MsgCommand:
		var cmd session.Command
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			h.reply(client, msg, MsgError, map[string]string{"error": "malformed command"})
			return
		}
		key := h.keyFor(client, msg)
		resp, err := h.manager.Execute(ctx, key, cmd)
		if err != nil {
			h.reply(client, msg, MsgError, map[string]string{"error": err.Error()})
			return
		}
		h.reply(client, msg, MsgResult, resp)
		if resp.Success {
			h.publish(client, key, resp)
		}

	case MsgPresets:
		h.reply(client, msg, MsgPresets, h.manager.PresetNames())

	case MsgExport:
		var req adminRequest
		_ = json.Unmarshal(msg.Data, &req)
		if err := h.admin.Check(req.Password); err != nil {
			h.reply(client, msg, MsgError, map[string]string{"error": err.Error()})
			return
		}
		bundle, err := h.manager.Export(ctx)
		if err != nil {
			h.logger.Error("export failed", zap.Error(err))
			h.reply(client, msg, MsgError, map[string]string{"error": "export failed"})
			return
		}
		h.reply(client, msg, MsgExport, json.RawMessage(bundle))

	case MsgImport:
		var req adminRequest
		_ = json.Unmarshal(msg.Data, &req)
		if err := h.admin.Check(req.Password); err != nil {
			h.reply(client, msg, MsgError, map[string]string{"error": err.Error()})
			return
		}
		backupKey, err := h.manager.Import(ctx, req.Bundle, req.Confirm)
		if err != nil {
			h.reply(client, msg, MsgError, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Info("import applied", zap.String("client_id", client.ID), zap.String("backup_key", backupKey))
		h.reply(client, msg, MsgImport, map[string]string{"backup_key": backupKey})

	default:
		h.reply(client, msg, MsgError, map[string]string{"error": "unknown message type " + msg.Type})
	}
}

func (h *Hub) keyFor(client *Client, msg WSMessage) string {
	if msg.Key != "" {
		return msg.Key
	}
	return client.current
}

func (h *Hub) reply(client *Client, req WSMessage, typ string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to encode reply", zap.Error(err))
		return
	}
	out, _ := json.Marshal(WSMessage{Type: typ, Key: h.keyFor(client, req), RequestID: req.RequestID, Data: raw})
	client.send <- out
}

func (h *Hub) publish(from *Client, key string, resp session.Response) {
	raw, err := json.Marshal(resp.View)
	if err != nil {
		return
	}
	out, _ := json.Marshal(WSMessage{Type: MsgView, Key: key, Data: raw})
	h.broadcast <- keyedMessage{key: key, from: from, payload: out}
}

func (c *Client) readPump(hub *Hub) {
	defer func() {
		hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			hub.logger.Debug("malformed websocket message", zap.String("client_id", c.ID), zap.Error(err))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		hub.handleMessage(ctx, c, msg)
		cancel()
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}

func httpHandler(hub *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartWebSocketServer serves /ws and /healthz on cfg.Address until ctx is done.
func StartWebSocketServer(ctx context.Context, cfg config.WebSocketConfig, hub *Hub, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           httpHandler(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting WebSocket server", zap.String("address", cfg.Address))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
