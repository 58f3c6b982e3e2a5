package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/internal/auth"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/pkg/gamedto"
)

const writeTimeout = 5 * time.Second

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

type conn struct {
	id    string
	ident auth.Identity
	sock  *websocket.Conn

	// wsjson.Write is not safe for concurrent use on one connection.
	writeMu sync.Mutex
}

// Hub owns the live websocket connections. Identity verification happens
// at handshake time; unauthenticated requests never reach the dispatcher.
type Hub struct {
	verifier   TokenVerifier
	dispatcher *Dispatcher

	mu    sync.RWMutex
	conns map[string]*conn
}

func NewHub(verifier TokenVerifier) *Hub {
	return &Hub{verifier: verifier, conns: make(map[string]*conn)}
}

// SetDispatcher wires the event dispatcher. Must be called before serving.
func (h *Hub) SetDispatcher(d *Dispatcher) { h.dispatcher = d }

// ServeHTTP upgrades an authenticated request and runs its read loop.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	ident, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}

	c := &conn{id: uuid.NewString(), ident: *ident, sock: sock}
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()

	obslog.L().Info("ws_connect",
		zap.String("conn_id", c.id),
		zap.String("user_id", ident.UserID),
		zap.String("username", ident.Username),
	)

	h.readLoop(r.Context(), c)
}

func (h *Hub) readLoop(ctx context.Context, c *conn) {
	defer h.drop(c)
	for {
		var frame gamedto.Frame
		if err := wsjson.Read(ctx, c.sock, &frame); err != nil {
			return
		}
		h.dispatcher.HandleEvent(ctx, c.id, c.ident, frame)
	}
}

// drop closes the socket, forgets the connection, and notifies the
// dispatcher so the player leaves the matchmaking queue.
func (h *Hub) drop(c *conn) {
	h.mu.Lock()
	delete(h.conns, c.id)
	h.mu.Unlock()
	_ = c.sock.Close(websocket.StatusNormalClosure, "bye")
	obslog.L().Info("ws_disconnect", zap.String("conn_id", c.id), zap.String("user_id", c.ident.UserID))
	h.dispatcher.HandleDisconnect(c.id)
}

// EmitToConn implements session.Emitter. Unknown connection ids are a
// no-op: the peer may have dropped between lookup and send.
func (h *Hub) EmitToConn(connID string, event gamedto.Event) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.sock, event); err != nil {
		obslog.L().Warn("ws_emit_error",
			zap.String("conn_id", connID),
			zap.String("event", event.Type),
			zap.Error(err),
		)
	}
}

func bearerToken(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("token")); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get("Authorization"))
}
