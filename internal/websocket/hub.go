// Package websocket bridges browser clients to the interview engine. Each
// connected client may run one live interview session: JSON control
// messages start and stop it, binary frames carry microphone PCM upstream,
// and JSON events carry state, transcript, scheduled audio, countdown, and
// the final analysis back down.
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/domain/repositories"
	"github.com/zera-labs/zera-server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the deployed frontend origin
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients and holds the session
// collaborators each client's interview service is built from.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	dialer     repositories.LiveDialer
	summarizer repositories.Summarizer
	stt        repositories.SpeechToText
	opts       usecase.InterviewOptions

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. stt may be nil when local
// transcription is disabled.
func NewHub(
	dialer repositories.LiveDialer,
	summarizer repositories.Summarizer,
	stt repositories.SpeechToText,
	opts usecase.InterviewOptions,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		dialer:     dialer,
		summarizer: summarizer,
		stt:        stt,
		opts:       opts,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if existing, ok := h.clients[client.userID]; ok {
				existing.teardown()
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			h.logger.Info("client registered", zap.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			client.teardown()
			h.logger.Info("client unregistered", zap.String("user_id", client.userID))
		}
	}
}

// HandleWebSocket upgrades an authenticated request and attaches the
// client to the hub.
func HandleWebSocket(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, userID, logger)
	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}
