package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/domain/entities"
	"github.com/zera-labs/zera-server/internal/audio"
	"github.com/zera-labs/zera-server/internal/capture"
	"github.com/zera-labs/zera-server/internal/playback"
	"github.com/zera-labs/zera-server/usecase"
)

// WriteData is one outbound websocket frame
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between one websocket connection and its
// interview session.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	userID string
	logger *zap.Logger

	mutex   sync.Mutex
	service *usecase.InterviewService
	source  *socketSource
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 256),
		userID: userID,
		logger: logger,
	}
}

// socketSource adapts inbound binary PCM frames to a capture source. The
// feed side never blocks: a full buffer drops the frame.
type socketSource struct {
	samples chan []float32
	done    chan struct{}
	once    sync.Once
}

func newSocketSource() *socketSource {
	return &socketSource{
		samples: make(chan []float32, 64),
		done:    make(chan struct{}),
	}
}

func (s *socketSource) Samples() <-chan []float32 { return s.samples }

func (s *socketSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *socketSource) push(samples []float32) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.samples <- samples:
		return true
	default:
		return false
	}
}

// socketSink forwards scheduled playback buffers to the client, which owns
// the actual audio output.
type socketSink struct {
	client *Client
}

func (s *socketSink) Play(sched playback.Scheduled) {
	if len(sched.Buffer.Channels) == 0 {
		return
	}
	pcm := audio.FloatToPCM(sched.Buffer.Channels[0])
	s.client.sendJSON(&AudioMessage{
		BaseMessage: newBase(MessageTypeAudio),
		Data:        audio.Encode(pcm),
		SampleRate:  sched.Buffer.SampleRate,
		Start:       sched.Start,
	})
}

func (s *socketSink) StopAll() {
	s.client.sendJSON(&PlaybackStopMessage{BaseMessage: newBase(MessageTypePlaybackStop)})
}

// readPump pumps messages from the websocket connection to the session
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudio(message)
		default:
			c.logger.Warn("received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps outbound messages to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage handles one inbound control message
func (c *Client) processMessage(message []byte) {
	parsed, err := ParseClientMessage(message)
	if err != nil {
		c.logger.Warn("rejecting control message", zap.Error(err))
		c.sendJSON(NewErrorMessage("bad_request", err.Error()))
		return
	}

	switch msg := parsed.(type) {
	case *InterviewStartMessage:
		c.handleInterviewStart(msg)
	case *InterviewStopMessage:
		c.handleInterviewStop()
	}
}

// processBinaryAudio converts one inbound PCM frame and feeds the capture
// source. Frames arriving without an active session are dropped.
func (c *Client) processBinaryAudio(data []byte) {
	c.mutex.Lock()
	source := c.source
	c.mutex.Unlock()

	if source == nil {
		return
	}

	buf := audio.PCMToBuffer(data, audio.InputSampleRate, 1)
	if buf.FrameCount() == 0 {
		return
	}
	if !source.push(buf.Channels[0]) {
		c.logger.Debug("dropped inbound audio frame", zap.Int("bytes", len(data)))
	}
}

// handleInterviewStart builds a fresh interview service for this client
// and opens the session. Only one session may run at a time.
func (c *Client) handleInterviewStart(msg *InterviewStartMessage) {
	c.mutex.Lock()
	if c.service != nil && c.service.State() != entities.SessionStateEnded {
		c.mutex.Unlock()
		c.sendJSON(NewErrorMessage("session_active", "an interview session is already running"))
		return
	}

	source := newSocketSource()
	player := playback.NewScheduler(&socketSink{client: c}, c.logger)

	events := usecase.InterviewEvents{
		OnStateChange: func(state entities.SessionState) {
			c.sendJSON(&StateMessage{BaseMessage: newBase(MessageTypeState), State: state})
		},
		OnTurnCommitted: func(turn entities.TranscriptTurn) {
			c.sendJSON(&TranscriptMessage{
				BaseMessage: newBase(MessageTypeTranscript),
				Speaker:     turn.Speaker,
				Text:        turn.Text,
			})
		},
		OnCountdownTick: func(remaining int) {
			c.sendJSON(&CountdownMessage{BaseMessage: newBase(MessageTypeCountdown), RemainingSeconds: remaining})
		},
		OnAnalysisReady: func(analysis *entities.InterviewAnalysis, err error) {
			out := &AnalysisMessage{BaseMessage: newBase(MessageTypeAnalysis), Analysis: analysis}
			if err != nil {
				out.Error = err.Error()
			}
			c.sendJSON(out)
		},
	}

	service := usecase.NewInterviewService(
		c.hub.dialer,
		func(ctx context.Context) (capture.Source, error) { return source, nil },
		player,
		c.hub.summarizer,
		c.hub.stt,
		c.hub.opts,
		events,
		c.logger,
	)
	c.service = service
	c.source = source
	c.mutex.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := service.Start(ctx, msg.Config); err != nil {
			c.logger.Error("failed to start interview session",
				zap.String("user_id", c.userID),
				zap.Error(err))
			c.sendJSON(NewErrorMessage("start_failed", err.Error()))

			c.mutex.Lock()
			if c.service == service {
				c.service = nil
				c.source = nil
			}
			c.mutex.Unlock()
		}
	}()
}

// handleInterviewStop ends the current session, if any
func (c *Client) handleInterviewStop() {
	c.mutex.Lock()
	service := c.service
	c.mutex.Unlock()

	if service == nil {
		c.sendJSON(NewErrorMessage("no_session", "no interview session is running"))
		return
	}
	service.Stop()
}

// teardown stops any running session when the connection goes away
func (c *Client) teardown() {
	c.mutex.Lock()
	service := c.service
	c.mutex.Unlock()

	if service != nil {
		service.Stop()
	}
}

// sendJSON queues one outbound JSON message. A full send buffer drops the
// message rather than blocking the session.
func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to marshal outbound message", zap.Error(err))
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("outbound buffer full, dropping message")
	}
}
