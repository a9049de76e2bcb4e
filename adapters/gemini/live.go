// Package gemini adapts Google's Gemini APIs to the domain contracts: the
// Live (BidiGenerateContent) streaming protocol for interview sessions and
// the GenerateContent API for resume extraction and studio tools.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/domain/repositories"
)

const defaultLiveBaseURL = "wss://generativelanguage.googleapis.com/ws"

// LiveDialer opens Gemini Live sessions over WebSocket
type LiveDialer struct {
	apiKey  string
	baseURL string
	logger  *zap.Logger
}

// NewLiveDialer creates a dialer for the Gemini Live endpoint
func NewLiveDialer(apiKey string, logger *zap.Logger) *LiveDialer {
	return &LiveDialer{
		apiKey:  apiKey,
		baseURL: defaultLiveBaseURL,
		logger:  logger,
	}
}

// NewLiveDialerWithBaseURL creates a dialer pointed at a custom endpoint.
// Used in tests against a local mock server.
func NewLiveDialerWithBaseURL(apiKey, baseURL string, logger *zap.Logger) *LiveDialer {
	return &LiveDialer{
		apiKey:  apiKey,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Connect establishes a live session, sends the setup payload built from
// config, and starts the receive loop. The returned session accepts audio
// immediately.
func (d *LiveDialer) Connect(ctx context.Context, config repositories.LiveConfig, handlers repositories.LiveHandlers) (repositories.LiveSession, error) {
	wsURL := fmt.Sprintf(
		"%s/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=%s",
		d.baseURL, d.apiKey,
	)

	header := http.Header{"Content-Type": []string{"application/json"}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("gemini live: dial: %w", err)
	}

	sess := &liveSession{
		conn:     conn,
		handlers: handlers,
		logger:   d.logger,
	}

	if err := sess.sendSetup(config); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gemini live: setup: %w", err)
	}

	go sess.receiveLoop()
	return sess, nil
}

// ── Protocol message types (outgoing) ──

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model                    string             `json:"model"`
	GenerationConfig         generationConfig   `json:"generationConfig"`
	SystemInstruction        *systemInstruction `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}          `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}          `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

// ── Protocol message types (incoming) ──

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}

type transcription struct {
	Text string `json:"text"`
}

// ── session ──

type liveSession struct {
	conn     *websocket.Conn
	handlers repositories.LiveHandlers
	logger   *zap.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// sendSetup submits the BidiGenerateContent setup message
func (s *liveSession) sendSetup(config repositories.LiveConfig) error {
	msg := setupMessage{
		Setup: setupConfig{
			Model: fmt.Sprintf("models/%s", config.Model),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
		},
	}
	if config.SystemInstruction != "" {
		msg.Setup.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: config.SystemInstruction}},
		}
	}
	if config.Voice != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: config.Voice},
			},
		}
	}
	if config.InputTranscription {
		msg.Setup.InputAudioTranscription = &struct{}{}
	}
	if config.OutputTranscription {
		msg.Setup.OutputAudioTranscription = &struct{}{}
	}
	return s.writeJSON(msg)
}

func (s *liveSession) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// receiveLoop reads server messages and dispatches them in arrival order.
// It fires OnClose exactly once when the connection ends.
func (s *liveSession) receiveLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()

			if s.handlers.OnClose != nil {
				if closed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.handlers.OnClose(nil)
				} else {
					s.handlers.OnClose(err)
				}
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("skipping malformed server frame", zap.Error(err))
			continue
		}
		s.dispatch(&msg)
	}
}

// dispatch maps one protocol frame to domain live messages
func (s *liveSession) dispatch(msg *serverMessage) {
	if msg.ServerContent == nil || s.handlers.OnMessage == nil {
		return
	}
	sc := msg.ServerContent

	out := repositories.LiveMessage{
		TurnComplete: sc.TurnComplete,
		Interrupted:  sc.Interrupted,
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				out.AudioData = p.InlineData.Data
				break
			}
		}
	}
	if sc.InputTranscription != nil {
		out.InputTranscription = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		out.OutputTranscription = sc.OutputTranscription.Text
	}
	s.handlers.OnMessage(out)
}

// SendAudio submits one transport-encoded PCM chunk as realtime input
func (s *liveSession) SendAudio(data string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("gemini live: session closed")
	}
	s.mu.Unlock()

	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{
				{MIMEType: "audio/pcm;rate=16000", Data: data},
			},
		},
	}
	return s.writeJSON(msg)
}

// Close terminates the session. Idempotent.
func (s *liveSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
	s.writeMu.Unlock()
	return s.conn.Close()
}
