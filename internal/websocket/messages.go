package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zera-labs/zera-server/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	// Client to server
	MessageTypeInterviewStart MessageType = "interview_start"
	MessageTypeInterviewStop  MessageType = "interview_stop"

	// Server to client
	MessageTypeState        MessageType = "state"
	MessageTypeTranscript   MessageType = "transcript"
	MessageTypeAudio        MessageType = "audio"
	MessageTypePlaybackStop MessageType = "playback_stop"
	MessageTypeCountdown    MessageType = "countdown"
	MessageTypeAnalysis     MessageType = "analysis"
	MessageTypeError        MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

// InterviewStartMessage asks the server to open a live interview session
type InterviewStartMessage struct {
	BaseMessage
	Config entities.InterviewConfig `json:"config"`
}

// InterviewStopMessage asks the server to end the current session
type InterviewStopMessage struct {
	BaseMessage
}

// StateMessage reports a session lifecycle transition
type StateMessage struct {
	BaseMessage
	State entities.SessionState `json:"state"`
}

// TranscriptMessage carries one committed transcript turn
type TranscriptMessage struct {
	BaseMessage
	Speaker entities.Speaker `json:"speaker"`
	Text    string           `json:"text"`
}

// AudioMessage carries one scheduled playback buffer. Data is
// transport-encoded 16-bit PCM; Start is the output-timeline position in
// seconds.
type AudioMessage struct {
	BaseMessage
	Data       string  `json:"data"`
	SampleRate int     `json:"sample_rate"`
	Start      float64 `json:"start"`
}

// PlaybackStopMessage tells the client to discard all buffered audio
type PlaybackStopMessage struct {
	BaseMessage
}

// CountdownMessage reports the remaining interview time
type CountdownMessage struct {
	BaseMessage
	RemainingSeconds int `json:"remaining_seconds"`
}

// AnalysisMessage delivers the post-session report, or the synthesis
// error when the report could not be produced.
type AnalysisMessage struct {
	BaseMessage
	Analysis *entities.InterviewAnalysis `json:"analysis,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

// ErrorMessage reports a request-level failure
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// ParseClientMessage decodes one inbound control message
func ParseClientMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeInterviewStart:
		var msg InterviewStartMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid interview_start message: %w", err)
		}
		return &msg, nil

	case MessageTypeInterviewStop:
		var msg InterviewStopMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid interview_stop message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// NewErrorMessage creates a standardized error message
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
	}
}
