package repositories

import "context"

// LiveConfig is the configuration payload submitted when a live speech
// session is opened. Response modality is always audio.
type LiveConfig struct {
	// Model is the remote speech model identifier.
	Model string
	// Voice selects the prebuilt synthesis voice.
	Voice string
	// SystemInstruction steers the remote model for the whole session.
	SystemInstruction string
	// InputTranscription enables transcription of user audio.
	InputTranscription bool
	// OutputTranscription enables transcription of synthesized audio.
	OutputTranscription bool
}

// LiveMessage is one inbound protocol message from the remote session.
// Fields are independent; a single message may carry several of them.
type LiveMessage struct {
	// AudioData is a transport-encoded (base64) PCM payload, 24kHz mono.
	// Empty when the message carries no audio.
	AudioData string
	// InputTranscription is a fragment of the user's utterance transcript.
	InputTranscription string
	// OutputTranscription is a fragment of the remote utterance transcript.
	OutputTranscription string
	// TurnComplete signals that the current exchange finished.
	TurnComplete bool
	// Interrupted signals the remote utterance was cut off mid-stream.
	Interrupted bool
}

// LiveHandlers receives session events. OnMessage is invoked per inbound
// message in arrival order. OnClose fires once when the channel closes,
// with the error that terminated it (nil on clean close).
type LiveHandlers struct {
	OnMessage func(LiveMessage)
	OnClose   func(error)
}

// LiveSession is the capability set the session controller depends on.
// Implementations wrap a concrete vendor client.
type LiveSession interface {
	// SendAudio submits one transport-encoded outgoing media chunk
	// (base64 PCM, 16kHz mono). Best-effort; no retry.
	SendAudio(data string) error
	// Close terminates the session. Idempotent.
	Close() error
}

// LiveDialer opens bidirectional streaming sessions to the remote speech
// model.
type LiveDialer interface {
	Connect(ctx context.Context, config LiveConfig, handlers LiveHandlers) (LiveSession, error)
}
