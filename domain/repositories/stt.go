package repositories

import "context"

// AudioConfig describes the PCM stream handed to a transcriber
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// SpeechToText abstracts streaming speech recognition. It is used as a
// local transcription tap when the live protocol's input transcription is
// disabled, so the transcript log still receives user turns.
type SpeechToText interface {
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// SpeechToTextStreaming is one in-flight transcription stream
type SpeechToTextStreaming interface {
	// Stream submits a chunk of raw PCM audio.
	Stream(data []byte) error
	// End closes the stream and returns the final transcript.
	End() (string, error)
}
