// Package audio provides the transcoding utilities the interview engine
// moves sound through: transport encoding of raw PCM chunks and
// reconstruction of playable sample buffers from received frames.
package audio

import (
	"encoding/base64"
	"fmt"

	"github.com/zera-labs/zera-server/domain"
)

// Input and output stream formats are fixed by the live protocol.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
	FrameSize        = 4096 // samples per outgoing capture frame
)

// Encode maps a byte sequence to its transport text encoding. The mapping
// is deterministic and reversible for all inputs, including empty ones.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode is the inverse of Encode. Malformed input (characters outside the
// transport alphabet, bad padding) fails with an error wrapping
// domain.ErrDecode.
func Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return b, nil
}

// Buffer is a decoded, playable audio buffer: de-interleaved float32
// channels normalized to [-1.0, 1.0).
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// FrameCount returns the number of sample frames in the buffer
func (b Buffer) FrameCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback duration of the buffer in seconds
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.FrameCount()) / float64(b.SampleRate)
}

// PCMToBuffer interprets data as interleaved little-endian 16-bit signed
// PCM, de-interleaves it into channelCount channels, and normalizes each
// sample to [-1.0, 1.0) by dividing by 32768. A trailing partial frame is
// truncated silently.
func PCMToBuffer(data []byte, sampleRate, channelCount int) Buffer {
	if channelCount <= 0 {
		channelCount = 1
	}
	frameCount := len(data) / 2 / channelCount

	channels := make([][]float32, channelCount)
	for ch := range channels {
		channels[ch] = make([]float32, frameCount)
	}
	for i := 0; i < frameCount; i++ {
		for ch := 0; ch < channelCount; ch++ {
			off := (i*channelCount + ch) * 2
			sample := int16(data[off]) | int16(data[off+1])<<8
			channels[ch][i] = float32(sample) / 32768.0
		}
	}
	return Buffer{Channels: channels, SampleRate: sampleRate}
}

// FloatToPCM converts float samples in [-1, 1] to little-endian 16-bit
// signed PCM by multiplying by 32768 and truncating, the capture-side
// inverse of PCMToBuffer.
func FloatToPCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		v := int32(f * 32768.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		s := int16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
