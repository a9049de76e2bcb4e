// Package capture turns live microphone input into a continuous stream of
// encoded outgoing chunks. The platform's real-time audio callback is
// reframed as a bounded channel so the callback side never blocks on the
// network send.
package capture

import (
	"sync"

	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/domain/repositories"
	"github.com/zera-labs/zera-server/internal/audio"
)

// Source delivers float32 sample slices from a live input device. Samples
// must be mono at the input sample rate. The channel closes when the
// source ends; Close releases the underlying media tracks.
type Source interface {
	Samples() <-chan []float32
	Close() error
}

// Sender is the transmit half of the live session the pipeline feeds
type Sender interface {
	SendAudio(data string) error
}

// Pipeline reframes arbitrary-size sample slices into fixed-size frames,
// converts them to 16-bit PCM, encodes them, and forwards each frame
// fire-and-forget. There is no backpressure: a transiently slow transport
// loses nothing here, but nothing is retried either.
type Pipeline struct {
	source    Source
	sender    Sender
	tap       repositories.SpeechToTextStreaming
	frameSize int
	logger    *zap.Logger

	pending  []float32
	stopOnce sync.Once
	done     chan struct{}
}

// NewPipeline creates a capture pipeline over source feeding sender.
// tap may be nil; when set, every outgoing PCM frame is mirrored into it
// for local transcription.
func NewPipeline(source Source, sender Sender, tap repositories.SpeechToTextStreaming, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		source:    source,
		sender:    sender,
		tap:       tap,
		frameSize: audio.FrameSize,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Run consumes the source until it closes or Stop is called. It blocks;
// callers run it in its own goroutine.
func (p *Pipeline) Run() {
	for {
		select {
		case <-p.done:
			return
		case samples, ok := <-p.source.Samples():
			if !ok {
				return
			}
			p.ingest(samples)
		}
	}
}

// ingest accumulates samples and emits every complete frame
func (p *Pipeline) ingest(samples []float32) {
	p.pending = append(p.pending, samples...)
	for len(p.pending) >= p.frameSize {
		frame := p.pending[:p.frameSize]
		p.pending = p.pending[p.frameSize:]
		p.emit(frame)
	}
}

// emit converts one frame to PCM, encodes it, and sends it. Send failures
// are logged and otherwise ignored; the stream continues.
func (p *Pipeline) emit(frame []float32) {
	pcm := audio.FloatToPCM(frame)

	if p.tap != nil {
		if err := p.tap.Stream(pcm); err != nil {
			p.logger.Warn("local transcription tap failed", zap.Error(err))
		}
	}

	if err := p.sender.SendAudio(audio.Encode(pcm)); err != nil {
		p.logger.Warn("failed to send audio frame", zap.Error(err))
	}
}

// Stop releases the capture source. Idempotent; safe to call while Run is
// still draining.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		if err := p.source.Close(); err != nil {
			p.logger.Warn("failed to release capture source", zap.Error(err))
		}
	})
}
