package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/domain"
	"github.com/zera-labs/zera-server/domain/entities"
	"github.com/zera-labs/zera-server/domain/repositories"
	"github.com/zera-labs/zera-server/internal/audio"
	"github.com/zera-labs/zera-server/internal/capture"
	"github.com/zera-labs/zera-server/internal/playback"
)

// SourceProvider acquires the capture source for a session. Acquisition
// failure is fatal to starting the session.
type SourceProvider func(ctx context.Context) (capture.Source, error)

// InterviewOptions tunes session behavior. Use DefaultInterviewOptions as
// a base.
type InterviewOptions struct {
	// Model and Voice select the remote speech model configuration.
	Model string
	Voice string

	// CommitEmptyTurns controls whether a turn-complete signal with an
	// empty accumulator still commits a transcript entry for that side.
	CommitEmptyTurns bool

	// SynthesizeOnRemoteClose runs result synthesis when the remote side
	// closes the session without a local stop.
	SynthesizeOnRemoteClose bool

	// LocalTranscription mirrors outgoing audio into a speech-to-text
	// collaborator instead of relying on the protocol's input
	// transcription.
	LocalTranscription bool

	// TickInterval is the countdown granularity. One tick decrements one
	// second of remaining time. Tests shorten it.
	TickInterval time.Duration

	// SynthesisTimeout bounds result synthesis.
	SynthesisTimeout time.Duration
}

// DefaultInterviewOptions returns the production defaults
func DefaultInterviewOptions() InterviewOptions {
	return InterviewOptions{
		Model:                   "gemini-2.5-flash-native-audio-preview-09-2025",
		Voice:                   "Charon",
		CommitEmptyTurns:        false,
		SynthesizeOnRemoteClose: true,
		TickInterval:            time.Second,
		SynthesisTimeout:        15 * time.Second,
	}
}

// InterviewEvents are callbacks toward the client. Any field may be nil.
// Callbacks are invoked outside the service mutex.
type InterviewEvents struct {
	OnStateChange   func(entities.SessionState)
	OnTurnCommitted func(entities.TranscriptTurn)
	OnCountdownTick func(remainingSeconds int)
	OnAnalysisReady func(*entities.InterviewAnalysis, error)
}

// InterviewService owns one live interview session: the streaming session
// to the remote speech model, capture and playback pipelines, transcript
// assembly, the countdown timer, and result synthesis. All mutable state
// is guarded by a single mutex; inbound protocol messages are processed in
// arrival order under it.
type InterviewService struct {
	dialer     repositories.LiveDialer
	sources    SourceProvider
	player     *playback.Scheduler
	summarizer repositories.Summarizer
	stt        repositories.SpeechToText
	opts       InterviewOptions
	events     InterviewEvents
	logger     *zap.Logger

	mu        sync.Mutex
	state     entities.SessionState
	session   *entities.InterviewSession
	live      repositories.LiveSession
	pipeline  *capture.Pipeline
	tap       repositories.SpeechToTextStreaming
	inputAcc  strings.Builder
	outputAcc strings.Builder
	remaining int
	timerStop chan struct{}
	stopped   bool

	stopOnce sync.Once
}

// NewInterviewService wires an interview service. stt may be nil when
// LocalTranscription is disabled.
func NewInterviewService(
	dialer repositories.LiveDialer,
	sources SourceProvider,
	player *playback.Scheduler,
	summarizer repositories.Summarizer,
	stt repositories.SpeechToText,
	opts InterviewOptions,
	events InterviewEvents,
	logger *zap.Logger,
) *InterviewService {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.SynthesisTimeout <= 0 {
		opts.SynthesisTimeout = 15 * time.Second
	}
	return &InterviewService{
		dialer:     dialer,
		sources:    sources,
		player:     player,
		summarizer: summarizer,
		stt:        stt,
		opts:       opts,
		events:     events,
		logger:     logger,
		state:      entities.SessionStateIdle,
	}
}

// Start opens the live session for config. It acquires the capture source,
// dials the remote model with a system prompt built from the configuration,
// and on success transitions to Live, begins capture, and starts the
// countdown. Failures leave the service back in Idle.
func (s *InterviewService) Start(ctx context.Context, config entities.InterviewConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid interview config: %w", err)
	}

	s.mu.Lock()
	if s.state != entities.SessionStateIdle {
		s.mu.Unlock()
		return fmt.Errorf("session already started (state %s)", s.state)
	}
	s.state = entities.SessionStateConnecting
	s.mu.Unlock()
	s.emitState(entities.SessionStateConnecting)

	source, err := s.sources(ctx)
	if err != nil {
		s.backToIdle()
		return fmt.Errorf("%w: %v", domain.ErrMediaAccess, err)
	}

	var tap repositories.SpeechToTextStreaming
	if s.opts.LocalTranscription && s.stt != nil {
		tap, err = s.stt.InitTranscribeStreaming(ctx, repositories.AudioConfig{
			SampleRate: audio.InputSampleRate,
			Encoding:   "LINEAR16",
			Language:   "en-US",
		})
		if err != nil {
			s.logger.Warn("local transcription unavailable, continuing without", zap.Error(err))
			tap = nil
		}
	}

	liveConfig := repositories.LiveConfig{
		Model:               s.opts.Model,
		Voice:               s.opts.Voice,
		SystemInstruction:   buildSystemPrompt(config),
		InputTranscription:  !s.opts.LocalTranscription,
		OutputTranscription: true,
	}

	live, err := s.dialer.Connect(ctx, liveConfig, repositories.LiveHandlers{
		OnMessage: s.handleMessage,
		OnClose:   s.handleRemoteClose,
	})
	if err != nil {
		source.Close()
		s.backToIdle()
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}

	s.mu.Lock()
	if s.stopped {
		// Stop raced the connection attempt; tear down what we just opened.
		s.mu.Unlock()
		live.Close()
		source.Close()
		return fmt.Errorf("session stopped before it opened")
	}
	s.session = entities.NewInterviewSession(config)
	s.live = live
	s.tap = tap
	s.pipeline = capture.NewPipeline(source, live, tap, s.logger)
	s.remaining = config.DurationSeconds
	s.timerStop = make(chan struct{})
	s.state = entities.SessionStateLive
	sessionID := s.session.ID
	s.mu.Unlock()

	go s.pipeline.Run()
	go s.runTimer()

	s.emitState(entities.SessionStateLive)
	s.logger.Info("interview session live",
		zap.String("session_id", sessionID),
		zap.String("role", config.Role),
		zap.Int("duration_seconds", config.DurationSeconds))
	return nil
}

// Stop terminates the session and runs result synthesis. Idempotent: only
// one termination sequence executes per session, whether triggered by timer
// expiry, explicit user action, or an error handler. Safe before Start.
func (s *InterviewService) Stop() {
	s.shutdown(true)
}

// shutdown tears the session down exactly once. synthesize selects whether
// result synthesis runs afterward.
func (s *InterviewService) shutdown(synthesize bool) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		if s.state == entities.SessionStateIdle || s.state == entities.SessionStateConnecting {
			// Stopped before the session opened; nothing to tear down.
			s.state = entities.SessionStateEnded
			s.mu.Unlock()
			s.emitState(entities.SessionStateEnded)
			return
		}
		s.state = entities.SessionStateStopping
		live := s.live
		pipeline := s.pipeline
		tap := s.tap
		timerStop := s.timerStop
		session := s.session
		s.mu.Unlock()
		s.emitState(entities.SessionStateStopping)

		if timerStop != nil {
			close(timerStop)
		}
		if pipeline != nil {
			pipeline.Stop()
		}
		if tap != nil {
			s.finishLocalTranscription(tap)
		}
		if live != nil {
			if err := live.Close(); err != nil {
				s.logger.Warn("failed to close live session", zap.Error(err))
			}
		}

		s.mu.Lock()
		if session != nil {
			session.EndedAt = time.Now()
		}
		s.state = entities.SessionStateEnded
		s.mu.Unlock()
		s.emitState(entities.SessionStateEnded)

		if synthesize && session != nil {
			go s.synthesize(session)
		}
	})
}

// finishLocalTranscription drains the tap and commits whatever final user
// utterance it produced.
func (s *InterviewService) finishLocalTranscription(tap repositories.SpeechToTextStreaming) {
	text, err := tap.End()
	if err != nil {
		s.logger.Warn("local transcription did not finish", zap.Error(err))
		return
	}
	if text == "" {
		return
	}
	s.mu.Lock()
	if s.session != nil {
		s.session.AppendTurn(entities.SpeakerUser, text)
	}
	s.mu.Unlock()
	s.emitTurn(entities.TranscriptTurn{Speaker: entities.SpeakerUser, Text: text})
}

// handleMessage processes one inbound protocol message. Fields are handled
// in the order the protocol defines: audio, input transcription, output
// transcription, turn completion, interruption.
func (s *InterviewService) handleMessage(msg repositories.LiveMessage) {
	var committed []entities.TranscriptTurn

	s.mu.Lock()
	if s.state != entities.SessionStateLive {
		s.mu.Unlock()
		return
	}

	if msg.AudioData != "" {
		pcm, err := audio.Decode(msg.AudioData)
		if err != nil {
			// Malformed payloads are dropped; the session continues.
			s.logger.Warn("dropping undecodable audio payload", zap.Error(err))
		} else {
			buf := audio.PCMToBuffer(pcm, audio.OutputSampleRate, 1)
			s.player.Schedule(buf)
		}
	}

	if msg.InputTranscription != "" {
		s.inputAcc.WriteString(msg.InputTranscription)
	}
	if msg.OutputTranscription != "" {
		s.outputAcc.WriteString(msg.OutputTranscription)
	}

	if msg.TurnComplete {
		committed = s.commitTurnsLocked()
	}

	if msg.Interrupted {
		s.player.Interrupt()
	}
	s.mu.Unlock()

	for _, turn := range committed {
		s.emitTurn(turn)
	}
}

// commitTurnsLocked commits the accumulators as ordered transcript entries,
// user first, then resets both. Empty accumulators are suppressed unless
// CommitEmptyTurns is set.
func (s *InterviewService) commitTurnsLocked() []entities.TranscriptTurn {
	var committed []entities.TranscriptTurn

	user := s.inputAcc.String()
	remote := s.outputAcc.String()

	if user != "" || s.opts.CommitEmptyTurns {
		s.session.AppendTurn(entities.SpeakerUser, user)
		committed = append(committed, entities.TranscriptTurn{Speaker: entities.SpeakerUser, Text: user})
	}
	if remote != "" || s.opts.CommitEmptyTurns {
		s.session.AppendTurn(entities.SpeakerRemote, remote)
		committed = append(committed, entities.TranscriptTurn{Speaker: entities.SpeakerRemote, Text: remote})
	}

	s.inputAcc.Reset()
	s.outputAcc.Reset()
	return committed
}

// handleRemoteClose reacts to the transport closing without a local stop.
// A close error is logged; it does not imply a clean stop.
func (s *InterviewService) handleRemoteClose(err error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state == entities.SessionStateStopping || state == entities.SessionStateEnded {
		return
	}

	if err != nil {
		s.logger.Error("live session closed by remote", zap.Error(err))
	} else {
		s.logger.Info("live session closed by remote")
	}
	s.shutdown(s.opts.SynthesizeOnRemoteClose)
}

// runTimer decrements the remaining-seconds counter once per tick while the
// session is Live and triggers the stop path at zero.
func (s *InterviewService) runTimer() {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	s.mu.Lock()
	stop := s.timerStop
	s.mu.Unlock()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != entities.SessionStateLive {
				s.mu.Unlock()
				return
			}
			s.remaining--
			remaining := s.remaining
			s.mu.Unlock()

			if s.events.OnCountdownTick != nil {
				s.events.OnCountdownTick(remaining)
			}
			if remaining <= 0 {
				s.logger.Info("interview duration reached, stopping session")
				s.Stop()
				return
			}
		}
	}
}

// synthesize runs the summarizer and reports the outcome. A synthesis
// failure is surfaced distinctly; it never degrades into a zero score.
func (s *InterviewService) synthesize(session *entities.InterviewSession) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SynthesisTimeout)
	defer cancel()

	analysis, err := s.summarizer.Summarize(ctx, session)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrSynthesis, err)
		s.logger.Error("result synthesis failed", zap.Error(err))
	}
	if s.events.OnAnalysisReady != nil {
		s.events.OnAnalysisReady(analysis, err)
	}
}

// State returns the current session state
func (s *InterviewService) State() entities.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the countdown value in seconds
func (s *InterviewService) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Transcript returns a copy of the committed transcript log
func (s *InterviewService) Transcript() []entities.TranscriptTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	out := make([]entities.TranscriptTurn, len(s.session.Transcript))
	copy(out, s.session.Transcript)
	return out
}

func (s *InterviewService) backToIdle() {
	s.mu.Lock()
	s.state = entities.SessionStateIdle
	s.mu.Unlock()
	s.emitState(entities.SessionStateIdle)
}

func (s *InterviewService) emitState(state entities.SessionState) {
	if s.events.OnStateChange != nil {
		s.events.OnStateChange(state)
	}
}

func (s *InterviewService) emitTurn(turn entities.TranscriptTurn) {
	if s.events.OnTurnCommitted != nil {
		s.events.OnTurnCommitted(turn)
	}
}

// buildSystemPrompt derives the session steering prompt from the interview
// configuration: target role, duration constraint, full resume context, and
// the clinical branch for medical-track roles.
func buildSystemPrompt(config entities.InterviewConfig) string {
	minutes := config.DurationSeconds / 60
	if minutes < 1 {
		minutes = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional hiring manager interviewing a candidate for the role: %s.\n", config.Role)
	fmt.Fprintf(&b, "Context from their resume: %s.\n", config.ResumeContext)
	fmt.Fprintf(&b, "Strict constraints: This is a %d minute interview. Ask specific questions about their resume experiences and how they apply to the %s position.\n", minutes, config.Role)
	if config.IsMedicalRole() {
		b.WriteString("This is a medical-track role: probe clinical procedures, patient care, and regulatory knowledge.\n")
	}
	b.WriteString("Be professional, firm, and supportive. If they are vague, ask for specific examples. Start by introducing yourself and asking why they are a good fit for this role.")
	return b.String()
}
