package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/domain"
	"github.com/zera-labs/zera-server/domain/entities"
	"github.com/zera-labs/zera-server/domain/repositories"
	"github.com/zera-labs/zera-server/internal/audio"
	"github.com/zera-labs/zera-server/internal/capture"
	"github.com/zera-labs/zera-server/internal/playback"
)

type fakeLiveSession struct {
	mu     sync.Mutex
	sent   []string
	closes int
}

func (s *fakeLiveSession) SendAudio(data string) error {
	s.mu.Lock()
	s.sent = append(s.sent, data)
	s.mu.Unlock()
	return nil
}

func (s *fakeLiveSession) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return nil
}

func (s *fakeLiveSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeDialer struct {
	mu       sync.Mutex
	config   repositories.LiveConfig
	handlers repositories.LiveHandlers
	session  *fakeLiveSession
	fail     bool
}

func (d *fakeDialer) Connect(ctx context.Context, config repositories.LiveConfig, handlers repositories.LiveHandlers) (repositories.LiveSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return nil, errors.New("connection refused")
	}
	d.config = config
	d.handlers = handlers
	d.session = &fakeLiveSession{}
	return d.session, nil
}

func (d *fakeDialer) deliver(msg repositories.LiveMessage) {
	d.mu.Lock()
	onMessage := d.handlers.OnMessage
	d.mu.Unlock()
	onMessage(msg)
}

func (d *fakeDialer) remoteClose(err error) {
	d.mu.Lock()
	onClose := d.handlers.OnClose
	d.mu.Unlock()
	onClose(err)
}

type fakeCaptureSource struct {
	samples   chan []float32
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeCaptureSource() *fakeCaptureSource {
	return &fakeCaptureSource{
		samples: make(chan []float32),
		closed:  make(chan struct{}),
	}
}

func (s *fakeCaptureSource) Samples() <-chan []float32 { return s.samples }

func (s *fakeCaptureSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type countingSummarizer struct {
	mu    sync.Mutex
	calls int
	fail  bool
	done  chan *entities.InterviewSession
}

func newCountingSummarizer() *countingSummarizer {
	return &countingSummarizer{done: make(chan *entities.InterviewSession, 4)}
}

func (s *countingSummarizer) Summarize(ctx context.Context, session *entities.InterviewSession) (*entities.InterviewAnalysis, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	s.done <- session
	if s.fail {
		return nil, errors.New("model unavailable")
	}
	return &entities.InterviewAnalysis{OverallScore: 85}, nil
}

func (s *countingSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type countingSink struct {
	mu       sync.Mutex
	played   int
	stopAlls int
}

func (s *countingSink) Play(playback.Scheduled) {
	s.mu.Lock()
	s.played++
	s.mu.Unlock()
}

func (s *countingSink) StopAll() {
	s.mu.Lock()
	s.stopAlls++
	s.mu.Unlock()
}

type eventRecorder struct {
	mu       sync.Mutex
	states   []entities.SessionState
	turns    []entities.TranscriptTurn
	ticks    []int
	analyses chan analysisResult
}

type analysisResult struct {
	analysis *entities.InterviewAnalysis
	err      error
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{analyses: make(chan analysisResult, 4)}
}

func (r *eventRecorder) events() InterviewEvents {
	return InterviewEvents{
		OnStateChange: func(state entities.SessionState) {
			r.mu.Lock()
			r.states = append(r.states, state)
			r.mu.Unlock()
		},
		OnTurnCommitted: func(turn entities.TranscriptTurn) {
			r.mu.Lock()
			r.turns = append(r.turns, turn)
			r.mu.Unlock()
		},
		OnCountdownTick: func(remaining int) {
			r.mu.Lock()
			r.ticks = append(r.ticks, remaining)
			r.mu.Unlock()
		},
		OnAnalysisReady: func(analysis *entities.InterviewAnalysis, err error) {
			r.analyses <- analysisResult{analysis: analysis, err: err}
		},
	}
}

func (r *eventRecorder) recordedTurns() []entities.TranscriptTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.TranscriptTurn, len(r.turns))
	copy(out, r.turns)
	return out
}

type serviceFixture struct {
	service    *InterviewService
	dialer     *fakeDialer
	source     *fakeCaptureSource
	summarizer *countingSummarizer
	sink       *countingSink
	recorder   *eventRecorder
}

func newServiceFixture(t *testing.T, mutate func(*InterviewOptions)) *serviceFixture {
	t.Helper()

	dialer := &fakeDialer{}
	source := newFakeCaptureSource()
	summarizer := newCountingSummarizer()
	sink := &countingSink{}
	recorder := newEventRecorder()

	opts := DefaultInterviewOptions()
	opts.TickInterval = time.Hour // timer disabled unless a test shortens it
	if mutate != nil {
		mutate(&opts)
	}

	player := playback.NewScheduler(sink, zap.NewNop())
	service := NewInterviewService(
		dialer,
		func(ctx context.Context) (capture.Source, error) { return source, nil },
		player,
		summarizer,
		nil,
		opts,
		recorder.events(),
		zap.NewNop(),
	)
	return &serviceFixture{
		service:    service,
		dialer:     dialer,
		source:     source,
		summarizer: summarizer,
		sink:       sink,
		recorder:   recorder,
	}
}

func validConfig() entities.InterviewConfig {
	return entities.InterviewConfig{
		Role:            "Software Engineer",
		DurationSeconds: 600,
		ResumeContext:   "5 years of Go backend experience",
	}
}

func waitForState(t *testing.T, s *InterviewService, want entities.SessionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", s.State(), want)
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	f := newServiceFixture(t, nil)

	err := f.service.Start(context.Background(), entities.InterviewConfig{})
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	if f.service.State() != entities.SessionStateIdle {
		t.Errorf("state = %s, want idle", f.service.State())
	}
}

func TestStartFailsWithoutCaptureSource(t *testing.T) {
	dialer := &fakeDialer{}
	recorder := newEventRecorder()
	player := playback.NewScheduler(&countingSink{}, zap.NewNop())
	service := NewInterviewService(
		dialer,
		func(ctx context.Context) (capture.Source, error) {
			return nil, errors.New("permission denied")
		},
		player,
		newCountingSummarizer(),
		nil,
		DefaultInterviewOptions(),
		recorder.events(),
		zap.NewNop(),
	)

	err := service.Start(context.Background(), validConfig())
	if !errors.Is(err, domain.ErrMediaAccess) {
		t.Errorf("error = %v, want ErrMediaAccess", err)
	}
	if service.State() != entities.SessionStateIdle {
		t.Errorf("state = %s, want idle", service.State())
	}
}

func TestStartFailsWhenDialFails(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.dialer.fail = true

	err := f.service.Start(context.Background(), validConfig())
	if !errors.Is(err, domain.ErrConnection) {
		t.Errorf("error = %v, want ErrConnection", err)
	}
	if f.service.State() != entities.SessionStateIdle {
		t.Errorf("state = %s, want idle", f.service.State())
	}

	// The acquired capture source must not leak
	select {
	case <-f.source.closed:
	case <-time.After(time.Second):
		t.Error("capture source was not released after dial failure")
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	f := newServiceFixture(t, nil)

	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := f.service.Start(context.Background(), validConfig()); err == nil {
		t.Error("second Start succeeded, want error")
	}
}

func TestTranscriptCommitsUserBeforeRemote(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.dialer.deliver(repositories.LiveMessage{OutputTranscription: "Tell me about"})
	f.dialer.deliver(repositories.LiveMessage{InputTranscription: "I built "})
	f.dialer.deliver(repositories.LiveMessage{OutputTranscription: " your last project."})
	f.dialer.deliver(repositories.LiveMessage{InputTranscription: "a payments system."})
	f.dialer.deliver(repositories.LiveMessage{TurnComplete: true})

	turns := f.recorder.recordedTurns()
	if len(turns) != 2 {
		t.Fatalf("committed %d turns, want 2", len(turns))
	}
	if turns[0].Speaker != entities.SpeakerUser || turns[0].Text != "I built a payments system." {
		t.Errorf("first turn = %+v, want user turn with joined fragments", turns[0])
	}
	if turns[1].Speaker != entities.SpeakerRemote || turns[1].Text != "Tell me about your last project." {
		t.Errorf("second turn = %+v, want remote turn with joined fragments", turns[1])
	}

	// Accumulators reset: a second completion with fresh fragments commits
	// only the new text.
	f.dialer.deliver(repositories.LiveMessage{InputTranscription: "Yes."})
	f.dialer.deliver(repositories.LiveMessage{TurnComplete: true})

	turns = f.recorder.recordedTurns()
	if len(turns) != 3 {
		t.Fatalf("committed %d turns after second completion, want 3", len(turns))
	}
	if turns[2].Text != "Yes." {
		t.Errorf("third turn text = %q, want %q", turns[2].Text, "Yes.")
	}
}

func TestEmptyTurnsSuppressedByDefault(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.dialer.deliver(repositories.LiveMessage{TurnComplete: true})

	if turns := f.recorder.recordedTurns(); len(turns) != 0 {
		t.Errorf("committed %d turns from empty completion, want 0", len(turns))
	}
}

func TestEmptyTurnsCommittedWhenConfigured(t *testing.T) {
	f := newServiceFixture(t, func(o *InterviewOptions) { o.CommitEmptyTurns = true })
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.dialer.deliver(repositories.LiveMessage{TurnComplete: true})

	if turns := f.recorder.recordedTurns(); len(turns) != 2 {
		t.Errorf("committed %d turns, want 2 empty turns", len(turns))
	}
}

func TestInboundAudioIsScheduled(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	pcm := audio.FloatToPCM(make([]float32, 2400))
	f.dialer.deliver(repositories.LiveMessage{AudioData: audio.Encode(pcm)})

	f.sink.mu.Lock()
	played := f.sink.played
	f.sink.mu.Unlock()
	if played != 1 {
		t.Errorf("scheduled %d buffers, want 1", played)
	}
}

func TestUndecodableAudioIsDropped(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.dialer.deliver(repositories.LiveMessage{AudioData: "not-valid-base64!!!"})

	f.sink.mu.Lock()
	played := f.sink.played
	f.sink.mu.Unlock()
	if played != 0 {
		t.Errorf("scheduled %d buffers from malformed payload, want 0", played)
	}

	// The session survives and keeps processing
	f.dialer.deliver(repositories.LiveMessage{InputTranscription: "still here"})
	f.dialer.deliver(repositories.LiveMessage{TurnComplete: true})
	if turns := f.recorder.recordedTurns(); len(turns) != 1 {
		t.Errorf("committed %d turns after bad payload, want 1", len(turns))
	}
}

func TestInterruptionStopsPlayback(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	pcm := audio.FloatToPCM(make([]float32, 2400))
	f.dialer.deliver(repositories.LiveMessage{AudioData: audio.Encode(pcm)})
	f.dialer.deliver(repositories.LiveMessage{Interrupted: true})

	f.sink.mu.Lock()
	stopAlls := f.sink.stopAlls
	f.sink.mu.Unlock()
	if stopAlls != 1 {
		t.Errorf("StopAll calls = %d, want 1", stopAlls)
	}
}

func TestStopIsIdempotentAndSynthesizesOnce(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.service.Stop()
	f.service.Stop()
	f.service.Stop()

	waitForState(t, f.service, entities.SessionStateEnded)

	select {
	case res := <-f.recorder.analyses:
		if res.err != nil {
			t.Errorf("analysis error = %v, want nil", res.err)
		}
		if res.analysis == nil || res.analysis.OverallScore != 85 {
			t.Errorf("analysis = %+v, want overall score 85", res.analysis)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no analysis delivered")
	}

	time.Sleep(50 * time.Millisecond)
	if got := f.summarizer.callCount(); got != 1 {
		t.Errorf("summarizer called %d times, want 1", got)
	}
	if got := f.dialer.session.closeCount(); got != 1 {
		t.Errorf("live session closed %d times, want 1", got)
	}
}

func TestStopBeforeStartIsSafe(t *testing.T) {
	f := newServiceFixture(t, nil)

	f.service.Stop()

	if f.service.State() != entities.SessionStateEnded {
		t.Errorf("state = %s, want ended", f.service.State())
	}
	if got := f.summarizer.callCount(); got != 0 {
		t.Errorf("summarizer called %d times before any session, want 0", got)
	}
}

func TestSynthesisFailureIsSurfaced(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.summarizer.fail = true
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.service.Stop()

	select {
	case res := <-f.recorder.analyses:
		if !errors.Is(res.err, domain.ErrSynthesis) {
			t.Errorf("analysis error = %v, want ErrSynthesis", res.err)
		}
		if res.analysis != nil {
			t.Errorf("analysis = %+v, want nil on failure", res.analysis)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no analysis outcome delivered")
	}
}

func TestTimerStopsSessionAtZero(t *testing.T) {
	f := newServiceFixture(t, func(o *InterviewOptions) { o.TickInterval = 5 * time.Millisecond })

	config := validConfig()
	config.DurationSeconds = 3
	if err := f.service.Start(context.Background(), config); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForState(t, f.service, entities.SessionStateEnded)

	select {
	case <-f.recorder.analyses:
	case <-time.After(2 * time.Second):
		t.Fatal("timer expiry did not trigger synthesis")
	}

	f.recorder.mu.Lock()
	ticks := append([]int(nil), f.recorder.ticks...)
	f.recorder.mu.Unlock()
	if len(ticks) < 3 {
		t.Fatalf("observed %d ticks, want at least 3", len(ticks))
	}
	if ticks[0] != 2 || ticks[len(ticks)-1] > 0 {
		t.Errorf("tick sequence = %v, want descent from 2 to 0", ticks)
	}
}

func TestRemoteCloseTriggersSynthesisByDefault(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.dialer.remoteClose(fmt.Errorf("connection reset"))

	waitForState(t, f.service, entities.SessionStateEnded)
	select {
	case <-f.recorder.analyses:
	case <-time.After(2 * time.Second):
		t.Fatal("remote close did not trigger synthesis")
	}
}

func TestRemoteCloseSkipsSynthesisWhenDisabled(t *testing.T) {
	f := newServiceFixture(t, func(o *InterviewOptions) { o.SynthesizeOnRemoteClose = false })
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.dialer.remoteClose(nil)

	waitForState(t, f.service, entities.SessionStateEnded)
	time.Sleep(50 * time.Millisecond)
	if got := f.summarizer.callCount(); got != 0 {
		t.Errorf("summarizer called %d times, want 0", got)
	}
}

func TestSystemPromptIncludesRoleAndResume(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.dialer.mu.Lock()
	prompt := f.dialer.config.SystemInstruction
	f.dialer.mu.Unlock()

	if !strings.Contains(prompt, "Software Engineer") {
		t.Error("prompt does not mention the target role")
	}
	if !strings.Contains(prompt, "5 years of Go backend experience") {
		t.Error("prompt does not carry the resume context")
	}
	if !strings.Contains(prompt, "10 minute interview") {
		t.Error("prompt does not state the duration constraint")
	}
	if strings.Contains(prompt, "medical-track") {
		t.Error("non-medical role got the clinical prompt branch")
	}
}

func TestSystemPromptMedicalBranch(t *testing.T) {
	f := newServiceFixture(t, nil)

	config := validConfig()
	config.Role = "Registered Nurse"
	if err := f.service.Start(context.Background(), config); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.dialer.mu.Lock()
	prompt := f.dialer.config.SystemInstruction
	f.dialer.mu.Unlock()

	if !strings.Contains(prompt, "clinical procedures") {
		t.Error("medical role did not get the clinical prompt branch")
	}
}

func TestMessagesIgnoredAfterStop(t *testing.T) {
	f := newServiceFixture(t, nil)
	if err := f.service.Start(context.Background(), validConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.service.Stop()
	waitForState(t, f.service, entities.SessionStateEnded)

	f.dialer.deliver(repositories.LiveMessage{InputTranscription: "late"})
	f.dialer.deliver(repositories.LiveMessage{TurnComplete: true})

	if turns := f.recorder.recordedTurns(); len(turns) != 0 {
		t.Errorf("committed %d turns after stop, want 0", len(turns))
	}
}
