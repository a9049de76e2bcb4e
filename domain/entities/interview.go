package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionState represents the lifecycle state of an interview session
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateConnecting SessionState = "connecting"
	SessionStateLive       SessionState = "live"
	SessionStateStopping   SessionState = "stopping"
	SessionStateEnded      SessionState = "ended"
)

// Speaker identifies who produced a transcript turn
type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerRemote Speaker = "remote"
)

// InterviewConfig is the immutable configuration an interview session is
// started with. It is consumed once to build the system prompt.
type InterviewConfig struct {
	Role            string `json:"role"`
	DurationSeconds int    `json:"duration_seconds"`
	ResumeContext   string `json:"resume_context"`
}

// Validate validates the interview configuration
func (c InterviewConfig) Validate() error {
	if strings.TrimSpace(c.Role) == "" {
		return errors.New("role is required")
	}
	if c.DurationSeconds <= 0 {
		return errors.New("duration_seconds must be positive")
	}
	if strings.TrimSpace(c.ResumeContext) == "" {
		return errors.New("resume_context is required")
	}
	return nil
}

// medicalRoleMarkers are matched case-insensitively against the target role
// to decide whether the interviewer should probe clinical and regulatory
// knowledge.
var medicalRoleMarkers = []string{
	"nurse", "physician", "doctor", "pharmacist", "radiolog",
	"clinical", "medical", "surgeon", "therapist",
}

// IsMedicalRole reports whether the configured role matches the
// medical-track heuristic.
func (c InterviewConfig) IsMedicalRole() bool {
	role := strings.ToLower(c.Role)
	for _, marker := range medicalRoleMarkers {
		if strings.Contains(role, marker) {
			return true
		}
	}
	return false
}

// TranscriptTurn is one committed utterance in the conversation log. Turns
// are appended only when the remote protocol marks a turn complete, never on
// individual fragments. The log does not enforce alternation; consecutive
// same-speaker turns are representable.
type TranscriptTurn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// InterviewSession aggregates everything known about one interview:
// configuration, committed transcript, and timing. It is handed to the
// summarizer after the session ends.
type InterviewSession struct {
	ID         string           `json:"id"`
	Config     InterviewConfig  `json:"config"`
	Transcript []TranscriptTurn `json:"transcript"`
	StartedAt  time.Time        `json:"started_at"`
	EndedAt    time.Time        `json:"ended_at"`
}

// NewInterviewSession creates a session record for the given configuration
func NewInterviewSession(config InterviewConfig) *InterviewSession {
	return &InterviewSession{
		ID:         uuid.NewString(),
		Config:     config,
		Transcript: make([]TranscriptTurn, 0),
		StartedAt:  time.Now(),
	}
}

// AppendTurn appends a committed turn to the transcript log
func (s *InterviewSession) AppendTurn(speaker Speaker, text string) {
	s.Transcript = append(s.Transcript, TranscriptTurn{Speaker: speaker, Text: text})
}

// MetricScore is one scored competency with feedback text
type MetricScore struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// AnswerSuggestion pairs an interview question with a suggested improvement
type AnswerSuggestion struct {
	Question   string `json:"question"`
	Suggestion string `json:"suggestion"`
}

// InterviewAnalysis is the post-session summary. Constructed once at session
// end and immutable afterward.
type InterviewAnalysis struct {
	OverallScore      int                `json:"overall_score"`
	Metrics           []MetricScore      `json:"metrics"`
	FillerWords       []string           `json:"filler_words"`
	Strengths         []string           `json:"strengths"`
	Improvements      []string           `json:"improvements"`
	AnswerSuggestions []AnswerSuggestion `json:"answer_suggestions"`
}

// Validate checks score bounds on the analysis
func (a *InterviewAnalysis) Validate() error {
	if a.OverallScore < 0 || a.OverallScore > 100 {
		return errors.New("overall_score must be between 0 and 100")
	}
	for _, m := range a.Metrics {
		if m.Score < 0 || m.Score > 100 {
			return errors.New("metric score must be between 0 and 100")
		}
	}
	return nil
}
