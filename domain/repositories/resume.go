package repositories

import "context"

// ResumeExtractor turns an uploaded resume file into the plain-text context
// string an interviewer can work from. The result is consumed verbatim as
// InterviewConfig.ResumeContext.
type ResumeExtractor interface {
	ExtractResume(ctx context.Context, fileData []byte, mimeType string) (string, error)
}
