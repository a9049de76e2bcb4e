package repositories

import (
	"context"

	"github.com/zera-labs/zera-server/domain/entities"
)

// Summarizer produces the post-session analysis. Implementations must
// complete (or fail) within the context deadline and either return a full
// result or an error; never a partial or zeroed analysis.
type Summarizer interface {
	Summarize(ctx context.Context, session *entities.InterviewSession) (*entities.InterviewAnalysis, error)
}
