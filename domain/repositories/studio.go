package repositories

import "context"

// ArticleLength controls how long a generated article should be
type ArticleLength string

const (
	ArticleShort  ArticleLength = "short"
	ArticleMedium ArticleLength = "medium"
	ArticleLong   ArticleLength = "long"
)

// GeneratedImage is the result of an image generation or edit call
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}

// ContentStudio covers the single request/response text generation tools
type ContentStudio interface {
	WriteArticle(ctx context.Context, topic string, length ArticleLength) (string, error)
	GenerateBlogTitles(ctx context.Context, keywords string) (string, error)
	ReviewResume(ctx context.Context, resumeText string) (string, error)
	AcknowledgeContact(ctx context.Context, name, email, message string) (string, error)
}

// DesignStudio covers image generation and editing
type DesignStudio interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*GeneratedImage, error)
	EditImage(ctx context.Context, image []byte, mimeType, prompt string) (*GeneratedImage, error)
}
