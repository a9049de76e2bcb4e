package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zera-labs/zera-server/domain/repositories"
)

const (
	textModel  = "gemini-3-flash-preview"
	imageModel = "gemini-2.5-flash-image"
)

// Studio implements both the content and design studio tools over the
// GenerateContent API.
type Studio struct {
	client *genai.Client
	logger *zap.Logger
}

// NewStudio creates a studio adapter over an existing client
func NewStudio(client *genai.Client, logger *zap.Logger) *Studio {
	return &Studio{client: client, logger: logger}
}

func (s *Studio) generateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	response, err := s.client.Models.GenerateContent(ctx, textModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := collectText(response)
	if text == "" {
		return "", fmt.Errorf("generation returned no text")
	}
	return text, nil
}

// WriteArticle generates a markdown article about the topic
func (s *Studio) WriteArticle(ctx context.Context, topic string, length repositories.ArticleLength) (string, error) {
	prompt := fmt.Sprintf("Write a %s article about: %s. Format with markdown headers.", length, topic)
	return s.generateText(ctx, prompt)
}

// GenerateBlogTitles generates ten blog title candidates for the keywords
func (s *Studio) GenerateBlogTitles(ctx context.Context, keywords string) (string, error) {
	prompt := fmt.Sprintf("Generate 10 catchy blog titles for keywords: %s", keywords)
	return s.generateText(ctx, prompt)
}

// ReviewResume produces ATS-style feedback for the given resume text
func (s *Studio) ReviewResume(ctx context.Context, resumeText string) (string, error) {
	prompt := fmt.Sprintf(
		"Act as an expert ATS (Applicant Tracking System) reviewer. "+
			"Analyze this resume for impact, skill match, and clarity. "+
			"Provide actionable feedback. Resume: %s", resumeText)
	return s.generateText(ctx, prompt)
}

// AcknowledgeContact generates a short confirmation reply to a contact
// form submission.
func (s *Studio) AcknowledgeContact(ctx context.Context, name, email, message string) (string, error) {
	prompt := fmt.Sprintf(
		"You are the Zera AI support agent. A user named %s (%s) sent this message: %q. "+
			"Generate a concise, professional 2-sentence confirmation acknowledging their "+
			"specific concern and letting them know a human agent from our Bhubaneswar HQ "+
			"will follow up if needed.", name, email, message)
	return s.generateText(ctx, prompt)
}

// GenerateImage produces an image for the prompt at the requested aspect
// ratio ("1:1", "16:9" or "9:16").
func (s *Studio) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*repositories.GeneratedImage, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: aspectRatio},
	}

	response, err := s.client.Models.GenerateContent(ctx, imageModel, contents, config)
	if err != nil {
		s.logger.Error("image generation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	blob := collectImage(response)
	if blob == nil {
		return nil, fmt.Errorf("generation returned no image")
	}
	return &repositories.GeneratedImage{Data: blob.Data, MIMEType: blob.MIMEType}, nil
}

// EditImage applies the prompt to an existing image and returns the
// edited result.
func (s *Studio) EditImage(ctx context.Context, image []byte, mimeType, prompt string) (*repositories.GeneratedImage, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := s.client.Models.GenerateContent(ctx, imageModel, contents, nil)
	if err != nil {
		s.logger.Error("image edit failed", zap.Error(err))
		return nil, fmt.Errorf("failed to edit image: %w", err)
	}

	blob := collectImage(response)
	if blob == nil {
		return nil, fmt.Errorf("edit returned no image")
	}
	return &repositories.GeneratedImage{Data: blob.Data, MIMEType: blob.MIMEType}, nil
}
