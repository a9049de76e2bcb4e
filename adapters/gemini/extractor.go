package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const extractorModel = "gemini-3-flash-preview"

const extractionInstruction = "Extract all professional experience, skills, education, and achievements " +
	"from this resume into a clean, plain text format that an interviewer can use as context. " +
	"Focus on names of companies, roles, and key responsibilities."

// ResumeExtractor turns an uploaded resume document into plain interview
// context text using Gemini's multimodal input.
type ResumeExtractor struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewResumeExtractor creates a resume extractor over an existing client
func NewResumeExtractor(client *genai.Client, logger *zap.Logger) *ResumeExtractor {
	return &ResumeExtractor{
		client: client,
		logger: logger,
		model:  extractorModel,
	}
}

// ExtractResume sends the raw document bytes with the extraction
// instruction and returns the resulting plain text.
func (e *ResumeExtractor) ExtractResume(ctx context.Context, fileData []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(fileData, mimeType),
		genai.NewPartFromText(extractionInstruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		e.logger.Error("resume extraction failed", zap.Error(err))
		return "", fmt.Errorf("failed to extract resume: %w", err)
	}

	text := collectText(response)
	if text == "" {
		return "", fmt.Errorf("resume extraction returned no text")
	}

	e.logger.Info("resume extracted",
		zap.String("mime_type", mimeType),
		zap.Int("input_bytes", len(fileData)),
		zap.Int("output_chars", len(text)))
	return text, nil
}
