package api

import (
	"github.com/zera-labs/zera-server/domain/entities"
	"github.com/zera-labs/zera-server/domain/repositories"
)

// LoginRequest represents the request payload for the simulated login
type LoginRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the response payload for a successful login
type LoginResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ExtractResumeResponse carries the plain text extracted from a resume
type ExtractResumeResponse struct {
	Text string `json:"text"`
}

// ArticleRequest represents an article generation request
type ArticleRequest struct {
	Topic  string                     `json:"topic"`
	Length repositories.ArticleLength `json:"length"`
}

// BlogTitlesRequest represents a blog title generation request
type BlogTitlesRequest struct {
	Keywords string `json:"keywords"`
}

// ResumeReviewRequest represents an ATS review request
type ResumeReviewRequest struct {
	ResumeText string `json:"resume_text"`
}

// ContactRequest represents a contact form submission
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// TextResponse carries a single generated text result
type TextResponse struct {
	Text string `json:"text"`
}

// GenerateImageRequest represents an image generation request
type GenerateImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

// EditImageRequest represents an image edit request. Image is
// base64-encoded.
type EditImageRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mime_type"`
	Prompt   string `json:"prompt"`
}

// ImageResponse carries a generated image, base64-encoded
type ImageResponse struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

// CreateProjectRequest represents a new portfolio project
type CreateProjectRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Type        entities.ProjectType `json:"type"`
	Payload     string               `json:"payload"`
	Tags        []string             `json:"tags,omitempty"`
	Link        string               `json:"link,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
