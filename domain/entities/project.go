package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectType classifies a portfolio project
type ProjectType string

const (
	ProjectTypeContent ProjectType = "content"
	ProjectTypeDesign  ProjectType = "design"
)

// Project is one persisted portfolio entry. The full project list is stored
// JSON-encoded under a single key in the key-value store.
type Project struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        ProjectType `json:"type"`
	Payload     string      `json:"payload"`
	Tags        []string    `json:"tags,omitempty"`
	Link        string      `json:"link,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewProject creates a project with a fresh ID and creation timestamp
func NewProject(title, description string, projectType ProjectType, payload string) *Project {
	return &Project{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Type:        projectType,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
}

// Validate validates the project fields
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title is required")
	}
	if p.Type != ProjectTypeContent && p.Type != ProjectTypeDesign {
		return errors.New("invalid project type")
	}
	return nil
}

// MatchesQuery reports whether the project matches a case-insensitive
// substring search over title, description, and tags.
func (p *Project) MatchesQuery(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(p.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Description), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
