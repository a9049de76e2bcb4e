package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/domain/entities"
	"github.com/zera-labs/zera-server/domain/repositories"
)

// projectsKey is the single key the whole project list lives under
const projectsKey = "zera:projects"

// PortfolioService manages the showcase project list. The list is stored
// as one JSON document in the key-value store and rewritten in full on
// every mutation.
type PortfolioService struct {
	store  repositories.KeyValueStore
	logger *zap.Logger
}

// NewPortfolioService creates a portfolio service over the given store
func NewPortfolioService(store repositories.KeyValueStore, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{store: store, logger: logger}
}

// List returns projects filtered by type and search query. Empty
// projectType means all types; empty query matches everything.
func (s *PortfolioService) List(ctx context.Context, projectType entities.ProjectType, query string) ([]*entities.Project, error) {
	projects, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*entities.Project, 0, len(projects))
	for _, p := range projects {
		if projectType != "" && p.Type != projectType {
			continue
		}
		if !p.MatchesQuery(query) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// Add validates and appends a project, then persists the full list
func (s *PortfolioService) Add(ctx context.Context, project *entities.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}

	projects, err := s.load(ctx)
	if err != nil {
		return err
	}
	projects = append(projects, project)

	if err := s.save(ctx, projects); err != nil {
		return err
	}
	s.logger.Info("project added",
		zap.String("project_id", project.ID),
		zap.String("type", string(project.Type)),
		zap.Int("total", len(projects)))
	return nil
}

// Delete removes the project with the given ID. Deleting an unknown ID
// fails.
func (s *PortfolioService) Delete(ctx context.Context, id string) error {
	projects, err := s.load(ctx)
	if err != nil {
		return err
	}

	remaining := make([]*entities.Project, 0, len(projects))
	found := false
	for _, p := range projects {
		if p.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}
	if !found {
		return fmt.Errorf("project %s not found", id)
	}

	if err := s.save(ctx, remaining); err != nil {
		return err
	}
	s.logger.Info("project deleted", zap.String("project_id", id), zap.Int("total", len(remaining)))
	return nil
}

func (s *PortfolioService) load(ctx context.Context) ([]*entities.Project, error) {
	raw, err := s.store.Get(ctx, projectsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var projects []*entities.Project
	if err := json.Unmarshal([]byte(raw), &projects); err != nil {
		return nil, fmt.Errorf("failed to decode project list: %w", err)
	}
	return projects, nil
}

func (s *PortfolioService) save(ctx context.Context, projects []*entities.Project) error {
	raw, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("failed to encode project list: %w", err)
	}
	if err := s.store.Set(ctx, projectsKey, string(raw)); err != nil {
		return fmt.Errorf("failed to save projects: %w", err)
	}
	return nil
}
