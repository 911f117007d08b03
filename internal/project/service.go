// Package project manages stored projects: ownership, listing and the snapshot that
// holds each project's current content.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/skill"
	"github.com/mythic3d/particle-drawer/internal/storage"
	"github.com/mythic3d/particle-drawer/internal/typeid"
)

var (
	ErrNotFound  = errors.New("project not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid project")
	ErrTooLarge  = errors.New("project exceeds storage quota")
)

type Service struct {
	repo storage.Repository
}

func NewService(repo storage.Repository) *Service {
	return &Service{repo: repo}
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// SaveResult describes a stored snapshot.
type SaveResult struct {
	ProjectID string `json:"projectId"`
	Version   int    `json:"version"`
}

// Create stores a project owned by ownerID with an empty drawing as version 1.
func (s *Service) Create(ctx context.Context, name, ownerID string) (*Project, error) {
	doc := document.NewEmptyProject(name)
	p, err := s.repo.CreateProject(ctx, storage.Project{
		ID:      typeid.NewProjectID(),
		Name:    doc.Name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	data, err := doc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal empty project: %w", err)
	}
	if _, err := s.repo.SaveSnapshot(ctx, p.ID, data); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return toProject(p), nil
}

func (s *Service) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	p, err := s.authorize(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return toProject(p), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	stored, err := s.repo.ListProjectsForOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, len(stored))
	for i, p := range stored {
		projects[i] = *toProject(p)
	}
	return projects, nil
}

// Rename changes the project name and writes it into a new snapshot so the stored file
// agrees with the listing.
func (s *Service) Rename(ctx context.Context, projectID, userID, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := s.authorize(ctx, projectID, userID); err != nil {
		return nil, err
	}

	doc, err := s.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	doc.Name = name
	if _, err := s.save(ctx, projectID, doc); err != nil {
		return nil, err
	}
	return s.Get(ctx, projectID, userID)
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.authorize(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return mapError(err, "delete project")
	}
	return nil
}

// Document returns the latest stored project file.
func (s *Service) Document(ctx context.Context, projectID, userID string) ([]byte, error) {
	if _, err := s.authorize(ctx, projectID, userID); err != nil {
		return nil, err
	}
	snap, err := s.repo.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		return nil, mapError(err, "get snapshot")
	}
	return snap.Document, nil
}

// Import replaces the project's content with the uploaded project file. The project takes
// the file's name.
func (s *Service) Import(ctx context.Context, projectID, userID string, data []byte) (*SaveResult, error) {
	if _, err := s.authorize(ctx, projectID, userID); err != nil {
		return nil, err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s.save(ctx, projectID, doc)
}

// Skill returns the skill text for the latest stored content.
func (s *Service) Skill(ctx context.Context, projectID, userID string) (string, error) {
	if _, err := s.authorize(ctx, projectID, userID); err != nil {
		return "", err
	}
	doc, err := s.Load(ctx, projectID)
	if err != nil {
		return "", err
	}
	return skill.GenerateProject(doc), nil
}

// Authorize reports whether userID may open projectID.
func (s *Service) Authorize(ctx context.Context, projectID, userID string) error {
	_, err := s.authorize(ctx, projectID, userID)
	return err
}

// Load returns the project's latest content without an ownership check. A project with
// no snapshot yet loads as an empty drawing with the stored name.
func (s *Service) Load(ctx context.Context, projectID string) (*document.Project, error) {
	snap, err := s.repo.GetLatestSnapshot(ctx, projectID)
	if errors.Is(err, storage.ErrNotFound) {
		p, err := s.repo.GetProject(ctx, projectID)
		if err != nil {
			return nil, mapError(err, "get project")
		}
		return document.NewEmptyProject(p.Name), nil
	}
	if err != nil {
		return nil, mapError(err, "get snapshot")
	}

	doc, err := document.Parse(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %d of %s: %w", snap.Version, projectID, err)
	}
	return doc, nil
}

func (s *Service) save(ctx context.Context, projectID string, doc *document.Project) (*SaveResult, error) {
	doc.Normalize()
	data, err := doc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	snap, err := s.repo.SaveSnapshot(ctx, projectID, data)
	if err != nil {
		return nil, mapError(err, "save snapshot")
	}
	if err := s.repo.RenameProject(ctx, projectID, doc.Name); err != nil {
		return nil, mapError(err, "rename project")
	}
	return &SaveResult{ProjectID: projectID, Version: snap.Version}, nil
}

func (s *Service) authorize(ctx context.Context, projectID, userID string) (storage.Project, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return storage.Project{}, mapError(err, "get project")
	}
	if p.OwnerID != userID {
		return storage.Project{}, ErrForbidden
	}
	return p, nil
}

func mapError(err error, op string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrQuotaExceeded):
		return ErrTooLarge
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func toProject(p storage.Project) *Project {
	return &Project{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
