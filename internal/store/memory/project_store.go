package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// ProjectStore implements store.ProjectStore using in-memory storage.
type ProjectStore struct {
	mu sync.RWMutex

	projects map[uuid.UUID]*models.Project        // project_id -> Project
	contents map[uuid.UUID]*models.ProjectContent // content_id -> ProjectContent
}

// NewProjectStore creates a new in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		projects: make(map[uuid.UUID]*models.Project),
		contents: make(map[uuid.UUID]*models.ProjectContent),
	}
}

func cloneProject(p *models.Project) *models.Project {
	clone := *p
	if p.OrgID != nil {
		id := *p.OrgID
		clone.OrgID = &id
	}
	return &clone
}

// Create creates a project.
func (s *ProjectStore) Create(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[project.ProjectID] = cloneProject(project)
	return nil
}

// AddContent stores one content item.
func (s *ProjectStore) AddContent(ctx context.Context, content *models.ProjectContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *content
	s.contents[content.ContentID] = &clone
	return nil
}

func (s *ProjectStore) list(match func(*models.Project) bool) []*models.Project {
	var result []*models.Project
	for _, p := range s.projects {
		if match(p) {
			result = append(result, cloneProject(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// ListByOwner returns every project owned by an account.
func (s *ProjectStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(func(p *models.Project) bool { return p.OwnerID == ownerID }), nil
}

// ListByOrg returns every project scoped to an organization.
func (s *ProjectStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(func(p *models.Project) bool { return p.OrgID != nil && *p.OrgID == orgID }), nil
}

// ListByOwnerInOrg returns the projects an account owns inside one organization.
func (s *ProjectStore) ListByOwnerInOrg(ctx context.Context, ownerID, orgID uuid.UUID) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(func(p *models.Project) bool {
		return p.OwnerID == ownerID && p.OrgID != nil && *p.OrgID == orgID
	}), nil
}

// ListContents returns the content items of a project.
func (s *ProjectStore) ListContents(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.ProjectContent
	for _, c := range s.contents {
		if c.ProjectID == projectID {
			clone := *c
			result = append(result, &clone)
		}
	}
	return result, nil
}

// DeleteContents removes the contents of the given projects.
func (s *ProjectStore) DeleteContents(ctx context.Context, projectIDs []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[uuid.UUID]struct{}, len(projectIDs))
	for _, id := range projectIDs {
		ids[id] = struct{}{}
	}

	var n int64
	for contentID, c := range s.contents {
		if _, ok := ids[c.ProjectID]; ok {
			delete(s.contents, contentID)
			n++
		}
	}
	return n, nil
}

// Delete removes the given projects.
func (s *ProjectStore) Delete(ctx context.Context, projectIDs []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range projectIDs {
		if _, ok := s.projects[id]; ok {
			delete(s.projects, id)
			n++
		}
	}
	return n, nil
}
