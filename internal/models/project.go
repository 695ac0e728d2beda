package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a user-owned workspace, optionally scoped to an organization.
type Project struct {
	ProjectID uuid.UUID
	OwnerID   uuid.UUID
	OrgID     *uuid.UUID // nil for personal projects
	Name      string
	CreatedAt time.Time
}

// ProjectContent is a single item stored inside a project.
type ProjectContent struct {
	ContentID uuid.UUID
	ProjectID uuid.UUID
	Name      string
	Body      string
	CreatedAt time.Time
}
