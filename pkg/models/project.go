package models

import (
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/pkg/database"
)

type Project struct {
	Base
	OwnerID         uuid.UUID                `db:"owner_id" json:"owner_id" validate:"required"`
	Title           string                   `db:"title" json:"title" validate:"required,max=200"`
	Description     string                   `db:"description" json:"description" validate:"max=5000"`
	Tags            database.JSONB[[]string] `db:"tags" json:"tags" schema:"maxitems=20"`
	Visibility      Visibility               `db:"visibility" json:"visibility" validate:"oneof=public private connections" schema:"default=public"`
	Status          ProjectStatus            `db:"status" json:"status" validate:"oneof=planning active completed archived" schema:"default=planning"`
	CommitmentHours int                      `db:"commitment_hours" json:"commitment_hours" schema:"clamp=0:80"`
	EngagementCount int                      `db:"engagement_count" json:"engagement_count" validate:"gte=0" schema:"readonly"`
}

func (Project) TableName() string {
	return ProjectsTable
}

// ProjectWithOwner is a project feed entry.
type ProjectWithOwner struct {
	Project
	Owner AuthorSummary `db:"owner" json:"owner"`
}

type ProjectCollaborator struct {
	Base
	ProjectID uuid.UUID        `db:"project_id" json:"project_id" validate:"required"`
	UserID    uuid.UUID        `db:"user_id" json:"user_id" validate:"required"`
	Role      CollaboratorRole `db:"role" json:"role" validate:"oneof=owner editor viewer" schema:"default=viewer"`
}

func (ProjectCollaborator) TableName() string {
	return ProjectCollaboratorsTable
}
