package models

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the identity and bookkeeping columns shared by every table.
type Base struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (b *Base) GetBase() *Base {
	return b
}

// Model is satisfied by a pointer to any table-backed entity.
type Model[T any] interface {
	*T
	GetBase() *Base
	TableName() string
}

const (
	ProfilesTable             = "profiles"
	ResearchPostsTable        = "research_posts"
	ProjectsTable             = "projects"
	ProjectCollaboratorsTable = "project_collaborators"
	MatchesTable              = "matches"
	MessagesTable             = "messages"
	UserNotificationsTable    = "user_notifications"
	ProjectNotesTable         = "project_notes"
	ProjectTasksTable         = "project_tasks"
	ProjectFilesTable         = "project_files"
)
