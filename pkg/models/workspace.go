package models

import (
	"time"

	"github.com/google/uuid"
)

type ProjectNote struct {
	Base
	ProjectID    uuid.UUID  `db:"project_id" json:"project_id" validate:"required"`
	Title        string     `db:"title" json:"title" validate:"required,max=200"`
	Content      string     `db:"content" json:"content" validate:"max=100000"`
	CreatedBy    uuid.UUID  `db:"created_by" json:"created_by" validate:"required"`
	LastEditedBy *uuid.UUID `db:"last_edited_by" json:"last_edited_by"`
}

func (ProjectNote) TableName() string {
	return ProjectNotesTable
}

type ProjectTask struct {
	Base
	ProjectID   uuid.UUID    `db:"project_id" json:"project_id" validate:"required"`
	Title       string       `db:"title" json:"title" validate:"required,max=200"`
	Description *string      `db:"description" json:"description" validate:"omitempty,max=5000" schema:"emptynil"`
	Status      TaskStatus   `db:"status" json:"status" validate:"oneof=todo in_progress completed archived" schema:"default=todo"`
	Priority    TaskPriority `db:"priority" json:"priority" validate:"oneof=low medium high urgent" schema:"default=medium"`
	AssigneeID  *uuid.UUID   `db:"assignee_id" json:"assignee_id"`
	DueDate     *time.Time   `db:"due_date" json:"due_date"`
	CreatedBy   uuid.UUID    `db:"created_by" json:"created_by" validate:"required"`
}

func (ProjectTask) TableName() string {
	return ProjectTasksTable
}

type ProjectFile struct {
	Base
	ProjectID  uuid.UUID `db:"project_id" json:"project_id" validate:"required"`
	FileName   string    `db:"file_name" json:"file_name" validate:"required,max=255"`
	FilePath   string    `db:"file_path" json:"file_path" validate:"required,max=1024"`
	FileSize   int       `db:"file_size" json:"file_size" validate:"gte=0"`
	MimeType   *string   `db:"mime_type" json:"mime_type" validate:"omitempty,max=255" schema:"emptynil"`
	UploadedBy uuid.UUID `db:"uploaded_by" json:"uploaded_by" validate:"required"`
}

func (ProjectFile) TableName() string {
	return ProjectFilesTable
}
