package note

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/schema"
)

// Repository stores shared project notes.
type Repository struct {
	*crud.Client[models.ProjectNote, *models.ProjectNote]
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client: crud.New[models.ProjectNote](db, models.ProjectNotesTable, schema.ProjectNote, logger, opts...),
		logger: logger,
	}
}

// ListByProject returns the notes of projectID, most recently edited first.
func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectNote, error) {
	return r.GetAll(ctx, crud.FilterOptions{
		Limit:   crud.MaxLimit,
		OrderBy: "updated_at",
		Filters: map[string]any{"project_id": projectID},
	})
}

// Edit applies patch to the note and records editorID as its last editor.
func (r *Repository) Edit(ctx context.Context, id, editorID uuid.UUID, patch map[string]any) (*models.ProjectNote, error) {
	if _, ok := patch["last_edited_by"]; ok {
		return nil, apperrors.NewValidationError("project_note", apperrors.FieldError{
			Field:   "last_edited_by",
			Message: "is set from the editor",
		})
	}

	values := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		values[k] = v
	}
	values["last_edited_by"] = editorID

	return r.Update(ctx, id, values)
}
