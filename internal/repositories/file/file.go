package file

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/schema"
)

// Repository stores metadata for files uploaded to a project. The bytes live
// in object storage under FilePath.
type Repository struct {
	*crud.Client[models.ProjectFile, *models.ProjectFile]
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client: crud.New[models.ProjectFile](db, models.ProjectFilesTable, schema.ProjectFile, logger, opts...),
		logger: logger,
	}
}

// ListByProject returns the files of projectID, newest first.
func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectFile, error) {
	return r.GetAll(ctx, crud.FilterOptions{
		Limit:   crud.MaxLimit,
		Filters: map[string]any{"project_id": projectID},
	})
}

// Remove deletes the metadata row and returns it so the caller can remove the
// stored object. A missing row returns nil.
func (r *Repository) Remove(ctx context.Context, id uuid.UUID) (*models.ProjectFile, error) {
	f, err := r.GetByID(ctx, id)
	if err != nil || f == nil {
		return nil, err
	}
	if err := r.Delete(ctx, id); err != nil {
		return nil, err
	}
	return f, nil
}
