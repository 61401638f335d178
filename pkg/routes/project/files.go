package project

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/internal/repositories/file"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/storage"
	"github.com/Rath300/research-collab/pkg/tracing"
)

const fileField = "file"

func ListFiles(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListFiles")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireMember(); err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*file.Repository](ctx)
	if err != nil {
		return err
	}

	files, err := repo.ListByProject(ctx, w.project.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, files)
}

// UploadFile stores the multipart field "file" and records it on the project
func UploadFile(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UploadFile")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	header, err := c.FormFile(fileField)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "multipart field %q is required", fileField)
	}

	ctx, store, err := ectoinject.GetContext[*storage.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "file storage is not configured")
	}
	ctx, repo, err := request.Resolve[*file.Repository](ctx)
	if err != nil {
		return err
	}

	body, err := header.Open()
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}
	defer body.Close()

	contentType := header.Header.Get(echo.HeaderContentType)
	path, err := store.Upload(ctx, store.ProjectFileBucket(), storage.ProjectFilePath(w.project.ID, header.Filename, time.Now()), body, header.Size, storage.UploadOptions{
		ContentType: contentType,
	})
	if err != nil {
		return err
	}

	record := models.ProjectFile{
		ProjectID:  w.project.ID,
		FileName:   header.Filename,
		FilePath:   path,
		FileSize:   int(header.Size),
		UploadedBy: userID,
	}
	if contentType != "" {
		record.MimeType = &contentType
	}

	created, err := repo.Create(ctx, record)
	if err != nil {
		// the object is orphaned without its row
		if rmErr := store.Remove(ctx, store.ProjectFileBucket(), path); rmErr != nil {
			ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
			if logger != nil {
				logger.WithContext(ctx).WithError(rmErr).WithField("path", path).Warn("Failed to remove orphaned project file")
			}
		}
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

func DeleteFile(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.DeleteFile")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	id, err := request.ParamUUID(c, "file_id")
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*file.Repository](ctx)
	if err != nil {
		return err
	}

	f, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f == nil || f.ProjectID != w.project.ID {
		return request.NotFound("file")
	}

	if _, err := repo.Remove(ctx, f.ID); err != nil {
		return err
	}

	if ctx, store, err := ectoinject.GetContext[*storage.Store](ctx); err == nil {
		if err := store.Remove(ctx, store.ProjectFileBucket(), f.FilePath); err != nil {
			return err
		}
	}

	return c.NoContent(http.StatusNoContent)
}
