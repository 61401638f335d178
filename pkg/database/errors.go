package database

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/Rath300/research-collab/pkg/errors"
)

// IsNotFound reports whether err means the query matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// NewStoreError classifies a driver error into a StoreError carrying the
// status a caller should see.
func NewStoreError(message string, err error) *apperrors.StoreError {
	storeErr := &apperrors.StoreError{
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		storeErr.Code = string(pqErr.Code)
		switch pqErr.Code.Name() {
		case "unique_violation":
			storeErr.Status = http.StatusConflict
		case "foreign_key_violation", "not_null_violation", "check_violation", "invalid_text_representation":
			storeErr.Status = http.StatusBadRequest
		case "insufficient_privilege":
			storeErr.Status = http.StatusForbidden
		}
		return storeErr
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		storeErr.Code = strconv.Itoa(liteErr.Code())
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			storeErr.Status = http.StatusConflict
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
			storeErr.Status = http.StatusBadRequest
		}
	}

	return storeErr
}
