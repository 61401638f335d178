// Package crud provides a typed create/read/update/delete client over one
// table. Writes are validated by the entity schema before the store is
// touched, and every statement is scoped to the caller's tenant.
package crud

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/database"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/metrics"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/query"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// FilterOptions narrows GetAll. Filters are equality matches keyed by json or
// column name; entries with a nil value are skipped.
type FilterOptions struct {
	Limit     int
	Offset    int
	OrderBy   string
	Ascending bool
	Filters   map[string]any
}

type Option func(*settings)

type settings struct {
	now   func() time.Time
	newID func() uuid.UUID
}

// WithClock replaces the time source used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *settings) { s.newID = newID }
}

// Client is the CRUD surface for one entity type.
type Client[T any, PT models.Model[T]] struct {
	db      database.DB
	table   string
	schema  *schema.Schema[T]
	logger  ectologger.Logger
	columns []string
	now     func() time.Time
	newID   func() uuid.UUID
}

func New[T any, PT models.Model[T]](db database.DB, table string, sch *schema.Schema[T], logger ectologger.Logger, opts ...Option) *Client[T, PT] {
	s := settings{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Client[T, PT]{
		db:      db,
		table:   table,
		schema:  sch,
		logger:  logger,
		columns: sch.Columns(),
		now:     s.now,
		newID:   s.newID,
	}
}

func (c *Client[T, PT]) Table() string {
	return c.table
}

func (c *Client[T, PT]) Schema() *schema.Schema[T] {
	return c.schema
}

// Now is the client's clock, shared with extensions that stamp rows themselves.
func (c *Client[T, PT]) Now() time.Time {
	return c.now()
}

// Select starts a descriptor over the client's table and columns.
func (c *Client[T, PT]) Select() query.Descriptor {
	return query.From(c.table, c.columns...)
}

func (c *Client[T, PT]) GetAll(ctx context.Context, opts FilterOptions) ([]T, error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("crud.%s.GetAll", c.table))
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	filters, err := c.schema.FilterValues(ctx, opts.Filters)
	if err != nil {
		return nil, err
	}

	orderBy := "created_at"
	if opts.OrderBy != "" {
		col, ok := c.schema.Column(opts.OrderBy)
		if !ok {
			return nil, apperrors.NewValidationError(c.schema.Entity(), apperrors.FieldError{
				Field:   "order_by",
				Message: fmt.Sprintf("cannot order by %q", opts.OrderBy),
			})
		}
		orderBy = col
	}

	d := c.Select()
	d.Where = append(d.Where, query.Equal("tenant_id", tenantID))
	for _, col := range sortedKeys(filters) {
		d.Where = append(d.Where, query.Equal(col, filters[col]))
	}
	d.OrderBy = []query.Order{{Column: orderBy, Ascending: opts.Ascending}}
	d.Limit = limit(opts.Limit)
	d.Offset = max(opts.Offset, 0)

	return query.Select[T](ctx, c.db, d)
}

// GetByID returns nil, nil when no row has id.
func (c *Client[T, PT]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("crud.%s.GetByID", c.table))
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := c.Select()
	d.Where = []query.Filter{query.Equal("id", id), query.Equal("tenant_id", tenantID)}
	return query.First[T](ctx, c.db, d)
}

// Create validates v, assigns identity and timestamps and inserts it. A zero
// ID is replaced with a fresh one.
func (c *Client[T, PT]) Create(ctx context.Context, v T) (*T, error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("crud.%s.Create", c.table))
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	validated, err := c.schema.Validate(ctx, v)
	if err != nil {
		metrics.RecordValidationFailure(c.schema.Entity())
		return nil, err
	}

	base := PT(&validated).GetBase()
	if base.ID == uuid.Nil {
		base.ID = c.newID()
	}
	base.TenantID = tenantID
	base.CreatedAt = c.now()
	base.UpdatedAt = base.CreatedAt

	ib := database.NewStruct(validated).For(c.db.Flavor()).InsertInto(c.table, &validated)
	q, args := ib.Build()

	if err := c.exec(ctx, "insert", q, args); err != nil {
		return nil, err
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"table": c.table,
		"id":    base.ID.String(),
	}).Debug("created row")

	return &validated, nil
}

// Update applies patch to the row with id and stamps updated_at. Fields not in
// patch are left alone. A missing row is a 404 StoreError.
func (c *Client[T, PT]) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*T, error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("crud.%s.Update", c.table))
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	values, err := c.schema.ValidatePatch(ctx, patch)
	if err != nil {
		metrics.RecordValidationFailure(c.schema.Entity())
		return nil, err
	}

	ub := database.NewUpdateBuilder(c.db.Flavor())
	ub.Update(c.table)
	assignments := make([]string, 0, len(values)+1)
	for _, col := range sortedKeys(values) {
		assignments = append(assignments, ub.Assign(col, values[col]))
	}
	assignments = append(assignments, ub.Assign("updated_at", c.now()))
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID))

	q, args := ub.Build()
	start := time.Now()
	res, err := database.QuerierFromContext(ctx, c.db).ExecContext(ctx, q, args...)
	metrics.RecordQuery(c.table, "update", time.Since(start).Seconds())
	if err != nil {
		return nil, c.storeError(ctx, "update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, c.notFound(id)
	}

	updated, err := c.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// deleted between the write and the re-read
		return nil, c.notFound(id)
	}
	return updated, nil
}

func (c *Client[T, PT]) notFound(id uuid.UUID) *apperrors.StoreError {
	return &apperrors.StoreError{
		Message: fmt.Sprintf("%s %s not found", c.schema.Entity(), id),
		Status:  http.StatusNotFound,
		Code:    "not_found",
	}
}

// Delete removes the row with id. Deleting a missing row is not an error.
func (c *Client[T, PT]) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("crud.%s.Delete", c.table))
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return err
	}

	b := database.NewDeleteBuilder(c.db.Flavor())
	b.DeleteFrom(c.table)
	b.Where(b.Equal("id", id), b.Equal("tenant_id", tenantID))
	q, args := b.Build()

	return c.exec(ctx, "delete", q, args)
}

func (c *Client[T, PT]) exec(ctx context.Context, operation, q string, args []any) error {
	start := time.Now()
	_, err := database.QuerierFromContext(ctx, c.db).ExecContext(ctx, q, args...)
	metrics.RecordQuery(c.table, operation, time.Since(start).Seconds())
	if err != nil {
		return c.storeError(ctx, operation, err)
	}
	return nil
}

func (c *Client[T, PT]) storeError(ctx context.Context, operation string, err error) error {
	tracing.RecordError(ctx, err)
	storeErr := database.NewStoreError(fmt.Sprintf("failed to %s %s", operation, c.schema.Entity()), err)
	metrics.RecordStoreError(c.table, strconv.Itoa(storeErr.Status))
	c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"table":  c.table,
		"status": storeErr.Status,
		"code":   storeErr.Code,
	}).Errorf("failed to %s row", operation)
	return storeErr
}

func limit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
