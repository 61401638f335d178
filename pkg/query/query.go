// Package query describes reads declaratively and executes them with a single
// typed function, so every repository shares one path to the store.
package query

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/metrics"
	"github.com/Rath300/research-collab/pkg/tracing"
)

type Op string

const (
	OpEq       Op = "eq"
	OpNotEq    Op = "neq"
	OpIn       Op = "in"
	OpNotIn    Op = "nin"
	OpIsNull   Op = "null"
	OpNotNull  Op = "notnull"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
)

// Filter is a single predicate on a column.
type Filter struct {
	Column string
	Op     Op
	Value  any
	Values []any
}

func Equal(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func NotEqual(column string, value any) Filter {
	return Filter{Column: column, Op: OpNotEq, Value: value}
}

func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Values: values}
}

func NotIn(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpNotIn, Values: values}
}

func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

func GreaterThan(column string, value any) Filter {
	return Filter{Column: column, Op: OpGt, Value: value}
}

func LessThan(column string, value any) Filter {
	return Filter{Column: column, Op: OpLt, Value: value}
}

// Contains matches a case-insensitive substring.
func Contains(column, term string) Filter {
	return Filter{Column: column, Op: OpContains, Value: term}
}

type Order struct {
	Column    string
	Ascending bool
}

func Asc(column string) Order  { return Order{Column: column, Ascending: true} }
func Desc(column string) Order { return Order{Column: column} }

type Join struct {
	Option sqlbuilder.JoinOption
	Table  string
	On     []string
}

// LeftJoin keeps rows of the main table that have no partner.
func LeftJoin(table string, on ...string) Join {
	return Join{Option: sqlbuilder.LeftJoin, Table: table, On: on}
}

func InnerJoin(table string, on ...string) Join {
	return Join{Table: table, On: on}
}

// Descriptor is a complete read: every Where filter must hold and, for each
// AnyOf group, at least one of its filters must hold.
type Descriptor struct {
	Table   string
	Columns []string
	Joins   []Join
	Where   []Filter
	AnyOf   [][]Filter
	GroupBy []string
	OrderBy []Order
	Limit   int
	Offset  int
}

// From starts a descriptor over table.
func From(table string, columns ...string) Descriptor {
	return Descriptor{Table: table, Columns: columns}
}

// Build renders the descriptor for flavor.
func (d Descriptor) Build(flavor sqlbuilder.Flavor) (string, []any) {
	sb := d.builder(flavor, d.Columns...)

	if len(d.GroupBy) > 0 {
		sb.GroupBy(d.GroupBy...)
	}
	for _, o := range d.OrderBy {
		if o.Ascending {
			sb.OrderBy(o.Column + " ASC")
		} else {
			sb.OrderBy(o.Column + " DESC")
		}
	}
	if d.Limit > 0 {
		sb.Limit(d.Limit)
	}
	if d.Offset > 0 {
		if d.Limit <= 0 && flavor == sqlbuilder.SQLite {
			sb.Limit(math.MaxInt32)
		}
		sb.Offset(d.Offset)
	}

	return sb.Build()
}

// BuildCount renders a COUNT(*) over the same filters, ignoring grouping and
// paging.
func (d Descriptor) BuildCount(flavor sqlbuilder.Flavor) (string, []any) {
	return d.builder(flavor, "COUNT(*)").Build()
}

func (d Descriptor) builder(flavor sqlbuilder.Flavor, columns ...string) *sqlbuilder.SelectBuilder {
	sb := database.NewSelectBuilder(flavor)
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	sb.Select(columns...)
	sb.From(d.Table)

	for _, j := range d.Joins {
		sb.JoinWithOption(j.Option, j.Table, j.On...)
	}

	conds := make([]string, 0, len(d.Where)+len(d.AnyOf))
	for _, f := range d.Where {
		conds = append(conds, render(&sb.Cond, f))
	}
	for _, group := range d.AnyOf {
		if len(group) == 0 {
			continue
		}
		alternatives := make([]string, 0, len(group))
		for _, f := range group {
			alternatives = append(alternatives, render(&sb.Cond, f))
		}
		conds = append(conds, sb.Or(alternatives...))
	}
	if len(conds) > 0 {
		sb.Where(conds...)
	}
	return sb
}

func render(cond *sqlbuilder.Cond, f Filter) string {
	switch f.Op {
	case OpNotEq:
		return cond.NotEqual(f.Column, f.Value)
	case OpIn:
		if len(f.Values) == 0 {
			return "1 = 0"
		}
		return cond.In(f.Column, f.Values...)
	case OpNotIn:
		if len(f.Values) == 0 {
			return "1 = 1"
		}
		return cond.NotIn(f.Column, f.Values...)
	case OpIsNull:
		return cond.IsNull(f.Column)
	case OpNotNull:
		return cond.IsNotNull(f.Column)
	case OpGt:
		return cond.GreaterThan(f.Column, f.Value)
	case OpGte:
		return cond.GreaterEqualThan(f.Column, f.Value)
	case OpLt:
		return cond.LessThan(f.Column, f.Value)
	case OpLte:
		return cond.LessEqualThan(f.Column, f.Value)
	case OpContains:
		return database.ContainsFold(cond, f.Column, fmt.Sprint(f.Value))
	default:
		return cond.Equal(f.Column, f.Value)
	}
}

// Select runs d and scans every row into T. An empty result is an empty,
// non-nil slice.
func Select[T any](ctx context.Context, db database.DB, d Descriptor) ([]T, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Select")
	defer span.End()

	table := tableName(d.Table)
	q, args := d.Build(db.Flavor())

	start := time.Now()
	items := []T{}
	err := database.QuerierFromContext(ctx, db).SelectContext(ctx, &items, q, args...)
	metrics.RecordQuery(table, "select", time.Since(start).Seconds())
	if err != nil {
		tracing.RecordError(ctx, err)
		storeErr := database.NewStoreError(fmt.Sprintf("failed to query %s", table), err)
		metrics.RecordStoreError(table, strconv.Itoa(storeErr.Status))
		return nil, storeErr
	}
	return items, nil
}

// First returns the first row of d, or nil when there is none.
func First[T any](ctx context.Context, db database.DB, d Descriptor) (*T, error) {
	d.Limit = 1
	items, err := Select[T](ctx, db, d)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func Count(ctx context.Context, db database.DB, d Descriptor) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Count")
	defer span.End()

	table := tableName(d.Table)
	q, args := d.BuildCount(db.Flavor())

	start := time.Now()
	var n int
	err := database.QuerierFromContext(ctx, db).GetContext(ctx, &n, q, args...)
	metrics.RecordQuery(table, "count", time.Since(start).Seconds())
	if err != nil {
		tracing.RecordError(ctx, err)
		storeErr := database.NewStoreError(fmt.Sprintf("failed to count %s", table), err)
		metrics.RecordStoreError(table, strconv.Itoa(storeErr.Status))
		return 0, storeErr
	}
	return n, nil
}

func tableName(from string) string {
	return strings.Fields(from)[0]
}

// ClampLimit applies def when n is not positive and caps the result at most.
func ClampLimit(n, def, most int) int {
	if n <= 0 {
		return def
	}
	return min(n, most)
}

// Values widens a typed slice for In and NotIn.
func Values[T any](items []T) []any {
	return ectolinq.Map(items, func(v T) any { return v })
}
