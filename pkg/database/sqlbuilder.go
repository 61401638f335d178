package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

func Excluded(column string) any {
	return sqlbuilder.Raw(fmt.Sprintf("EXCLUDED.%s", column))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ContainsFold builds a case-insensitive substring match that renders the
// same way for postgres and sqlite. Wildcards in term match literally.
func ContainsFold(cond *sqlbuilder.Cond, column, term string) string {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	return fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, column, cond.Var(pattern))
}

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

func NewInsertBuilder(flavor sqlbuilder.Flavor) *InsertBuilder {
	return &InsertBuilder{flavor.NewInsertBuilder()}
}

// OnConflict appends an upsert clause; the returned builder holds the SET list.
func (b *InsertBuilder) OnConflict(columns ...string) *sqlbuilder.UpdateBuilder {
	ub := b.Flavor().NewUpdateBuilder()
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE %s", strings.Join(columns, ", "), b.Var(ub)))
	return ub
}

func (b *InsertBuilder) OnConflictDoNothing() *InsertBuilder {
	b.SQL("ON CONFLICT DO NOTHING")
	return b
}

func NewUpdateBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.UpdateBuilder {
	return flavor.NewUpdateBuilder()
}

func NewDeleteBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.DeleteBuilder {
	return flavor.NewDeleteBuilder()
}

func NewSelectBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.SelectBuilder {
	return flavor.NewSelectBuilder()
}

// Struct maps a db-tagged struct to a table for a given flavor.
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v)}
}

func (s *Struct) For(flavor sqlbuilder.Flavor) *Struct {
	return &Struct{s.Struct.For(flavor)}
}

func (s *Struct) InsertInto(table string, v ...any) *InsertBuilder {
	return &InsertBuilder{s.Struct.InsertInto(table, v...)}
}

// QualifiedColumns returns the struct columns prefixed with alias.
func (s *Struct) QualifiedColumns(alias string) []string {
	cols := s.Struct.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
