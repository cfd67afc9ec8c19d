package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SortField is one ORDER BY term keyed by view field name.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// ParseSortFields parses "Lot,-CreatedAt" into sort fields. A leading "-"
// sorts descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: field, Descending: desc})
	}
	return fields
}

// Builder accumulates WHERE conditions and ordering for a projection.
// Conditions bind their arguments as they are added, so placeholders
// are numbered in call order.
type Builder struct {
	projection *ProjectionMap
	where      []string
	args       []any
	sort       []SortField
	fallback   []SortField
}

// NewBuilder creates a Builder that orders by defaultSort unless
// OrderByFields supplies a usable order.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection: projection,
		fallback:   defaultSort,
	}
}

// WhereEquals adds field = value. Nil values and nil pointers are skipped.
// Projected field names are required; an unknown field panics.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	v, ok := deref(value)
	if !ok {
		return b
	}
	col := b.projection.mustColumn(field)
	b.where = append(b.where, col+" = "+b.bind(v))
	return b
}

// WhereContains adds a case-insensitive substring match. Nil or empty
// values are skipped.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	col := b.projection.mustColumn(field)
	b.where = append(b.where, col+" ILIKE "+b.bind(like(*value)))
	return b
}

// WhereSearch matches search as a substring of any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := like(*search)
	terms := make([]string, len(fields))
	for i, field := range fields {
		terms[i] = b.projection.mustColumn(field) + " ILIKE " + b.bind(pattern)
	}
	b.where = append(b.where, "("+strings.Join(terms, " OR ")+")")
	return b
}

// WhereRange restricts field to [from, to). Either bound may be nil.
func (b *Builder) WhereRange(field string, from, to *time.Time) *Builder {
	if from == nil && to == nil {
		return b
	}
	col := b.projection.mustColumn(field)
	if from != nil {
		b.where = append(b.where, col+" >= "+b.bind(*from))
	}
	if to != nil {
		b.where = append(b.where, col+" < "+b.bind(*to))
	}
	return b
}

// OrderByFields replaces the default order. Fields the projection does not
// know are dropped; if none remain the default order applies.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = b.sort[:0]
	for _, f := range fields {
		if _, ok := b.projection.Column(f.Field); ok {
			b.sort = append(b.sort, f)
		}
	}
	return b
}

// Build returns the ordered SELECT.
func (b *Builder) Build() (string, []any) {
	return b.selectSQL() + b.orderBy(), b.args
}

// BuildCount returns SELECT COUNT(*) with the same conditions.
func (b *Builder) BuildCount() (string, []any) {
	return "SELECT COUNT(*) FROM " + b.projection.From() + b.whereSQL(), b.args
}

// BuildPage returns the ordered SELECT for a 1-indexed page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	sql, args := b.Build()
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, pageSize, (page-1)*pageSize), args
}

// BuildLimit returns the ordered SELECT capped at limit rows. A limit
// below one returns every row.
func (b *Builder) BuildLimit(limit int) (string, []any) {
	sql, args := b.Build()
	if limit > 0 {
		sql += " LIMIT " + strconv.Itoa(limit)
	}
	return sql, args
}

// BuildSingle selects the row whose idField equals id. Accumulated
// conditions are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	p := b.projection
	return "SELECT " + p.Columns() + " FROM " + p.From() + " WHERE " + p.mustColumn(idField) + " = $1", []any{id}
}

func (b *Builder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *Builder) selectSQL() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From() + b.whereSQL()
}

func (b *Builder) whereSQL() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *Builder) orderBy() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.fallback
	}
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, len(fields))
	for i, f := range fields {
		dir := " ASC"
		if f.Descending {
			dir = " DESC"
		}
		terms[i] = b.projection.mustColumn(f.Field) + dir
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func deref(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		return v.Elem().Interface(), true
	}
	return value, true
}
