// Package query builds parameterized PostgreSQL SELECT statements over a
// projection that maps view field names onto table columns.
package query

import "strings"

// ProjectionMap maps view field names to qualified columns of one table.
// Columns are emitted in the order they were projected.
type ProjectionMap struct {
	table   string
	alias   string
	columns map[string]string
	order   []string
}

// NewProjectionMap creates a projection over schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:   schema + "." + table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps column onto the view field name.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	if _, ok := p.columns[field]; !ok {
		p.order = append(p.order, qualified)
	}
	p.columns[field] = qualified
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// From returns "schema.table alias".
func (p *ProjectionMap) From() string {
	return p.table + " " + p.alias
}

// Column returns the qualified column for field and whether it is projected.
func (p *ProjectionMap) Column(field string) (string, bool) {
	col, ok := p.columns[field]
	return col, ok
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.order, ", ")
}

// ColumnList returns the qualified columns in projection order.
func (p *ProjectionMap) ColumnList() []string {
	return append([]string(nil), p.order...)
}

func (p *ProjectionMap) mustColumn(field string) string {
	col, ok := p.columns[field]
	if !ok {
		panic("query: field " + field + " is not projected on " + p.table)
	}
	return col
}
