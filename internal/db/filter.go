package db

import (
	"fmt"
	"strings"
)

// Conditions accumulates AND-combined WHERE clauses with postgres
// positional placeholders. Empty filter values are skipped.
type Conditions struct {
	clauses []string
	args    []any
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains adds a case-insensitive substring match on column.
func (c *Conditions) Contains(column, value string) {
	if value == "" {
		return
	}
	c.args = append(c.args, likeEscaper.Replace(value))
	c.clauses = append(c.clauses, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", column, len(c.args)))
}

// Equals adds an exact match on column.
func (c *Conditions) Equals(column, value string) {
	if value == "" {
		return
	}
	c.args = append(c.args, value)
	c.clauses = append(c.clauses, fmt.Sprintf("%s = $%d", column, len(c.args)))
}

// Where renders the clause including the leading keyword, or an empty string.
func (c *Conditions) Where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// Args returns the bound values in placeholder order.
func (c *Conditions) Args() []any {
	return append([]any(nil), c.args...)
}

// Paginate returns a LIMIT/OFFSET suffix numbered after the filter
// placeholders, together with the full argument list.
func (c *Conditions) Paginate(limit, offset int) (string, []any) {
	args := append(c.Args(), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}
