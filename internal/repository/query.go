package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// predicates collects AND-ed WHERE clauses with postgres placeholders.
type predicates struct {
	clauses []string
	args    []interface{}
}

// add appends clause with every "?" bound to the same new argument.
func (p *predicates) add(clause string, arg interface{}) {
	placeholder := fmt.Sprintf("$%d", len(p.args)+1)
	p.clauses = append(p.clauses, strings.ReplaceAll(clause, "?", placeholder))
	p.args = append(p.args, arg)
}

func (p *predicates) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// likeTerm lower-cases a search string and wraps it for a LIKE match.
func likeTerm(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// window converts 1-based page parameters into LIMIT and OFFSET.
func window(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

// orderClause resolves a client sort key against a whitelist.
func orderClause(columns map[string]string, key, fallback, direction string) string {
	column, ok := columns[key]
	if !ok {
		column = fallback
	}
	if strings.EqualFold(direction, "desc") {
		return column + " DESC"
	}
	return column + " ASC"
}

// taken reports whether a row other than excludeID matches expr = value.
func taken(ctx context.Context, db *sqlx.DB, table, expr string, value interface{}, excludeID string) (bool, error) {
	var p predicates
	p.add(expr, value)
	if excludeID != "" {
		p.add("id <> ?", excludeID)
	}
	var one int
	err := db.GetContext(ctx, &one, "SELECT 1 FROM "+table+p.where()+" LIMIT 1", p.args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}
