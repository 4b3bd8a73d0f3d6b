package repository

import (
	"fmt"
	"strings"
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// whereClause accumulates positional filter expressions.
type whereClause struct {
	parts []string
	args  []any
}

// add appends expr, which must contain a single %d for the placeholder index.
func (w *whereClause) add(expr string, val any) {
	w.args = append(w.args, val)
	w.parts = append(w.parts, fmt.Sprintf(expr, len(w.args)))
}

// addRaw appends an expression without a bound argument.
func (w *whereClause) addRaw(expr string) {
	w.parts = append(w.parts, expr)
}

func (w *whereClause) String() string {
	if len(w.parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.parts, " AND ")
}

func pageBounds(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
