// Package taskquery translates a caller's identity plus declarative
// filter/sort tokens into the WHERE/ORDER BY clauses of a task listing.
//
// Filters compose as successive narrowing (AND) in the order of the fixed
// vocabulary table, not the order supplied by the caller, so that output is
// deterministic regardless of caller input order. Sort tokens, by contrast,
// compose in caller-supplied order (primary, secondary, ...). Unrecognized
// tokens of either kind are ignored.
package taskquery

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

// Query accumulates SQL conditions and ordering for a scoped task listing.
type Query struct {
	conds   []string
	args    []any
	orderBy []string
}

// where appends a condition; each "?" in expr is rewritten to the next
// positional placeholder.
func (q *Query) where(expr string, args ...any) {
	for _, a := range args {
		expr = strings.Replace(expr, "?", fmt.Sprintf("$%d", len(q.args)+1), 1)
		q.args = append(q.args, a)
	}
	q.conds = append(q.conds, expr)
}

// Clauses renders the accumulated WHERE and ORDER BY clauses and the
// positional arguments for them. The WHERE clause is empty for an
// unconditioned query.
func (q *Query) Clauses() (where string, orderBy string, args []any) {
	if len(q.conds) > 0 {
		where = "WHERE " + strings.Join(q.conds, " AND ")
	}
	orderBy = "ORDER BY " + strings.Join(q.orderBy, ", ")
	return where, orderBy, q.args
}

// filterTable is the fixed filter vocabulary in composition order.
var filterTable = []struct {
	token string
	apply func(q *Query, actor models.Actor, now time.Time)
}{
	{"completed", func(q *Query, _ models.Actor, _ time.Time) {
		q.where("completed = TRUE")
	}},
	{"incompleted", func(q *Query, _ models.Actor, _ time.Time) {
		q.where("completed = FALSE")
	}},
	{"overdue", func(q *Query, _ models.Actor, now time.Time) {
		q.where("due_date < ?", now)
	}},
	{"assigned_to_me", func(q *Query, actor models.Actor, _ time.Time) {
		q.where("assigned_to = ?", actor.ID)
	}},
	{"created_by_me", func(q *Query, actor models.Actor, _ time.Time) {
		q.where("created_by = ?", actor.ID)
	}},
	{"assigned_to_others", func(q *Query, actor models.Actor, _ time.Time) {
		q.where("assigned_to <> ?", actor.ID)
	}},
	{"created_by_others", func(q *Query, actor models.Actor, _ time.Time) {
		q.where("created_by <> ?", actor.ID)
	}},
}

// sortColumns maps sort tokens to their columns.
var sortColumns = map[string]string{
	"dueDate":   "due_date",
	"title":     "title",
	"completed": "completed",
	"createdAt": "created_at",
}

// Compose builds the query for the given actor and comma-separated filter
// and sort token lists. Non-admin actors are scoped to tasks they created or
// were assigned; admins see everything. Creation order is the final
// tiebreaker, and the whole ordering when no sort tokens are given.
func Compose(actor models.Actor, filter, sort string, now time.Time) *Query {
	q := &Query{}

	if !actor.IsAdmin {
		q.where("(created_by = ? OR assigned_to = ?)", actor.ID, actor.ID)
	}

	requested := tokenSet(filter)
	for _, f := range filterTable {
		if _, ok := requested[f.token]; ok {
			f.apply(q, actor, now)
		}
	}

	for _, token := range splitTokens(sort) {
		direction := "ASC"
		if strings.HasPrefix(token, "-") {
			direction = "DESC"
			token = token[1:]
		}
		col, ok := sortColumns[token]
		if !ok {
			continue
		}
		q.orderBy = append(q.orderBy, col+" "+direction)
	}

	q.orderBy = append(q.orderBy, "created_at ASC", "id ASC")

	return q
}

func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range splitTokens(s) {
		set[t] = struct{}{}
	}
	return set
}
