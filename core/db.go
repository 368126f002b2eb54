package core

import (
	"strings"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops orderings on fields that are not in `allowed`.
// It protects ORDER BY clauses built from user input.
func CleanOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		ord.Field = strings.ToLower(strings.TrimSpace(ord.Field))
		if StringInSlice(ord.Field, allowed) {
			cleaned = append(cleaned, ord)
		}
	}
	return cleaned
}

// OrderByClause renders orderings as an ORDER BY clause, falling back to `fallback` when empty.
func OrderByClause(orderings []DBOrdering, fallback ...DBOrdering) string {
	if len(orderings) == 0 {
		orderings = fallback
	}
	if len(orderings) == 0 {
		return ""
	}
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
