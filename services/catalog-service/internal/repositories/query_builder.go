package repositories

import (
	"fmt"
	"strings"

	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/lib/pq"
)

// listSpec describes how a collection can be listed
type listSpec struct {
	table           string
	columns         []string
	searchColumns   []string
	sortColumns     map[string]string
	defaultSort     models.Sort
	defaultPageSize int
}

// queryBuilder accumulates AND-combined predicates with Postgres positional arguments
type queryBuilder struct {
	spec         listSpec
	whereClauses []string
	args         []any
}

func newQueryBuilder(spec listSpec) *queryBuilder {
	return &queryBuilder{spec: spec}
}

func (b *queryBuilder) bind(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// Eq adds "column = value"
func (b *queryBuilder) Eq(column string, value any) *queryBuilder {
	b.whereClauses = append(b.whereClauses, fmt.Sprintf("%s = %s", column, b.bind(value)))
	return b
}

// Gte adds "column >= value"
func (b *queryBuilder) Gte(column string, value any) *queryBuilder {
	b.whereClauses = append(b.whereClauses, fmt.Sprintf("%s >= %s", column, b.bind(value)))
	return b
}

// Lte adds "column <= value"
func (b *queryBuilder) Lte(column string, value any) *queryBuilder {
	b.whereClauses = append(b.whereClauses, fmt.Sprintf("%s <= %s", column, b.bind(value)))
	return b
}

// Overlaps adds an array overlap predicate, true when the column shares any element with values
func (b *queryBuilder) Overlaps(column string, values []string) *queryBuilder {
	b.whereClauses = append(b.whereClauses, fmt.Sprintf("%s && %s", column, b.bind(pq.Array(values))))
	return b
}

// In adds "column = ANY(ids)"
func (b *queryBuilder) In(column string, ids []int) *queryBuilder {
	b.whereClauses = append(b.whereClauses, fmt.Sprintf("%s = ANY(%s)", column, b.bind(pq.Array(ids))))
	return b
}

// Search adds a case-insensitive substring match OR-ed across the search columns
func (b *queryBuilder) Search(term string) *queryBuilder {
	term = strings.TrimSpace(term)
	if term == "" || len(b.spec.searchColumns) == 0 {
		return b
	}
	placeholder := b.bind("%" + escapeLike(term) + "%")
	parts := make([]string, 0, len(b.spec.searchColumns))
	for _, column := range b.spec.searchColumns {
		parts = append(parts, fmt.Sprintf("%s ILIKE %s", column, placeholder))
	}
	b.whereClauses = append(b.whereClauses, "("+strings.Join(parts, " OR ")+")")
	return b
}

// where renders the WHERE clause, or an empty string when there are no predicates
func (b *queryBuilder) where() string {
	if len(b.whereClauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.whereClauses, " AND ")
}

// order resolves the sort against the whitelist, falling back to the default sort
func (s listSpec) order(sort models.Sort) string {
	column, ok := s.sortColumns[sort.Field]
	direction := sort.Direction
	if !ok {
		column = s.sortColumns[s.defaultSort.Field]
		direction = s.defaultSort.Direction
	}
	if direction != models.SortAsc && direction != models.SortDesc {
		direction = s.defaultSort.Direction
	}
	// id keeps pages stable when the sort column has ties
	return fmt.Sprintf("%s %s, id %s", column, strings.ToUpper(string(direction)), strings.ToUpper(string(direction)))
}

func (b *queryBuilder) orderBy(sort models.Sort) string {
	return "ORDER BY " + b.spec.order(sort)
}

// SelectQuery renders the windowed select of the page
func (b *queryBuilder) SelectQuery(sort models.Sort, page models.PageRequest) (string, []any) {
	page = page.Normalize(b.spec.defaultPageSize)
	args := append([]any{}, b.args...)
	args = append(args, page.PageSize, page.Offset())

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		%s
		LIMIT $%d OFFSET $%d
	`, strings.Join(b.spec.columns, ", "), b.spec.table, b.where(), b.orderBy(sort), len(args)-1, len(args))

	return query, args
}

// CountQuery renders the exact count of the filtered set, ignoring the page window
func (b *queryBuilder) CountQuery() (string, []any) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s
		%s
	`, b.spec.table, b.where())

	return query, append([]any{}, b.args...)
}

// escapeLike escapes the LIKE wildcards of a user supplied term
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
