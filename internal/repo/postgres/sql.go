package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/wildtrek/tours/internal/api/query"
)

// Every store call is bounded; exceeding this surfaces as a 503 through the
// error funnel rather than hanging the request.
const queryTimeout = 3 * time.Second

var opSQL = map[query.Op]string{
	query.OpEq:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// appendListClauses turns parsed list options into SQL. base must already
// contain a WHERE clause; filters are ANDed onto it with positional args.
// cols maps wire field names to columns — anything outside the map was
// already dropped by the parser, this is the second fence.
func appendListClauses(base string, opts query.ListOptions, cols map[string]string, args []any, fallbackOrder string) (string, []any) {
	var sb strings.Builder
	sb.WriteString(base)

	for _, f := range opts.Filters {
		col, ok := cols[f.Field]
		if !ok {
			continue
		}
		args = append(args, f.Value)
		fmt.Fprintf(&sb, " AND %s %s $%d", col, opSQL[f.Op], len(args))
	}

	var orders []string
	for _, s := range opts.Sort {
		col, ok := cols[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		orders = append(orders, col+" "+dir)
	}
	if len(orders) == 0 {
		orders = []string{fallbackOrder}
	}
	// id tiebreak keeps pagination stable
	orders = append(orders, "id ASC")
	sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))

	args = append(args, opts.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	args = append(args, opts.Offset())
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	return sb.String(), args
}

// buildUpdate produces a single-row UPDATE from a merge patch, keeping only
// allow-listed columns. Returns ok=false when nothing in the patch is
// updatable.
func buildUpdate(table string, patch map[string]any, cols map[string]string, id int64, returning string) (string, []any, bool) {
	var sets []string
	var args []any

	for field, col := range cols {
		v, present := patch[field]
		if !present {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return "", nil, false
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), returning)
	return q, args, true
}
