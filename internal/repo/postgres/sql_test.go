package postgres

import (
	"strings"
	"testing"

	"github.com/wildtrek/tours/internal/api/query"
)

func TestAppendListClausesFiltersAndOrder(t *testing.T) {
	opts := query.ListOptions{
		Page:  2,
		Limit: 10,
		Sort:  []query.SortField{{Field: "price", Desc: true}},
		Filters: []query.Filter{
			{Field: "price", Op: query.OpGte, Value: "100"},
			{Field: "difficulty", Op: query.OpEq, Value: "easy"},
		},
	}
	cols := map[string]string{"price": "price", "difficulty": "difficulty"}

	q, args := appendListClauses("SELECT * FROM tours WHERE NOT secret", opts, cols, nil, "created_at DESC")

	want := "SELECT * FROM tours WHERE NOT secret" +
		" AND price >= $1 AND difficulty = $2" +
		" ORDER BY price DESC, id ASC LIMIT $3 OFFSET $4"
	if q != want {
		t.Errorf("query:\n got %s\nwant %s", q, want)
	}
	if len(args) != 4 || args[2] != 10 || args[3] != 10 {
		t.Errorf("args = %v", args)
	}
}

func TestAppendListClausesFallbackOrder(t *testing.T) {
	opts := query.ListOptions{Page: 1, Limit: 100}

	q, _ := appendListClauses("SELECT * FROM users WHERE active", opts, userListCols, nil, "created_at DESC")

	if !strings.Contains(q, "ORDER BY created_at DESC, id ASC") {
		t.Errorf("fallback order missing: %s", q)
	}
}

func TestAppendListClausesDropsUnknownColumns(t *testing.T) {
	opts := query.ListOptions{
		Page: 1, Limit: 100,
		Filters: []query.Filter{{Field: "password_hash", Op: query.OpEq, Value: "x"}},
		Sort:    []query.SortField{{Field: "password_hash"}},
	}

	q, args := appendListClauses("SELECT * FROM users WHERE active", opts, userListCols, nil, "id ASC")

	if strings.Contains(q, "password_hash") {
		t.Errorf("unlisted column leaked into SQL: %s", q)
	}
	if len(args) != 2 { // limit and offset only
		t.Errorf("args = %v", args)
	}
}

func TestBuildUpdateAllowList(t *testing.T) {
	patch := map[string]any{"price": 500.0, "secretField": "x", "difficulty": "medium"}
	cols := map[string]string{"price": "price", "difficulty": "difficulty"}

	q, args, ok := buildUpdate("tours", patch, cols, 7, "id, price")
	if !ok {
		t.Fatal("updatable patch reported as empty")
	}
	if strings.Contains(q, "secretField") {
		t.Errorf("unlisted field leaked: %s", q)
	}
	if !strings.HasPrefix(q, "UPDATE tours SET ") || !strings.Contains(q, "RETURNING id, price") {
		t.Errorf("query shape: %s", q)
	}
	if len(args) != 3 || args[len(args)-1] != int64(7) {
		t.Errorf("args = %v", args)
	}
}

func TestBuildUpdateEmptyPatch(t *testing.T) {
	_, _, ok := buildUpdate("tours", map[string]any{"unknown": 1}, map[string]string{"price": "price"}, 1, "id")
	if ok {
		t.Error("patch with no updatable fields must report ok=false")
	}
}
