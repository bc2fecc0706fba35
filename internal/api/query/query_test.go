package query

import (
	"net/url"
	"testing"

	qs "github.com/google/go-querystring/query"
)

var tourFields = map[string]bool{
	"price":          true,
	"duration":       true,
	"difficulty":     true,
	"ratingsAverage": true,
	"name":           true,
	"createdAt":      true,
	"id":             true,
}

// listParams mirrors the wire shape of a list request.
type listParams struct {
	Page     int    `url:"page,omitempty"`
	Limit    int    `url:"limit,omitempty"`
	Sort     string `url:"sort,omitempty"`
	Fields   string `url:"fields,omitempty"`
	PriceGte string `url:"price[gte],omitempty"`
	Duration string `url:"duration,omitempty"`
}

func mustValues(t *testing.T, p listParams) url.Values {
	t.Helper()
	v, err := qs.Values(p)
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	return v
}

func TestParseDefaults(t *testing.T) {
	opts := ParseListOptions(url.Values{}, tourFields)
	if opts.Page != 1 || opts.Limit != 100 {
		t.Errorf("got page=%d limit=%d, want 1/100", opts.Page, opts.Limit)
	}
	if len(opts.Filters) != 0 || len(opts.Sort) != 0 {
		t.Errorf("expected no filters or sorts, got %+v", opts)
	}
}

func TestParseFiltersAndOperators(t *testing.T) {
	v := mustValues(t, listParams{PriceGte: "500", Duration: "5"})
	opts := ParseListOptions(v, tourFields)

	if len(opts.Filters) != 2 {
		t.Fatalf("got %d filters, want 2: %+v", len(opts.Filters), opts.Filters)
	}
	byField := map[string]Filter{}
	for _, f := range opts.Filters {
		byField[f.Field] = f
	}
	if f := byField["price"]; f.Op != OpGte || f.Value != "500" {
		t.Errorf("price filter = %+v, want gte 500", f)
	}
	if f := byField["duration"]; f.Op != OpEq || f.Value != "5" {
		t.Errorf("duration filter = %+v, want eq 5", f)
	}
}

func TestReservedKeysSkipFilterStage(t *testing.T) {
	v := mustValues(t, listParams{Page: 2, Limit: 10, Sort: "-price", Fields: "name,price"})
	opts := ParseListOptions(v, tourFields)

	if len(opts.Filters) != 0 {
		t.Errorf("reserved keys leaked into filters: %+v", opts.Filters)
	}
	if opts.Page != 2 || opts.Limit != 10 {
		t.Errorf("got page=%d limit=%d, want 2/10", opts.Page, opts.Limit)
	}
	if len(opts.Sort) != 1 || opts.Sort[0].Field != "price" || !opts.Sort[0].Desc {
		t.Errorf("sort = %+v, want -price", opts.Sort)
	}
	if len(opts.Fields) != 2 {
		t.Errorf("fields = %+v", opts.Fields)
	}
}

func TestUnknownFieldsAndOpsIgnored(t *testing.T) {
	v := url.Values{}
	v.Set("passwordHash[gte]", "x") // not in the allow-list
	v.Set("price[regex]", ".*")     // unknown operator
	opts := ParseListOptions(v, tourFields)

	if len(opts.Filters) != 0 {
		t.Errorf("disallowed filters accepted: %+v", opts.Filters)
	}
}

func TestLimitCapped(t *testing.T) {
	v := url.Values{}
	v.Set("limit", "99999")
	opts := ParseListOptions(v, tourFields)
	if opts.Limit != MaxLimit {
		t.Errorf("limit = %d, want %d", opts.Limit, MaxLimit)
	}
}

func TestOffset(t *testing.T) {
	opts := ListOptions{Page: 3, Limit: 20}
	if got := opts.Offset(); got != 40 {
		t.Errorf("Offset() = %d, want 40", got)
	}
}

func TestProject(t *testing.T) {
	type tour struct {
		ID    int64   `json:"id"`
		Name  string  `json:"name"`
		Price float64 `json:"price"`
		Slug  string  `json:"slug"`
	}

	got := Project([]tour{{ID: 1, Name: "The Forest Hiker", Price: 497, Slug: "the-forest-hiker"}}, []string{"name", "price"})
	list, ok := got.([]map[string]any)
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected projection result: %#v", got)
	}
	if _, present := list[0]["slug"]; present {
		t.Error("slug should have been projected away")
	}
	if list[0]["name"] != "The Forest Hiker" {
		t.Errorf("name = %v", list[0]["name"])
	}
	if _, present := list[0]["id"]; !present {
		t.Error("id should always survive projection")
	}
}
