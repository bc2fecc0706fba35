// Package query implements the list-endpoint query contract: pagination,
// sorting, field projection and field[operator]=value filtering against an
// explicit per-resource allow-list.
package query

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 500
)

// Reserved keys never reach the filter stage.
var reserved = map[string]bool{
	"page":   true,
	"limit":  true,
	"sort":   true,
	"fields": true,
}

type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

var validOps = map[Op]bool{OpEq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true}

type Filter struct {
	Field string
	Op    Op
	Value string
}

type SortField struct {
	Field string
	Desc  bool
}

type ListOptions struct {
	Page    int
	Limit   int
	Sort    []SortField
	Fields  []string
	Filters []Filter
}

func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// ParseListOptions reads the query string against an allow-list of filterable
// and sortable fields. Reserved keys, unknown fields and unknown operators are
// silently dropped; pagination falls back to page 1 / limit 100.
func ParseListOptions(values url.Values, allowed map[string]bool) ListOptions {
	opts := ListOptions{Page: DefaultPage, Limit: DefaultLimit}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		if limit > MaxLimit {
			limit = MaxLimit
		}
		opts.Limit = limit
	}

	for _, part := range strings.Split(values.Get("sort"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		if allowed[field] {
			opts.Sort = append(opts.Sort, SortField{Field: field, Desc: desc})
		}
	}

	opts.Fields = ParseFields(values)

	for key, vals := range values {
		if reserved[key] || len(vals) == 0 {
			continue
		}
		field, op := splitFilterKey(key)
		if !allowed[field] || !validOps[op] {
			continue
		}
		opts.Filters = append(opts.Filters, Filter{Field: field, Op: op, Value: vals[0]})
	}

	return opts
}

// ParseFields reads only the fields projection, for single-resource endpoints
// that support ?fields= without the rest of the list contract.
func ParseFields(values url.Values) []string {
	var fields []string
	for _, part := range strings.Split(values.Get("fields"), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}

// splitFilterKey decomposes "price[gte]" into ("price", gte); a bare key is
// an equality match.
func splitFilterKey(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open == -1 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	return key[:open], Op(key[open+1 : len(key)-1])
}

// Project reduces a JSON-serializable value to the requested fields. An empty
// field list returns the value untouched. Works on single objects and slices.
func Project(v any, fields []string) any {
	if len(fields) == 0 {
		return v
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}

	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]map[string]any, len(list))
		for i, item := range list {
			out[i] = pick(item, keep)
		}
		return out
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return pick(obj, keep)
	}
	return v
}

func pick(obj map[string]any, keep map[string]bool) map[string]any {
	out := make(map[string]any, len(keep))
	for k, v := range obj {
		if keep[k] || k == "id" {
			out[k] = v
		}
	}
	return out
}
