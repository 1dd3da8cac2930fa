package listing

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidQuery is returned when pagination or sort parameters are malformed.
var ErrInvalidQuery = errors.New("listing: invalid query")

// QueryError names the query parameter that failed validation.
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	return "listing: invalid query: " + e.Field + ": " + e.Reason
}

// Unwrap lets errors.Is match ErrInvalidQuery.
func (e *QueryError) Unwrap() error { return ErrInvalidQuery }

// SortOrder is the direction of the sort.
type SortOrder string

const (
	// Asc sorts in increasing lexicographic order.
	Asc SortOrder = "asc"
	// Desc sorts in decreasing lexicographic order.
	Desc SortOrder = "desc"
)

// Query holds the transient list parameters of a single render.
type Query struct {
	Search    string
	Category  string
	SortField string
	SortOrder SortOrder
	Page      int
	PageSize  int
}

// Validate reports malformed pagination or sort parameters.
func (q Query) Validate() error {
	if q.PageSize <= 0 {
		return &QueryError{Field: "pageSize", Reason: "page size must be a positive integer"}
	}
	if q.Page <= 0 {
		return &QueryError{Field: "page", Reason: "page must be a positive integer"}
	}
	switch q.SortOrder {
	case "", Asc, Desc:
	default:
		return &QueryError{Field: "sortOrder", Reason: "sort order must be asc or desc"}
	}
	return nil
}

// Defaults configures ParseQuery.
type Defaults struct {
	PageSize    int
	MaxPageSize int
}

// DefaultPageSize matches the page size of the console list screens.
const DefaultPageSize = 5

func (d Defaults) normalized() Defaults {
	if d.MaxPageSize < 1 {
		d.MaxPageSize = 100
	}
	if d.PageSize < 1 {
		d.PageSize = DefaultPageSize
	}
	if d.PageSize > d.MaxPageSize {
		d.PageSize = d.MaxPageSize
	}
	return d
}

// ParseQuery reads list parameters from URL query values. Both the short
// names (q, sort, order, page, limit, category) and the console's long names
// (search, sortField, sortOrder, pageNumber, pageSize, type) are accepted.
// A sort value of the form "field:desc" sets the field and the order at once.
func ParseQuery(values url.Values, d Defaults) (Query, error) {
	d = d.normalized()
	first := func(keys ...string) string {
		for _, key := range keys {
			if v := strings.TrimSpace(values.Get(key)); v != "" {
				return v
			}
		}
		return ""
	}

	q := Query{
		Search:    first("q", "search", "searchText"),
		Category:  first("category", "type"),
		SortField: first("sort", "sortField"),
		Page:      1,
		PageSize:  d.PageSize,
	}

	order := strings.ToLower(first("order", "sortOrder"))
	if field, suffix, ok := strings.Cut(q.SortField, ":"); ok {
		q.SortField = strings.TrimSpace(field)
		if order == "" {
			order = strings.ToLower(strings.TrimSpace(suffix))
		}
	}
	switch order {
	case "":
	case string(Asc):
		q.SortOrder = Asc
	case string(Desc):
		q.SortOrder = Desc
	default:
		return q, &QueryError{Field: "sortOrder", Reason: "sort order must be asc or desc"}
	}

	if v := first("page", "pageNumber"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return q, &QueryError{Field: "page", Reason: "page must be a positive integer"}
		}
		q.Page = page
	}
	if v := first("limit", "pageSize", "per_page"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return q, &QueryError{Field: "pageSize", Reason: "page size must be a positive integer"}
		}
		if size > d.MaxPageSize {
			size = d.MaxPageSize
		}
		q.PageSize = size
	}
	return q, nil
}
