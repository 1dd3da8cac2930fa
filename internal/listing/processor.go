package listing

import (
	"slices"
	"strings"
)

// Fields describes how one entity type is searched, filtered and sorted.
type Fields struct {
	// Searchable fields are matched case-insensitively as substrings.
	Searchable []string
	// Exact fields are matched as raw substrings without case folding,
	// e.g. phone numbers and numeric ids.
	Exact []string
	// Category is the field compared for equality against Query.Category.
	// Empty disables the category filter.
	Category string
	// DefaultSort applies when the query carries no sort field.
	DefaultSort string
}

// Page is the outcome of Process.
type Page[T Record] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalPages int
	TotalCount int
}

// Process filters, sorts and paginates items according to q. The input slice
// is never modified. A nil slice is treated as an empty collection, and a page
// past the end yields no items rather than an error.
func Process[T Record](items []T, q Query, f Fields) (Page[T], error) {
	if err := q.Validate(); err != nil {
		return Page[T]{}, err
	}

	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if !matchesSearch(item, q.Search, f) {
			continue
		}
		if !matchesCategory(item, q.Category, f.Category) {
			continue
		}
		filtered = append(filtered, item)
	}

	sortField := q.SortField
	if sortField == "" {
		sortField = f.DefaultSort
	}
	if sortField != "" {
		slices.SortStableFunc(filtered, comparator[T](sortField, q.SortOrder))
	}

	total := len(filtered)
	totalPages := (total + q.PageSize - 1) / q.PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := Page[T]{
		Items:      []T{},
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
		TotalCount: total,
	}
	if q.Page > totalPages {
		return page, nil
	}
	start := (q.Page - 1) * q.PageSize
	end := min(start+q.PageSize, total)
	if start < end {
		page.Items = filtered[start:end]
	}
	return page, nil
}

func matchesSearch(r Record, search string, f Fields) bool {
	if search == "" {
		return true
	}
	folded := strings.ToLower(search)
	for _, name := range f.Searchable {
		if v, ok := r.Field(name); ok && strings.Contains(strings.ToLower(String(v)), folded) {
			return true
		}
	}
	for _, name := range f.Exact {
		if v, ok := r.Field(name); ok && strings.Contains(String(v), search) {
			return true
		}
	}
	return false
}

func matchesCategory(r Record, category, field string) bool {
	if category == "" || field == "" {
		return true
	}
	v, ok := r.Field(field)
	return ok && String(v) == category
}

// comparator treats a record without the sort field as equal to anything it
// is compared with, so missing data never aborts the sort.
func comparator[T Record](field string, order SortOrder) func(a, b T) int {
	return func(a, b T) int {
		av, aok := a.Field(field)
		bv, bok := b.Field(field)
		if !aok || !bok {
			return 0
		}
		c := strings.Compare(String(av), String(bv))
		if order == Desc {
			return -c
		}
		return c
	}
}
