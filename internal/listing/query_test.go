package listing

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseQueryDefaults(t *testing.T) {
	q, err := ParseQuery(url.Values{}, Defaults{})
	require.NoError(t, err)
	require.Equal(t, Query{Page: 1, PageSize: DefaultPageSize}, q)
}

func TestParseQueryConsoleAliases(t *testing.T) {
	values := url.Values{
		"search":     {"  ann "},
		"sortField":  {"name"},
		"sortOrder":  {"DESC"},
		"pageNumber": {"3"},
		"pageSize":   {"10"},
		"type":       {"Books"},
	}
	q, err := ParseQuery(values, Defaults{PageSize: 5, MaxPageSize: 50})
	require.NoError(t, err)
	require.Equal(t, "ann", q.Search)
	require.Equal(t, "name", q.SortField)
	require.Equal(t, Desc, q.SortOrder)
	require.Equal(t, 3, q.Page)
	require.Equal(t, 10, q.PageSize)
	require.Equal(t, "Books", q.Category)
}

func TestParseQueryCombinedSort(t *testing.T) {
	q, err := ParseQuery(url.Values{"sort": {"price:desc"}}, Defaults{})
	require.NoError(t, err)
	require.Equal(t, "price", q.SortField)
	require.Equal(t, Desc, q.SortOrder)
}

func TestParseQueryClampsPageSize(t *testing.T) {
	q, err := ParseQuery(url.Values{"limit": {"500"}}, Defaults{MaxPageSize: 100})
	require.NoError(t, err)
	require.Equal(t, 100, q.PageSize)
}

func TestParseQueryRejectsMalformed(t *testing.T) {
	cases := map[string]url.Values{
		"page zero":      {"page": {"0"}},
		"page text":      {"page": {"two"}},
		"limit zero":     {"limit": {"0"}},
		"limit negative": {"pageSize": {"-1"}},
		"bad order":      {"order": {"up"}},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuery(values, Defaults{})
			require.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestStringRendersValues(t *testing.T) {
	require.Equal(t, "12.5", String(12.5))
	require.Equal(t, "100", String(float64(100)))
	require.Equal(t, "42", String(42))
	require.Equal(t, "true", String(true))
	require.Equal(t, "", String(nil))
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-03-01T10:00:00Z", String(ts))
}
