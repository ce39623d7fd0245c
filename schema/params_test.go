package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	p, err := ParsePagination("", "")
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, Limit: 10}, p)

	p, err = ParsePagination("3", " 25 ")
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 3, Limit: 25}, p)
	assert.Equal(t, 50, p.Offset())

	tests := []struct {
		page, limit string
		field       string
	}{
		{"0", "", "page"},
		{"abc", "", "page"},
		{"", "0", "limit"},
		{"", "101", "limit"},
	}
	for _, tt := range tests {
		_, err := ParsePagination(tt.page, tt.limit)
		verr := validationError(t, err)
		assert.True(t, verr.Has(tt.field), "page=%q limit=%q: %v", tt.page, tt.limit, verr.Issues)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	assert.Equal(t, []int{1, 2, 3}, Paginate(items, Pagination{Page: 1, Limit: 3}))
	assert.Equal(t, []int{7}, Paginate(items, Pagination{Page: 3, Limit: 3}))
	assert.Nil(t, Paginate(items, Pagination{Page: 4, Limit: 3}))
	assert.Equal(t, 3, Pagination{Page: 1, Limit: 3}.PageCount(len(items)))
	assert.Equal(t, 0, Pagination{Page: 1, Limit: 3}.PageCount(0))
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("", "")
	require.NoError(t, err)
	assert.Equal(t, SortDesc, s.Order)

	s, err = ParseSort("id", "ASC")
	require.NoError(t, err)
	assert.Equal(t, Sort{By: "id", Order: SortAsc}, s)

	_, err = ParseSort("id", "sideways")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSortAndSearchPosts(t *testing.T) {
	posts := []Post{
		{ID: 2, Title: "Second", Body: "beta"},
		{ID: 1, Title: "First", Body: "alpha"},
		{ID: 3, Title: "Third", Body: "gamma ALPHA"},
	}
	desc := SortPosts(posts, SortDesc)
	assert.Equal(t, []int{3, 2, 1}, []int{desc[0].ID, desc[1].ID, desc[2].ID})
	assert.Equal(t, 2, posts[0].ID, "input must not be reordered")

	found := ParseSearch("  alpha ").FilterPosts(posts)
	assert.Len(t, found, 2)
	assert.Len(t, ParseSearch("").FilterPosts(posts), 3)
}
