package schema

import (
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination selects a window of an already fetched list.
type Pagination struct {
	Page  int
	Limit int
}

// ParsePagination coerces URL query values into a Pagination. Empty values
// fall back to the defaults.
func ParsePagination(page, limit string) (Pagination, error) {
	p := Pagination{Page: DefaultPage, Limit: DefaultLimit}
	var issues []Issue
	if v, ok, issue := coerceInt("page", page); issue != nil {
		issues = append(issues, *issue)
	} else if ok {
		p.Page = v
	}
	if v, ok, issue := coerceInt("limit", limit); issue != nil {
		issues = append(issues, *issue)
	} else if ok {
		p.Limit = v
	}
	if len(issues) == 0 {
		issues = p.issues()
	}
	if err := newIssues("pagination", issues, true); err != nil {
		return Pagination{Page: DefaultPage, Limit: DefaultLimit}, err
	}
	return p, nil
}

func (p Pagination) issues() []Issue {
	var issues []Issue
	if p.Page < 1 {
		issues = append(issues, Issue{Field: "page", Message: "must be at least 1"})
	}
	if p.Limit < 1 {
		issues = append(issues, Issue{Field: "limit", Message: "must be at least 1"})
	}
	if p.Limit > MaxLimit {
		issues = append(issues, Issue{Field: "limit", Message: "must be at most " + strconv.Itoa(MaxLimit)})
	}
	return issues
}

// Offset is the index of the first item on the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageCount is the number of pages needed for total items.
func (p Pagination) PageCount(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Paginate slices items client-side. Pages past the end are empty.
func Paginate[T any](items []T, p Pagination) []T {
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return nil
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}

func coerceInt(name, raw string) (int, bool, *Issue) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &Issue{Field: name, Message: "expected number, got " + strconv.Quote(raw)}
	}
	return v, true, nil
}

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sort names an optional sort key and its direction.
type Sort struct {
	By    string
	Order SortOrder
}

// ParseSort validates a sort order, defaulting to descending.
func ParseSort(by, order string) (Sort, error) {
	s := Sort{By: strings.TrimSpace(by), Order: SortDesc}
	switch SortOrder(strings.ToLower(strings.TrimSpace(order))) {
	case "":
	case SortAsc:
		s.Order = SortAsc
	case SortDesc:
		s.Order = SortDesc
	default:
		return Sort{Order: SortDesc}, InvalidArgument("sort", "sortOrder", "must be one of asc, desc")
	}
	return s, nil
}

// SortPosts returns a copy of posts ordered by id in the given direction.
func SortPosts(posts []Post, order SortOrder) []Post {
	out := make([]Post, len(posts))
	copy(out, posts)
	sort.SliceStable(out, func(i, j int) bool {
		if order == SortAsc {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Search is a free-text filter.
type Search struct {
	Query string
}

// ParseSearch trims the query; an empty query matches everything.
func ParseSearch(q string) Search {
	return Search{Query: strings.TrimSpace(q)}
}

// MatchPost reports whether the post title or body contains the query,
// case-insensitively.
func (s Search) MatchPost(p Post) bool {
	if s.Query == "" {
		return true
	}
	q := strings.ToLower(s.Query)
	return strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Body), q)
}

// FilterPosts keeps the posts matching s.
func (s Search) FilterPosts(posts []Post) []Post {
	if s.Query == "" {
		return posts
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if s.MatchPost(p) {
			out = append(out, p)
		}
	}
	return out
}
