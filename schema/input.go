package schema

import "strings"

// NewPost is the payload for creating a post. The server assigns the id.
type NewPost struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// Validate checks that every required field is present and non-blank.
func (p NewPost) Validate() error {
	var issues []Issue
	if strings.TrimSpace(p.Title) == "" {
		issues = append(issues, Issue{Field: "title", Message: "required"})
	}
	if strings.TrimSpace(p.Body) == "" {
		issues = append(issues, Issue{Field: "body", Message: "required"})
	}
	if p.UserID <= 0 {
		issues = append(issues, Issue{Field: "userId", Message: "must be a positive integer"})
	}
	return newIssues("post", issues, true)
}

// PostPatch is a partial update. Nil fields are left unchanged and are not
// sent to the server.
type PostPatch struct {
	Title  *string `json:"title,omitempty"`
	Body   *string `json:"body,omitempty"`
	UserID *int    `json:"userId,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Body == nil && p.UserID == nil
}

// Validate requires at least one field, and every set field to be usable.
func (p PostPatch) Validate() error {
	if p.IsEmpty() {
		return newIssues("post", []Issue{{Message: "at least one field must be set"}}, true)
	}
	var issues []Issue
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		issues = append(issues, Issue{Field: "title", Message: "must not be blank"})
	}
	if p.Body != nil && strings.TrimSpace(*p.Body) == "" {
		issues = append(issues, Issue{Field: "body", Message: "must not be blank"})
	}
	if p.UserID != nil && *p.UserID <= 0 {
		issues = append(issues, Issue{Field: "userId", Message: "must be a positive integer"})
	}
	return newIssues("post", issues, true)
}

// Apply returns post with the set fields of p copied over it.
func (p PostPatch) Apply(post Post) Post {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Body != nil {
		post.Body = *p.Body
	}
	if p.UserID != nil {
		post.UserID = *p.UserID
	}
	return post
}
