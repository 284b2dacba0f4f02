package github

import "time"

// User is the author or assignee of an issue or comment.
type User struct {
	Login string `json:"login"`
}

// Label is a repository label attached to an issue.
type Label struct {
	Name string `json:"name"`
}

// Issue is the subset of the GitHub Issues payload the tools consume.
// PullRequest is non-nil when the number actually refers to a PR.
type Issue struct {
	ID          int64      `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	HTMLURL     string     `json:"html_url"`
	User        *User      `json:"user"`
	Assignee    *User      `json:"assignee"`
	Assignees   []User     `json:"assignees"`
	Labels      []Label    `json:"labels"`
	Comments    int        `json:"comments"`
	PullRequest *struct{}  `json:"pull_request,omitempty"`
}

// IsPullRequest reports whether the payload describes a pull request.
// GitHub models PRs as a special kind of issue.
func (i *Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// LabelNames returns the plain label names.
func (i *Issue) LabelNames() []string {
	out := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		out = append(out, l.Name)
	}
	return out
}

// AuthorLogin returns the issue author's login, or "unknown".
func (i *Issue) AuthorLogin() string {
	if i.User == nil || i.User.Login == "" {
		return "unknown"
	}
	return i.User.Login
}

// Comment is a single issue comment.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	User      *User     `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	HTMLURL   string    `json:"html_url"`
}

// AuthorLogin returns the comment author's login, or "unknown".
func (c *Comment) AuthorLogin() string {
	if c.User == nil || c.User.Login == "" {
		return "unknown"
	}
	return c.User.Login
}

// IssueFilter narrows an issue listing.
type IssueFilter struct {
	State     string     // "open", "closed" or "all"
	Since     *time.Time // only issues updated at or after this time
	Sort      string     // "created", "updated", "comments"
	Direction string     // "asc" or "desc"
	PerPage   int
}

// IssuePatch updates issue metadata. Nil fields are left untouched.
type IssuePatch struct {
	Labels    *[]string
	Assignees *[]string
	State     *string
}

// NewIssue describes an issue to create.
type NewIssue struct {
	Title  string
	Body   string
	Labels []string
}
