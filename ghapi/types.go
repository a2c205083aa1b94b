package ghapi

import "time"

// Repo identifies a GitHub repository.
type Repo struct {
	Host  string `json:"host"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// Issue is an open issue.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	Labels    []string  `json:"labels"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IssuesResponse is one page of issues.
type IssuesResponse struct {
	Total   int     `json:"total"`
	HasMore bool    `json:"hasMore"`
	Items   []Issue `json:"items"`
}

// PullRequest is an open pull request.
type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Head      string    `json:"head"` // source branch
	Base      string    `json:"base"` // target branch
	Author    string    `json:"author"`
	Draft     bool      `json:"draft"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PullRequestsResponse is one page of pull requests.
type PullRequestsResponse struct {
	Total   int           `json:"total"`
	HasMore bool          `json:"hasMore"`
	Items   []PullRequest `json:"items"`
}

// PullRequestFileDiff is the diff of one file in a pull request.
type PullRequestFileDiff struct {
	Path   string `json:"path"`
	Status string `json:"status"` // added, modified, deleted or renamed
	Diff   string `json:"diff"`
}

// PullRequestDiff is a pull request's diff split per file.
type PullRequestDiff struct {
	Number int                   `json:"number"`
	Files  []PullRequestFileDiff `json:"files"`
}

// PullRequestComment is a review comment. Path and Line are set for comments
// attached to a diff line.
type PullRequestComment struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Path      string    `json:"path,omitempty"`
	Line      int       `json:"line,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}
