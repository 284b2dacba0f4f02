// Package github is the boundary to the GitHub Issues API. Tickets in
// supportd are issues of a single configured repository; pull requests are
// filtered out everywhere since GitHub models them as a special kind of issue.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quellwerk/supportd/internal/cache"
	"github.com/quellwerk/supportd/internal/log"
	"github.com/quellwerk/supportd/internal/metrics"
)

const (
	requestTimeout   = 20 * time.Second
	breakerThreshold = 5
	breakerReset     = 30 * time.Second
	maxErrorBody     = 200
)

// Config wires a Client.
type Config struct {
	APIBase  string // defaults to https://api.github.com
	Repo     string // "owner/name"
	Token    string // optional; required for write operations
	Cache    cache.Cache
	CacheTTL time.Duration
}

// Client talks to the GitHub Issues API for one repository.
type Client struct {
	base   string
	repo   string
	token  string
	http   *http.Client
	cb     *CircuitBreaker
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a Client. cfg.Cache may be nil to disable read caching.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = "https://api.github.com"
	}
	return &Client{
		base:   base,
		repo:   cfg.Repo,
		token:  cfg.Token,
		http:   &http.Client{Timeout: requestTimeout},
		cb:     NewCircuitBreaker(breakerThreshold, breakerReset),
		cache:  cfg.Cache,
		ttl:    cfg.CacheTTL,
		logger: log.WithComponent("github"),
	}
}

// Repo returns the configured "owner/name".
func (c *Client) Repo() string { return c.repo }

// HasToken reports whether write operations are possible.
func (c *Client) HasToken() bool { return c.token != "" }

// Issues lists issues matching the filter, with pull requests removed.
func (c *Client) Issues(ctx context.Context, f IssueFilter) ([]Issue, error) {
	q := url.Values{}
	if f.State != "" {
		q.Set("state", f.State)
	}
	if f.Since != nil {
		q.Set("since", f.Since.UTC().Format(time.RFC3339))
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.Direction != "" {
		q.Set("direction", f.Direction)
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}

	var raw []Issue
	if err := c.do(ctx, "issues.list", http.MethodGet, c.issuesPath(), q, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]Issue, 0, len(raw))
	for _, issue := range raw {
		if issue.IsPullRequest() {
			continue
		}
		out = append(out, issue)
	}
	return out, nil
}

// Issue fetches a single issue. Numbers that belong to pull requests yield
// ErrIsPullRequest.
func (c *Client) Issue(ctx context.Context, number int) (*Issue, error) {
	key := cacheKeyIssue(number)
	if c.cache != nil {
		if buf, ok := c.cache.Get(key); ok {
			var cached Issue
			if err := json.Unmarshal(buf, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var issue Issue
	if err := c.do(ctx, "issues.get", http.MethodGet, c.issuePath(number), nil, nil, &issue); err != nil {
		return nil, err
	}
	if issue.IsPullRequest() {
		return nil, &APIError{Sentinel: ErrIsPullRequest, Operation: "issues.get"}
	}

	if c.cache != nil {
		if buf, err := json.Marshal(issue); err == nil {
			c.cache.Set(key, buf, c.ttl)
		}
	}
	return &issue, nil
}

// Comments returns up to perPage comments of an issue, oldest first.
func (c *Client) Comments(ctx context.Context, number, perPage int) ([]Comment, error) {
	q := url.Values{}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	var comments []Comment
	if err := c.do(ctx, "comments.list", http.MethodGet, c.issuePath(number)+"/comments", q, nil, &comments); err != nil {
		return nil, err
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// LastComment returns the newest comment of an issue, or nil when the issue
// has none. It uses the issue's comment count to fetch exactly one page of
// size one instead of paging through everything.
func (c *Client) LastComment(ctx context.Context, number int) (*Comment, error) {
	issue, err := c.Issue(ctx, number)
	if err != nil {
		return nil, err
	}
	if issue.Comments == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("per_page", "1")
	q.Set("page", strconv.Itoa(issue.Comments))

	var comments []Comment
	if err := c.do(ctx, "comments.last", http.MethodGet, c.issuePath(number)+"/comments", q, nil, &comments); err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, nil
	}
	return &comments[0], nil
}

// CreateComment posts a comment on an issue. Requires a token.
func (c *Client) CreateComment(ctx context.Context, number int, body string) (*Comment, error) {
	if !c.HasToken() {
		return nil, &APIError{Sentinel: ErrTokenRequired, Operation: "comments.create"}
	}
	payload := map[string]string{"body": body}
	var comment Comment
	if err := c.do(ctx, "comments.create", http.MethodPost, c.issuePath(number)+"/comments", nil, payload, &comment); err != nil {
		return nil, err
	}
	c.invalidate(number)
	return &comment, nil
}

// UpdateIssue patches issue metadata. Requires a token.
func (c *Client) UpdateIssue(ctx context.Context, number int, patch IssuePatch) (*Issue, error) {
	if !c.HasToken() {
		return nil, &APIError{Sentinel: ErrTokenRequired, Operation: "issues.update"}
	}

	payload := map[string]any{}
	if patch.Labels != nil {
		payload["labels"] = *patch.Labels
	}
	if patch.Assignees != nil {
		payload["assignees"] = *patch.Assignees
	}
	if patch.State != nil {
		payload["state"] = *patch.State
	}

	var issue Issue
	if err := c.do(ctx, "issues.update", http.MethodPatch, c.issuePath(number), nil, payload, &issue); err != nil {
		return nil, err
	}
	c.invalidate(number)
	return &issue, nil
}

// CreateIssue opens a new issue. Requires a token.
func (c *Client) CreateIssue(ctx context.Context, ni NewIssue) (*Issue, error) {
	if !c.HasToken() {
		return nil, &APIError{Sentinel: ErrTokenRequired, Operation: "issues.create"}
	}

	payload := map[string]any{
		"title": ni.Title,
		"body":  ni.Body,
	}
	if len(ni.Labels) > 0 {
		payload["labels"] = ni.Labels
	}

	var issue Issue
	if err := c.do(ctx, "issues.create", http.MethodPost, c.issuesPath(), nil, payload, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Ping verifies the repository is reachable. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	var repo struct {
		FullName string `json:"full_name"`
	}
	return c.do(ctx, "repo.get", http.MethodGet, "/repos/"+c.repo, nil, nil, &repo)
}

func (c *Client) issuesPath() string {
	return "/repos/" + c.repo + "/issues"
}

func (c *Client) issuePath(number int) string {
	return c.issuesPath() + "/" + strconv.Itoa(number)
}

func cacheKeyIssue(number int) string {
	return "issue:" + strconv.Itoa(number)
}

func (c *Client) invalidate(number int) {
	if c.cache != nil {
		c.cache.Delete(cacheKeyIssue(number))
	}
}

// do performs one API request under the circuit breaker, records metrics and
// maps transport/status failures onto the package sentinels.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	var apiErr *APIError

	err = c.cb.Execute(func() error {
		res, err := c.http.Do(req)
		if err != nil {
			sentinel := ErrUnavailable
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				sentinel = ErrTimeout
			}
			apiErr = &APIError{Sentinel: sentinel, Operation: op, Err: err}
			return apiErr
		}
		defer res.Body.Close()

		metrics.RecordGitHubRequest(op, statusClass(res.StatusCode), time.Since(start).Seconds())

		if res.StatusCode >= 400 {
			excerpt, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
			apiErr = &APIError{
				Sentinel:  statusSentinel(res.StatusCode),
				Operation: op,
				Status:    res.StatusCode,
				Body:      strings.TrimSpace(string(excerpt)),
			}
			// 4xx is the caller's problem, not the upstream's; only 5xx
			// counts against the breaker.
			if res.StatusCode >= 500 {
				return apiErr
			}
			return nil
		}

		if out != nil {
			if err := json.NewDecoder(res.Body).Decode(out); err != nil {
				apiErr = &APIError{Sentinel: ErrBadResponse, Operation: op, Status: res.StatusCode, Err: err}
				return apiErr
			}
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			metrics.RecordGitHubRequest(op, "breaker_open", time.Since(start).Seconds())
			return &APIError{Sentinel: ErrUnavailable, Operation: op, Err: ErrCircuitOpen}
		}
		c.logger.Warn().
			Str(log.FieldOperation, op).
			Err(err).
			Msg("github request failed")
		return apiErr
	}
	if apiErr != nil {
		return apiErr
	}
	return nil
}

func statusSentinel(status int) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrForbidden
	case status >= 500:
		return ErrUpstream
	default:
		return ErrBadResponse
	}
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
