// SPDX-License-Identifier: MIT
package github

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quellwerk/supportd/internal/cache"
)

const testRepo = "acme/helpdesk"

func newTestClient(t *testing.T, mock *MockServer, token string) *Client {
	t.Helper()
	t.Cleanup(mock.Close)
	return New(Config{
		APIBase: mock.URL,
		Repo:    testRepo,
		Token:   token,
	})
}

func TestIssuesFiltersPullRequests(t *testing.T) {
	mock := NewMockServer(testRepo)
	mock.AddIssue(Issue{Title: "db connection refused"})
	mock.AddIssue(Issue{Title: "fix typo", PullRequest: &struct{}{}})
	mock.AddIssue(Issue{Title: "password auth failed"})

	client := newTestClient(t, mock, "")

	issues, err := client.Issues(context.Background(), IssueFilter{State: "open"})
	if err != nil {
		t.Fatalf("Issues() failed: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues after PR filtering, got %d", len(issues))
	}
	for _, issue := range issues {
		if issue.IsPullRequest() {
			t.Errorf("pull request %q leaked through filter", issue.Title)
		}
	}
}

func TestIssueNotFound(t *testing.T) {
	mock := NewMockServer(testRepo)
	client := newTestClient(t, mock, "")

	_, err := client.Issue(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("error is not an *APIError")
	}
	if apiErr.Status != 404 {
		t.Errorf("expected status 404, got %d", apiErr.Status)
	}
}

func TestIssueRejectsPullRequest(t *testing.T) {
	mock := NewMockServer(testRepo)
	n := mock.AddIssue(Issue{Title: "refactor", PullRequest: &struct{}{}})
	client := newTestClient(t, mock, "")

	_, err := client.Issue(context.Background(), n)
	if !errors.Is(err, ErrIsPullRequest) {
		t.Fatalf("expected ErrIsPullRequest, got %v", err)
	}
}

func TestIssueCaching(t *testing.T) {
	mock := NewMockServer(testRepo)
	n := mock.AddIssue(Issue{Title: "cached ticket"})
	t.Cleanup(mock.Close)

	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	client := New(Config{
		APIBase:  mock.URL,
		Repo:     testRepo,
		Cache:    c,
		CacheTTL: time.Minute,
	})

	if _, err := client.Issue(context.Background(), n); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}

	// Served from cache even when the upstream starts failing.
	mock.FailNext(10)
	issue, err := client.Issue(context.Background(), n)
	if err != nil {
		t.Fatalf("cached fetch failed: %v", err)
	}
	if issue.Title != "cached ticket" {
		t.Errorf("unexpected title %q", issue.Title)
	}

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("expected 1 cache hit, got %d", stats.Hits)
	}
}

func TestLastComment(t *testing.T) {
	mock := NewMockServer(testRepo)
	n := mock.AddIssue(Issue{Title: "ticket with thread"})
	mock.AddComment(n, Comment{Body: "first"})
	mock.AddComment(n, Comment{Body: "second"})
	mock.AddComment(n, Comment{Body: "newest"})

	client := newTestClient(t, mock, "")

	comment, err := client.LastComment(context.Background(), n)
	if err != nil {
		t.Fatalf("LastComment() failed: %v", err)
	}
	if comment == nil {
		t.Fatal("expected a comment, got nil")
	}
	if comment.Body != "newest" {
		t.Errorf("expected newest comment, got %q", comment.Body)
	}
}

func TestLastCommentEmpty(t *testing.T) {
	mock := NewMockServer(testRepo)
	n := mock.AddIssue(Issue{Title: "silent ticket"})

	client := newTestClient(t, mock, "")

	comment, err := client.LastComment(context.Background(), n)
	if err != nil {
		t.Fatalf("LastComment() failed: %v", err)
	}
	if comment != nil {
		t.Fatalf("expected nil for issue without comments, got %+v", comment)
	}
}

func TestWritesRequireToken(t *testing.T) {
	mock := NewMockServer(testRepo)
	n := mock.AddIssue(Issue{Title: "ticket"})
	client := newTestClient(t, mock, "")

	if _, err := client.CreateComment(context.Background(), n, "hi"); !errors.Is(err, ErrTokenRequired) {
		t.Errorf("CreateComment without token: expected ErrTokenRequired, got %v", err)
	}
	closed := "closed"
	if _, err := client.UpdateIssue(context.Background(), n, IssuePatch{State: &closed}); !errors.Is(err, ErrTokenRequired) {
		t.Errorf("UpdateIssue without token: expected ErrTokenRequired, got %v", err)
	}
	if _, err := client.CreateIssue(context.Background(), NewIssue{Title: "x"}); !errors.Is(err, ErrTokenRequired) {
		t.Errorf("CreateIssue without token: expected ErrTokenRequired, got %v", err)
	}
}

func TestCreateComment(t *testing.T) {
	mock := NewMockServer(testRepo)
	mock.RequireToken("ghp_test")
	n := mock.AddIssue(Issue{Title: "ticket"})

	client := newTestClient(t, mock, "ghp_test")

	comment, err := client.CreateComment(context.Background(), n, "We are on it.")
	if err != nil {
		t.Fatalf("CreateComment() failed: %v", err)
	}
	if comment.Body != "We are on it." {
		t.Errorf("unexpected body %q", comment.Body)
	}
	if mock.Issue(n).Comments != 1 {
		t.Errorf("comment count not bumped, got %d", mock.Issue(n).Comments)
	}
}

func TestUpdateIssueLabels(t *testing.T) {
	mock := NewMockServer(testRepo)
	n := mock.AddIssue(Issue{
		Title:  "ticket",
		Labels: []Label{{Name: "bug"}, {Name: "priority: low"}},
	})

	client := newTestClient(t, mock, "ghp_test")

	labels := []string{"bug", "priority: high"}
	issue, err := client.UpdateIssue(context.Background(), n, IssuePatch{Labels: &labels})
	if err != nil {
		t.Fatalf("UpdateIssue() failed: %v", err)
	}

	got := issue.LabelNames()
	if len(got) != 2 || got[0] != "bug" || got[1] != "priority: high" {
		t.Errorf("unexpected labels %v", got)
	}
}

func TestUpdateIssueInvalidatesCache(t *testing.T) {
	mock := NewMockServer(testRepo)
	n := mock.AddIssue(Issue{Title: "ticket", Labels: []Label{{Name: "bug"}}})
	t.Cleanup(mock.Close)

	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	client := New(Config{
		APIBase:  mock.URL,
		Repo:     testRepo,
		Token:    "ghp_test",
		Cache:    c,
		CacheTTL: time.Minute,
	})

	if _, err := client.Issue(context.Background(), n); err != nil {
		t.Fatalf("prime fetch failed: %v", err)
	}

	state := "closed"
	if _, err := client.UpdateIssue(context.Background(), n, IssuePatch{State: &state}); err != nil {
		t.Fatalf("UpdateIssue() failed: %v", err)
	}

	issue, err := client.Issue(context.Background(), n)
	if err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if issue.State != "closed" {
		t.Errorf("stale cache entry survived write, state %q", issue.State)
	}
}

func TestCreateIssue(t *testing.T) {
	mock := NewMockServer(testRepo)
	client := newTestClient(t, mock, "ghp_test")

	issue, err := client.CreateIssue(context.Background(), NewIssue{
		Title:  "[subtask] configure pg_hba",
		Body:   "Parent: #7",
		Labels: []string{"subtask"},
	})
	if err != nil {
		t.Fatalf("CreateIssue() failed: %v", err)
	}
	if issue.Number == 0 {
		t.Error("created issue has no number")
	}
	if issue.State != "open" {
		t.Errorf("expected open state, got %q", issue.State)
	}
}

func TestUpstreamFailureMapsToSentinel(t *testing.T) {
	mock := NewMockServer(testRepo)
	n := mock.AddIssue(Issue{Title: "ticket"})
	mock.FailNext(1)

	client := newTestClient(t, mock, "")

	_, err := client.Issue(context.Background(), n)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestForbiddenOnBadToken(t *testing.T) {
	mock := NewMockServer(testRepo)
	mock.RequireToken("ghp_good")
	n := mock.AddIssue(Issue{Title: "ticket"})

	client := newTestClient(t, mock, "ghp_bad")

	_, err := client.CreateComment(context.Background(), n, "hello")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestPing(t *testing.T) {
	mock := NewMockServer(testRepo)
	client := newTestClient(t, mock, "")

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() failed: %v", err)
	}
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	mock := NewMockServer(testRepo)
	number := mock.AddIssue(Issue{Title: "db connection refused"})
	client := newTestClient(t, mock, "")

	for i := 0; i < 10; i++ {
		if _, err := client.Issue(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
			t.Fatalf("lookup %d: expected ErrNotFound, got %v", i, err)
		}
	}

	// Valid lookups still work after a burst of bad issue numbers.
	issue, err := client.Issue(context.Background(), number)
	if err != nil {
		t.Fatalf("Issue() after not-found burst: %v", err)
	}
	if issue.Title != "db connection refused" {
		t.Errorf("Title = %q", issue.Title)
	}

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() after not-found burst: %v", err)
	}
}

func TestUpstreamErrorsStillTripBreaker(t *testing.T) {
	mock := NewMockServer(testRepo)
	number := mock.AddIssue(Issue{Title: "ok"})
	client := newTestClient(t, mock, "")

	mock.FailNext(5)
	for i := 0; i < 5; i++ {
		if _, err := client.Issue(context.Background(), number); !errors.Is(err, ErrUpstream) {
			t.Fatalf("call %d: expected ErrUpstream, got %v", i, err)
		}
	}

	_, err := client.Issue(context.Background(), number)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable while breaker is open, got %v", err)
	}
}
