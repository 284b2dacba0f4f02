// SPDX-License-Identifier: MIT
package github

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockServer is a configurable in-memory GitHub Issues API for testing.
type MockServer struct {
	*httptest.Server
	mu        sync.RWMutex
	repo      string
	issues    map[int]*Issue
	comments  map[int][]Comment
	nextIssue int
	nextCmnt  int
	failures  int    // consecutive 500s before success
	wantToken string // when set, writes require this bearer token
}

var (
	issueRe    = regexp.MustCompile(`^/repos/([^/]+/[^/]+)/issues/(\d+)$`)
	commentsRe = regexp.MustCompile(`^/repos/([^/]+/[^/]+)/issues/(\d+)/comments$`)
)

// NewMockServer starts a mock for the given "owner/name" repository.
func NewMockServer(repo string) *MockServer {
	mock := &MockServer{
		repo:      repo,
		issues:    make(map[int]*Issue),
		comments:  make(map[int][]Comment),
		nextIssue: 1,
		nextCmnt:  1,
	}
	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// AddIssue seeds an issue and returns its number.
func (m *MockServer) AddIssue(issue Issue) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if issue.Number == 0 {
		issue.Number = m.nextIssue
	}
	if issue.Number >= m.nextIssue {
		m.nextIssue = issue.Number + 1
	}
	if issue.State == "" {
		issue.State = "open"
	}
	m.issues[issue.Number] = &issue
	return issue.Number
}

// AddComment seeds a comment on an issue and bumps its comment count.
func (m *MockServer) AddComment(number int, comment Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if comment.ID == 0 {
		comment.ID = int64(m.nextCmnt)
	}
	m.nextCmnt++
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	m.comments[number] = append(m.comments[number], comment)
	if issue, ok := m.issues[number]; ok {
		issue.Comments = len(m.comments[number])
	}
}

// FailNext makes the next n requests return 500.
func (m *MockServer) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// RequireToken makes write requests demand the given bearer token.
func (m *MockServer) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wantToken = token
}

// Issue returns the stored issue, for assertions after writes.
func (m *MockServer) Issue(number int) *Issue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.issues[number]
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	if m.failures > 0 {
		m.failures--
		m.mu.Unlock()
		http.Error(w, `{"message":"upstream exploded"}`, http.StatusInternalServerError)
		return
	}
	m.mu.Unlock()

	switch {
	case r.URL.Path == "/repos/"+m.repo:
		writeJSON(w, http.StatusOK, map[string]string{"full_name": m.repo})
	case r.URL.Path == "/repos/"+m.repo+"/issues" && r.Method == http.MethodGet:
		m.handleList(w, r)
	case r.URL.Path == "/repos/"+m.repo+"/issues" && r.Method == http.MethodPost:
		m.handleCreate(w, r)
	case commentsRe.MatchString(r.URL.Path):
		m.handleComments(w, r)
	case issueRe.MatchString(r.URL.Path):
		m.handleIssue(w, r)
	default:
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}
}

func (m *MockServer) authorized(r *http.Request) bool {
	m.mu.RLock()
	want := m.wantToken
	m.mu.RUnlock()
	if want == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+want
}

func (m *MockServer) handleList(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := r.URL.Query().Get("state")
	if state == "" {
		state = "open"
	}
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		since, _ = time.Parse(time.RFC3339, s)
	}

	out := make([]*Issue, 0, len(m.issues))
	for _, issue := range m.issues {
		if state != "all" && issue.State != state {
			continue
		}
		if !since.IsZero() && issue.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, issue)
	}
	writeJSON(w, http.StatusOK, out)
}

func (m *MockServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
		return
	}
	var in struct {
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Labels []string `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"message":"Bad Request"}`, http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	issue := &Issue{
		Number:    m.nextIssue,
		Title:     in.Title,
		Body:      in.Body,
		State:     "open",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	for _, name := range in.Labels {
		issue.Labels = append(issue.Labels, Label{Name: name})
	}
	m.issues[issue.Number] = issue
	m.nextIssue++
	m.mu.Unlock()

	writeJSON(w, http.StatusCreated, issue)
}

func (m *MockServer) handleIssue(w http.ResponseWriter, r *http.Request) {
	parts := issueRe.FindStringSubmatch(r.URL.Path)
	number, _ := strconv.Atoi(parts[2])

	switch r.Method {
	case http.MethodGet:
		m.mu.RLock()
		issue, ok := m.issues[number]
		m.mu.RUnlock()
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, issue)

	case http.MethodPatch:
		if !m.authorized(r) {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
			return
		}
		var patch struct {
			Labels    *[]string `json:"labels"`
			Assignees *[]string `json:"assignees"`
			State     *string   `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, `{"message":"Bad Request"}`, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		issue, ok := m.issues[number]
		if !ok {
			m.mu.Unlock()
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		if patch.Labels != nil {
			issue.Labels = issue.Labels[:0]
			for _, name := range *patch.Labels {
				issue.Labels = append(issue.Labels, Label{Name: name})
			}
		}
		if patch.Assignees != nil {
			issue.Assignees = issue.Assignees[:0]
			for _, login := range *patch.Assignees {
				issue.Assignees = append(issue.Assignees, User{Login: login})
			}
		}
		if patch.State != nil {
			issue.State = *patch.State
		}
		issue.UpdatedAt = time.Now().UTC()
		m.mu.Unlock()

		writeJSON(w, http.StatusOK, issue)

	default:
		http.Error(w, `{"message":"Method Not Allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (m *MockServer) handleComments(w http.ResponseWriter, r *http.Request) {
	parts := commentsRe.FindStringSubmatch(r.URL.Path)
	number, _ := strconv.Atoi(parts[2])

	switch r.Method {
	case http.MethodGet:
		m.mu.RLock()
		all := m.comments[number]
		m.mu.RUnlock()

		perPage := 30
		if pp := r.URL.Query().Get("per_page"); pp != "" {
			perPage, _ = strconv.Atoi(pp)
		}
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		start := (page - 1) * perPage
		if start >= len(all) {
			writeJSON(w, http.StatusOK, []Comment{})
			return
		}
		end := start + perPage
		if end > len(all) {
			end = len(all)
		}
		writeJSON(w, http.StatusOK, all[start:end])

	case http.MethodPost:
		if !m.authorized(r) {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
			return
		}
		var in struct {
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Body) == "" {
			http.Error(w, `{"message":"Bad Request"}`, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		comment := Comment{
			ID:        int64(m.nextCmnt),
			Body:      in.Body,
			CreatedAt: time.Now().UTC(),
		}
		m.nextCmnt++
		m.comments[number] = append(m.comments[number], comment)
		if issue, ok := m.issues[number]; ok {
			issue.Comments = len(m.comments[number])
		}
		m.mu.Unlock()

		writeJSON(w, http.StatusCreated, comment)

	default:
		http.Error(w, `{"message":"Method Not Allowed"}`, http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
