// SPDX-License-Identifier: MIT

// Package docs indexes a directory of Markdown files and answers keyword
// searches over it. The index is rebuilt lazily after a file change; a
// fsnotify watcher marks it dirty.
package docs

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/quellwerk/supportd/internal/log"
)

const (
	snippetLimit    = 600 // runes per snippet
	perFileCap      = 3   // max snippets per file in one search
	minTokenLength  = 2
	defaultMaxFiles = 500
)

// Document is one indexed Markdown file.
type Document struct {
	Path     string // relative to the docs root
	Title    string // first heading, or the file name
	Size     int64
	sections []section
}

// section is one searchable paragraph with its heading context.
type section struct {
	heading string
	text    string
	tokens  map[string]int
	length  int
}

// Hit is one search result.
type Hit struct {
	Path    string  `json:"path"`
	Heading string  `json:"heading,omitempty"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index holds the parsed documentation corpus.
type Index struct {
	mu     sync.RWMutex
	root   string
	docs   []Document
	df     map[string]int // token -> number of sections containing it
	nSecs  int
	dirty  bool
	loaded bool
	logger zerolog.Logger
}

// NewIndex creates an index rooted at dir. The directory may be empty or
// missing; searches then return nothing.
func NewIndex(dir string) *Index {
	return &Index{
		root:   dir,
		dirty:  true,
		logger: log.WithComponent("docs"),
	}
}

// Root returns the docs directory.
func (ix *Index) Root() string { return ix.root }

// Invalidate marks the index for rebuild on next access.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.dirty = true
	ix.mu.Unlock()
}

// Documents returns the indexed files sorted by path.
func (ix *Index) Documents() ([]Document, error) {
	if err := ix.ensure(); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Document, len(ix.docs))
	copy(out, ix.docs)
	return out, nil
}

// Search returns the best-scoring snippets for the query, at most limit in
// total and at most three per file.
func (ix *Index) Search(query string, limit int) ([]Hit, error) {
	if err := ix.ensure(); err != nil {
		return nil, err
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var hits []Hit
	for _, doc := range ix.docs {
		picked := 0
		scored := make([]Hit, 0, len(doc.sections))
		for _, sec := range doc.sections {
			score := ix.score(terms, sec)
			if score <= 0 {
				continue
			}
			scored = append(scored, Hit{
				Path:    doc.Path,
				Heading: sec.heading,
				Snippet: snippet(sec.text),
				Score:   score,
			})
		}
		sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
		for _, hit := range scored {
			if picked >= perFileCap {
				break
			}
			hits = append(hits, hit)
			picked++
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// score is a BM25-flavoured term match over one section.
func (ix *Index) score(terms map[string]int, sec section) float64 {
	const k1, b = 1.2, 0.75
	avgLen := 1.0
	if ix.nSecs > 0 {
		total := 0
		for _, doc := range ix.docs {
			for _, s := range doc.sections {
				total += s.length
			}
		}
		avgLen = float64(total) / float64(ix.nSecs)
	}

	var score float64
	for term := range terms {
		tf := float64(sec.tokens[term])
		if tf == 0 {
			continue
		}
		df := float64(ix.df[term])
		idf := math.Log(1 + (float64(ix.nSecs)-df+0.5)/(df+0.5))
		norm := tf * (k1 + 1) / (tf + k1*(1-b+b*float64(sec.length)/avgLen))
		score += idf * norm
	}
	return score
}

// ensure rebuilds the index when dirty.
func (ix *Index) ensure() error {
	ix.mu.RLock()
	clean := ix.loaded && !ix.dirty
	ix.mu.RUnlock()
	if clean {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.loaded && !ix.dirty {
		return nil
	}

	docs, err := loadDir(ix.root)
	if err != nil {
		return err
	}

	ix.docs = docs
	ix.df = make(map[string]int)
	ix.nSecs = 0
	for _, doc := range docs {
		for _, sec := range doc.sections {
			ix.nSecs++
			for token := range sec.tokens {
				ix.df[token]++
			}
		}
	}
	ix.dirty = false
	ix.loaded = true

	ix.logger.Debug().
		Int("files", len(docs)).
		Int("sections", ix.nSecs).
		Msg("docs index rebuilt")
	return nil
}

func loadDir(root string) ([]Document, error) {
	if root == "" {
		return nil, nil
	}
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docs: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docs: %s is not a directory", root)
	}

	var docs []Document
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !isDocFile(d.Name()) {
			return nil
		}
		if len(docs) >= defaultMaxFiles {
			return filepath.SkipAll
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("docs: read %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = d.Name()
		}
		doc := parseDocument(rel, string(raw))
		fi, err := d.Info()
		if err == nil {
			doc.Size = fi.Size()
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// isDocFile reports whether the name has one of the indexed extensions.
func isDocFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".rst", ".txt":
		return true
	}
	return false
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// parseDocument splits Markdown into paragraph sections, carrying the last
// seen heading as context.
func parseDocument(relPath, content string) Document {
	base := filepath.Base(relPath)
	defaultTitle := strings.TrimSuffix(base, filepath.Ext(base))
	doc := Document{Path: relPath, Title: defaultTitle}

	heading := ""
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		text := strings.Join(para, "\n")
		para = para[:0]
		tokens := tokenize(text)
		if len(tokens) == 0 {
			return
		}
		length := 0
		for _, n := range tokens {
			length += n
		}
		doc.sections = append(doc.sections, section{
			heading: heading,
			text:    text,
			tokens:  tokens,
			length:  length,
		})
	}

	for _, line := range strings.Split(content, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			heading = strings.TrimSpace(m[2])
			if doc.Title == defaultTitle {
				doc.Title = heading
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	flush()
	return doc
}

func tokenize(text string) map[string]int {
	tokens := make(map[string]int)
	var sb strings.Builder
	emit := func() {
		if sb.Len() >= minTokenLength {
			tokens[sb.String()]++
		}
		sb.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			sb.WriteRune(r)
		} else {
			emit()
		}
	}
	emit()
	return tokens
}

// snippet truncates section text to the snippet limit on a rune boundary.
func snippet(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= snippetLimit {
		return string(runes)
	}
	return string(runes[:snippetLimit]) + "…"
}
