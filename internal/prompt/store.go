// Package prompt loads and fills the text templates sent to the language
// model gateway. Templates live on disk under a root directory, one file per
// category and node type:
//
//	children_generation/generate_<type>.txt
//	explanation/explain_<type>.txt
//	rating/rate_<type>.txt
//	image_generation/imagePrompt.txt
//
// Generation templates are mandatory: a missing file is an error, because a
// wrong generic prompt would produce children of the wrong dialectical shape.
// Explanation and rating templates degrade to a built-in generic template so
// read-side features keep working when a per-type file is absent.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
)

// ErrTemplateNotFound indicates a required template file is missing.
var ErrTemplateNotFound = errors.New("template not found")

// NotAvailable substitutes for any placeholder whose source data is absent
// (missing parent, unreachable grandparent, empty user input).
const NotAvailable = "Not available"

// genericExplanation is the fallback explanation template used when no
// per-type file exists.
const genericExplanation = "Explain the following philosophical position in clear, accessible language.\n\n" +
	"Summary: {{summary}}\nContent: {{content}}\n\nContext: {{parent_summary}} — {{parent_content}}\n"

// genericRating is the fallback rating template used when no per-type file
// exists. The reply must contain an integer between 0 and 100.
const genericRating = "Rate the quality of the following philosophical argument on a scale from 0 to 100.\n" +
	"Reply with a single integer.\n\n" +
	"Summary: {{summary}}\nContent: {{content}}\n\nIn response to: {{parent_summary}} — {{parent_content}}\n"

// genericBeliefs is the fallback digest template. The reply should name the
// theses the recent activity supports.
const genericBeliefs = "The debate asks: {{question}}\n\n" +
	"Recent contributions:\n{{activity}}\n\n" +
	"Candidate positions:\n{{theses}}\n\n" +
	"Based on the contributions above, which of the candidate positions does this house believe? " +
	"Answer by quoting the position summaries, strongest first.\n"

// Store reads templates from a root directory and memoizes them. Files are
// read once; the store never watches for changes.
type Store struct {
	root string

	mu    sync.RWMutex
	cache map[string]string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir, cache: make(map[string]string)}
}

// load reads a template file relative to the root, caching the result.
// Returns ErrTemplateNotFound when the file does not exist.
func (s *Store) load(rel string) (string, error) {
	s.mu.RLock()
	if t, ok := s.cache[rel]; ok {
		s.mu.RUnlock()
		return t, nil
	}
	s.mu.RUnlock()

	b, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, rel)
		}
		return "", err
	}
	t := string(b)

	s.mu.Lock()
	s.cache[rel] = t
	s.mu.Unlock()
	return t, nil
}

// Generation returns the child-generation template for childType. There is no
// fallback: a missing file is ErrTemplateNotFound.
func (s *Store) Generation(childType domain.NodeType) (string, error) {
	return s.load("children_generation/generate_" + string(childType) + ".txt")
}

// Explanation returns the explanation template for t, falling back to the
// built-in generic template when no per-type file exists.
func (s *Store) Explanation(t domain.NodeType) (string, error) {
	tmpl, err := s.load("explanation/explain_" + string(t) + ".txt")
	if errors.Is(err, ErrTemplateNotFound) {
		return genericExplanation, nil
	}
	return tmpl, err
}

// Rating returns the rating template for t, falling back to the built-in
// generic template when no per-type file exists.
func (s *Store) Rating(t domain.NodeType) (string, error) {
	tmpl, err := s.load("rating/rate_" + string(t) + ".txt")
	if errors.Is(err, ErrTemplateNotFound) {
		return genericRating, nil
	}
	return tmpl, err
}

// ImagePrompt returns the image-generation template. Like generation
// templates it has no fallback.
func (s *Store) ImagePrompt() (string, error) {
	return s.load("image_generation/imagePrompt.txt")
}

// Beliefs returns the belief-digest template, falling back to the built-in
// generic template when no file exists.
func (s *Store) Beliefs() (string, error) {
	tmpl, err := s.load("beliefs/thisHouseBelieves.txt")
	if errors.Is(err, ErrTemplateNotFound) {
		return genericBeliefs, nil
	}
	return tmpl, err
}

// Fill replaces double-brace placeholders ({{key}}) in tmpl with the given
// values. Placeholders without a value are replaced with NotAvailable rather
// than left dangling in the prompt.
func Fill(tmpl string, vars map[string]string) string {
	return fill(tmpl, vars, "{{", "}}")
}

// FillSingle replaces single-brace placeholders ({key}). Used by generation
// templates, whose output format itself contains no braces.
func FillSingle(tmpl string, vars map[string]string) string {
	return fill(tmpl, vars, "{", "}")
}

func fill(tmpl string, vars map[string]string, open, close string) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	rest := tmpl
	for {
		i := strings.Index(rest, open)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		j := strings.Index(rest[i+len(open):], close)
		if j < 0 {
			b.WriteString(rest)
			return b.String()
		}
		key := rest[i+len(open) : i+len(open)+j]
		b.WriteString(rest[:i])
		if v, ok := vars[strings.TrimSpace(key)]; ok && v != "" {
			b.WriteString(v)
		} else {
			b.WriteString(NotAvailable)
		}
		rest = rest[i+len(open)+j+len(close):]
	}
}
