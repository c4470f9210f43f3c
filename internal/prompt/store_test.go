package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
)

func newStoreDir(t *testing.T, files map[string]string) *Store {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	return NewStore(root)
}

func TestGeneration_LoadsFile(t *testing.T) {
	s := newStoreDir(t, map[string]string{
		"children_generation/generate_thesis.txt": "Propose a thesis for {parent_summary}.",
	})
	got, err := s.Generation(domain.TypeThesis)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if !strings.Contains(got, "{parent_summary}") {
		t.Fatalf("unexpected template: %q", got)
	}
}

func TestGeneration_MissingIsError(t *testing.T) {
	s := newStoreDir(t, nil)
	_, err := s.Generation(domain.TypeAntithesis)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestExplanation_FallsBackToGeneric(t *testing.T) {
	s := newStoreDir(t, nil)
	got, err := s.Explanation(domain.TypeSynthesis)
	if err != nil {
		t.Fatalf("Explanation fallback: %v", err)
	}
	if !strings.Contains(got, "{{summary}}") {
		t.Fatalf("generic template missing placeholders: %q", got)
	}
}

func TestRating_PerTypeBeatsGeneric(t *testing.T) {
	s := newStoreDir(t, map[string]string{
		"rating/rate_reason.txt": "Rate this supporting reason: {{summary}}",
	})
	got, err := s.Rating(domain.TypeReason)
	if err != nil {
		t.Fatalf("Rating: %v", err)
	}
	if !strings.HasPrefix(got, "Rate this supporting reason") {
		t.Fatalf("per-type template not used: %q", got)
	}
	// Unlisted type falls back.
	generic, err := s.Rating(domain.TypeThesis)
	if err != nil || !strings.Contains(generic, "0 to 100") {
		t.Fatalf("generic rating fallback broken: %q err=%v", generic, err)
	}
}

func TestImagePrompt_MissingIsError(t *testing.T) {
	s := newStoreDir(t, nil)
	if _, err := s.ImagePrompt(); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestStore_CachesReads(t *testing.T) {
	s := newStoreDir(t, map[string]string{
		"children_generation/generate_reason.txt": "v1",
	})
	if got, _ := s.Generation(domain.TypeReason); got != "v1" {
		t.Fatalf("first read: %q", got)
	}
	// Overwrite on disk; cached copy must win.
	path := filepath.Join(s.root, "children_generation", "generate_reason.txt")
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := s.Generation(domain.TypeReason); got != "v1" {
		t.Fatalf("cache bypassed: %q", got)
	}
}

func TestFill_DoubleBrace(t *testing.T) {
	got := Fill("A: {{summary}} / P: {{parent_summary}}", map[string]string{
		"summary": "Free will",
	})
	if got != "A: Free will / P: "+NotAvailable {
		t.Fatalf("Fill = %q", got)
	}
}

func TestFillSingle_AndEmptyValues(t *testing.T) {
	got := FillSingle("Parent: {parent_summary}; Input: {user_input}", map[string]string{
		"parent_summary": "Determinism",
		"user_input":     "",
	})
	if got != "Parent: Determinism; Input: "+NotAvailable {
		t.Fatalf("FillSingle = %q", got)
	}
}

func TestFill_UnterminatedPlaceholderLeftAlone(t *testing.T) {
	in := "dangling {{summary"
	if got := Fill(in, map[string]string{"summary": "x"}); got != in {
		t.Fatalf("Fill = %q, want input unchanged", got)
	}
}
