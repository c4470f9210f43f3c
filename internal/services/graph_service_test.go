package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
)

func TestGraphs_SortedNames(t *testing.T) {
	svc := &GraphService{Roots: map[string]string{"zeno": "", "main": "r1", "ethics": ""}}
	got := svc.Graphs()
	want := []string{"ethics", "main", "zeno"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Graphs() = %v, want %v", got, want)
		}
	}
}

func TestInit_ConfiguredRoot(t *testing.T) {
	db := newServiceDB(t)
	svc := &GraphService{DB: db, Roots: map[string]string{"main": "root-1"}}
	mustCreate(t, db, domain.Node{ID: "root-1", NodeType: domain.TypeQuestion, Depth: 0, Summary: "Q"})

	root, err := svc.Init(context.Background(), "main")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if root.ID != "root-1" {
		t.Fatalf("root = %s", root.ID)
	}
}

func TestInit_FallsBackToRootQuery(t *testing.T) {
	db := newServiceDB(t)
	svc := &GraphService{DB: db, Roots: map[string]string{"main": ""}}
	mustCreate(t, db, domain.Node{ID: "q", NodeType: domain.TypeQuestion, Depth: 0})

	root, err := svc.Init(context.Background(), "main")
	if err != nil || root.ID != "q" {
		t.Fatalf("Init fallback = (%v, %v)", root, err)
	}
}

func TestInit_UnknownGraphAndMissingRoot(t *testing.T) {
	db := newServiceDB(t)
	svc := &GraphService{DB: db, Roots: map[string]string{"main": "root-1"}}

	if _, err := svc.Init(context.Background(), "nope"); !errors.Is(err, ErrGraphUnknown) {
		t.Fatalf("expected ErrGraphUnknown, got %v", err)
	}
	if _, err := svc.Init(context.Background(), "main"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestInit_HonorsDeadline(t *testing.T) {
	db := newServiceDB(t)
	svc := &GraphService{DB: db, Roots: map[string]string{"main": "root-1"}, InitTimeout: time.Nanosecond}
	mustCreate(t, db, domain.Node{ID: "root-1", NodeType: domain.TypeQuestion, Depth: 0})

	// With a nanosecond budget the context expires before the query runs.
	time.Sleep(time.Millisecond)
	if _, err := svc.Init(context.Background(), "main"); err == nil {
		t.Fatal("expected deadline failure")
	}
}

func TestChildren_RequiresParent(t *testing.T) {
	db := newServiceDB(t)
	svc := &GraphService{DB: db, Roots: map[string]string{"main": ""}}
	if _, err := svc.Children(context.Background(), "main", "ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestImport_ForcesCollectionAndTerminal(t *testing.T) {
	db := newServiceDB(t)
	svc := &GraphService{DB: db, Roots: map[string]string{"main": ""}}

	nodes := []domain.Node{
		{NodeType: domain.TypeQuestion, Depth: 0, Summary: "Q", Collection: "spoofed"},
		{NodeType: domain.TypeReason, Depth: 2, Summary: "R", Terminal: false, Content: "plain prose reason"},
		{NodeType: domain.TypeThesis, Depth: 1, Summary: "T", Content: "{first} stray text {second}"},
	}
	count, err := svc.Import(context.Background(), "main", nodes)
	if err != nil || count != 3 {
		t.Fatalf("Import = (%d, %v)", count, err)
	}

	all, err := repo.AllNodes(context.Background(), db, "main")
	if err != nil || len(all) != 3 {
		t.Fatalf("imported rows = %d err=%v", len(all), err)
	}
	for _, n := range all {
		if n.Collection != "main" {
			t.Fatalf("collection not forced: %+v", n)
		}
		if n.NodeType == domain.TypeReason && !n.Terminal {
			t.Fatalf("terminal flag not derived: %+v", n)
		}
		// Content lands in the canonical brace-delimited form.
		switch n.NodeType {
		case domain.TypeReason:
			if n.Content != "{plain prose reason}" {
				t.Fatalf("prose content not canonicalized: %q", n.Content)
			}
		case domain.TypeThesis:
			if n.Content != "{first},{second}" {
				t.Fatalf("braced content not canonicalized: %q", n.Content)
			}
		}
	}
}

func TestImport_RejectsUnknownTypes(t *testing.T) {
	db := newServiceDB(t)
	svc := &GraphService{DB: db}
	_, err := svc.Import(context.Background(), "main", []domain.Node{{NodeType: "hypothesis"}})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
