package services

import (
	"context"
	"testing"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
)

func TestQuery_LazyBuildAndMatch(t *testing.T) {
	db := newServiceDB(t)
	svc := &SearchService{DB: db}
	mustCreate(t, db, domain.Node{ID: "n1", NodeType: domain.TypeThesis, Summary: "Free will exists", Content: "{we deliberate}"})
	mustCreate(t, db, domain.Node{ID: "n2", NodeType: domain.TypeAntithesis, Summary: "Determinism", Content: "{physics decides}"})

	res, err := svc.Query(context.Background(), "main", "free will", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) == 0 || res[0].NodeID != "n1" {
		t.Fatalf("Query = %v, want n1 first", res)
	}
}

func TestQuery_SearchesFlattenedContent(t *testing.T) {
	db := newServiceDB(t)
	svc := &SearchService{DB: db}
	mustCreate(t, db, domain.Node{ID: "n1", NodeType: domain.TypeReason, Summary: "Short", Content: "{quantum indeterminacy}"})

	res, err := svc.Query(context.Background(), "main", "quantum", 3)
	if err != nil || len(res) != 1 || res[0].NodeID != "n1" {
		t.Fatalf("content not indexed: %v err=%v", res, err)
	}
}

func TestRebuild_PicksUpNewNodes(t *testing.T) {
	db := newServiceDB(t)
	svc := &SearchService{DB: db}
	mustCreate(t, db, domain.Node{ID: "n1", NodeType: domain.TypeThesis, Summary: "Old node"})

	if _, err := svc.Query(context.Background(), "main", "fresh", 3); err != nil {
		t.Fatalf("Query: %v", err)
	}
	mustCreate(t, db, domain.Node{ID: "n2", NodeType: domain.TypeThesis, Summary: "Fresh node"})

	// Stale until rebuilt.
	if res, _ := svc.Query(context.Background(), "main", "fresh", 3); len(res) != 0 {
		t.Fatalf("index rebuilt unexpectedly: %v", res)
	}
	if err := svc.Rebuild(context.Background(), "main"); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	res, _ := svc.Query(context.Background(), "main", "fresh", 3)
	if len(res) != 1 || res[0].NodeID != "n2" {
		t.Fatalf("rebuild missed new node: %v", res)
	}
}
