package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
)

func explainGraph(t *testing.T, svc *ExplanationService) {
	t.Helper()
	qid, tid, aid := "q1", "t1", "a1"
	mustCreate(t, svc.DB, domain.Node{ID: qid, NodeType: domain.TypeQuestion, Depth: 0, Summary: "Is knowledge possible?", Content: "{the skeptical challenge}"})
	mustCreate(t, svc.DB, domain.Node{ID: tid, NodeType: domain.TypeThesis, ParentID: &qid, Depth: 1, Summary: "Knowledge is possible", Content: "{we know some things}"})
	mustCreate(t, svc.DB, domain.Node{ID: aid, NodeType: domain.TypeAntithesis, ParentID: &tid, Depth: 2, Summary: "Radical doubt", Content: "{dreams deceive}"})
	mustCreate(t, svc.DB, domain.Node{ID: "s1", NodeType: domain.TypeSynthesis, ParentID: &aid, Depth: 3, Summary: "Fallibilism", Content: "{knowledge without certainty}"})
}

func TestExplain_IncludesParentContext(t *testing.T) {
	db := newServiceDB(t)
	gw := &fakeGateway{reply: "  An explanation.  "}
	svc := &ExplanationService{DB: db, Gateway: gw, Prompts: promptDir(t, nil)}
	explainGraph(t, svc)

	out, err := svc.Explain(context.Background(), "main", "t1")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if out != "An explanation." {
		t.Fatalf("Explain = %q, want trimmed reply", out)
	}
	if !strings.Contains(gw.lastInput, "Knowledge is possible") {
		t.Fatalf("summary missing from prompt: %q", gw.lastInput)
	}
	if !strings.Contains(gw.lastInput, "Is knowledge possible?") {
		t.Fatalf("parent context missing from prompt: %q", gw.lastInput)
	}
}

func TestExplain_QuestionSkipsParentFetch(t *testing.T) {
	db := newServiceDB(t)
	gw := &fakeGateway{reply: "ok"}
	svc := &ExplanationService{DB: db, Gateway: gw, Prompts: promptDir(t, map[string]string{
		"explanation/explain_question.txt": "Explain {{summary}}; context {{parent_summary}}",
	})}
	explainGraph(t, svc)

	if _, err := svc.Explain(context.Background(), "main", "q1"); err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if !strings.Contains(gw.lastInput, "Not available") {
		t.Fatalf("question should have no parent context: %q", gw.lastInput)
	}
}

func TestExplain_SynthesisGetsGrandparent(t *testing.T) {
	db := newServiceDB(t)
	gw := &fakeGateway{reply: "ok"}
	svc := &ExplanationService{DB: db, Gateway: gw, Prompts: promptDir(t, map[string]string{
		"explanation/explain_synthesis.txt":  "Node {{summary}}; parent {{parent_summary}}; thesis {{grandparent_summary}}",
		"explanation/explain_antithesis.txt": "Node {{summary}}; parent {{parent_summary}}; thesis {{grandparent_summary}}",
	})}
	explainGraph(t, svc)

	if _, err := svc.Explain(context.Background(), "main", "s1"); err != nil {
		t.Fatalf("Explain synthesis: %v", err)
	}
	if !strings.Contains(gw.lastInput, "Knowledge is possible") {
		t.Fatalf("grandparent thesis missing for synthesis: %q", gw.lastInput)
	}

	// An antithesis uses the same placeholders but gets no grandparent fill.
	if _, err := svc.Explain(context.Background(), "main", "a1"); err != nil {
		t.Fatalf("Explain antithesis: %v", err)
	}
	if !strings.Contains(gw.lastInput, "thesis Not available") {
		t.Fatalf("non-synthesis should not fetch grandparent: %q", gw.lastInput)
	}
}

func TestExplain_NotFound(t *testing.T) {
	db := newServiceDB(t)
	svc := &ExplanationService{DB: db, Gateway: &fakeGateway{}, Prompts: promptDir(t, nil)}
	if _, err := svc.Explain(context.Background(), "main", "ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestStream_ChunksInOrder(t *testing.T) {
	db := newServiceDB(t)
	gw := &fakeGateway{chunks: []string{"First ", "second ", "third."}}
	svc := &ExplanationService{DB: db, Gateway: gw, Prompts: promptDir(t, nil)}
	explainGraph(t, svc)

	var got []string
	err := svc.Stream(context.Background(), "main", "t1", func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(got, "") != "First second third." {
		t.Fatalf("chunks = %v", got)
	}
}

func TestStream_CancellationStopsDelivery(t *testing.T) {
	db := newServiceDB(t)
	gw := &fakeGateway{chunks: []string{"a", "b", "c", "d"}}
	svc := &ExplanationService{DB: db, Gateway: gw, Prompts: promptDir(t, nil)}
	explainGraph(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err := svc.Stream(ctx, "main", "t1", func(string) error {
		n++
		if n == 2 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n != 2 {
		t.Fatalf("delivered %d chunks after cancellation", n)
	}
}
