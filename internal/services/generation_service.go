// Package services – GenerationService
//
// This file implements the two-phase child generation pipeline. The model's
// output is never written directly: Preview produces an unpersisted candidate
// for the user to inspect, and only an explicit Commit stores it. A failed
// parse or failed model call therefore leaves no trace.
//
// Each preview runs through a small state machine:
//
//	Idle -> PromptFilled -> AwaitingModel -> Previewed -> Committed | Rejected
//
// with any error short-circuiting to Failed. The transition check (may this
// parent type have this child type?) happens first, before any template read
// or network call.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
)

// AttemptState labels the stage a generation attempt reached.
type AttemptState string

const (
	StateIdle          AttemptState = "idle"
	StatePromptFilled  AttemptState = "prompt_filled"
	StateAwaitingModel AttemptState = "awaiting_model"
	StatePreviewed     AttemptState = "previewed"
	StateCommitted     AttemptState = "committed"
	StateRejected      AttemptState = "rejected"
	StateFailed        AttemptState = "failed"
)

// Candidate is a generated child that has not been persisted. It carries
// everything Commit needs; ParentID is advisory only, Commit always forces
// it to the parent it is given.
type Candidate struct {
	Summary       string          `json:"summary"`
	Content       string          `json:"content"`
	NodeType      domain.NodeType `json:"node_type"`
	ParentID      string          `json:"parent_id"`
	Depth         int             `json:"depth"`
	Terminal      bool            `json:"terminal"`
	UserGenerated bool            `json:"user_generated"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Attempt reports the outcome of a Preview call: the state reached and, when
// Previewed, the candidate.
type Attempt struct {
	State     AttemptState `json:"state"`
	Candidate *Candidate   `json:"candidate,omitempty"`
}

// blockRE matches exactly one [START]summary[BREAK]content[END] block.
var blockRE = regexp.MustCompile(`(?s)\[START\](.*?)\[BREAK\](.*?)\[END\]`)

// GenerationService implements the child-generation use-cases.
type GenerationService struct {
	DB      *gorm.DB
	Gateway llm.Gateway
	Prompts *prompt.Store

	// Temperature for generation calls. Zero means the gateway default.
	Temperature float32
}

// Preview generates a candidate child of parentID with the given type.
//
// Order of operations:
//  1. load the parent (ErrNodeNotFound),
//  2. validate the type transition (ErrInvalidTransition, before any
//     template read or model call),
//  3. load the generation template (prompt.ErrTemplateNotFound; generation
//     has no fallback template),
//  4. fill placeholders, including grandparent context when the parent has a
//     parent (a failed grandparent fetch degrades to "Not available"),
//  5. call the model,
//  6. parse exactly one [START]...[BREAK]...[END] block (ErrParseError).
//
// Nothing is persisted; the parent is untouched.
func (s *GenerationService) Preview(ctx context.Context, collection, parentID string, childType domain.NodeType, userInput string) (*Attempt, error) {
	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "Preview",
		trace.WithAttributes(
			attribute.String("node.parent_id", parentID),
			attribute.String("node.child_type", string(childType)),
		),
	)
	defer span.End()

	fail := func(err error) (*Attempt, error) {
		return &Attempt{State: StateFailed}, err
	}

	parent, err := repo.GetNode(ctx, s.DB, collection, parentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fail(ErrNodeNotFound)
		}
		return fail(err)
	}

	if !domain.AllowsChild(parent.NodeType, childType) {
		return fail(ErrInvalidTransition)
	}

	tmpl, err := s.Prompts.Generation(childType)
	if err != nil {
		return fail(err)
	}

	vars := map[string]string{
		"parent_summary": parent.Summary,
		"parent_content": parent.Content,
		"user_input":     userInput,
	}
	if parent.ParentID != nil {
		if gp, gerr := repo.GetNode(ctx, s.DB, collection, *parent.ParentID); gerr == nil {
			vars["grandparent_summary"] = gp.Summary
			vars["grandparent_content"] = gp.Content
		}
	}
	filled := prompt.FillSingle(tmpl, vars)
	// State: PromptFilled.

	reply, err := s.Gateway.Complete(ctx, filled, s.Temperature)
	if err != nil {
		return fail(err)
	}
	// State: AwaitingModel complete.

	summary, content, err := parseGeneration(reply)
	if err != nil {
		return fail(err)
	}

	return &Attempt{
		State: StatePreviewed,
		Candidate: &Candidate{
			Summary:       summary,
			Content:       content,
			NodeType:      childType,
			ParentID:      parent.ID,
			Depth:         parent.Depth + 1,
			Terminal:      domain.IsTerminal(childType),
			UserGenerated: true,
			CreatedAt:     time.Now().UTC(),
		},
	}, nil
}

// Commit persists a previewed candidate as a child of parentID. The stored
// node always gets a fresh UUID and parent_id equal to the parentID argument,
// regardless of what the candidate carried. The parent node is not modified.
func (s *GenerationService) Commit(ctx context.Context, collection string, c *Candidate, parentID string) (*domain.Node, error) {
	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "Commit",
		trace.WithAttributes(attribute.String("node.parent_id", parentID)),
	)
	defer span.End()

	if c == nil {
		return nil, ErrParseError
	}
	if !domain.ValidType(c.NodeType) {
		return nil, ErrInvalidTransition
	}

	pid := parentID
	n := &domain.Node{
		Collection:    collection,
		NodeType:      c.NodeType,
		ParentID:      &pid,
		Depth:         c.Depth,
		Summary:       strings.TrimSpace(c.Summary),
		Content:       strings.TrimSpace(c.Content),
		Terminal:      domain.IsTerminal(c.NodeType),
		UserGenerated: true,
		CreatedAt:     c.CreatedAt,
	}
	stored, err := repo.CreateNode(ctx, s.DB, n)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Reject discards a candidate. It exists for symmetry with Commit and has no
// side effects; the attempt simply ends in Rejected.
func (s *GenerationService) Reject(c *Candidate) *Attempt {
	return &Attempt{State: StateRejected}
}

// parseGeneration extracts the summary and content from a model reply. The
// reply must contain at least one well-formed block; the first is used.
func parseGeneration(reply string) (summary, content string, err error) {
	m := blockRE.FindStringSubmatch(reply)
	if m == nil {
		return "", "", ErrParseError
	}
	summary = strings.TrimSpace(m[1])
	content = strings.TrimSpace(m[2])
	if summary == "" || content == "" {
		return "", "", ErrParseError
	}
	return summary, content, nil
}
