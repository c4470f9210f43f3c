// Package services – ExplanationService
//
// This file implements on-demand node explanations. The prompt is assembled
// from the node, its parent (for every type except questions), and, only for
// syntheses, whose meaning depends on the thesis two levels up, its
// grandparent. Missing ancestors degrade to "Not available" rather than
// failing the explanation.
//
// Streaming honors context cancellation end to end: when the caller stops
// consuming and cancels, the upstream model request is aborted rather than
// left running.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
)

// ExplanationService implements the node explanation use-cases.
type ExplanationService struct {
	DB      *gorm.DB
	Gateway llm.Gateway
	Prompts *prompt.Store

	// Temperature for explanation calls. Zero means the gateway default.
	Temperature float32
}

// Explain returns the full explanation text for a node in one blob.
func (s *ExplanationService) Explain(ctx context.Context, collection, nodeID string) (string, error) {
	p, err := s.buildPrompt(ctx, collection, nodeID)
	if err != nil {
		return "", err
	}
	out, err := s.Gateway.Complete(ctx, p, s.Temperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Stream delivers the explanation incrementally: fn is invoked once per
// content chunk, in arrival order. Cancelling ctx aborts the upstream
// request; fn returning an error does the same and propagates the error.
func (s *ExplanationService) Stream(ctx context.Context, collection, nodeID string, fn func(chunk string) error) error {
	tr := otel.Tracer("services/ExplanationService")
	ctx, span := tr.Start(ctx, "Stream",
		trace.WithAttributes(attribute.String("node.id", nodeID)),
	)
	defer span.End()

	p, err := s.buildPrompt(ctx, collection, nodeID)
	if err != nil {
		return err
	}
	return s.Gateway.Stream(ctx, p, s.Temperature, fn)
}

// buildPrompt loads the per-type template (or the generic fallback) and fills
// it with the node and its ancestry.
func (s *ExplanationService) buildPrompt(ctx context.Context, collection, nodeID string) (string, error) {
	n, err := repo.GetNode(ctx, s.DB, collection, nodeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrNodeNotFound
		}
		return "", err
	}

	tmpl, err := s.Prompts.Explanation(n.NodeType)
	if err != nil {
		return "", err
	}

	vars := map[string]string{
		"summary": n.Summary,
		"content": n.Content,
	}

	var parent *domain.Node
	if n.NodeType != domain.TypeQuestion && n.ParentID != nil {
		if parent, err = repo.GetNode(ctx, s.DB, collection, *n.ParentID); err == nil {
			vars["parent_summary"] = parent.Summary
			vars["parent_content"] = parent.Content
		}
	}

	// Only a synthesis needs the thesis it descends from; everything else
	// reads fine with one level of context.
	if n.NodeType == domain.TypeSynthesis && parent != nil && parent.ParentID != nil {
		if gp, gerr := repo.GetNode(ctx, s.DB, collection, *parent.ParentID); gerr == nil {
			vars["grandparent_summary"] = gp.Summary
			vars["grandparent_content"] = gp.Content
		}
	}

	return prompt.Fill(tmpl, vars), nil
}
