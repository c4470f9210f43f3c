// Package services – BeliefService
//
// This file implements the "This House Believes" digest: given everything
// users have touched in a graph (rated, illustrated, or generated nodes),
// ask the model which of the graph's theses the community currently leans
// toward, and return the top three. When the model's answer matches fewer
// than three theses, the remainder is filled with the best-rated theses so
// the digest always has substance.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
)

// beliefCount is the number of theses in a digest.
const beliefCount = 3

// BeliefService implements the belief digest use-case.
type BeliefService struct {
	DB      *gorm.DB
	Gateway llm.Gateway
	Prompts *prompt.Store

	// Temperature for digest calls. Zero means the gateway default.
	Temperature float32
}

// Digest computes the current belief digest for a graph.
func (s *BeliefService) Digest(ctx context.Context, graph string) ([]domain.Node, error) {
	root, err := repo.RootNode(ctx, s.DB, graph)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}

	theses, err := repo.NodesByType(ctx, s.DB, graph, domain.TypeThesis)
	if err != nil {
		return nil, err
	}
	if len(theses) == 0 {
		return nil, nil
	}

	touched, err := repo.UserModifiedNodes(ctx, s.DB, graph)
	if err != nil {
		return nil, err
	}

	tmpl, err := s.Prompts.Beliefs()
	if err != nil {
		return nil, err
	}
	filled := prompt.Fill(tmpl, map[string]string{
		"question": root.Summary,
		"activity": describeNodes(touched),
		"theses":   describeNodes(theses),
	})

	reply, err := s.Gateway.Complete(ctx, filled, s.Temperature)
	if err != nil {
		return nil, err
	}

	return pickBeliefs(reply, theses), nil
}

// describeNodes renders nodes as one line each for prompt inclusion.
func describeNodes(nodes []domain.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString("- [")
		b.WriteString(string(n.NodeType))
		b.WriteString("] ")
		b.WriteString(n.Summary)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// pickBeliefs matches the model's answer against thesis summaries, in reply
// order, then tops the list up with the best-rated remaining theses.
func pickBeliefs(reply string, theses []domain.Node) []domain.Node {
	lowReply := strings.ToLower(reply)

	type match struct {
		node domain.Node
		pos  int
	}
	var (
		matched   []match
		remaining []domain.Node
	)
	for _, t := range theses {
		pos := strings.Index(lowReply, strings.ToLower(t.Summary))
		if t.Summary != "" && pos >= 0 {
			matched = append(matched, match{node: t, pos: pos})
		} else {
			remaining = append(remaining, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].pos < matched[j].pos })

	out := make([]domain.Node, 0, beliefCount)
	for _, m := range matched {
		if len(out) == beliefCount {
			break
		}
		out = append(out, m.node)
	}

	if len(out) < beliefCount {
		sort.SliceStable(remaining, func(i, j int) bool {
			return remaining[i].AverageRating > remaining[j].AverageRating
		})
		for _, t := range remaining {
			if len(out) == beliefCount {
				break
			}
			out = append(out, t)
		}
	}
	return out
}
