// Package services – SearchService
//
// This file implements full-graph search over node summaries and content.
// The index is immutable once built, so the service rebuilds it on demand
// (at startup and after imports) and swaps it atomically under a lock.
package services

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
	"github.com/inquirycomplex/go-wiki-backend/internal/search"
)

// SearchService maintains a per-graph in-memory index over node text.
type SearchService struct {
	DB *gorm.DB

	mu      sync.RWMutex
	indices map[string]search.Index
}

// Rebuild reindexes a graph from the store. Summary and flattened content
// are indexed together as one document per node.
func (s *SearchService) Rebuild(ctx context.Context, graph string) error {
	nodes, err := repo.AllNodes(ctx, s.DB, graph)
	if err != nil {
		return err
	}
	docs := make([]search.Document, 0, len(nodes))
	for _, n := range nodes {
		docs = append(docs, search.Document{
			ID:   n.ID,
			Text: n.Summary + " " + domain.FlattenContent(n.Content),
		})
	}
	idx := search.NewIndexFromDocuments(docs)

	s.mu.Lock()
	if s.indices == nil {
		s.indices = make(map[string]search.Index)
	}
	s.indices[graph] = idx
	s.mu.Unlock()
	return nil
}

// Query returns the top-k matches for a graph, lazily building the index on
// first use.
func (s *SearchService) Query(ctx context.Context, graph, q string, k int) ([]search.Result, error) {
	s.mu.RLock()
	idx, ok := s.indices[graph]
	s.mu.RUnlock()

	if !ok {
		if err := s.Rebuild(ctx, graph); err != nil {
			return nil, err
		}
		s.mu.RLock()
		idx = s.indices[graph]
		s.mu.RUnlock()
	}
	return idx.TopK(q, k), nil
}
