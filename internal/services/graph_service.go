// Package services – GraphService
//
// This file implements graph navigation: initializing a configured graph,
// fetching nodes and ordered children, and bulk-importing a collection.
// Graph names map 1:1 to storage collections; the configured root node ID
// anchors navigation for each graph.
package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
)

// defaultInitTimeout bounds graph initialization. Navigation afterwards has
// no caller-imposed deadline; only the entry flow does.
const defaultInitTimeout = 10 * time.Second

// importBatchSize is the chunk size for bulk imports.
const importBatchSize = 100

// GraphService implements graph navigation and import use-cases.
type GraphService struct {
	DB *gorm.DB

	// Roots maps graph name -> root node ID. A graph absent from the map is
	// unknown; an empty root ID falls back to the depth-0 question query.
	Roots map[string]string

	// InitTimeout overrides the default 10s initialization deadline when
	// positive. Mainly for tests.
	InitTimeout time.Duration
}

// Graphs returns the configured graph names in sorted order.
func (s *GraphService) Graphs() []string {
	out := make([]string, 0, len(s.Roots))
	for g := range s.Roots {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Init loads the root node of a configured graph under a deadline. A graph
// that cannot produce its root within the timeout reports failure instead of
// hanging the entry flow.
func (s *GraphService) Init(ctx context.Context, graph string) (*domain.Node, error) {
	rootID, ok := s.Roots[graph]
	if !ok {
		return nil, ErrGraphUnknown
	}

	timeout := s.InitTimeout
	if timeout <= 0 {
		timeout = defaultInitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		root *domain.Node
		err  error
	)
	if rootID != "" {
		root, err = repo.GetNode(ctx, s.DB, graph, rootID)
	} else {
		root, err = repo.RootNode(ctx, s.DB, graph)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return root, nil
}

// Node fetches a single node of a graph.
func (s *GraphService) Node(ctx context.Context, graph, id string) (*domain.Node, error) {
	n, err := repo.GetNode(ctx, s.DB, graph, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return n, nil
}

// Children returns a node's children in canonical type order. The parent
// must exist; a childless parent yields an empty slice.
func (s *GraphService) Children(ctx context.Context, graph, id string) ([]domain.Node, error) {
	if _, err := repo.GetNode(ctx, s.DB, graph, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	return repo.ChildNodes(ctx, s.DB, graph, id)
}

// Import bulk-inserts nodes into a graph in batches. Node collection fields
// are forced to the target graph; terminal flags are derived from the type
// table rather than trusted from the payload. Content is canonicalized to
// the brace-delimited proposition form so exports with loose formatting
// store the same shape generated nodes do.
func (s *GraphService) Import(ctx context.Context, graph string, nodes []domain.Node) (int, error) {
	if len(nodes) == 0 {
		return 0, nil
	}
	for i := range nodes {
		nodes[i].Collection = graph
		if !domain.ValidType(nodes[i].NodeType) {
			return 0, ErrInvalidTransition
		}
		nodes[i].Terminal = domain.IsTerminal(nodes[i].NodeType)
		nodes[i].Content = domain.EncodePropositions(domain.Propositions(nodes[i].Content))
	}
	if err := repo.ImportNodes(ctx, s.DB, nodes, importBatchSize); err != nil {
		return 0, err
	}
	return len(nodes), nil
}
