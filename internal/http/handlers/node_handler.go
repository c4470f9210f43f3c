// Node HTTP handlers.
//
// This file exposes REST endpoints for individual graph nodes:
//   - GET /graphs/{graph}/nodes/{id}           (fetch one node)
//   - GET /graphs/{graph}/nodes/{id}/children  (ordered children)
//
// It also declares the service contracts consumed by every handler in this
// package and the Handlers struct that binds them. Handlers are
// transport-thin: they validate input, call application services, and
// translate results into HTTP responses.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
	"github.com/inquirycomplex/go-wiki-backend/internal/search"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// GraphService defines graph navigation and import operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type GraphService interface {
	// Graphs returns the configured graph names, sorted.
	Graphs() []string
	// Init loads the root node of a graph under the initialization deadline.
	Init(ctx context.Context, graph string) (*domain.Node, error)
	// Node fetches a single node of a graph.
	Node(ctx context.Context, graph, id string) (*domain.Node, error)
	// Children returns a node's children in canonical type order.
	Children(ctx context.Context, graph, id string) ([]domain.Node, error)
	// Import bulk-inserts nodes into a graph and returns the count stored.
	Import(ctx context.Context, graph string, nodes []domain.Node) (int, error)
}

// RatingService defines rating submission and retrieval operations.
type RatingService interface {
	// SubmitHuman records a user's rating and returns the updated node.
	SubmitHuman(ctx context.Context, graph, nodeID, userID string, rating int) (*domain.Node, error)
	// UserRating returns the user's rating, with present=false when unrated.
	UserRating(ctx context.Context, graph, nodeID, userID string) (int, bool, error)
	// AIRating returns the node's AI rating, with present=false when unset.
	AIRating(ctx context.Context, graph, nodeID string) (int, bool, error)
	// GenerateAI asks the model to score the node and records the result.
	GenerateAI(ctx context.Context, graph, nodeID string) (*domain.Node, error)
}

// GenerationService defines the two-phase child generation operations.
type GenerationService interface {
	// Preview generates an unpersisted candidate child.
	Preview(ctx context.Context, graph, parentID string, childType domain.NodeType, userInput string) (*services.Attempt, error)
	// Commit persists a previewed candidate under parentID.
	Commit(ctx context.Context, graph string, c *services.Candidate, parentID string) (*domain.Node, error)
	// Reject discards a candidate.
	Reject(c *services.Candidate) *services.Attempt
}

// ExplanationService defines on-demand node explanation operations.
type ExplanationService interface {
	// Explain returns the full explanation text in one blob.
	Explain(ctx context.Context, graph, nodeID string) (string, error)
	// Stream delivers the explanation incrementally via fn.
	Stream(ctx context.Context, graph, nodeID string, fn func(chunk string) error) error
}

// ImageService defines node image asset operations.
type ImageService interface {
	// Upload stores an image for a node and flags the node as illustrated.
	Upload(ctx context.Context, graph, nodeID, filename string, data []byte, contentType string) (*domain.ImageAsset, error)
	// List returns the node's image assets; failures degrade to empty.
	List(ctx context.Context, graph, nodeID string) []domain.ImageAsset
	// Generate asks the model for an illustration and stores it.
	Generate(ctx context.Context, graph, nodeID string) (*domain.ImageAsset, error)
}

// BeliefService defines the belief digest operation.
type BeliefService interface {
	// Digest returns the graph's current top theses.
	Digest(ctx context.Context, graph string) ([]domain.Node, error)
}

// SearchService defines full-graph text search operations.
type SearchService interface {
	// Rebuild reindexes a graph from the store.
	Rebuild(ctx context.Context, graph string) error
	// Query returns the top-k matches for a graph.
	Query(ctx context.Context, graph, q string, k int) ([]search.Result, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for graphs, nodes, ratings, generation,
// explanations, images, beliefs, and search. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	graphSvc  GraphService
	ratingSvc RatingService
	genSvc    GenerationService
	explSvc   ExplanationService
	imgSvc    ImageService
	beliefSvc BeliefService
	searchSvc SearchService

	// idemTTL is how long commit idempotency records stay replayable.
	// Zero falls back to 24h.
	idemTTL time.Duration
}

// SetIdempotencyTTL overrides how long commit idempotency records live.
// Wired from IDEMPOTENCY_TTL during route registration.
func (h *Handlers) SetIdempotencyTTL(d time.Duration) { h.idemTTL = d }

// New constructs and returns a Handlers instance bound to the given services.
func New(
	graphSvc GraphService,
	ratingSvc RatingService,
	genSvc GenerationService,
	explSvc ExplanationService,
	imgSvc ImageService,
	beliefSvc BeliefService,
	searchSvc SearchService,
) *Handlers {
	return &Handlers{
		graphSvc:  graphSvc,
		ratingSvc: ratingSvc,
		genSvc:    genSvc,
		explSvc:   explSvc,
		imgSvc:    imgSvc,
		beliefSvc: beliefSvc,
		searchSvc: searchSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// NodeResponse wraps a node together with its parsed propositions and image
// assets so clients can render a node view in a single round trip.
type NodeResponse struct {
	Node *domain.Node `json:"node"`
	// Propositions is the node's content split into its list form, ready for
	// display without client-side parsing of the brace format.
	Propositions []string            `json:"propositions,omitempty"`
	Images       []domain.ImageAsset `json:"images,omitempty"`
}

// ChildrenResponse wraps a node's ordered children.
type ChildrenResponse struct {
	Children []domain.Node `json:"children"`
}

//
// Handlers
//

// GetNode godoc
// @ID          getNode
// @Summary     Fetch a node
// @Description Returns a single node of a graph together with its parsed propositions and image assets.
// @Tags        Nodes
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"  example(main)
// @Param       id     path  string  true  "Node ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.NodeResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Node not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id} [get]
func (h *Handlers) GetNode(c *gin.Context) {
	ctx := c.Request.Context()
	graph := c.Param("graph")
	id := c.Param("id")

	n, err := h.graphSvc.Node(ctx, graph, id)
	if err != nil {
		switch err {
		case services.ErrNodeNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Images are best-effort display data; a blob failure yields an empty list.
	var images []domain.ImageAsset
	if h.imgSvc != nil && n.HasImage {
		images = h.imgSvc.List(ctx, graph, id)
	}
	ok(c, http.StatusOK, NodeResponse{Node: n, Propositions: domain.Propositions(n.Content), Images: images})
}

// ListChildren godoc
// @ID          listChildren
// @Summary     List a node's children
// @Description Returns the node's children ordered by type (thesis, reason, antithesis, synthesis, direct reply) and creation time within a type. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Nodes
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       graph          path    string  true  "Graph name"  example(main)
// @Param       id             path    string  true  "Parent node ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ChildrenResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Parent not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/children [get]
func (h *Handlers) ListChildren(c *gin.Context) {
	ctx := c.Request.Context()
	graph := c.Param("graph")
	id := c.Param("id")

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.graphSvc.(*services.GraphService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ChildrenStats(ctx, db, graph, id)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"children:%s:%s:%d:%d"`, graph, id, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	children, err := h.graphSvc.Children(ctx, graph, id)
	if err != nil {
		switch err {
		case services.ErrNodeNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	if children == nil {
		children = []domain.Node{}
	}
	ok(c, http.StatusOK, ChildrenResponse{Children: children})
}
