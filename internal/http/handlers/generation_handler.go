// Child generation HTTP handlers.
//
// This file exposes the two-phase generation endpoints:
//   - POST /graphs/{graph}/nodes/{id}/children/preview  (generate a candidate)
//   - POST /graphs/{graph}/nodes/{id}/children/commit   (persist a candidate)
//   - POST /graphs/{graph}/nodes/{id}/children/reject   (discard a candidate)
//
// Preview never persists anything: the model output is parsed into a
// candidate and returned for the user to inspect. Only an explicit commit
// stores the node. Reject exists for symmetry and auditing; it records
// nothing server-side.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// commit exists for (user, parent, key), the handler returns that recorded
// node and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
)

//
// DTOs
//

// PreviewChildRequest is the JSON payload for generating a candidate child.
type PreviewChildRequest struct {
	// ChildType is the dialectical type of the requested child.
	ChildType string `json:"child_type" binding:"required" example:"antithesis"`
	// UserInput is optional free-text guidance folded into the prompt.
	UserInput string `json:"user_input" example:"focus on the determinist objection"`
}

// PreviewChildResponse carries the attempt outcome and, when previewed, the
// candidate to commit or reject.
type PreviewChildResponse struct {
	Attempt *services.Attempt `json:"attempt"`
}

// CommitChildRequest is the JSON payload for persisting a previewed candidate.
type CommitChildRequest struct {
	Candidate *services.Candidate `json:"candidate" binding:"required"`
}

// CommitChildResponse wraps the stored node.
type CommitChildResponse struct {
	Node *domain.Node `json:"node"`
}

//
// Handlers
//

// PreviewChild godoc
// @ID          previewChild
// @Summary     Generate a candidate child
// @Description Asks the model for a child of the given type under the parent node. The candidate is returned for inspection and is not persisted; commit it explicitly to store it. The parent/child type pairing is validated before any model call.
// @Tags        Generation
// @Accept      json
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"            example(main)
// @Param       id     path  string  true  "Parent node ID (UUID)" format(uuid)
// @Param       body   body  handlers.PreviewChildRequest  true  "Generation request"
//
// @Success     200  {object}  handlers.PreviewChildResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Parent or generation template not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Type pairing not allowed"
// @Failure     502  {object}  handlers.ErrorResponse  "Model failure or unparseable reply"
// @Router      /graphs/{graph}/nodes/{id}/children/preview [post]
func (h *Handlers) PreviewChild(c *gin.Context) {
	var req PreviewChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "child_type required")
		return
	}
	childType := domain.NodeType(strings.TrimSpace(req.ChildType))
	if !domain.ValidType(childType) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown child type")
		return
	}

	attempt, err := h.genSvc.Preview(c.Request.Context(), c.Param("graph"), c.Param("id"), childType, req.UserInput)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNodeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "parent node not found")
		case errors.Is(err, services.ErrInvalidTransition):
			fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidTransition, "a "+string(childType)+" cannot be generated under this node")
		case errors.Is(err, prompt.ErrTemplateNotFound):
			fail(c, http.StatusNotFound, ErrCodeTemplateNotFound, "generation template not found")
		case errors.Is(err, services.ErrParseError):
			fail(c, http.StatusBadGateway, ErrCodeParseError, "model reply did not contain a usable candidate")
		case errors.Is(err, llm.ErrGateway):
			fail(c, http.StatusBadGateway, ErrCodeGatewayError, "model gateway failure")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, PreviewChildResponse{Attempt: attempt})
}

// CommitChild godoc
// @ID          commitChild
// @Summary     Persist a previewed candidate
// @Description Stores a previewed candidate as a child of the parent node. The stored node gets a fresh ID and its parent is forced to the path parameter regardless of the candidate payload. Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Generation
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       graph            path    string  true  "Graph name"             example(main)
// @Param       id               path    string  true  "Parent node ID (UUID)"  format(uuid)
// @Param       body             body    handlers.CommitChildRequest  true  "Candidate payload"
//
// @Success     201  {object}  handlers.CommitChildResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     422  {object}  handlers.ErrorResponse  "Unknown candidate type"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/children/commit [post]
func (h *Handlers) CommitChild(c *gin.Context) {
	ctx := c.Request.Context()
	graph := c.Param("graph")
	parentID := c.Param("id")
	currentUser := userID(c)

	var req CommitChildRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Candidate == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "candidate required")
		return
	}

	// Idempotency (replay path): return the previously committed node.
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if idemKey != "" {
		if svc, okSvc := h.genSvc.(*services.GenerationService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, parentID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetNode(ctx, svc.DB, graph, rec.ResultID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, CommitChildResponse{Node: prev})
					return
				}
			}
		}
	}

	n, err := h.genSvc.Commit(ctx, graph, req.Candidate, parentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTransition):
			fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidTransition, "unknown candidate type")
		case errors.Is(err, services.ErrParseError):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "candidate required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.genSvc.(*services.GenerationService); okSvc && svc.DB != nil {
			ttl := h.idemTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, parentID, idemKey, n.ID, http.StatusCreated, ttl)
		}
	}

	// Committed nodes should be findable right away.
	if h.searchSvc != nil {
		_ = h.searchSvc.Rebuild(ctx, graph)
	}

	ok(c, http.StatusCreated, CommitChildResponse{Node: n})
}

// RejectChild godoc
// @ID          rejectChild
// @Summary     Discard a previewed candidate
// @Description Ends a generation attempt without persisting anything. The endpoint exists for symmetry with commit; the server stores nothing for a rejection.
// @Tags        Generation
// @Accept      json
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"            example(main)
// @Param       id     path  string  true  "Parent node ID (UUID)" format(uuid)
// @Param       body   body  handlers.CommitChildRequest  false  "Candidate payload (optional)"
//
// @Success     200  {object}  handlers.PreviewChildResponse
// @Router      /graphs/{graph}/nodes/{id}/children/reject [post]
func (h *Handlers) RejectChild(c *gin.Context) {
	var req CommitChildRequest
	_ = c.ShouldBindJSON(&req)
	ok(c, http.StatusOK, PreviewChildResponse{Attempt: h.genSvc.Reject(req.Candidate)})
}
