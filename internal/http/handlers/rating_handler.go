// Rating HTTP handlers.
//
// This file exposes REST endpoints for node ratings:
//   - POST /graphs/{graph}/nodes/{id}/ratings     (submit or overwrite own rating)
//   - GET  /graphs/{graph}/nodes/{id}/ratings/me  (read own rating)
//   - GET  /graphs/{graph}/nodes/{id}/ratings/ai  (read the AI rating)
//   - POST /graphs/{graph}/nodes/{id}/ratings/ai  (generate the AI rating once)
//
// Ratings are integers in [0,100]. Resubmitting a human rating overwrites the
// previous value; the AI rating is written at most once per node and a second
// generation attempt conflicts. Question nodes are never rated.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
)

//
// DTOs
//

// SubmitRatingRequest is the JSON payload for submitting a human rating.
type SubmitRatingRequest struct {
	// Rating is the score in [0,100]. Zero is a valid score, so the field is
	// a pointer to distinguish "absent" from "zero".
	Rating *int `json:"rating" binding:"required" example:"85"`
}

// RatingResponse wraps the node with its refreshed aggregates after a
// rating write.
type RatingResponse struct {
	Node *domain.Node `json:"node"`
}

// UserRatingResponse is the read model for a single user's rating.
type UserRatingResponse struct {
	Rating  int  `json:"rating"`
	Present bool `json:"present"`
}

// AIRatingResponse is the read model for the node's AI rating.
type AIRatingResponse struct {
	Rating  int  `json:"rating"`
	Present bool `json:"present"`
}

//
// Handlers
//

// SubmitRating godoc
// @ID          submitRating
// @Summary     Rate a node
// @Description Records the current user's rating for a node and recomputes the node's aggregates. Resubmitting overwrites the previous rating. The first rating on an unscored node also triggers AI scoring, best effort.
// @Tags        Ratings
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       graph      path    string  true  "Graph name"             example(main)
// @Param       id         path    string  true  "Node ID (UUID)"         format(uuid)
// @Param       body       body    handlers.SubmitRatingRequest  true  "Rating payload"
//
// @Success     200  {object}  handlers.RatingResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Rating out of range"
// @Failure     404  {object}  handlers.ErrorResponse  "Node not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/ratings [post]
func (h *Handlers) SubmitRating(c *gin.Context) {
	var req SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating required")
		return
	}

	n, err := h.ratingSvc.SubmitHuman(c.Request.Context(), c.Param("graph"), c.Param("id"), userID(c), *req.Rating)
	if err != nil {
		switch err {
		case services.ErrInvalidRating:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be between 0 and 100")
		case services.ErrNodeNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// A human rating on an unscored node triggers AI scoring so the combined
	// average is available right away. Best effort: scoring failures never
	// fail the human submission.
	if !n.HasAIRating() {
		if scored, aerr := h.ratingSvc.GenerateAI(c.Request.Context(), c.Param("graph"), c.Param("id")); aerr == nil && scored.HasAIRating() {
			n = scored
		}
	}

	ok(c, http.StatusOK, RatingResponse{Node: n})
}

// GetUserRating godoc
// @ID          getUserRating
// @Summary     Read own rating
// @Description Returns the current user's rating for a node, with present=false when the user has not rated it.
// @Tags        Ratings
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       graph      path    string  true  "Graph name"             example(main)
// @Param       id         path    string  true  "Node ID (UUID)"         format(uuid)
//
// @Success     200  {object}  handlers.UserRatingResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Node not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/ratings/me [get]
func (h *Handlers) GetUserRating(c *gin.Context) {
	rating, present, err := h.ratingSvc.UserRating(c.Request.Context(), c.Param("graph"), c.Param("id"), userID(c))
	if err != nil {
		switch err {
		case services.ErrNodeNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, UserRatingResponse{Rating: rating, Present: present})
}

// GetAIRating godoc
// @ID          getAIRating
// @Summary     Read the AI rating
// @Description Returns the node's AI rating, with present=false when none has been generated.
// @Tags        Ratings
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"     example(main)
// @Param       id     path  string  true  "Node ID (UUID)" format(uuid)
//
// @Success     200  {object}  handlers.AIRatingResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Node not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/ratings/ai [get]
func (h *Handlers) GetAIRating(c *gin.Context) {
	rating, present, err := h.ratingSvc.AIRating(c.Request.Context(), c.Param("graph"), c.Param("id"))
	if err != nil {
		switch err {
		case services.ErrNodeNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, AIRatingResponse{Rating: rating, Present: present})
}

// GenerateAIRating godoc
// @ID          generateAIRating
// @Summary     Generate the AI rating
// @Description Asks the model to score the node and records the result. The AI rating is written at most once; a second attempt conflicts. Question nodes cannot be rated.
// @Tags        Ratings
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"     example(main)
// @Param       id     path  string  true  "Node ID (UUID)" format(uuid)
//
// @Success     200  {object}  handlers.RatingResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Node or rating template not found"
// @Failure     409  {object}  handlers.ErrorResponse  "AI rating already exists"
// @Failure     422  {object}  handlers.ErrorResponse  "Question nodes are not rateable"
// @Failure     502  {object}  handlers.ErrorResponse  "Model gateway failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/ratings/ai [post]
func (h *Handlers) GenerateAIRating(c *gin.Context) {
	n, err := h.ratingSvc.GenerateAI(c.Request.Context(), c.Param("graph"), c.Param("id"))
	if err != nil {
		// Gateway and template errors arrive wrapped, so match with errors.Is.
		switch {
		case errors.Is(err, services.ErrNodeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		case errors.Is(err, services.ErrNotRateable):
			fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidTransition, "question nodes cannot be rated")
		case errors.Is(err, services.ErrAIRatingExists):
			fail(c, http.StatusConflict, ErrCodeConflict, "AI rating already exists")
		case errors.Is(err, prompt.ErrTemplateNotFound):
			fail(c, http.StatusNotFound, ErrCodeTemplateNotFound, "rating template not found")
		case errors.Is(err, llm.ErrGateway):
			fail(c, http.StatusBadGateway, ErrCodeGatewayError, "model gateway failure")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, RatingResponse{Node: n})
}
