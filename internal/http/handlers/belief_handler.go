// Belief digest HTTP handler.
//
// This file exposes the "This House Believes" endpoint:
//   - GET /graphs/{graph}/beliefs
//
// The digest asks the model which theses the community's recent activity
// supports and returns the top three, topped up by rating when the model
// names fewer.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
)

// BeliefsResponse wraps the digest theses in rank order.
type BeliefsResponse struct {
	Beliefs []domain.Node `json:"beliefs"`
}

// GetBeliefs godoc
// @ID          getBeliefs
// @Summary     Current belief digest
// @Description Returns the graph's top theses according to recent community activity. A graph without theses yields an empty digest without consulting the model. Supports weak ETag via If-None-Match; a 304 answers from the graph's state alone, without a model call.
// @Tags        Beliefs
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       graph          path    string  true  "Graph name"  example(main)
//
// @Success     200  {object}  handlers.BeliefsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Graph has no root"
// @Failure     502  {object}  handlers.ErrorResponse  "Model gateway failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/beliefs [get]
func (h *Handlers) GetBeliefs(c *gin.Context) {
	ctx := c.Request.Context()
	graph := c.Param("graph")

	// ETag pre-check (best effort). The digest only changes when the graph
	// does, so an unchanged graph can skip the model call entirely.
	var db *gorm.DB
	if svc, okSvc := h.beliefSvc.(*services.BeliefService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CollectionStats(ctx, db, graph)
		if err == nil && count > 0 {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"beliefs:%s:%d:%d"`, graph, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	beliefs, err := h.beliefSvc.Digest(ctx, graph)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNodeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "graph has no root question")
		case errors.Is(err, llm.ErrGateway):
			fail(c, http.StatusBadGateway, ErrCodeGatewayError, "model gateway failure")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	if beliefs == nil {
		beliefs = []domain.Node{}
	}
	ok(c, http.StatusOK, BeliefsResponse{Beliefs: beliefs})
}
