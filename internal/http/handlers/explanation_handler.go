// Explanation HTTP handlers.
//
// This file exposes the node explanation endpoints:
//   - GET /graphs/{graph}/nodes/{id}/explanation         (full, one response)
//   - GET /graphs/{graph}/nodes/{id}/explanation/stream  (SSE, progressive)
//
// Both endpoints return the explanation rendered to HTML. The streaming
// variant emits a fresh snapshot of the rendered text after each model chunk;
// the renderer is idempotent on its own output, so every snapshot is valid
// HTML and the client simply replaces the pane. Closing the connection
// cancels the upstream model request.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inquirycomplex/go-wiki-backend/internal/format"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
)

// ExplanationResponse carries the rendered explanation for a node.
type ExplanationResponse struct {
	Explanation string `json:"explanation"`
}

// Explain godoc
// @ID          explainNode
// @Summary     Explain a node
// @Description Asks the model for an explanation of the node in its dialectical context and returns the full text rendered as HTML.
// @Tags        Explanations
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"     example(main)
// @Param       id     path  string  true  "Node ID (UUID)" format(uuid)
//
// @Success     200  {object}  handlers.ExplanationResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Node not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Model gateway failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/nodes/{id}/explanation [get]
func (h *Handlers) Explain(c *gin.Context) {
	text, err := h.explSvc.Explain(c.Request.Context(), c.Param("graph"), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNodeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
		case errors.Is(err, llm.ErrGateway):
			fail(c, http.StatusBadGateway, ErrCodeGatewayError, "model gateway failure")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ExplanationResponse{Explanation: format.Explanation(text)})
}

// StreamExplanation godoc
// @ID          streamExplanation
// @Summary     Stream a node explanation
// @Description Streams the explanation as Server-Sent Events. Each "explanation" event carries the full rendered HTML so far; a final "done" event closes the stream. Mid-stream failures are reported as an "error" event since the status line is already written.
// @Tags        Explanations
// @Produce     text/event-stream
//
// @Param       graph  path  string  true  "Graph name"     example(main)
// @Param       id     path  string  true  "Node ID (UUID)" format(uuid)
//
// @Success     200  {string}  string  "SSE stream"
// @Failure     404  {object}  handlers.ErrorResponse  "Node not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Model gateway failure"
// @Router      /graphs/{graph}/nodes/{id}/explanation/stream [get]
func (h *Handlers) StreamExplanation(c *gin.Context) {
	ctx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	var (
		accumulated string
		wrote       bool
	)
	err := h.explSvc.Stream(ctx, c.Param("graph"), c.Param("id"), func(chunk string) error {
		accumulated += chunk
		c.SSEvent("explanation", format.Explanation(accumulated))
		c.Writer.Flush()
		wrote = true
		return nil
	})
	if err != nil {
		// Before the first chunk the status line is still ours to set.
		if !wrote {
			switch {
			case errors.Is(err, services.ErrNodeNotFound):
				fail(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
			case errors.Is(err, llm.ErrGateway):
				fail(c, http.StatusBadGateway, ErrCodeGatewayError, "model gateway failure")
			default:
				fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			}
			return
		}
		c.SSEvent("error", ErrCodeGatewayError)
		c.Writer.Flush()
		return
	}

	c.SSEvent("done", "")
	c.Writer.Flush()
}
