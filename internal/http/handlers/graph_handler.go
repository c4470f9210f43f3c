// Graph HTTP handlers.
//
// This file exposes REST endpoints for graph-level resources:
//   - GET  /graphs                  (list configured graphs)
//   - POST /graphs/{graph}/init     (load the root node, bounded by a deadline)
//   - POST /graphs/{graph}/import   (bulk-import nodes into a graph)
//
// Initialization is the entry flow of every client session: it resolves the
// graph's root question so navigation can start. Import is an administrative
// operation that seeds or extends a graph from an exported node list.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/services"
)

//
// DTOs
//

// ListGraphsResponse wraps the configured graph names.
type ListGraphsResponse struct {
	Graphs []string `json:"graphs"`
}

// InitGraphResponse carries the root node resolved during initialization.
type InitGraphResponse struct {
	Root *domain.Node `json:"root"`
}

// ImportGraphRequest is the JSON payload for a bulk node import.
type ImportGraphRequest struct {
	// Nodes is the list of nodes to insert. Collection and terminal flags in
	// the payload are ignored; the server derives both.
	Nodes []domain.Node `json:"nodes" binding:"required,min=1"`
}

// ImportGraphResponse reports how many nodes were stored.
type ImportGraphResponse struct {
	Imported int `json:"imported"`
}

//
// Handlers
//

// ListGraphs godoc
// @ID          listGraphs
// @Summary     List configured graphs
// @Description Returns the names of all graphs this deployment serves, sorted.
// @Tags        Graphs
// @Produce     json
//
// @Success     200  {object}  handlers.ListGraphsResponse
// @Router      /graphs [get]
func (h *Handlers) ListGraphs(c *gin.Context) {
	ok(c, http.StatusOK, ListGraphsResponse{Graphs: h.graphSvc.Graphs()})
}

// InitGraph godoc
// @ID          initGraph
// @Summary     Initialize a graph
// @Description Loads the graph's root question under the initialization deadline. A graph that cannot produce its root in time fails instead of hanging the client.
// @Tags        Graphs
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"  example(main)
//
// @Success     200  {object}  handlers.InitGraphResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown graph or missing root"
// @Failure     504  {object}  handlers.ErrorResponse  "Initialization deadline exceeded"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /graphs/{graph}/init [post]
func (h *Handlers) InitGraph(c *gin.Context) {
	root, err := h.graphSvc.Init(c.Request.Context(), c.Param("graph"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGraphUnknown):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown graph")
		case errors.Is(err, services.ErrNodeNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "graph root not found")
		case errors.Is(err, context.DeadlineExceeded):
			fail(c, http.StatusGatewayTimeout, ErrCodeInternal, "graph initialization timed out")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, InitGraphResponse{Root: root})
}

// ImportGraph godoc
// @ID          importGraph
// @Summary     Bulk-import nodes
// @Description Inserts the given nodes into the graph in batches. The server forces each node's collection to the target graph and derives terminal flags from node types. After a successful import the graph's search index is rebuilt.
// @Tags        Graphs
// @Accept      json
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"  example(main)
// @Param       body   body  handlers.ImportGraphRequest  true  "Nodes to import"
//
// @Success     200  {object}  handlers.ImportGraphResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     422  {object}  handlers.ErrorResponse  "Unknown node type in payload"
// @Failure     500  {object}  handlers.ErrorResponse  "Import failed"
// @Router      /graphs/{graph}/import [post]
func (h *Handlers) ImportGraph(c *gin.Context) {
	ctx := c.Request.Context()
	graph := c.Param("graph")

	var req ImportGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Nodes) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nodes required")
		return
	}

	count, err := h.graphSvc.Import(ctx, graph, req.Nodes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTransition):
			fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidTransition, "payload contains an unknown node type")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeImportFailed, err.Error())
		}
		return
	}

	// Refresh the search index so imported nodes are queryable immediately.
	if h.searchSvc != nil {
		_ = h.searchSvc.Rebuild(ctx, graph)
	}

	ok(c, http.StatusOK, ImportGraphResponse{Imported: count})
}
