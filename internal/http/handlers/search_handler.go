// Search HTTP handlers.
//
// This file exposes full-graph text search:
//   - GET  /graphs/{graph}/search?q=...&k=...  (query)
//   - POST /graphs/{graph}/search/rebuild      (force reindex)
//
// The index is in-memory and rebuilt on demand; imports and commits refresh
// it automatically, so the explicit rebuild endpoint mainly serves operators
// after out-of-band data changes.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inquirycomplex/go-wiki-backend/internal/search"
	"github.com/inquirycomplex/go-wiki-backend/internal/utils"
)

// SearchResponse wraps ranked search results for a query.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// Search godoc
// @ID          searchGraph
// @Summary     Search a graph
// @Description Returns the nodes whose summary or content best match the query, ranked by similarity.
// @Tags        Search
// @Produce     json
//
// @Param       graph  path   string  true   "Graph name"  example(main)
// @Param       q      query  string  true   "Query text"
// @Param       k      query  int     false  "Maximum results"  minimum(1) maximum(50) default(10)
//
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing query"
// @Failure     500  {object}  handlers.ErrorResponse  "Search failed"
// @Router      /graphs/{graph}/search [get]
func (h *Handlers) Search(c *gin.Context) {
	const (
		defaultK = 10
		maxK     = 50
	)
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q required")
		return
	}
	k := utils.AtoiDefault(c.Query("k"), defaultK)
	if k < 1 {
		k = 1
	}
	if k > maxK {
		k = maxK
	}

	results, err := h.searchSvc.Query(c.Request.Context(), c.Param("graph"), q, k)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Results: results})
}

// RebuildSearch godoc
// @ID          rebuildSearch
// @Summary     Rebuild the search index
// @Description Reindexes the graph from the store. Returns 204 on success.
// @Tags        Search
// @Produce     json
//
// @Param       graph  path  string  true  "Graph name"  example(main)
//
// @Success     204  {string}  string  "No Content"
// @Failure     500  {object}  handlers.ErrorResponse  "Rebuild failed"
// @Router      /graphs/{graph}/search/rebuild [post]
func (h *Handlers) RebuildSearch(c *gin.Context) {
	if err := h.searchSvc.Rebuild(c.Request.Context(), c.Param("graph")); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
