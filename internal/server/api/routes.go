package api

import (
	"net/http"

	"github.com/ayusman/gesturesynth/internal/route"
)

// RoutesHandler serves the route table, which is fixed for the lifetime of
// the process.
type RoutesHandler struct {
	table route.Table
}

// NewRoutesHandler creates a new RoutesHandler for table.
func NewRoutesHandler(table route.Table) *RoutesHandler {
	return &RoutesHandler{table: table}
}

type listRoutesResponse struct {
	Routes  []route.Rule   `json:"routes"`
	Sources []route.Source `json:"sources"`
}

// ServeHTTP handles GET /api/routes.
func (h *RoutesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, listRoutesResponse{
		Routes:  h.table.Rules(),
		Sources: route.Sources(),
	})
}
