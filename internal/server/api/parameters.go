package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/gesturesynth/internal/engine"
)

// ParameterSource exposes the parameter table of the attached engine.
type ParameterSource interface {
	Parameters() (engine.Table, bool)
}

// ParametersHandler handles HTTP requests for engine parameters.
type ParametersHandler struct {
	source ParameterSource
}

// NewParametersHandler creates a new ParametersHandler.
func NewParametersHandler(source ParameterSource) *ParametersHandler {
	return &ParametersHandler{source: source}
}

type listParametersResponse struct {
	Parameters engine.Table `json:"parameters"`
}

// ServeHTTP serves /api/parameters and /api/parameters/{name}.
func (h *ParametersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	table, ok := h.source.Parameters()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "No engine attached")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/parameters")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		writeJSON(w, http.StatusOK, listParametersResponse{Parameters: table})
		return
	}

	p, found := table.Lookup(engine.ParamID(name))
	if !found {
		if id := table.Resolve(name); id != engine.Unresolved {
			p, found = table.Lookup(id)
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "Parameter not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
