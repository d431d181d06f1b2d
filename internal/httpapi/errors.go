package httpapi

import (
	"encoding/json"
	"net/http"

	"autoedit/internal/lifecycle"
	"autoedit/internal/pipeline"
	"autoedit/internal/stage"
	"autoedit/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// mapPipelineError translates well-known pipeline and lifecycle errors to
// an HTTP status plus the stage the failure is tagged to (when known).
func mapPipelineError(err error) (status int, stg string) {
	if s, ok := lifecycle.StageOf(err); ok {
		stg = string(s)
	}
	switch {
	case pipeline.IsInvalidRequest(err):
		return http.StatusBadRequest, stg
	case pipeline.IsBusy(err):
		return http.StatusTooManyRequests, stg
	case pipeline.IsNoHistory(err):
		return http.StatusConflict, stg
	case lifecycle.IsOutOfMemory(err):
		return http.StatusInsufficientStorage, stg
	case lifecycle.IsModelUnavailable(err):
		return http.StatusServiceUnavailable, stg
	case stage.IsTranslationFailed(err):
		return http.StatusBadGateway, string(types.StageTranslation)
	case stage.IsEditFailed(err):
		return http.StatusBadGateway, string(types.StageEdit)
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode(), stg
	}
	return http.StatusInternalServerError, stg
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg, stg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Stage: stg, Code: status})
}
