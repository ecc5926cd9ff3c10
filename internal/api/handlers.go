package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/solution-builder/internal/categories"
	"github.com/terra-clan/solution-builder/internal/health"
	"github.com/terra-clan/solution-builder/internal/parameters"
	"github.com/terra-clan/solution-builder/internal/reconciler"
	"github.com/terra-clan/solution-builder/internal/session"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Warning string      `json:"warning,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// fieldError describes one rejected parameter in a validation failure
type fieldError struct {
	ParameterID string `json:"parameter_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Code        string `json:"code"`
	Field       string `json:"field,omitempty"`
	Message     string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// respondWarning answers with data and a non-fatal warning
func respondWarning(w http.ResponseWriter, status int, data interface{}, warning string) {
	writeResponse(w, status, apiResponse{
		Success: true,
		Data:    data,
		Warning: warning,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}

func writeResponse(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondDomainError maps an error from the session layer to a response.
// action completes the "failed to ..." message of unexpected errors.
func respondDomainError(w http.ResponseWriter, err error, action string) {
	var verrs parameters.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, pe := range verrs {
			fe := fieldError{ParameterID: pe.ParameterID, Name: pe.Name, Message: pe.Error()}
			var verr *parameters.ValidationError
			if errors.As(pe.Err, &verr) {
				fe.Code = string(verr.Code)
				fe.Field = verr.Field
				fe.Message = verr.Message
			}
			details = append(details, fe)
		}
		writeResponse(w, http.StatusUnprocessableEntity, apiResponse{
			Error: &apiError{
				Code:    "validation_failed",
				Message: verrs.Error(),
				Details: details,
			},
		})
		return
	}

	var verr *parameters.ValidationError
	if errors.As(err, &verr) {
		writeResponse(w, http.StatusUnprocessableEntity, apiResponse{
			Error: &apiError{
				Code:    string(verr.Code),
				Message: verr.Message,
				Details: []fieldError{{Code: string(verr.Code), Field: verr.Field, Message: verr.Message}},
			},
		})
		return
	}

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, session.ErrSessionExpired):
		respondError(w, http.StatusGone, "session_expired", "session has expired")
	case errors.Is(err, session.ErrClientMismatch):
		respondError(w, http.StatusForbidden, "forbidden", "session belongs to another client")
	case errors.Is(err, ErrIndustryForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, parameters.ErrParameterNotFound):
		respondError(w, http.StatusNotFound, "parameter_not_found", "parameter not found")
	case errors.Is(err, parameters.ErrEditInProgress),
		errors.Is(err, parameters.ErrNotActiveEdit):
		respondError(w, http.StatusConflict, "edit_conflict", err.Error())
	case errors.Is(err, categories.ErrEmptyCategoryName),
		errors.Is(err, categories.ErrReservedCategory),
		errors.Is(err, session.ErrCalculationNameRequired),
		errors.Is(err, reconciler.ErrInvalidSaveMode),
		errors.Is(err, wizard.ErrUnknownEvent):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, wizard.ErrIndustryRequired),
		errors.Is(err, wizard.ErrTechnologyRequired),
		errors.Is(err, wizard.ErrSolutionRequired),
		errors.Is(err, wizard.ErrSelectionIncomplete):
		respondError(w, http.StatusConflict, "precondition_failed", err.Error())
	case errors.Is(err, wizard.ErrFetchFailed):
		slog.Warn("catalog fetch failed", "error", err)
		respondError(w, http.StatusBadGateway, "fetch_failed", "failed to fetch catalog data")
	case errors.Is(err, reconciler.ErrPersistFailed):
		slog.Error("persist failed", "error", err)
		respondError(w, http.StatusBadGateway, "persist_failed", "failed to persist solution, retry to resume")
	default:
		slog.Error("failed to "+action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
		return
	}

	results := s.health.CheckAll(r.Context())
	if !health.Healthy(results) {
		writeResponse(w, http.StatusServiceUnavailable, apiResponse{
			Data: map[string]interface{}{"status": "not_ready", "checks": results},
			Error: &apiError{
				Code:    "not_ready",
				Message: "service not ready",
			},
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": results,
	})
}
