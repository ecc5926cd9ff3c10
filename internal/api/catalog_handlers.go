package api

import (
	"log/slog"
	"net/http"
)

// Catalog handlers

func (s *Server) handleListIndustries(w http.ResponseWriter, r *http.Request) {
	industries, err := s.catalog.FetchIndustries(r.Context())
	if err != nil {
		slog.Error("failed to fetch industries", "error", err)
		respondError(w, http.StatusBadGateway, "fetch_failed", "failed to fetch industries")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"industries": industries,
		"total":      len(industries),
	})
}

func (s *Server) handleListTechnologies(w http.ResponseWriter, r *http.Request) {
	technologies, err := s.catalog.FetchTechnologies(r.Context())
	if err != nil {
		slog.Error("failed to fetch technologies", "error", err)
		respondError(w, http.StatusBadGateway, "fetch_failed", "failed to fetch technologies")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"technologies": technologies,
		"total":        len(technologies),
	})
}

func (s *Server) handleListSolutionTypes(w http.ResponseWriter, r *http.Request) {
	industry := r.URL.Query().Get("industry")
	technology := r.URL.Query().Get("technology")

	if client := ClientFromContext(r.Context()); industry != "" && client != nil && !client.WorksIn(industry) {
		respondError(w, http.StatusForbidden, "forbidden", "client does not work in this industry")
		return
	}

	types, err := s.catalog.FetchSolutionTypes(r.Context(), industry, technology)
	if err != nil {
		slog.Error("failed to fetch solution types", "error", err, "industry", industry, "technology", technology)
		respondError(w, http.StatusBadGateway, "fetch_failed", "failed to fetch solution types")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"solution_types": types,
		"total":          len(types),
	})
}

func (s *Server) handleListSolutionVariants(w http.ResponseWriter, r *http.Request) {
	solution := r.URL.Query().Get("solution")
	if solution == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "solution is required")
		return
	}

	variants, err := s.catalog.FetchSolutionVariants(r.Context(), solution)
	if err != nil {
		slog.Error("failed to fetch solution variants", "error", err, "solution", solution)
		respondError(w, http.StatusBadGateway, "fetch_failed", "failed to fetch solution variants")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"solution_variants": variants,
		"total":             len(variants),
	})
}
