package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/solution-builder/internal/categories"
	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/reconciler"
	"github.com/terra-clan/solution-builder/internal/session"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

// ErrIndustryForbidden is returned when a client selects an industry it does not work in
var ErrIndustryForbidden = errors.New("client does not work in this industry")

type saveRequest struct {
	Mode models.SaveMode `json:"mode"`
}

type searchRequest struct {
	Query *string `json:"query,omitempty"`
	Key   string  `json:"key,omitempty"`
}

type categoryRequest struct {
	Name  string          `json:"name"`
	Color string          `json:"color"`
	Kind  categories.Kind `json:"kind"`
}

// loadSession resolves the {id} session of the requesting client, answering on failure
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return nil, false
	}

	sess, err := s.sessions.Get(r.Context(), id, clientID(r.Context()))
	if err != nil {
		respondDomainError(w, err, "get session")
		return nil, false
	}
	return sess, true
}

// Session handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context(), clientID(r.Context()), OperatorFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, session.ErrClientRequired) {
			respondError(w, http.StatusBadRequest, "missing_client", "client id is required")
			return
		}
		slog.Error("failed to create session", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context(), clientID(r.Context()))
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}

	snapshots := make([]session.Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		snapshots = append(snapshots, sess.Snapshot())
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": snapshots,
		"total":    len(snapshots),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	if err := s.sessions.End(r.Context(), sess.ID); err != nil {
		respondDomainError(w, err, "end session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "session ended",
	})
}

func (s *Server) handleApplyEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var e wizard.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if e.Type == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "type is required")
		return
	}

	snap, err := s.applyEvent(r.Context(), ClientFromContext(r.Context()), sess, e)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, snap)
	case errors.Is(err, reconciler.ErrNotFoundWarning):
		respondWarning(w, http.StatusOK, snap, reconciler.ErrNotFoundWarning.Error())
	default:
		respondDomainError(w, err, "apply event")
	}
}

// applyEvent applies a wizard event on behalf of client and counts it.
// Industries outside the client's list are refused with ErrIndustryForbidden.
func (s *Server) applyEvent(ctx context.Context, client *models.Client, sess *session.Session, e wizard.Event) (session.Snapshot, error) {
	if e.Type == wizard.EventSelectIndustry && !client.WorksIn(e.ID) {
		s.metrics.WizardEvent(string(e.Type), ErrIndustryForbidden)
		return sess.Snapshot(), ErrIndustryForbidden
	}

	snap, err := sess.Apply(ctx, e)
	if errors.Is(err, reconciler.ErrNotFoundWarning) {
		s.metrics.WizardEvent(string(e.Type), nil)
	} else {
		s.metrics.WizardEvent(string(e.Type), err)
	}
	return snap, err
}

func (s *Server) handleReviewSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, sess.Review())
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	req := saveRequest{Mode: models.SaveDraft}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	if req.Mode == "" {
		req.Mode = models.SaveDraft
	}

	result, err := s.sessions.Save(r.Context(), sess.ID, sess.ClientID, req.Mode)
	if err != nil {
		respondDomainError(w, err, "save session")
		return
	}

	slog.Info("solution saved",
		"session_id", sess.ID,
		"client_id", sess.ClientID,
		"client_solution_id", result.ClientSolutionID,
		"updated", result.Updated,
	)

	respondJSON(w, http.StatusOK, result)
}

// Parameter handlers

func (s *Server) handleListParameters(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if q.Has("tab") || q.Has("q") {
		query := sess.Parameters().Query
		if q.Has("q") {
			query = q.Get("q")
		}
		sess.SetParameterFilter(q.Get("tab"), query)
	}

	respondJSON(w, http.StatusOK, sess.Parameters())
}

func (s *Server) handleParameterSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	switch {
	case req.Key != "":
		sess.HandleParameterKey(req.Key)
	case req.Query != nil:
		sess.SetParameterFilter("", *req.Query)
	default:
		respondError(w, http.StatusBadRequest, "validation_error", "query or key is required")
		return
	}

	respondJSON(w, http.StatusOK, sess.Parameters())
}

func (s *Server) handleAddParameter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var p models.Parameter
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	saved, err := sess.AddParameter(p)
	if err != nil {
		respondDomainError(w, err, "add parameter")
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateParameter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var p models.Parameter
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	p.ID = chi.URLParam(r, "pid")

	saved, err := sess.UpdateParameter(p)
	if err != nil {
		respondDomainError(w, err, "update parameter")
		return
	}

	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleBeginParameterAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	draft, err := sess.BeginParameterAdd()
	if err != nil {
		respondDomainError(w, err, "begin parameter add")
		return
	}

	respondJSON(w, http.StatusCreated, draft)
}

func (s *Server) handleBeginParameterEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	draft, err := sess.BeginParameterEdit(chi.URLParam(r, "pid"))
	if err != nil {
		respondDomainError(w, err, "begin parameter edit")
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

func (s *Server) handleUpdateParameterDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var p models.Parameter
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	draft, err := sess.UpdateParameterDraft(chi.URLParam(r, "pid"), p)
	if err != nil {
		respondDomainError(w, err, "update parameter draft")
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

func (s *Server) handleSaveParameterDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	saved, err := sess.SaveParameterDraft(chi.URLParam(r, "pid"))
	if err != nil {
		respondDomainError(w, err, "save parameter")
		return
	}

	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleCancelParameterEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	if err := sess.CancelParameterEdit(chi.URLParam(r, "pid")); err != nil {
		respondDomainError(w, err, "cancel parameter edit")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "edit cancelled",
	})
}

func (s *Server) handleRemoveParameter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	if err := sess.RemoveParameter(chi.URLParam(r, "pid")); err != nil {
		respondDomainError(w, err, "remove parameter")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "parameter removed",
	})
}

// Calculation handlers

func (s *Server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if q.Has("tab") || q.Has("q") {
		query := sess.Calculations().Query
		if q.Has("q") {
			query = q.Get("q")
		}
		sess.SetCalculationFilter(q.Get("tab"), query)
	}

	respondJSON(w, http.StatusOK, sess.Calculations())
}

func (s *Server) handleAddCalculation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var c models.Calculation
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	saved, err := sess.AddCalculation(c)
	if err != nil {
		respondDomainError(w, err, "add calculation")
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

// Category handlers

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	color := models.ParseColorToken(req.Color)

	var (
		tab string
		err error
	)
	switch req.Kind {
	case "", categories.KindParameters:
		tab, err = sess.AddParameterCategory(req.Name, color)
	case categories.KindCalculations:
		tab, err = sess.AddCalculationCategory(req.Name, color)
	default:
		respondError(w, http.StatusBadRequest, "validation_error", "unknown category kind")
		return
	}
	if err != nil {
		respondDomainError(w, err, "add category")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"category":   tab,
		"active_tab": tab,
	})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "category name is required")
		return
	}

	var removed int
	switch categories.Kind(r.URL.Query().Get("kind")) {
	case "", categories.KindParameters:
		removed, err = sess.RemoveParameterCategory(name)
	case categories.KindCalculations:
		removed, err = sess.RemoveCalculationCategory(name)
	default:
		respondError(w, http.StatusBadRequest, "validation_error", "unknown category kind")
		return
	}
	if err != nil {
		respondDomainError(w, err, "remove category")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"category": name,
		"removed":  removed,
	})
}
