package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cardea-access/cardea/internal/cardea/service"
	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req types.EvaluateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	// The authenticated tenant always wins over whatever is in the body.
	req.TenantID = tenantFrom(r)

	decision, err := s.engine.Evaluate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDoorID),
			errors.Is(err, service.ErrInvalidUserID),
			errors.Is(err, service.ErrInvalidTenantID):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			s.logger.Error("evaluate failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	// A grant authorizes exactly one physical approach; it must never be
	// served from a cache.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req service.HeartbeatRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.heartbeats.Record(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTenantID), errors.Is(err, service.ErrInvalidDoorID):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			s.logger.Error("heartbeat failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.ruleAdmin.ListRules(r.Context(), tenantFrom(r), chi.URLParam(r, "doorID"))
	if err != nil {
		s.logger.Error("list rules failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *Server) handlePutRule(w http.ResponseWriter, r *http.Request) {
	var rule types.AccessRule
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	rule.TenantID = tenantFrom(r)
	rule.DoorID = chi.URLParam(r, "doorID")
	rule.ID = chi.URLParam(r, "ruleID")

	saved, err := s.ruleAdmin.PutRule(r.Context(), rule)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRule):
			writeError(w, http.StatusUnprocessableEntity, "invalid_rule", err.Error())
		case errors.Is(err, service.ErrInvalidTenantID), errors.Is(err, service.ErrInvalidDoorID):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			s.logger.Error("put rule failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	err := s.ruleAdmin.DeleteRule(r.Context(), tenantFrom(r), chi.URLParam(r, "doorID"), chi.URLParam(r, "ruleID"))
	if err != nil {
		if errors.Is(err, store.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "rule_not_found", "no such rule")
			return
		}
		s.logger.Error("delete rule failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccessLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.accessLog.ListByDoor(r.Context(), tenantFrom(r), chi.URLParam(r, "doorID"), limit)
	if err != nil {
		s.logger.Error("list access log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": toLogViews(entries)})
}
