package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/breezehub/breeze-core/internal/fan"
	"github.com/breezehub/breeze-core/internal/profile"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// FanDetail is the read model for one fan: the live snapshot (which already
// carries the read-only profile attributes) plus the capability flags clients
// need to decide which controls to render.
type FanDetail struct {
	fan.Snapshot
	SupportsDirection   bool `json:"supports_direction"`
	SupportsOscillation bool `json:"supports_oscillation"`
}

// fanDetail builds the read model from an entity and its profile.
func fanDetail(entity *fan.Entity) FanDetail {
	p := entity.Profile()
	return FanDetail{
		Snapshot:            entity.Snapshot(),
		SupportsDirection:   p.SupportsDirection(),
		SupportsOscillation: p.SupportsOscillation(),
	}
}

// handleListFans returns every registered fan with its current snapshot.
func (s *Server) handleListFans(w http.ResponseWriter, _ *http.Request) {
	entities := s.registry.List()

	fans := make([]FanDetail, 0, len(entities))
	for _, entity := range entities {
		fans = append(fans, fanDetail(entity))
	}

	writeJSON(w, http.StatusOK, map[string]any{"fans": fans, "count": len(fans)})
}

// handleGetFan returns a single fan by ID.
func (s *Server) handleGetFan(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.lookupFan(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, fanDetail(entity))
}

// TurnOnRequest is the optional body for POST /fans/{fanID}/turn_on.
type TurnOnRequest struct {
	Percentage *int `json:"percentage"`
}

// handleTurnOn powers a fan on, optionally at an explicit percentage.
// An empty body resumes the last running speed.
func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.lookupFan(w, r)
	if !ok {
		return
	}

	var req TurnOnRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := entity.TurnOn(r.Context(), req.Percentage); err != nil {
		s.writeCommandError(w, entity.ID(), "turn_on", err)
		return
	}

	writeJSON(w, http.StatusOK, entity.Snapshot())
}

// handleTurnOff powers a fan off.
func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.lookupFan(w, r)
	if !ok {
		return
	}

	if err := entity.TurnOff(r.Context()); err != nil {
		s.writeCommandError(w, entity.ID(), "turn_off", err)
		return
	}

	writeJSON(w, http.StatusOK, entity.Snapshot())
}

// PercentageRequest is the body for POST /fans/{fanID}/percentage.
type PercentageRequest struct {
	Percentage *int `json:"percentage"`
}

// handleSetPercentage sets a fan's speed as a percentage. Zero turns it off.
func (s *Server) handleSetPercentage(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.lookupFan(w, r)
	if !ok {
		return
	}

	var req PercentageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Percentage == nil {
		writeBadRequest(w, "percentage field is required")
		return
	}

	if err := entity.SetPercentage(r.Context(), *req.Percentage); err != nil {
		s.writeCommandError(w, entity.ID(), "set_percentage", err)
		return
	}

	writeJSON(w, http.StatusOK, entity.Snapshot())
}

// OscillateRequest is the body for POST /fans/{fanID}/oscillate.
type OscillateRequest struct {
	Oscillating *bool `json:"oscillating"`
}

// handleOscillate enables or disables oscillation.
func (s *Server) handleOscillate(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.lookupFan(w, r)
	if !ok {
		return
	}

	var req OscillateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Oscillating == nil {
		writeBadRequest(w, "oscillating field is required")
		return
	}

	if err := entity.Oscillate(r.Context(), *req.Oscillating); err != nil {
		s.writeCommandError(w, entity.ID(), "oscillate", err)
		return
	}

	writeJSON(w, http.StatusOK, entity.Snapshot())
}

// DirectionRequest is the body for POST /fans/{fanID}/direction.
type DirectionRequest struct {
	Direction string `json:"direction"`
}

// handleSetDirection sets the rotation direction.
func (s *Server) handleSetDirection(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.lookupFan(w, r)
	if !ok {
		return
	}

	var req DirectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Direction == "" {
		writeBadRequest(w, "direction field is required")
		return
	}

	if err := entity.SetDirection(r.Context(), req.Direction); err != nil {
		s.writeCommandError(w, entity.ID(), "set_direction", err)
		return
	}

	writeJSON(w, http.StatusOK, entity.Snapshot())
}

// handleGetFanHistory returns recorded state transitions for a fan,
// newest first.
func (s *Server) handleGetFanHistory(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.lookupFan(w, r)
	if !ok {
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if s.history == nil {
		writeServiceUnavailable(w, "state history unavailable")
		return
	}

	entries, err := s.history.GetHistory(r.Context(), entity.ID(), limit)
	if err != nil {
		s.logger.Error("loading fan history failed", "fan_id", entity.ID(), "error", err)
		writeInternalError(w, "failed to load fan history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fan_id":  entity.ID(),
		"history": entries,
		"count":   len(entries),
	})
}

// lookupFan resolves the {fanID} URL parameter against the registry,
// writing the error response itself when the fan is unknown.
func (s *Server) lookupFan(w http.ResponseWriter, r *http.Request) (*fan.Entity, bool) {
	id := chi.URLParam(r, "fanID")

	entity, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, fan.ErrFanNotFound) {
			writeNotFound(w, "fan not found")
			return nil, false
		}
		writeInternalError(w, "failed to get fan")
		return nil, false
	}

	return entity, true
}

// writeCommandError maps an entity operation error to an HTTP response.
//
// Validation failures are the caller's fault (400). Resolution failures mean
// the loaded profile lacks a command table entry, which is a deployment
// problem, not a client one (500).
func (s *Server) writeCommandError(w http.ResponseWriter, fanID, operation string, err error) {
	switch {
	case errors.Is(err, fan.ErrInvalidPercentage):
		writeBadRequest(w, "percentage must be between 0 and 100")
	case errors.Is(err, fan.ErrInvalidDirection):
		writeBadRequest(w, "direction must be forward or reverse")
	case errors.Is(err, fan.ErrNotSupported):
		writeBadRequest(w, "fan does not support this operation")
	case errors.Is(err, profile.ErrInvalidProfile):
		s.logger.Error("fan command failed", "fan_id", fanID, "operation", operation, "error", err)
		writeInternalError(w, "device profile is missing a command for this state")
	default:
		s.logger.Error("fan command failed", "fan_id", fanID, "operation", operation, "error", err)
		writeInternalError(w, "command failed")
	}
}

// decodeOptionalBody decodes a JSON body, treating a missing or empty body
// as the zero value.
func decodeOptionalBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseHistoryLimit reads the limit query parameter, applying the default
// and cap from the history store.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
