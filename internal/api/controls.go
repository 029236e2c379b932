package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ember-ui/internal/control"
	"github.com/nerrad567/ember-ui/internal/infrastructure/mqtt"
)

// changeSource identifies where a value change originated, for logging
// and loop avoidance.
type changeSource string

const (
	sourceREST      changeSource = "rest"
	sourceWebSocket changeSource = "websocket"
	sourceMQTT      changeSource = "mqtt"
)

// controlChannel is the WebSocket event channel for value changes.
const controlChannel = "control.value_changed"

// listControlsResponse is the response body for GET /controls.
type listControlsResponse struct {
	Controls []control.Control `json:"controls"`
	Count    int               `json:"count"`
}

// setValueRequest is the request body for PUT /controls/{id}/value.
type setValueRequest struct {
	Value float64 `json:"value"`
}

// handleListControls returns all controls.
func (s *Server) handleListControls(w http.ResponseWriter, r *http.Request) {
	controls, err := s.registry.List(r.Context())
	if err != nil {
		s.logger.Error("listing controls", "error", err)
		writeInternalError(w, "failed to list controls")
		return
	}
	if controls == nil {
		controls = []control.Control{}
	}

	writeJSON(w, http.StatusOK, listControlsResponse{
		Controls: controls,
		Count:    len(controls),
	})
}

// handleGetControl returns a single control by ID.
func (s *Server) handleGetControl(w http.ResponseWriter, r *http.Request) {
	id, ok := controlID(w, r)
	if !ok {
		return
	}

	c, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, control.ErrControlNotFound) {
			writeNotFound(w, "control not found")
			return
		}
		s.logger.Error("getting control", "id", id, "error", err)
		writeInternalError(w, "failed to get control")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleCreateControl creates a new control.
func (s *Server) handleCreateControl(w http.ResponseWriter, r *http.Request) {
	var c control.Control
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.Create(r.Context(), &c); err != nil {
		switch {
		case errors.Is(err, control.ErrControlExists):
			writeConflict(w, "control ID already exists")
		case errors.Is(err, control.ErrInvalidControl), errors.Is(err, control.ErrInvalidType):
			writeValidationError(w, err.Error())
		default:
			s.logger.Error("creating control", "error", err)
			writeInternalError(w, "failed to create control")
		}
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateControl applies a partial update to a control definition.
func (s *Server) handleUpdateControl(w http.ResponseWriter, r *http.Request) {
	id, ok := controlID(w, r)
	if !ok {
		return
	}

	existing, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, control.ErrControlNotFound) {
			writeNotFound(w, "control not found")
			return
		}
		s.logger.Error("getting control for update", "id", id, "error", err)
		writeInternalError(w, "failed to update control")
		return
	}

	// Decode the patch over the existing state; absent fields keep
	// their current values.
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // ID is not patchable

	if err := s.registry.Update(r.Context(), existing); err != nil {
		switch {
		case errors.Is(err, control.ErrInvalidControl), errors.Is(err, control.ErrInvalidType):
			writeValidationError(w, err.Error())
		case errors.Is(err, control.ErrControlNotFound):
			writeNotFound(w, "control not found")
		default:
			s.logger.Error("updating control", "id", id, "error", err)
			writeInternalError(w, "failed to update control")
		}
		return
	}

	s.broadcastChange(existing, nil)
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteControl removes a control.
func (s *Server) handleDeleteControl(w http.ResponseWriter, r *http.Request) {
	id, ok := controlID(w, r)
	if !ok {
		return
	}

	if err := s.registry.Delete(r.Context(), id); err != nil {
		if errors.Is(err, control.ErrControlNotFound) {
			writeNotFound(w, "control not found")
			return
		}
		s.logger.Error("deleting control", "id", id, "error", err)
		writeInternalError(w, "failed to delete control")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// handleSetControlValue sets a control's value.
func (s *Server) handleSetControlValue(w http.ResponseWriter, r *http.Request) {
	id, ok := controlID(w, r)
	if !ok {
		return
	}

	var req setValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	c, err := s.applyValue(r.Context(), id, req.Value, sourceREST, nil)
	if err != nil {
		if errors.Is(err, control.ErrControlNotFound) {
			writeNotFound(w, "control not found")
			return
		}
		s.logger.Error("setting control value", "id", id, "error", err)
		writeInternalError(w, "failed to set control value")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// applyValue is the single funnel for control value changes from every
// source: REST, WebSocket frames, and MQTT commands. It persists the
// change, then fans it out to panels, the broker and telemetry.
//
// origin, when non-nil, is the WebSocket client that caused the change;
// it is excluded from the legacy frame echo so panels don't fight their
// own slider drags.
func (s *Server) applyValue(ctx context.Context, id int, value float64, source changeSource, origin *WSClient) (*control.Control, error) {
	c, changed, err := s.registry.SetValue(ctx, id, value)
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}

	s.logger.Debug("control value applied",
		"id", id, "value", c.Value, "source", source)

	s.broadcastChange(c, origin)

	if s.mqtt != nil && source != sourceMQTT {
		payload, err := json.Marshal(map[string]any{"value": c.Value, "type": c.Type})
		if err == nil {
			topic := mqtt.Topics{}.ControlState(c.ID)
			if pubErr := s.mqtt.PublishRetained(topic, payload); pubErr != nil {
				s.logger.Warn("publishing control state", "id", c.ID, "error", pubErr)
			}
		}
	}

	if s.telemetry != nil {
		s.telemetry.WriteControlValue(c.ID, string(c.Type), c.Value)
	}

	return c, nil
}

// broadcastChange pushes a control's current state to connected panels,
// as a JSON event for subscribed clients and as a legacy text frame for
// clients speaking the firmware protocol.
func (s *Server) broadcastChange(c *control.Control, origin *WSClient) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(controlChannel, c)
	s.hub.BroadcastFrame(encodeFrame(c), origin)
}

// parseCommandPayload extracts a value from an MQTT command payload.
// Accepted forms: a bare number ("75") or a JSON object {"value": 75}.
func parseCommandPayload(payload []byte) (float64, error) {
	trimmed := bytes.TrimSpace(payload)

	if v, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
		return v, nil
	}

	var body struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return 0, errors.New("payload must be a number or {\"value\": n}")
	}
	return body.Value, nil
}

// controlID parses the {id} route parameter, writing a 400 on failure.
func controlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "control ID must be numeric")
		return 0, false
	}
	return id, true
}
