package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/watering/internal/logging"
	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/radio"
	"github.com/muurk/watering/internal/session"
	"github.com/muurk/watering/internal/store"
)

// InfoResponse is the body of GET /api/getInfo and of every WebSocket update.
type InfoResponse struct {
	Connected              bool               `json:"connected"`
	State                  session.State      `json:"state"`
	Port                   string             `json:"port,omitempty"`
	AddressThis            protocol.Address   `json:"addressThis,omitempty"`
	AddressClient          protocol.Address   `json:"addressClient,omitempty"`
	Log                    []store.Entry      `json:"log"`
	LogOffset              int                `json:"logOffset"`
	Settings               *protocol.Settings `json:"settings"`
	Status                 store.Status       `json:"status"`
	SoftwareVersion        string             `json:"softwareVersion"`
	SoftwareVersionControl string             `json:"softwareVersionControl"`
}

// buildInfo assembles the current state. Log entries before since are left
// out; LogOffset is the index of the first returned entry.
func (s *Server) buildInfo(since int) InfoResponse {
	info := s.ctrl.Info()
	st := s.ctrl.Store()
	snap := st.Snapshot()

	if since < 0 {
		since = 0
	}
	entries := st.Log().Since(since)

	resp := InfoResponse{
		Connected:              info.Connected,
		State:                  info.State,
		Port:                   info.Port,
		AddressThis:            info.Own,
		AddressClient:          info.Peer,
		Log:                    entries,
		LogOffset:              min(since, st.Log().Len()),
		Settings:               snap.Settings,
		Status:                 snap.Status,
		SoftwareVersionControl: s.config.BridgeVersion,
	}
	if info.Version.IsKnown() {
		resp.SoftwareVersion = info.Version.String()
	}
	return resp
}

func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	since := 0
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = n
	}
	respondJSON(w, http.StatusOK, s.buildInfo(since))
}

func (s *Server) handleGetPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := s.config.ListPorts()
	if err != nil {
		logging.Warn("Failed to list serial ports", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "cannot list serial ports")
		return
	}
	if ports == nil {
		ports = []radio.PortInfo{}
	}
	if detail, _ := strconv.ParseBool(r.URL.Query().Get("detail")); detail {
		respondJSON(w, http.StatusOK, ports)
		return
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	respondJSON(w, http.StatusOK, names)
}

// command adapts a parameterless controller operation to a handler.
func (s *Server) command(op func(Controller, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(s.ctrl, r.Context()); err != nil {
			respondSessionError(w, err)
			return
		}
		respondOK(w)
	}
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	params, err := req.params()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ctrl.Connect(r.Context(), params); err != nil {
		respondSessionError(w, err)
		return
	}
	respondOK(w)
}

func (s *Server) handleOnOff(w http.ResponseWriter, r *http.Request) {
	var req onOffRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ch, err := protocol.ParseNumber(string(req.Channel), 8)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid channel: "+err.Error())
		return
	}
	if err := s.ctrl.SetChannel(r.Context(), uint8(ch), bool(req.On)); err != nil {
		respondSessionError(w, err)
		return
	}
	respondOK(w)
}

func (s *Server) handleTempSwitch(w http.ResponseWriter, r *http.Request) {
	var req tempSwitchRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ctrl.SetTempSwitch(r.Context(), bool(req.On)); err != nil {
		respondSessionError(w, err)
		return
	}
	respondOK(w)
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// fields missing from the request keep their last known value
	base, ok := s.ctrl.Store().Settings()
	if !ok {
		base = protocol.DefaultSettings()
	}
	settings, err := req.apply(base)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ctrl.SetSettings(r.Context(), settings); err != nil {
		respondSessionError(w, err)
		return
	}
	respondOK(w)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warn("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondOK(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// respondSessionError maps the session error taxonomy to status codes.
func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case session.IsInvalidArgument(err), session.IsInvalidState(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case session.IsTransportFailure(err):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, session.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		logging.Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
