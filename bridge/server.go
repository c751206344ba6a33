// Package bridge exposes the recording pipeline over local HTTP: RPC
// commands for a UI shell plus a server-sent-events stream mirroring
// the internal event bus.
package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"murmur/audio"
	"murmur/config"
	"murmur/events"
	"murmur/history"
	"murmur/hotkey"
	"murmur/log"
	"murmur/permissions"
	"murmur/session"
)

type Server struct {
	ctrl     *session.Controller
	engine   *audio.Engine
	store    *history.Store
	settings *config.Store
	bus      *events.Bus
	rebind   func(hotkey.Binding) error
}

func NewServer(ctrl *session.Controller, engine *audio.Engine, store *history.Store, settings *config.Store, bus *events.Bus, rebind func(hotkey.Binding) error) *Server {
	return &Server{
		ctrl:     ctrl,
		engine:   engine,
		store:    store,
		settings: settings,
		bus:      bus,
		rebind:   rebind,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/rpc", func(r chi.Router) {
		r.Post("/begin_recording", s.beginRecording)
		r.Post("/finalize_recording", s.finalizeRecording)
		r.Post("/cancel_recording", s.cancelRecording)
		r.Get("/history", s.listHistory)
		r.Get("/devices", s.listDevices)
		r.Get("/default_device", s.getDefaultDevice)
		r.Post("/default_device", s.setDefaultDevice)
		r.Post("/shortcuts", s.setShortcuts)
		r.Get("/settings", s.getSettings)
		r.Post("/user_profile", s.setUserProfile)
		r.Post("/api_key", s.setAPIKey)
		r.Get("/permissions", s.getPermissions)
		r.Post("/permissions/request", s.requestPermissions)
	})
	r.Get("/events", s.streamEvents)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps pipeline errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrAlreadyRecording), errors.Is(err, audio.ErrAlreadyRecording):
		status = http.StatusConflict
	case errors.Is(err, audio.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, audio.ErrDeviceUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, history.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) beginRecording(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"device_id"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.DeviceID == "" {
		req.DeviceID = s.settings.Get().Audio.DefaultDevice
	}

	id, err := s.ctrl.Begin(req.DeviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recording_id": id})
}

func (s *Server) finalizeRecording(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Finalize()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) cancelRecording(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Cancel()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.engine.Devices()
	if err != nil {
		writeError(w, err)
		return
	}
	type deviceBody struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Bluetooth bool   `json:"bluetooth"`
	}
	out := make([]deviceBody, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceBody{
			ID:        d.ID,
			Name:      d.Name,
			Bluetooth: audio.IsBluetooth(d.Name),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getDefaultDevice(w http.ResponseWriter, r *http.Request) {
	id := s.settings.Get().Audio.DefaultDevice
	name := ""
	if id != "" {
		if d, err := s.engine.Lookup(id); err == nil && d != nil {
			name = d.Name
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":   id,
		"name": name,
	})
}

func (s *Server) setDefaultDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body"})
		return
	}
	if req.DeviceID != "" {
		if _, err := s.engine.Lookup(req.DeviceID); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := s.settings.Update(func(st *config.Settings) {
		st.Audio.DefaultDevice = req.DeviceID
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) setShortcuts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordKey      string `json:"record_key"`
		RecordModifier string `json:"record_modifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body"})
		return
	}

	binding := hotkey.Binding{
		Key:      strings.ToLower(strings.TrimSpace(req.RecordKey)),
		Modifier: strings.ToLower(strings.TrimSpace(req.RecordModifier)),
	}
	if err := binding.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if s.rebind != nil {
		if err := s.rebind(binding); err != nil {
			log.Warnf("shortcut rebind failed: %v", err)
			writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
			return
		}
	}
	if err := s.settings.Update(func(st *config.Settings) {
		st.Shortcuts.RecordKey = binding.Key
		st.Shortcuts.RecordModifier = binding.Modifier
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	st := s.settings.Get()
	// API keys stay local; expose only which providers are configured.
	providers := make([]string, 0, len(st.APIKeys))
	for name, key := range st.APIKeys {
		if key != "" {
			providers = append(providers, name)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shortcuts":         st.Shortcuts,
		"audio":             st.Audio,
		"window":            st.Window,
		"user_profile":      st.UserProfile,
		"api_key_providers": providers,
	})
}

func (s *Server) setUserProfile(w http.ResponseWriter, r *http.Request) {
	var req config.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body"})
		return
	}
	if err := s.settings.Update(func(st *config.Settings) {
		st.UserProfile = req
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) setAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		Key      string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Provider == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body"})
		return
	}
	if err := s.settings.Update(func(st *config.Settings) {
		if req.Key == "" {
			delete(st.APIKeys, req.Provider)
		} else {
			st.APIKeys[req.Provider] = req.Key
		}
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getPermissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, permissions.Check())
}

func (s *Server) requestPermissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, permissions.Status{
		Microphone:    permissions.RequestMicrophone(),
		Accessibility: permissions.RequestAccessibility(),
	})
}
