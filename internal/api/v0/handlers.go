// Package v0 provides the REST API handlers for add-on hub access.
package v0

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/addonhub/addonhub/internal/addon"
	"github.com/addonhub/addonhub/internal/hub"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// AddonListResponse is the response for the add-on list endpoint
type AddonListResponse struct {
	Addons []*addon.Addon `json:"addons"`
	Total  int            `json:"total"`
}

// RegisterRequest is the body of a registration request
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Category string `json:"category"`
}

// StatusResponse is the response for the hub status endpoint
type StatusResponse struct {
	Status       hub.Status `json:"status"`
	Addons       int        `json:"addons"`
	Downloaded   int        `json:"downloaded"`
	GateCapacity int        `json:"gate_capacity"`
	GateInFlight int        `json:"gate_in_flight"`
	QueuePending int        `json:"queue_pending"`
}

type handler struct {
	hub *hub.Hub
}

// Router creates the v0 API router over the given hub
func Router(h *hub.Hub) http.Handler {
	hd := &handler{hub: h}

	r := chi.NewRouter()
	r.Get("/addons", hd.listAddons)
	r.Post("/addons", hd.registerAddon)
	r.Get("/addons/{owner}/{repo}", hd.getAddon)
	r.Post("/addons/{owner}/{repo}/update", hd.updateAddon)
	r.Post("/addons/{owner}/{repo}/install", hd.installAddon)
	r.Get("/status", hd.status)
	return r
}

// listAddons returns all registered add-ons, optionally filtered by category
func (hd *handler) listAddons(w http.ResponseWriter, r *http.Request) {
	var addons []*addon.Addon
	if category := r.URL.Query().Get("category"); category != "" {
		if !addon.Category(category).Valid() {
			writeError(w, http.StatusBadRequest, "unknown category: "+category)
			return
		}
		addons = hd.hub.Registry().ListByCategory(addon.Category(category))
	} else {
		addons = hd.hub.Registry().ListAll()
	}

	writeJSON(w, http.StatusOK, &AddonListResponse{Addons: addons, Total: len(addons)})
}

// getAddon returns a single add-on by slug
func (hd *handler) getAddon(w http.ResponseWriter, r *http.Request) {
	a := hd.hub.Registry().GetByFullName(slug(r))
	if a == nil {
		writeError(w, http.StatusNotFound, "add-on not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// registerAddon registers a new add-on through the admission gate
func (hd *handler) registerAddon(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FullName == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "full_name and category are required")
		return
	}

	if err := hd.hub.RegisterAddon(r.Context(), req.FullName, addon.Category(req.Category)); err != nil {
		if errors.Is(err, hub.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a := hd.hub.Registry().GetByFullName(req.FullName)
	if a == nil {
		// The remote call failed and was suppressed; nothing was registered
		writeError(w, http.StatusServiceUnavailable, "registration could not be completed, try again later")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// updateAddon triggers a gated update; ?full=true runs a full update
func (hd *handler) updateAddon(w http.ResponseWriter, r *http.Request) {
	fullName := slug(r)
	if hd.hub.Registry().GetByFullName(fullName) == nil {
		writeError(w, http.StatusNotFound, "add-on not found")
		return
	}

	update := hd.hub.CommonUpdate
	if r.URL.Query().Get("full") == "true" {
		update = hd.hub.FullUpdate
	}

	if err := update(r.Context(), fullName); err != nil {
		if errors.Is(err, hub.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// installAddon downloads an add-on's content and marks it installed
func (hd *handler) installAddon(w http.ResponseWriter, r *http.Request) {
	fullName := slug(r)
	if hd.hub.Registry().GetByFullName(fullName) == nil {
		writeError(w, http.StatusNotFound, "add-on not found")
		return
	}

	if err := hd.hub.Install(r.Context(), fullName); err != nil {
		if errors.Is(err, hub.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, hd.hub.Registry().GetByFullName(fullName))
}

// status returns hub status and gate statistics
func (hd *handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &StatusResponse{
		Status:       hd.hub.Status(),
		Addons:       hd.hub.Registry().Count(),
		Downloaded:   len(hd.hub.Registry().ListDownloaded()),
		GateCapacity: hd.hub.Gate().Capacity(),
		GateInFlight: hd.hub.Gate().InFlight(),
		QueuePending: hd.hub.Queue().PendingCount(),
	})
}

func slug(r *http.Request) string {
	return chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, &ErrorResponse{Error: message})
}
