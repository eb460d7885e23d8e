package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-integra/internal/journal"
	"github.com/nerrad567/gray-logic-integra/internal/satel"
)

// SnapshotResponse is the full panel state as the bridge last saw it.
type SnapshotResponse struct {
	PanelConnected bool                        `json:"panel_connected"`
	States         map[string]satel.StateEntry `json:"states"`
	Temperatures   []satel.TempReading         `json:"temperatures"`
}

// handleSnapshot returns the whole snapshot: every known state category
// plus all temperature readings.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	view := s.panel.CurrentSnapshot().Export()
	sort.Slice(view.Temperatures, func(i, j int) bool {
		return view.Temperatures[i].Zone < view.Temperatures[j].Zone
	})

	writeJSON(w, http.StatusOK, SnapshotResponse{
		PanelConnected: s.panel.IsConnected(),
		States:         view.States,
		Temperatures:   view.Temperatures,
	})
}

// handleStateKind returns one state category by its snake_case name,
// e.g. GET /api/v1/state/armed_partitions.
func (s *Server) handleStateKind(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	view := s.panel.CurrentSnapshot().Export()
	entry, ok := view.States[kind]
	if !ok {
		writeNotFound(w, "no state recorded for category "+kind)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":  kind,
		"items": entry.Items,
		"at":    entry.At,
	})
}

// handleTemperatures returns every known temperature reading, sorted by
// zone.
func (s *Server) handleTemperatures(w http.ResponseWriter, _ *http.Request) {
	view := s.panel.CurrentSnapshot().Export()
	sort.Slice(view.Temperatures, func(i, j int) bool {
		return view.Temperatures[i].Zone < view.Temperatures[j].Zone
	})
	writeJSON(w, http.StatusOK, view.Temperatures)
}

// handleTemperatureZone returns the latest reading for one zone.
func (s *Server) handleTemperatureZone(w http.ResponseWriter, r *http.Request) {
	zone, err := strconv.Atoi(chi.URLParam(r, "zone"))
	if err != nil || zone < 1 || zone > 255 {
		writeBadRequest(w, "zone must be a number between 1 and 255")
		return
	}

	reading, ok := s.panel.CurrentSnapshot().Temperature(zone)
	if !ok {
		writeNotFound(w, "no reading for zone "+strconv.Itoa(zone))
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// EventResponse is one journal entry in the events listing.
type EventResponse struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Category   string    `json:"category"`
	Kind       string    `json:"kind"`
	Numbers    []int     `json:"numbers"`
	Detail     string    `json:"detail,omitempty"`
}

// handleListEvents lists journal events, newest first.
//
// Query parameters:
//   - category: filter by event category (alarm, arming, trouble, command, connection)
//   - since, until: RFC 3339 timestamps bounding the window
//   - limit: maximum number of events (default 200)
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := journal.Filter{
		Category: journal.Category(q.Get("category")),
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "until must be an RFC 3339 timestamp")
			return
		}
		filter.Until = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive number")
			return
		}
		filter.Limit = n
	}

	events, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list journal events", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		numbers := ev.Numbers
		if numbers == nil {
			numbers = []int{}
		}
		out = append(out, EventResponse{
			ID:         ev.ID,
			OccurredAt: ev.OccurredAt,
			Category:   string(ev.Category),
			Kind:       ev.Kind,
			Numbers:    numbers,
			Detail:     ev.Detail,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": out,
		"count":  len(out),
	})
}
