// Package httpapi exposes fleetdeck over HTTP: tour control, the event
// stream for attached dashboards, narration warm-up, chat, and the fleet
// data endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/opentelematics/fleetdeck/internal/chat"
	"github.com/opentelematics/fleetdeck/internal/events"
	"github.com/opentelematics/fleetdeck/internal/fleet"
	"github.com/opentelematics/fleetdeck/internal/logging"
	"github.com/opentelematics/fleetdeck/internal/narration"
	"github.com/opentelematics/fleetdeck/internal/tour"
)

const shutdownGrace = 5 * time.Second

// Deps are the collaborators the API serves. Tours and Bus are required;
// the rest disable their endpoints when nil.
type Deps struct {
	Tours *tour.Manager
	Bus   *events.Bus
	Chat  *chat.Client
	Fleet *fleet.Client
	Cache *fleet.Cache

	// WarmUp pre-renders narration for the default tour.
	WarmUp func(ctx context.Context) (narration.WarmUpResult, error)
}

// Server is the fleetdeck HTTP API.
type Server struct {
	deps   Deps
	logger zerolog.Logger
	router *mux.Router
}

// NewServer builds the API over its collaborators.
func NewServer(deps Deps) *Server {
	s := &Server{
		deps:   deps,
		logger: logging.Component("httpapi"),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves the API on addr until the context is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	server := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.logger.Info().Str("addr", addr).Msg("http api starting")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("http api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	api.HandleFunc("/tours", s.handleListTours).Methods(http.MethodGet)
	api.HandleFunc("/tour/start", s.handleTourStart).Methods(http.MethodPost)
	api.HandleFunc("/tour/stop", s.handleTourStop).Methods(http.MethodPost)
	api.HandleFunc("/tour/status", s.handleTourStatus).Methods(http.MethodGet)

	api.HandleFunc("/narration/warmup", s.handleWarmUp).Methods(http.MethodPost)

	api.HandleFunc("/chat/message", s.handleChatMessage).Methods(http.MethodPost)
	api.HandleFunc("/chat/transcript", s.handleChatTranscript).Methods(http.MethodGet)

	api.HandleFunc("/fleet/vehicles", s.handleVehicles).Methods(http.MethodGet)
	api.HandleFunc("/fleet/locations", s.handleLocations).Methods(http.MethodGet)
	api.HandleFunc("/fleet/refresh", s.handleFleetRefresh).Methods(http.MethodPost)
	api.HandleFunc("/fleet/datasets", s.handleDatasets).Methods(http.MethodGet)
	api.HandleFunc("/fleet/query", s.handleFleetQuery).Methods(http.MethodPost)
	api.HandleFunc("/fleet/export/{dataset}", s.handleFleetExport).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type tourSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
	Source      string `json:"source"`
}

func (s *Server) handleListTours(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tours == nil {
		writeError(w, http.StatusServiceUnavailable, "tours are not configured")
		return
	}

	defs := s.deps.Tours.List()
	out := make([]tourSummary, 0, len(defs))
	for _, def := range defs {
		out = append(out, tourSummary{
			Name:        def.Name,
			Description: def.Description,
			Steps:       len(def.Steps),
			Source:      def.Source,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTourStart(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tours == nil {
		writeError(w, http.StatusServiceUnavailable, "tours are not configured")
		return
	}

	var payload struct {
		Tour string `json:"tour"`
	}
	if r.Body != nil {
		// An empty body means the default tour.
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	if err := s.deps.Tours.Start(strings.TrimSpace(payload.Tour)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name, stats := s.deps.Tours.Status()
	writeJSON(w, http.StatusOK, statusPayload(name, stats))
}

func (s *Server) handleTourStop(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tours == nil {
		writeError(w, http.StatusServiceUnavailable, "tours are not configured")
		return
	}
	s.deps.Tours.Stop()
	name, stats := s.deps.Tours.Status()
	writeJSON(w, http.StatusOK, statusPayload(name, stats))
}

func (s *Server) handleTourStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tours == nil {
		writeError(w, http.StatusServiceUnavailable, "tours are not configured")
		return
	}
	name, stats := s.deps.Tours.Status()
	writeJSON(w, http.StatusOK, statusPayload(name, stats))
}

func statusPayload(name string, stats tour.Stats) map[string]any {
	return map[string]any{
		"tour":              name,
		"running":           stats.Running,
		"index":             stats.Index,
		"steps_completed":   stats.StepsCompleted,
		"wait_timeouts":     stats.WaitTimeouts,
		"queries_submitted": stats.QueriesSubmitted,
	}
}

func (s *Server) handleWarmUp(w http.ResponseWriter, r *http.Request) {
	if s.deps.WarmUp == nil {
		writeError(w, http.StatusServiceUnavailable, "narration warm-up is not configured")
		return
	}

	result, err := s.deps.WarmUp(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat payload")
		return
	}

	s.deps.Chat.SetDraft(payload.Text)
	if err := s.deps.Chat.Submit(context.Background()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (s *Server) handleChatTranscript(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": s.deps.Chat.Transcript(),
		"awaiting": s.deps.Chat.AwaitingReply(),
	})
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	if s.deps.Fleet == nil {
		writeError(w, http.StatusServiceUnavailable, "fleet service is not configured")
		return
	}

	vehicles, err := s.deps.Fleet.Vehicles(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	if s.deps.Fleet == nil {
		writeError(w, http.StatusServiceUnavailable, "fleet service is not configured")
		return
	}

	locations, err := s.deps.Fleet.Locations(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

func (s *Server) handleFleetRefresh(w http.ResponseWriter, r *http.Request) {
	if s.deps.Fleet == nil || s.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "fleet cache is not configured")
		return
	}

	counts, err := fleet.Refresh(r.Context(), s.deps.Fleet, s.deps.Cache)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": counts})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "fleet cache is not configured")
		return
	}

	infos, err := s.deps.Cache.ListDatasets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleFleetQuery(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "fleet cache is not configured")
		return
	}

	var payload struct {
		SQL string `json:"sql"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.SQL) == "" {
		writeError(w, http.StatusBadRequest, "sql is required")
		return
	}

	result, err := s.deps.Cache.Query(r.Context(), payload.SQL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFleetExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "fleet cache is not configured")
		return
	}

	dataset := mux.Vars(r)["dataset"]
	csv, err := s.deps.Cache.ExportCSV(r.Context(), dataset)
	if err != nil {
		if errors.Is(err, fleet.ErrDatasetNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+dataset+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csv))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
