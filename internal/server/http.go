package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/repo"
	"github.com/user/groupwatch/internal/biz/usecase"
)

const groupLogsPageSize = 100

// HTTPServer is the dashboard-facing REST API plus the WebSocket
// endpoint.
type HTTPServer struct {
	hub      *Hub
	settings *usecase.SettingsUsecase
	export   *usecase.ExportUsecase
	registry *usecase.GroupRegistry
	logs     repo.AlertLogRepo
	chats    repo.ChatRepo

	server *http.Server
	port   int
}

// NewHTTPServer creates the API server.
func NewHTTPServer(
	hub *Hub,
	settings *usecase.SettingsUsecase,
	export *usecase.ExportUsecase,
	registry *usecase.GroupRegistry,
	logs repo.AlertLogRepo,
	chats repo.ChatRepo,
	port int,
) *HTTPServer {
	return &HTTPServer{
		hub:      hub,
		settings: settings,
		export:   export,
		registry: registry,
		logs:     logs,
		chats:    chats,
		port:     port,
	}
}

// routes builds the router. Split out so tests can mount it on an
// httptest server.
func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/ws", s.hub.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/chats", s.handleChats)
		r.Get("/search-groups", s.handleSearchGroups)
		r.Get("/monitored-groups", s.handleMonitoredGroups)
		r.Post("/monitor-group", s.handleMonitorGroup)
		r.Post("/unmonitor-group", s.handleUnmonitorGroup)
		r.Post("/update-group-config", s.handleUpdateGroupConfig)
		r.Get("/group-logs/{groupID}", s.handleGroupLogs)
		r.Get("/export-group/{groupID}", s.handleExportGroup)
		r.Get("/group-all-messages/{groupID}", s.handleGroupAllMessages)
		r.Get("/config", s.handleGetConfig)
		r.Post("/save-config", s.handleSaveConfig)
		r.Post("/save-quick-config", s.handleSaveQuickConfig)
		r.Get("/stats", s.handleStats)
	})

	return r
}

// Start runs the server until Stop.
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.routes(),
	}

	fmt.Printf("[API] Starting HTTP server on port %d\n", s.port)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *HTTPServer) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleChats(w http.ResponseWriter, req *http.Request) {
	groups := s.registry.Snapshot()
	writeJSON(w, map[string]interface{}{"success": true, "chats": groups})
}

func (s *HTTPServer) handleSearchGroups(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query().Get("query")
	writeJSON(w, map[string]interface{}{"success": true, "groups": s.registry.Search(query)})
}

func (s *HTTPServer) handleMonitoredGroups(w http.ResponseWriter, req *http.Request) {
	groups, err := s.settings.Groups(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if groups == nil {
		groups = []*domain.MonitoredGroup{}
	}
	writeJSON(w, map[string]interface{}{"success": true, "groups": groups})
}

func (s *HTTPServer) handleMonitorGroup(w http.ResponseWriter, req *http.Request) {
	var body struct {
		GroupID        string   `json:"groupId"`
		GroupName      string   `json:"groupName"`
		CustomKeywords []string `json:"customKeywords"`
		MinFare        *int     `json:"minFare"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if body.GroupID == "" {
		writeBadRequest(w, "groupId is required")
		return
	}

	group, err := s.settings.AddGroup(req.Context(), body.GroupID, body.GroupName, body.CustomKeywords, body.MinFare)
	if errors.Is(err, domain.ErrAlreadyMonitored) {
		writeJSON(w, map[string]interface{}{
			"success": false,
			"error":   "El grupo ya está siendo monitoreado",
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "group": group})
}

func (s *HTTPServer) handleUnmonitorGroup(w http.ResponseWriter, req *http.Request) {
	var body struct {
		GroupID string `json:"groupId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.GroupID == "" {
		writeBadRequest(w, "groupId is required")
		return
	}

	removed, err := s.settings.RemoveGroup(req.Context(), body.GroupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "removed": removed})
}

func (s *HTTPServer) handleUpdateGroupConfig(w http.ResponseWriter, req *http.Request) {
	var body struct {
		GroupID string                 `json:"groupId"`
		Updates map[string]interface{} `json:"updates"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.GroupID == "" {
		writeBadRequest(w, "groupId is required")
		return
	}

	group, err := s.settings.UpdateGroup(req.Context(), body.GroupID, body.Updates)
	if errors.Is(err, domain.ErrGroupNotFound) {
		writeNotFound(w, "Grupo no encontrado")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "group": group})
}

func (s *HTTPServer) handleGroupLogs(w http.ResponseWriter, req *http.Request) {
	groupID := chi.URLParam(req, "groupID")

	entries, err := s.logs.ReadRecent(req.Context(), groupID, groupLogsPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.AlertEntry{}
	}
	writeJSON(w, map[string]interface{}{"success": true, "logs": entries})
}

func (s *HTTPServer) handleExportGroup(w http.ResponseWriter, req *http.Request) {
	groupID := chi.URLParam(req, "groupID")
	format := req.URL.Query().Get("format")
	if format == "" {
		format = usecase.FormatJSON
	}

	payload, contentType, err := s.export.Export(req.Context(), groupID, format)
	if errors.Is(err, domain.ErrGroupNotFound) {
		writeNotFound(w, "Grupo no encontrado")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("group_%s_%d.%s", groupID, time.Now().UnixMilli(), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(payload)
}

func (s *HTTPServer) handleGroupAllMessages(w http.ResponseWriter, req *http.Request) {
	groupID := chi.URLParam(req, "groupID")

	limit := 50
	if raw := req.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	messages, err := s.chats.FetchRecentMessages(req.Context(), groupID, limit)
	if errors.Is(err, domain.ErrUpstreamDown) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "WhatsApp is not connected",
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	writeJSON(w, map[string]interface{}{"success": true, "messages": messages})
}

func (s *HTTPServer) handleGetConfig(w http.ResponseWriter, req *http.Request) {
	cfg, err := s.settings.Global(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "config": cfg})
}

func (s *HTTPServer) handleSaveConfig(w http.ResponseWriter, req *http.Request) {
	var patch map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	cfg, err := s.settings.SaveGlobal(req.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "config": cfg})
}

func (s *HTTPServer) handleSaveQuickConfig(w http.ResponseWriter, req *http.Request) {
	var body struct {
		BotActive bool `json:"botActive"`
		ReadOnly  bool `json:"readOnly"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.settings.SaveQuick(req.Context(), body.BotActive, body.ReadOnly); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":   true,
		"botActive": body.BotActive,
		"readOnly":  body.ReadOnly,
	})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, req *http.Request) {
	stats, err := s.settings.Stats(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "stats": stats})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}

func writeNotFound(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}
