package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/radiusdt/adboard/internal/analytics"
	"github.com/radiusdt/adboard/internal/config"
	"github.com/radiusdt/adboard/internal/database"
	"github.com/radiusdt/adboard/internal/metrics"
	"github.com/radiusdt/adboard/internal/models"
	"github.com/radiusdt/adboard/internal/pipeline"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Manager *pipeline.Manager
	Redis   *database.RedisDB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps the HTTP handlers around the session manager.
type Server struct {
	manager *pipeline.Manager
	redis   *database.RedisDB
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		manager: deps.Manager,
		redis:   deps.Redis,
		logger:  deps.Logger,
		config:  deps.Config,
		metrics: deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Dashboard queries
	mux.HandleFunc("/dashboard/summary", s.handleSummary)
	mux.HandleFunc("/dashboard/daily", s.handleDaily)
	mux.HandleFunc("/dashboard/categories", s.handleCategories)
	mux.HandleFunc("/dashboard/compare", s.handleCompare)
	mux.HandleFunc("/dashboard/rows", s.handleRows)

	// Filters
	mux.HandleFunc("/filters/options", s.handleFilterOptions)

	// Session control
	mux.HandleFunc("/refresh", s.handleRefresh)

	return mux
}

// ---- Request payloads ----

// filterPayload is the wire form of a filter selection. Date bounds
// travel as calendar days, not timestamps.
type filterPayload struct {
	Filters   map[models.Dimension][]string `json:"filters"`
	StartDate string                        `json:"start_date"`
	EndDate   string                        `json:"end_date"`
}

func (p filterPayload) selection() (models.FilterSelection, error) {
	sel := models.FilterSelection{Values: p.Filters}
	if p.StartDate != "" {
		t, err := time.Parse("2006-01-02", p.StartDate)
		if err != nil {
			return sel, errors.New("invalid start_date, want YYYY-MM-DD")
		}
		sel.StartDate = &t
	}
	if p.EndDate != "" {
		t, err := time.Parse("2006-01-02", p.EndDate)
		if err != nil {
			return sel, errors.New("invalid end_date, want YYYY-MM-DD")
		}
		sel.EndDate = &t
	}
	return sel, nil
}

type queryRequest struct {
	Window models.Window `json:"window"`
	filterPayload
}

type compareRequest struct {
	Window models.Window `json:"window"`
	A      filterPayload `json:"a"`
	B      filterPayload `json:"b"`
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.redis != nil {
		if err := s.redis.Health(r.Context()); err != nil {
			status["redis"] = "unhealthy"
		} else {
			status["redis"] = "ok"
		}
	}
	s.jsonResponse(w, status)
}

// ---- Dashboard ----

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := s.session(w, r)
	if sess == nil {
		return
	}

	summary := analytics.BuildSummary(
		sess.Window(models.WindowYesterday),
		sess.Window(models.WindowLast7d),
	)

	s.jsonResponse(w, map[string]interface{}{
		"session_id":        sess.ID,
		"as_of":             sess.Anchor.Format("2006-01-02"),
		"mapping_available": sess.MappingAvailable,
		"summary":           summary,
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Window == "" {
		req.Window = models.WindowLast30d
	}
	if !req.Window.Valid() {
		s.errorResponse(w, "unknown window: "+string(req.Window), http.StatusBadRequest)
		return
	}

	sel, err := req.selection()
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if !s.requireMapping(w, sess, sel.UsesMappingDimensions()) {
		return
	}

	rows := analytics.Apply(sess.Window(req.Window), sel)
	s.jsonResponse(w, map[string]interface{}{
		"session_id": sess.ID,
		"window":     req.Window,
		"metrics":    analytics.Derive(rows, analytics.GroupDate),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	sel, err := req.selection()
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess := s.session(w, r)
	if sess == nil {
		return
	}
	// The whole breakdown is mapping-backed, not just its filters.
	if !s.requireMapping(w, sess, true) {
		return
	}

	rows := sess.Rows
	if req.Window != "" {
		if !req.Window.Valid() {
			s.errorResponse(w, "unknown window: "+string(req.Window), http.StatusBadRequest)
			return
		}
		rows = sess.Window(req.Window)
	}

	rows = analytics.Apply(rows, sel)
	s.jsonResponse(w, map[string]interface{}{
		"session_id": sess.ID,
		"metrics":    analytics.Derive(rows, analytics.GroupDateCategory),
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Window == "" {
		req.Window = models.WindowLast30d
	}
	if !req.Window.Valid() {
		s.errorResponse(w, "unknown window: "+string(req.Window), http.StatusBadRequest)
		return
	}

	selA, err := req.A.selection()
	if err != nil {
		s.errorResponse(w, "a: "+err.Error(), http.StatusBadRequest)
		return
	}
	selB, err := req.B.selection()
	if err != nil {
		s.errorResponse(w, "b: "+err.Error(), http.StatusBadRequest)
		return
	}

	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if !s.requireMapping(w, sess, selA.UsesMappingDimensions() || selB.UsesMappingDimensions()) {
		return
	}

	windowed := sess.Window(req.Window)
	s.jsonResponse(w, map[string]interface{}{
		"session_id": sess.ID,
		"window":     req.Window,
		"a":          analytics.Derive(analytics.Apply(windowed, selA), analytics.GroupDate),
		"b":          analytics.Derive(analytics.Apply(windowed, selB), analytics.GroupDate),
	})
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	window := models.Window(r.URL.Query().Get("window"))
	if window == "" {
		window = models.WindowLast30d
	}
	if !window.Valid() {
		s.errorResponse(w, "unknown window: "+string(window), http.StatusBadRequest)
		return
	}

	sess := s.session(w, r)
	if sess == nil {
		return
	}

	rows := sess.Window(window)
	s.jsonResponse(w, map[string]interface{}{
		"session_id":        sess.ID,
		"window":            window,
		"mapping_available": sess.MappingAvailable,
		"count":             len(rows),
		"rows":              rows,
	})
}

// ---- Filters ----

func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	sel, err := req.selection()
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if !s.requireMapping(w, sess, sel.UsesMappingDimensions()) {
		return
	}

	rows := sess.Rows
	if req.Window != "" {
		if !req.Window.Valid() {
			s.errorResponse(w, "unknown window: "+string(req.Window), http.StatusBadRequest)
			return
		}
		rows = sess.Window(req.Window)
	}

	options := analytics.Options(rows, sel)
	if !sess.MappingAvailable {
		// Without the reference every mapping-backed list would be a
		// single empty string; drop them instead of offering junk.
		for d := range options {
			if d.MappingBacked() {
				delete(options, d)
			}
		}
	}

	s.jsonResponse(w, map[string]interface{}{
		"session_id":        sess.ID,
		"mapping_available": sess.MappingAvailable,
		"options":           options,
	})
}

// ---- Session control ----

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, err := s.manager.Refresh(r.Context())
	if err != nil {
		s.sessionError(w, err)
		return
	}

	s.jsonResponse(w, map[string]interface{}{
		"session_id":        sess.ID,
		"rows":              len(sess.Rows),
		"accounts":          sess.Accounts,
		"skipped_rows":      sess.SkippedRows,
		"mapping_available": sess.MappingAvailable,
	})
}

// ---- Helper Methods ----

// session returns the current session or writes the error response and
// returns nil.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *pipeline.SessionContext {
	sess, err := s.manager.Session(r.Context())
	if err != nil {
		s.sessionError(w, err)
		return nil
	}
	return sess
}

// requireMapping enforces the display-blocking policy: when the request
// needs mapping-backed data and the reference failed to load, answer 409
// with the load failure instead of silently unfiltered data.
func (s *Server) requireMapping(w http.ResponseWriter, sess *pipeline.SessionContext, needed bool) bool {
	if !needed || sess.MappingAvailable {
		return true
	}
	msg := "mapping reference unavailable"
	if sess.MappingErr != nil {
		msg = sess.MappingErr.Error()
	}
	s.errorResponse(w, msg, http.StatusConflict)
	return false
}

func (s *Server) sessionError(w http.ResponseWriter, err error) {
	var empty *pipeline.EmptyResultError
	switch {
	case errors.As(err, &empty):
		s.errorResponse(w, err.Error(), http.StatusBadGateway)
	default:
		s.logger.Error("session build failed", zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
