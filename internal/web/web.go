package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"tutorsheet/internal/config"
	"tutorsheet/internal/formfiller"
	"tutorsheet/internal/ics"
	appLog "tutorsheet/internal/log"
	"tutorsheet/internal/meetings"
	"tutorsheet/internal/model"
	"tutorsheet/internal/roster"
	"tutorsheet/internal/timesheet"
	"tutorsheet/internal/window"
)

// meetingsCacheTTL bounds how long a window loaded by a request is served
// from memory. The unbounded window stored by Refresh is kept until the
// next refresh replaces it.
const meetingsCacheTTL = 30 * time.Second

// Server serves meetings, the rendered timesheet and the form filler
// userscript over HTTP.
type Server struct {
	cfg    *config.Config
	opener meetings.Opener
	mux    *http.ServeMux
	now    func() time.Time

	// In-memory cache of loaded windows, keyed by Window.String(), to avoid
	// redundant fetch/parse/expand work on every HTTP request.
	cacheMu sync.RWMutex
	cache   map[string]*meetingsCache
}

// meetingsCache holds a loaded window and its timestamp. Pinned entries
// were stored by Refresh and do not expire.
type meetingsCache struct {
	result    meetings.Result
	updatedAt time.Time
	pinned    bool
}

func (mc *meetingsCache) fresh(now time.Time) bool {
	return mc.pinned || now.Sub(mc.updatedAt) < meetingsCacheTTL
}

// NewServer constructs a new Server reading calendars through opener.
func NewServer(cfg *config.Config, opener meetings.Opener) *Server {
	s := &Server{
		cfg:    cfg,
		opener: opener,
		mux:    http.NewServeMux(),
		now:    time.Now,
		cache:  make(map[string]*meetingsCache),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Serve.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.Serve.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.Serve.BasicAuth.Username == "" || s.cfg.Serve.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.Serve.BasicAuth.Username
	password := s.cfg.Serve.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="tutorsheet", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves on cfg.Serve.Listen until ctx is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Serve.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Serve.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/meetings", s.handleMeetings)
	s.mux.HandleFunc("/timesheet", s.handleTimesheet)
	s.mux.HandleFunc("/formfiller.user.js", s.handleFormFiller)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Refresh reloads the unbounded window, bypassing the cache, and keeps the
// result until the next Refresh. A failed refresh leaves the previous result
// in place.
func (s *Server) Refresh(ctx context.Context) error {
	res, err := s.load(ctx, window.Unbounded(), true)
	if err != nil {
		return err
	}
	appLog.Info("meetings refreshed", "meetings", len(res.Occurrences), "warnings", res.Report.Len())
	return nil
}

// load returns the meetings in win, from the cache when it is fresh. With
// pin set the cache is bypassed and the new entry never expires.
func (s *Server) load(ctx context.Context, win window.Window, pin bool) (meetings.Result, error) {
	key := win.String()
	now := s.now()

	if !pin {
		s.cacheMu.RLock()
		mc := s.cache[key]
		s.cacheMu.RUnlock()
		if mc != nil && mc.fresh(now) {
			return mc.result, nil
		}
	}

	res, err := meetings.Load(ctx, s.opener, s.cfg.Calendar, meetings.Options{
		Window:                 win,
		MaxOccurrencesPerEvent: s.cfg.MaxOccurrencesPerEvent,
	})
	if err != nil {
		return res, err
	}
	res.Report.Log()

	s.cacheMu.Lock()
	for k, v := range s.cache {
		if !v.fresh(now) {
			delete(s.cache, k)
		}
	}
	s.cache[key] = &meetingsCache{result: res, updatedAt: now, pinned: pin}
	s.cacheMu.Unlock()

	return res, nil
}

// loadRoster reads the configured names file. A missing or malformed file
// is logged and treated as no roster.
func (s *Server) loadRoster() *roster.Roster {
	if s.cfg.NamesFile == "" {
		return nil
	}
	r, err := roster.Load(s.cfg.NamesFile)
	if err != nil {
		appLog.Warn("names file ignored", "path", s.cfg.NamesFile, "error", err.Error())
		return nil
	}
	return r
}

// meetingsResponse is the JSON response shape for /api/meetings.
type meetingsResponse struct {
	WindowStart   string       `json:"window_start"`
	WindowEnd     string       `json:"window_end"`
	Meetings      []meetingDTO `json:"meetings"`
	TotalSessions int          `json:"total_sessions"`
	TotalHours    float64      `json:"total_hours"`
	Warnings      []warningDTO `json:"warnings,omitempty"`
}

// meetingDTO is a JSON-friendly view of an occurrence.
type meetingDTO struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Student   string  `json:"student"`
	Activity  string  `json:"activity"`
	Course    string  `json:"course"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Hours     float64 `json:"hours"`
}

type warningDTO struct {
	Kind    string `json:"kind"`
	Line    int    `json:"line,omitempty"`
	Summary string `json:"summary,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// handleMeetings returns the ordered meetings in a window.
//
// GET /api/meetings?start=MM/DD/YYYY&end=MM/DD/YYYY
//
// Both parameters are optional and resolve the same way as the CLI flags.
func (s *Server) handleMeetings(w http.ResponseWriter, r *http.Request) {
	win, ok := s.windowFromQuery(w, r)
	if !ok {
		return
	}
	res, err := s.load(r.Context(), win, false)
	if err != nil {
		appLog.Error("api meetings: load failed", err)
		writeError(w, http.StatusBadGateway, "failed to load calendar")
		return
	}

	resp := meetingsResponse{
		WindowStart: model.DateString(win.Start),
		WindowEnd:   model.DateString(win.End),
		Meetings:    make([]meetingDTO, 0, len(res.Occurrences)),
	}
	for _, o := range res.Occurrences {
		hours, _ := timesheet.Hours(o)
		resp.Meetings = append(resp.Meetings, meetingDTO{
			ID:        o.ID,
			Date:      model.DateString(o.Date),
			Student:   o.Student,
			Activity:  o.Activity,
			Course:    o.Course,
			StartTime: o.StartTime,
			EndTime:   o.EndTime,
			Hours:     hours,
		})
		resp.TotalSessions++
		resp.TotalHours += hours
	}
	for _, wr := range res.Report.Warnings {
		resp.Warnings = append(resp.Warnings, warningDTO{
			Kind:    wr.Kind.String(),
			Line:    wr.Line,
			Summary: wr.Summary,
			Detail:  wr.Detail,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTimesheet renders the timesheet for a window as printable HTML.
func (s *Server) handleTimesheet(w http.ResponseWriter, r *http.Request) {
	win, ok := s.windowFromQuery(w, r)
	if !ok {
		return
	}
	res, err := s.load(r.Context(), win, false)
	if err != nil {
		appLog.Error("timesheet: load failed", err)
		writeError(w, http.StatusBadGateway, "failed to load calendar")
		return
	}

	period := ""
	if win != window.Unbounded() {
		period = win.String()
	}
	sheet := timesheet.Build(res.Occurrences, timesheet.Options{
		Title:       s.cfg.Timesheet.Title,
		Period:      period,
		RowsPerPage: s.cfg.Timesheet.RowsPerPage,
		Roster:      s.loadRoster(),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := timesheet.Render(w, sheet); err != nil {
		appLog.Error("timesheet: render failed", err)
	}
}

// handleFormFiller serves the userscript for meetings from today on.
func (s *Server) handleFormFiller(w http.ResponseWriter, r *http.Request) {
	res, err := s.load(r.Context(), window.From(s.now()), false)
	if err != nil {
		appLog.Error("formfiller: load failed", err)
		writeError(w, http.StatusBadGateway, "failed to load calendar")
		return
	}

	script := formfiller.New(res.Occurrences, formfiller.Options{
		Author:    s.cfg.FormFiller.Author,
		MatchURL:  s.cfg.FormFiller.MatchURL,
		Signature: s.cfg.FormFiller.Signature,
		Roster:    s.loadRoster(),
	})
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	if err := formfiller.Render(w, script); err != nil {
		appLog.Error("formfiller: render failed", err)
	}
}

// windowFromQuery resolves ?start= and ?end=. On error it writes a 400 and
// returns false.
func (s *Server) windowFromQuery(w http.ResponseWriter, r *http.Request) (window.Window, bool) {
	q := r.URL.Query()
	win, err := window.Resolve(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return window.Window{}, false
	}
	return win, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

var _ meetings.Opener = (*ics.Fetcher)(nil)
