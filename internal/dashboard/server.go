// Package dashboard serves recorded sessions and teaching content over a
// JSON API. It reads whatever the engines have persisted; it never
// writes, and it keeps serving when individual records are bad.
package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"ctxlab/internal/accounting"
	"ctxlab/internal/events"
	"ctxlab/internal/teaching"
	"ctxlab/internal/types"
)

// Server exposes sessions, conversations, teaching annotations,
// insights, and cross-level comparisons. Session files are cached and
// the cache is invalidated by filesystem notifications on the log dir.
type Server struct {
	store    *events.Store
	registry *teaching.Registry
	log      *zap.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu       sync.RWMutex
	sessions []*types.QuerySession // nil means cache invalid
}

// NewServer builds a server over the store's log directory. The
// fsnotify watcher keeps the cache coherent as engines write new
// session files; if watching fails the server falls back to reloading
// on every request.
func NewServer(store *events.Store, registry *teaching.Registry, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:    store,
		registry: registry,
		log:      log,
		done:     make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(store.Dir()); err == nil {
			s.watcher = watcher
			go s.watch()
		} else {
			log.Warn("watching log dir failed, cache disabled", zap.Error(err))
			watcher.Close()
		}
	} else {
		log.Warn("fsnotify unavailable, cache disabled", zap.Error(err))
	}
	return s, nil
}

// Close stops the file watcher.
func (s *Server) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Server) watch() {
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.mu.Lock()
			s.sessions = nil
			s.mu.Unlock()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("log dir watch error", zap.Error(err))
		}
	}
}

func (s *Server) loadSessions() ([]*types.QuerySession, error) {
	if s.watcher != nil {
		s.mu.RLock()
		cached := s.sessions
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
	}
	sessions, err := s.store.LoadAll()
	if err != nil {
		return nil, err
	}
	if s.watcher != nil {
		s.mu.Lock()
		s.sessions = sessions
		s.mu.Unlock()
	}
	return sessions, nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/levels", s.handleLevels)
	mux.HandleFunc("GET /api/annotations/{level}", s.handleAnnotations)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSession)
	mux.HandleFunc("GET /api/conversations", s.handleConversations)
	mux.HandleFunc("GET /api/insights/{id}", s.handleInsights)
	mux.HandleFunc("GET /api/comparisons", s.handleComparisons)
	mux.HandleFunc("GET /api/verify", s.handleVerify)
	return mux
}

// ListenAndServe runs the API on addr until the server errors.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.log.Info("dashboard listening", zap.String("addr", addr))
	return server.ListenAndServe()
}

func (s *Server) handleLevels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.AllLevels())
}

func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil || s.registry.LevelInfo(level) == nil {
		writeError(w, http.StatusNotFound, "level not found")
		return
	}
	writeJSON(w, http.StatusOK, s.registry.Annotations(level))
}

type sessionSummary struct {
	QueryID     string     `json:"query_id"`
	Level       int        `json:"level"`
	QueryText   string     `json:"query_text"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	TotalTokens int        `json:"total_tokens"`
	EventCount  int        `json:"event_count"`
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := s.loadSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, sessionSummary{
			QueryID:     session.QueryID,
			Level:       session.Level,
			QueryText:   session.QueryText,
			StartedAt:   session.StartedAt,
			EndedAt:     session.EndedAt,
			TotalTokens: session.TotalTokens,
			EventCount:  len(session.Events),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

type annotatedEvent struct {
	types.Event
	Annotation *teaching.Annotation `json:"annotation,omitempty"`
}

type annotatedSession struct {
	*types.QuerySession
	Events []annotatedEvent `json:"events"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.Load(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if !strings.EqualFold(r.URL.Query().Get("annotated"), "true") {
		writeJSON(w, http.StatusOK, session)
		return
	}

	annotated := annotatedSession{QuerySession: session}
	for _, event := range session.Events {
		annotated.Events = append(annotated.Events, annotatedEvent{
			Event:      event,
			Annotation: s.registry.AnnotationForEvent(event.EventType, session.Level, session),
		})
	}
	writeJSON(w, http.StatusOK, annotated)
}

func (s *Server) handleConversations(w http.ResponseWriter, _ *http.Request) {
	groups, err := s.store.LoadConversations()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.Load(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	insights := s.registry.InsightsForSession(session)
	if insights == nil {
		insights = []*teaching.Insight{}
	}
	writeJSON(w, http.StatusOK, insights)
}

// handleComparisons contrasts the latest session per level.
func (s *Server) handleComparisons(w http.ResponseWriter, _ *http.Request) {
	sessions, err := s.loadSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	latest := make(map[int]*types.QuerySession)
	for _, session := range sessions { // sorted by start time; last wins
		latest[session.Level] = session
	}
	comparisons := s.registry.Comparisons(latest)
	if comparisons == nil {
		comparisons = []*teaching.ComparisonInsight{}
	}
	writeJSON(w, http.StatusOK, comparisons)
}

type verifyResult struct {
	Sessions []accounting.SessionReport     `json:"sessions"`
	Issues   []accounting.ConversationIssue `json:"conversation_issues"`
	Pass     bool                           `json:"pass"`
}

// handleVerify reconciles every persisted session's token math.
func (s *Server) handleVerify(w http.ResponseWriter, _ *http.Request) {
	sessions, err := s.loadSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	result := verifyResult{Pass: true}
	for _, session := range sessions {
		report := accounting.VerifySession(session)
		if !report.Pass() {
			result.Pass = false
		}
		result.Sessions = append(result.Sessions, report)
	}
	groups, err := s.store.LoadConversations()
	if err == nil {
		result.Issues = accounting.VerifyConversations(groups)
		if len(result.Issues) > 0 {
			result.Pass = false
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
