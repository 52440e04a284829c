package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunecache/internal/api"
	"tunecache/internal/config"
	"tunecache/internal/logging"
	"tunecache/internal/services"
)

const requestIDHeader = "X-Request-ID"

const (
	apiWriteTimeout = 30 * time.Second
	// playWriteHeadroom covers the store round trips /play makes after resolving.
	playWriteHeadroom = 15 * time.Second
)

// playWriteTimeout bounds writing a /play reply. Resolution runs on the
// request path and may make two yt-dlp lookups (id, then search fallback),
// each capped by ytdlp.resolve_timeout.
func playWriteTimeout(cfg *config.Config) time.Duration {
	resolve := time.Duration(cfg.YTDLP.ResolveTimeout) * time.Second
	if resolve <= 0 {
		return 0
	}
	return 2*resolve + playWriteHeadroom
}

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	play    *api.PlayService
	records *api.RecordService

	playWriteTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, play *api.PlayService, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logging.NewComponentLogger(logger, "api-server"),
		daemon:  d,
		play:    play,
		records: d.records,

		playWriteTimeout: playWriteTimeout(cfg),
	}
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.Paths.APIToken)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      apiWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/play", s.handlePlay)
	mux.HandleFunc("/api/records", authMiddleware(token, s.handleRecords))
	mux.HandleFunc("/api/records/", authMiddleware(token, s.handleRecord))
	mux.HandleFunc("/api/health", authMiddleware(token, s.handleHealth))
	return s.withRequestID(mux)
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ServiceInfo{
		Status:  "Running",
		Service: "tunecache",
		Version: api.Version,
		Store:   s.daemon.store.Backend(),
	})
}

func (s *apiServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	// /play outlives the server-wide write timeout; zero clears the deadline.
	var deadline time.Time
	if s.playWriteTimeout > 0 {
		deadline = time.Now().Add(s.playWriteTimeout)
	}
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil {
		s.logger.Debug("write deadline not adjustable", logging.Error(err))
	}
	resp, status := s.play.Play(r.Context(), r.URL.Query().Get("query"))
	s.writeJSON(w, status, resp)
}

func (s *apiServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	states, err := api.ParseStates(r.URL.Query()["state"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.records.List(r.Context(), states...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []api.Record{}
	}
	s.writeJSON(w, http.StatusOK, api.RecordListResponse{Records: records})
}

func (s *apiServer) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/records/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	rec, err := s.records.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecordResponse{Record: *rec})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Health(r.Context()))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
