// Package api provides the HTTP API server for remote recording and playback
// control.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/config"
	"github.com/atomdellow/autodesktop/internal/engine"
	"github.com/atomdellow/autodesktop/internal/logging"
	"github.com/atomdellow/autodesktop/internal/player"
)

// Server provides HTTP API for remote control
type Server struct {
	log       *zap.Logger
	configMgr *config.Manager
	engine    *engine.Engine
	token     string
	wsMgr     *WSManager
}

// NewServer creates a new API server
func NewServer(configMgr *config.Manager, eng *engine.Engine) *Server {
	s := &Server{
		log:       logging.Named("api"),
		configMgr: configMgr,
		engine:    eng,
	}
	s.wsMgr = newWSManager(s)

	eng.OnRecordState(s.wsMgr.BroadcastRecordState)
	eng.OnPlayState(s.wsMgr.BroadcastPlayState)
	eng.OnProgress(func(p player.Progress) {
		s.wsMgr.BroadcastProgress(p.Completed, p.Total, p.Message)
	})
	return s
}

// Handler builds the routed and middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/workflows", s.handleWorkflows)
	mux.HandleFunc("/api/record/start", s.handleRecordStart)
	mux.HandleFunc("/api/record/stop", s.handleRecordStop)
	mux.HandleFunc("/api/play", s.handlePlay)
	mux.HandleFunc("/api/abort", s.handleAbort)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start starts the API server on the specified port. It blocks until the
// listener fails or is closed.
func (s *Server) Start(port int) error {
	cfg := s.configMgr.Get()
	s.token = cfg.API.Token

	go s.wsMgr.start()

	// Use "0.0.0.0:port" and explicitly use tcp4 to avoid IPv6-only binding issues on Windows
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	s.log.Info("starting API server", zap.String("addr", addr))

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		s.log.Error("API server failed to listen", zap.String("addr", addr), zap.Error(err))
		return err
	}

	server := &http.Server{
		Handler: s.Handler(),
	}

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.log.Error("API server stopped", zap.Error(err))
		return err
	}
	return nil
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("request panic", zap.Any("panic", err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr))

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if s.token != "" {
			authHeader := r.Header.Get("Authorization")
			expectedAuth := "Bearer " + s.token

			if authHeader != expectedAuth {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]interface{}{
		"recording": s.engine.IsRecording(),
		"playing":   s.engine.IsPlaying(),
	})
}

// handleWorkflows handles GET (list) and DELETE (?id=) for stored workflows
func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		workflows, err := s.engine.Store().List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, workflows)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing id parameter", http.StatusBadRequest)
			return
		}
		if err := s.engine.Store().Delete(id); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRecordStart handles POST /api/record/start
func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.engine.StartRecording(); err != nil {
		s.log.Warn("record start rejected", zap.Error(err))
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]string{"status": "recording"})
}

// handleRecordStop handles POST /api/record/stop?name=<name>
func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "recording"
	}

	wf, err := s.engine.StopRecording(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if wf == nil {
		writeJSON(w, map[string]string{"status": "empty"})
		return
	}
	writeJSON(w, wf)
}

// handlePlay handles POST /api/play?id=<id>; without id the latest workflow
// is replayed. Playback runs asynchronously.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.engine.IsPlaying() {
		http.Error(w, "playback already in progress", http.StatusConflict)
		return
	}

	id := r.URL.Query().Get("id")
	go func() {
		var err error
		if id == "" {
			err = s.engine.PlayLatest(context.Background())
		} else {
			err = s.engine.Play(context.Background(), id)
		}
		if err != nil {
			s.log.Warn("playback ended with error", zap.String("id", id), zap.Error(err))
		}
	}()

	writeJSON(w, map[string]string{"status": "playing"})
}

// handleAbort handles POST /api/abort
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.engine.Abort()
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleConfig handles GET (read) and POST (update) for configuration
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.configMgr.Get())

	case http.MethodPost:
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			http.Error(w, "Invalid configuration data", http.StatusBadRequest)
			return
		}

		s.configMgr.Set(&newCfg)
		if err := s.configMgr.Save(); err != nil {
			s.log.Error("failed to save config", zap.Error(err))
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
