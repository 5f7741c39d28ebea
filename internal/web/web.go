package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"easyics/internal/config"
	appLog "easyics/internal/log"
)

// Server exposes the Service over HTTP.
type Server struct {
	cfg *config.Config
	svc *Service
	mux *http.ServeMux
}

// NewServer constructs a new Server around svc.
func NewServer(cfg *config.Config, svc *Service) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := s.limitBody(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than locking everyone out.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="EasyICS", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody caps every request body at max_input_bytes.
func (s *Server) limitBody(next http.Handler) http.Handler {
	limit := s.cfg.MaxInputBytes
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
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

// Serve runs an HTTP server on cfg.Listen until ctx is cancelled, then
// shuts it down gracefully.
func Serve(ctx context.Context, cfg *config.Config, svc *Service) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/check_health", s.handleCheckHealth)
	s.mux.HandleFunc("POST /api/upload/text", s.handleUploadText)
	s.mux.HandleFunc("POST /api/upload/ics", s.handleUploadICS)
	s.mux.HandleFunc("POST /api/download_ics", s.handleDownloadICS)
	s.mux.HandleFunc("POST /api/occurrences", s.handleOccurrences)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleCheckHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

// handleUploadText parses free text into events.
//
// POST /api/upload/text?text=...&timezone=Asia/Shanghai
//   - form or query fields text / timezone, or
//   - a JSON body {"text": "...", "timezone": "..."}
func (s *Server) handleUploadText(w http.ResponseWriter, r *http.Request) {
	var req ParseTextRequest
	if isJSON(r) {
		if !decodeJSON(w, r, &req) {
			return
		}
	} else {
		req.Text = r.FormValue("text")
		req.Timezone = r.FormValue("timezone")
	}

	resp, err := s.svc.ParseText(req.Text, req.Timezone)
	if err != nil {
		s.fail(w, "api upload text", err)
		return
	}
	appLog.Info("api upload text", "count", resp.Count, "timezone", resp.Timezone)
	writeJSON(w, http.StatusOK, resp)
}

// handleUploadICS reads a raw ICS body back into events.
func (s *Server) handleUploadICS(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeReadError(w, err)
		return
	}
	resp, err := s.svc.ImportICS(body, r.URL.Query().Get("timezone"))
	if err != nil {
		s.fail(w, "api upload ics", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDownloadICS returns the requested events as a calendar attachment.
func (s *Server) handleDownloadICS(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.svc.BuildICS(req)
	if err != nil {
		s.fail(w, "api download ics", err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=calendar.ics")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

// handleOccurrences expands events (recurring ones included) over a window.
//
// POST /api/occurrences {"events": [...], "days": 7, "timezone": "UTC"}
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	var req OccurrencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.svc.Occurrences(req)
	if err != nil {
		s.fail(w, "api occurrences", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= 500 {
		appLog.Error(op+" failed", err)
	} else {
		appLog.Warn(op+" rejected", "error", err.Error())
	}
	writeError(w, status, ErrorMessage(err))
}

func writeReadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "failed to read request body")
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mt, "application/json")
}

// decodeJSON reads the request body into v, writing the error response
// itself when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeReadError(w, err)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
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
