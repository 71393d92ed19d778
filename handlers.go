package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Server is the HTTP front: static artifacts, the query endpoint and the ops API.
type Server struct {
	cfg           Config
	searcher      Searcher
	pipeline      *Pipeline
	store         *ArtifactStore
	limiter       *rate.Limiter
	msgs          Messages
	logger        *log.Logger
	searchTimeout time.Duration
}

func NewServer(cfg Config, searcher Searcher, pipeline *Pipeline, store *ArtifactStore, logger *log.Logger) *Server {
	return &Server{
		cfg:           cfg,
		searcher:      searcher,
		pipeline:      pipeline,
		store:         store,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		msgs:          messagesFor(cfg.Locale),
		logger:        logger,
		searchTimeout: cfg.MetadataTimeout,
	}
}

// Handler wires routes and middleware. Ops routes contain a '/', which a
// valid query never does, so they cannot shadow a search.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /{query...}", s.handleQuery)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/artifacts/{name}", s.handleArtifactInfo)
	mux.HandleFunc("DELETE /api/artifacts/{name}", s.handleDelete)

	return requestLogMiddleware(s.logger, corsMiddleware(rateLimitMiddleware(s.limiter, s.rejectUncleanPaths(mux))))
}

// rejectUncleanPaths answers 400 for paths the mux would otherwise clean and
// redirect, such as "/.." or "/a/../b". Those always carry ".." or "/" in
// the query.
func (s *Server) rejectUncleanPaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.Contains(p, "..") || (p != "/" && path.Clean(p) != p) {
			s.writeError(w, r, &ValidationError{Reason: ReasonInvalid})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errorKind(err)
	status := statusFor(err)
	if kind != KindValidation {
		s.logger.Warn("request failed", "id", requestIDFrom(r.Context()), "path", r.URL.Path, "kind", kind, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{
		"error": s.msgs.Message(err),
		"kind":  kind,
	})
}

// GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, &ValidationError{Reason: ReasonEmpty})
}

// GET /{query}
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("query")
	if s.serveArtifact(w, r, raw) {
		return
	}

	query, err := ValidateQuery(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	searchCtx, cancel := context.WithTimeout(r.Context(), s.searchTimeout)
	candidate, err := s.searcher.Search(searchCtx, query)
	cancel()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("🔎 Video found", "query", query, "title", candidate.Title, "url", watchURL(candidate.ID))

	artifact, err := s.pipeline.Produce(r.Context(), candidate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, artifact.URLPath(), http.StatusFound)
}

// artifactPath resolves name inside the artifact dir, rejecting anything
// that is not a plain visible file name.
func (s *Server) artifactPath(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return filepath.Join(s.cfg.ArtifactDir, name), true
}

// serveArtifact serves name from the artifact dir when it exists.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, name string) bool {
	file, ok := s.artifactPath(name)
	if !ok {
		return false
	}
	fi, err := os.Stat(file)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	if strings.HasSuffix(name, ArtifactExt) {
		w.Header().Set("Content-Type", "audio/mpeg")
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, file)
	return true
}
