// Copyright 2024-2026 Aiku AI

// Package admin serves the operational HTTP API: health, metrics, contact
// domain reloads and on-demand sync runs.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aiku/james-sync/pkg/connector"
	"github.com/aiku/james-sync/pkg/syncer"
)

// maxReloadBodySize caps the reload request body.
const maxReloadBodySize = 1 << 20

// Domains is the contact allow-list the API can replace.
type Domains interface {
	ReloadDomains(domains []string) (added, removed int)
	DomainCount() int
}

// Runner runs sync passes. *syncer.Syncer implements it.
type Runner interface {
	Run(ctx context.Context, kinds ...connector.Kind) ([]*syncer.Result, error)
}

// ReloadFunc re-reads the allow-list from configuration.
type ReloadFunc func() (added, removed int, err error)

type Server struct {
	domains Domains
	runner  Runner
	reload  ReloadFunc
	log     zerolog.Logger
	router  chi.Router
}

func New(domains Domains, runner Runner, reload ReloadFunc, log zerolog.Logger) *Server {
	s := &Server{
		domains: domains,
		runner:  runner,
		reload:  reload,
		log:     log.With().Str("component", "admin").Logger(),
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Post("/reload-domains", s.HandleReloadDomains)
		r.Post("/sync", s.HandleSync)
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Admin API listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReloadDomains replaces the contact allow-list. A JSON array body is
// used as the new list and null allows every domain. An empty body reloads
// the list from configuration.
func (s *Server) HandleReloadDomains(w http.ResponseWriter, r *http.Request) {
	s.log.Info().
		Str("remote_addr", r.RemoteAddr).
		Str("content_length", r.Header.Get("Content-Length")).
		Msg("Contact domain reload requested")

	var body []byte
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxReloadBodySize)
		defer r.Body.Close()
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
	}

	var added, removed int
	if body = bytes.TrimSpace(body); len(body) > 0 {
		var domains []string
		if err := json.Unmarshal(body, &domains); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		added, removed = s.domains.ReloadDomains(domains)
	} else {
		var err error
		added, removed, err = s.reload()
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to reload contact domains from configuration")
			http.Error(w, "failed to reload configuration", http.StatusInternalServerError)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]int{
		"added":   added,
		"removed": removed,
		"total":   s.domains.DomainCount(),
	})
}

type syncResponse struct {
	Results []*syncer.Result `json:"results"`
	Error   string           `json:"error,omitempty"`
}

// HandleSync runs one sync pass for the kinds given in the kind query
// parameter, or for every configured kind.
func (s *Server) HandleSync(w http.ResponseWriter, r *http.Request) {
	kinds, err := syncer.ParseKinds(r.URL.Query()["kind"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info().Str("remote_addr", r.RemoteAddr).Int("kinds", len(kinds)).Msg("Sync requested")

	results, err := s.runner.Run(context.WithoutCancel(r.Context()), kinds...)
	resp := syncResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []*syncer.Result{}
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError
		if errors.Is(err, syncer.ErrRunInProgress) {
			status = http.StatusConflict
		}
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write response")
	}
}
