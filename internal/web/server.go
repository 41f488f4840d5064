// Package web serves an analysis report over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/storage"
	"github.com/dejisec/tattletale/internal/util"
)

// LoadFunc produces the report served by the web server.
type LoadFunc func(ctx context.Context) (*model.Report, error)

// Server is the web server.
type Server struct {
	config *util.Config
	load   LoadFunc
	db     *storage.DB
	srv    *http.Server

	mu     sync.RWMutex
	report *model.Report
}

// NewServer creates a new web server. db may be nil.
func NewServer(cfg *util.Config, load LoadFunc, db *storage.DB) *Server {
	return &Server{
		config: cfg,
		load:   load,
		db:     db,
	}
}

// Report returns the report currently served.
func (s *Server) Report() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Reload runs the analysis again and swaps in the new report.
func (s *Server) Reload(ctx context.Context) (*model.Report, error) {
	r, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.report = r
	s.mu.Unlock()

	if s.db != nil {
		runID, err := s.db.SaveReport(ctx, r)
		if err != nil {
			util.Warn("Failed to store run: %v", err)
		} else {
			util.Info("Stored run %s", runID)
		}
	}
	return r, nil
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	h := NewHandlers(s)

	mux.HandleFunc("/", h.Dashboard)
	mux.HandleFunc("/api/summary", h.APIGetSummary)
	mux.HandleFunc("/api/domains", h.APIGetDomains)
	mux.HandleFunc("/api/passwords", h.APIGetPasswords)
	mux.HandleFunc("/api/shared", h.APIGetShared)
	mux.HandleFunc("/api/cracked", h.APIGetCracked)
	mux.HandleFunc("/api/targets", h.APIGetTargets)
	mux.HandleFunc("/api/reload", h.APIReload)
	mux.HandleFunc("/api/runs", h.APIGetRuns)
	mux.HandleFunc("/report", h.DownloadReport)
	mux.HandleFunc("/export/shared.csv", h.ExportSharedCSV)
	mux.HandleFunc("/export/user_pass.txt", h.ExportUserPass)

	return mux
}

// Start runs the initial analysis and serves until ctx is done or a
// termination signal arrives.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.Reload(ctx); err != nil {
		return err
	}

	s.srv = &http.Server{
		Addr:         s.config.WebAddr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		s.Stop()
	}()

	util.Info("Web server starting on %s", s.srv.Addr)

	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop stops the web server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
