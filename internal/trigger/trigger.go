// Package trigger exposes the push webhook that starts pipeline runs in
// serve mode. A push event is accepted only when its ref names the single
// branch the pipeline is bound to; everything else is acknowledged and
// dropped.
package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/specialistvlad/pipewright/internal/ctxlog"
)

// RunFunc starts one pipeline run for an accepted push.
type RunFunc func(ctx context.Context, event PushEvent)

// PushEvent is the webhook payload. Ref carries the full refname, e.g.
// "refs/heads/master".
type PushEvent struct {
	Ref    string `json:"ref"`
	After  string `json:"after,omitempty"`
	Sender string `json:"sender,omitempty"`
}

// Branch returns the branch name of the pushed ref, or "" for non-branch
// refs such as tags.
func (e PushEvent) Branch() string {
	const prefix = "refs/heads/"
	if !strings.HasPrefix(e.Ref, prefix) {
		return ""
	}
	return strings.TrimPrefix(e.Ref, prefix)
}

// Server filters push events by branch and launches runs. Runs triggered
// by distinct pushes proceed concurrently and independently.
type Server struct {
	branch string
	run    RunFunc
	wg     sync.WaitGroup
}

// NewServer creates a trigger server bound to one branch.
func NewServer(branch string, run RunFunc) *Server {
	return &Server{branch: branch, run: run}
}

// Handler builds the HTTP surface: the push hook plus a health endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/hooks/push", s.handlePush)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())

	var event PushEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		logger.Warn("Rejected malformed push event.", "error", err)
		http.Error(w, "malformed push event", http.StatusBadRequest)
		return
	}

	branch := event.Branch()
	if branch != s.branch {
		logger.Info("Ignored push for unbound ref.", "ref", event.Ref, "bound_branch", s.branch)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ignored"))
		return
	}

	logger.Info("Push accepted, starting run.", "branch", branch, "after", event.After)

	// The run outlives the request; detach it from the request context so
	// the client disconnecting cannot cancel a pipeline mid-flight.
	runCtx := ctxlog.WithLogger(context.Background(), logger)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx, event)
	}()

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("run started"))
}

// Wait blocks until every launched run has finished. Intended for shutdown.
func (s *Server) Wait() {
	s.wg.Wait()
}
