// Package web provides the HTTP event API and status page for the
// screen-powersave daemon.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/screen-powersave/internal/logic"
	"github.com/sweeney/screen-powersave/internal/status"
	"github.com/sweeney/screen-powersave/internal/wire"
)

// maxBody limits the size of an event payload.
const maxBody = 64 << 10

// Server accepts events over HTTP and serves the status page.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	events     chan<- logic.Event
	log        log.FieldLogger
}

// New creates a Server that reads state from tracker and queues decoded
// events on events.
func New(addr string, tracker *status.Tracker, events chan<- logic.Event, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Server{tracker: tracker, events: events, log: logger}

	r := mux.NewRouter()
	r.HandleFunc("/api/events/{name}", s.handleEvent).Methods(http.MethodPost)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	logger := s.log.WithFields(log.Fields{"event": name, "remote": r.RemoteAddr})

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error reading request body: %v", err)
		return
	}

	ev, err := wire.Decode(name, body)
	if err != nil {
		logger.WithError(err).Warn("Rejected event")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error decoding %s: %v", name, err)
		return
	}

	select {
	case s.events <- ev:
		logger.Debug("Queued event")
		w.WriteHeader(http.StatusAccepted)
	default:
		logger.Warn("Event queue full")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "Event queue full")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.WithError(err).Warn("Error rendering status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
