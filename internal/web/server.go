// Package web provides the HTTP override endpoint for the water-mqtt daemon.
// It lets an operator read the shared counter or forcibly set it, which is
// also how startup is unblocked when no persisted value could be loaded.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Lalufu/water-mqtt/internal/counter"
	"github.com/Lalufu/water-mqtt/internal/metrics"
)

// Server serves the counter override endpoints over HTTP.
type Server struct {
	httpServer *http.Server
	counter    *counter.Counter
	log        *zap.Logger
}

// New creates a Server operating on the given counter.
func New(addr string, c *counter.Counter, log *zap.Logger) *Server {
	s := &Server{counter: c, log: log}

	router := mux.NewRouter()
	router.HandleFunc("/counter/get", s.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/counter/set", s.handleSet).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
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

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%d\n", s.counter.Get())
}

// handleSet sets the counter. The value to set is the *name* of the form
// field passed in the POST, not its value.
func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "No value given")
		return
	}

	var field string
	for k := range r.PostForm {
		field = k
		break
	}
	if field == "" {
		badRequest(w, "No value given")
		return
	}

	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		badRequest(w, "Not an integer")
		return
	}
	if v < 0 {
		badRequest(w, "Must be positive")
		return
	}

	s.log.Info("setting counter via override", zap.Int64("counter", v))
	s.counter.Set(uint64(v))
	metrics.CounterOverrides.Inc()
	metrics.CounterValue.Set(float64(v))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "OK")
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, msg)
}
