// Package status serves a small read-only HTTP view of the running bot:
// liveness, active sessions, queue depth and Prometheus metrics.
package status

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/parley/internal/session"
)

// DefaultPort is used when no port is configured.
const DefaultPort = 8090

// SessionLister reports the live sessions. *session.Store implements it.
type SessionLister interface {
	Snapshot() []session.Info
}

// QueueStats reports queue occupancy. *dispatch.Queue implements it.
type QueueStats interface {
	Len() int
	Cap() int
}

// Server is the status HTTP server.
type Server struct {
	port   int
	router *gin.Engine
	out    io.Writer
}

// ServerOpts holds configuration for the status server.
type ServerOpts struct {
	Sessions SessionLister // required
	Queue    QueueStats    // required
	Port     int           // defaults to DefaultPort
	Out      io.Writer     // optional
}

// NewServer builds the router for the status server.
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("status: sessions is required")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("status: queue is required")
	}
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts.Sessions, opts.Queue)

	return &Server{port: opts.Port, router: router, out: opts.Out}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if s.out != nil {
		fmt.Fprintf(s.out, "Status server running at http://localhost:%d\n", s.port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status: %w", err)
	}
	return nil
}
