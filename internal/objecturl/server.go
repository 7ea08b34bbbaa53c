package objecturl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Server exposes a registry over loopback HTTP
type Server struct {
	registry   *Registry
	listener   net.Listener
	httpServer *http.Server
}

// Listen binds addr (port 0 picks a free port) and prepares a registry
// whose URLs point at the bound address
func Listen(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	registry := NewRegistry("http://" + listener.Addr().String())

	engine := gin.New()
	engine.Use(gin.Recovery())
	registry.RegisterRoutes(engine)

	return &Server{
		registry: registry,
		listener: listener,
		httpServer: &http.Server{
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Registry returns the registry served by s
func (s *Server) Registry() *Registry {
	return s.registry
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve runs until ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	log.Printf("[DEBUG] Object URL server listening on %s", s.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
