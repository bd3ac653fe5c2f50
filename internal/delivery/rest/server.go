// Path: internal/delivery/rest/server.go
package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"recipe-finder/internal/config"
)

// RouteRegistrar lets other delivery layers mount routes on the shared mux.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Server is the HTTP server for the proxy API and the page.
type Server struct {
	httpServer *http.Server
}

// NewServer creates and configures a new server.
func NewServer(cfg config.ServerConfig, proxy *ProxyHandlers, log *slog.Logger, extra ...RouteRegistrar) *Server {
	mux := NewMux(proxy, extra...)

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      withRequestLog(log, mux),
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// NewMux builds the route table. API routes are registered before the extras
// so a catch-all "/" from the UI cannot shadow them.
func NewMux(proxy *ProxyHandlers, extra ...RouteRegistrar) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", proxy.Search)
	mux.HandleFunc("/api/recipe", proxy.Recipe)
	mux.HandleFunc("/api/contact", proxy.Contact)
	mux.HandleFunc("GET /api/placeholder/{w}/{h}", proxy.Placeholder)
	for _, r := range extra {
		r.RegisterRoutes(mux)
	}
	return mux
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func withRequestLog(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("http request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}
