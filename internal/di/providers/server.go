package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/booklyapp/bookly/internal/api"
	"github.com/booklyapp/bookly/internal/config"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/ratelimit"
	"github.com/booklyapp/bookly/internal/service"
	"github.com/booklyapp/bookly/internal/sse"
	"github.com/booklyapp/bookly/internal/store"
	"github.com/booklyapp/bookly/internal/surface"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager fed by the bus.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(bus, log.Component("sse"))

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	return &SSEManagerHandle{Manager: manager, cancel: cancel}, nil
}

// SurfaceHandle wraps the HTTP adapter's shelf surface.
type SurfaceHandle struct {
	*surface.Surface
}

// Shutdown implements do.Shutdownable.
func (h *SurfaceHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideSurface provides the cached shelf view served over HTTP.
func ProvideSurface(i do.Injector) (*SurfaceHandle, error) {
	shelf := do.MustInvoke[*service.ShelfService](i)
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)
	return &SurfaceHandle{Surface: surface.New("http", shelf, bus, log.Component("surface"))}, nil
}

// RateLimiterHandle wraps the per-client limiter of mutating requests.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the mutation rate limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &RateLimiterHandle{KeyedRateLimiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Handler returns the API server behind the listener.
func (h *HTTPServerHandle) Handler() *api.Server {
	return h.handler
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	backend := do.MustInvoke[*BackendHandle](i)

	services := &api.Services{
		Collection: do.MustInvoke[*service.CollectionService](i),
		Overlays:   do.MustInvoke[*OverlayServiceHandle](i).OverlayService,
		Shelf:      do.MustInvoke[*service.ShelfService](i),
		Surface:    do.MustInvoke[*SurfaceHandle](i).Surface,
		Search:     do.MustInvoke[*SearchIndexHandle](i).Index,
		Events:     do.MustInvoke[*SSEManagerHandle](i).Manager,
		Storage:    backend.Backend,
		Keys:       do.MustInvoke[store.Keys](i),
	}
	limiter := do.MustInvoke[*RateLimiterHandle](i)

	handler := api.NewServer(services, api.Options{Limiter: limiter.KeyedRateLimiter}, log.Component("http"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr, "storage", backend.Kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
