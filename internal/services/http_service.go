package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/rs/zerolog"
)

// HTTPService serves the track API.
type HTTPService struct {
	// Configuration fields
	addr    string
	handler http.Handler

	// Dependencies
	Logger zerolog.Logger

	// Internal state management
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	running  bool
}

// NewHTTPService creates a new HTTPService listening on addr.
func NewHTTPService(addr string, handler http.Handler, logger zerolog.Logger) *HTTPService {
	return &HTTPService{
		addr:    addr,
		handler: handler,
		Logger:  logger,
	}
}

// Start binds the listen address and serves requests in the background.
func (h *HTTPService) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		h.Logger.Warn().Msg("HTTPService is already running")
		return errors.New("http service is already running")
	}

	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	h.listener = listener
	h.server = &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	h.running = true

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.Logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	h.Logger.Info().Str("addr", listener.Addr().String()).Msg("HTTPService started")
	return nil
}

// Addr returns the bound address, or an empty string when not running.
func (h *HTTPService) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return ""
	}
	return h.listener.Addr().String()
}

// Stop shuts the server down, letting in-flight requests finish.
func (h *HTTPService) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		h.Logger.Warn().Msg("HTTPService is not running")
		return errors.New("http service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	err := h.server.Shutdown(ctx)
	h.wg.Wait()

	h.running = false
	if err != nil {
		h.Logger.Error().Err(err).Msg("HTTPService did not shut down cleanly")
		return err
	}
	h.Logger.Info().Msg("HTTPService stopped")
	return nil
}
