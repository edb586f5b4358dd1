package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"liveclass/internal/alert"
	"liveclass/internal/api"
	"liveclass/internal/breakout"
	"liveclass/internal/config"
	"liveclass/internal/hub"
	"liveclass/internal/keyedmutex"
	"liveclass/internal/websocket"
)

// Application wires the coordinator components together. Initialization order:
// Registry → Hub → KeyedMutex → Services → API → HTTP.
type Application struct {
	config     *config.Config
	registry   *websocket.Registry
	eventHub   *hub.Hub
	alerts     *alert.Service
	rooms      *breakout.Service
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication builds the full component graph from cfg.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	registry := websocket.NewRegistry()
	eventHub := hub.NewHub(registry)

	locks := keyedmutex.New(cfg.Coordinator.LockTimeout)

	alerts := alert.NewService(alert.NewStore(), locks, eventHub)
	rooms := breakout.NewService(breakout.NewStore(nil), locks, eventHub)

	apiServer := api.NewServer(alerts, rooms, registry)
	wsHandler := websocket.NewHandler(eventHub, cfg.WebSocket.PingInterval, cfg.WebSocket.ReadTimeout)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		registry:   registry,
		eventHub:   eventHub,
		alerts:     alerts,
		rooms:      rooms,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start brings the hub up before the HTTP server so no event published by an
// early request is lost.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting liveclass coordinator on %s", app.httpServer.Addr)

	if err := app.eventHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		app.eventHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Liveclass coordinator started")
		return nil
	case <-ctx.Done():
		app.eventHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts down in reverse order: HTTP first so no new work arrives, then
// the hub.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down liveclass coordinator")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.eventHub.Stop(); err != nil {
		log.Printf("Event hub shutdown error: %v", err)
	}

	log.Printf("Liveclass coordinator shutdown complete")
	return nil
}

// GetAddr returns the bound server address.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
