// SPDX-License-Identifier: EPL-2.0

// Package server exposes the preview pipeline over HTTP and pushes swap
// events to websocket clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ik5/mixpreview/preview"
	"github.com/ik5/mixpreview/swap"
)

const shutdownTimeout = 5 * time.Second

// Playback is the part of the live surface the server controls.
type Playback interface {
	Play() error
	Pause()
	Paused() bool
	Position() time.Duration
	Duration() time.Duration
}

type Server struct {
	orch   *preview.Orchestrator
	sched  *swap.Scheduler
	live   Playback
	hub    *Hub
	router *gin.Engine
	logger *slog.Logger

	origins   []string
	maxUpload int64
	upgrader  websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigins limits browser and websocket origins. An empty list
// allows all of them.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithMaxUpload caps the size of an upload request body.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// New builds the router and subscribes to the scheduler's swap events.
func New(orch *preview.Orchestrator, sched *swap.Scheduler, live Playback, opts ...Option) *Server {
	s := &Server{
		orch:      orch,
		sched:     sched,
		live:      live,
		logger:    slog.Default(),
		maxUpload: 200 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hub = NewHub(s.logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()

	sched.OnSwap(func(ev swap.Event) {
		s.hub.Broadcast(swapMessage(ev))
	})

	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), corsMiddleware(s.origins))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.POST("/tracks", s.uploadTracks)
		api.GET("/tracks", s.listTracks)
		api.DELETE("/tracks", s.resetTracks)
		api.PUT("/tracks/:id/volume", s.setVolume)

		api.GET("/live", s.liveState)
		api.POST("/playback/play", s.play)
		api.POST("/playback/pause", s.pause)
	}

	r.GET("/media/:ref", s.media)
	r.GET("/ws", s.serveWS)

	return r
}

// Handler returns the HTTP handler. The hub has to be running for websocket
// clients to be served; Run takes care of that.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		s.logger.Info("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || len(s.origins) == 0 || slices.Contains(s.origins, origin)
}

func swapMessage(ev swap.Event) Message {
	msg := Message{
		Type:     "swap",
		Ref:      ev.Ref,
		Swapped:  ev.Swapped,
		Position: ev.Position.Seconds(),
		Playing:  ev.Playing,
	}
	if ev.Format.Valid() {
		msg.Format = ev.Format.String()
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}
