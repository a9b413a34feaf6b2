// Package admin serves the HTTP control surface of an osclink daemon:
// health probes, prometheus metrics, the handler table, the client table
// and recording control.
package admin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/osclink/internal/auth"
	"github.com/danmuck/osclink/internal/dispatch"
	"github.com/danmuck/osclink/internal/observability"
	"github.com/danmuck/osclink/internal/recorder"
	"github.com/danmuck/osclink/internal/transport"
)

const version = "0.1.0"

// Transport is the part of transport.Server the admin surface uses.
type Transport interface {
	Clients() []transport.Client
	Send(route string, values ...any) error
}

// Deps are the components the admin routes expose. Nil fields disable the
// routes that need them.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Transport  Transport
	Recorder   *recorder.Recorder
	// Auth, when set, guards the routes that send or change state.
	Auth auth.Validator
}

type Server struct {
	ID      string
	Addr    string
	Started time.Time

	deps   Deps
	router *gin.Engine
}

func New(id, addr string, corsOrigins []string, deps Deps) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:      id,
		Addr:    addr,
		Started: time.Now(),
		deps:    deps,
		router:  r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	guarded := r.Group("")
	if s.deps.Auth != nil {
		guarded.Use(auth.Middleware(s.deps.Auth))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": s.ID,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   s.deps.Dispatcher != nil,
			"uptime":  time.Since(s.Started).String(),
			"service": s.ID,
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.deps.Dispatcher != nil {
		r.GET("/routes", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"routes": s.deps.Dispatcher.Routes()})
		})
	}

	if s.deps.Transport != nil {
		r.GET("/clients", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"clients": clientInfos(s.deps.Transport.Clients())})
		})
		guarded.POST("/send", s.handleSend)
	}

	if s.deps.Recorder != nil {
		r.GET("/recording", s.recordingStatus)
		rec := guarded.Group("/recording")
		rec.POST("/start", func(c *gin.Context) {
			var body struct {
				Path string `json:"path"`
			}
			if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := s.deps.Recorder.Start(body.Path); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			s.recordingStatus(c)
		})
		rec.POST("/pause", func(c *gin.Context) {
			s.deps.Recorder.Pause()
			s.recordingStatus(c)
		})
		rec.POST("/resume", func(c *gin.Context) {
			s.deps.Recorder.Resume()
			s.recordingStatus(c)
		})
		rec.POST("/stop", func(c *gin.Context) {
			if err := s.deps.Recorder.Stop(); err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, recorder.ErrNotRecording) {
					status = http.StatusConflict
				}
				c.JSON(status, gin.H{"error": err.Error()})
				return
			}
			s.recordingStatus(c)
		})
	}
}

type sendRequest struct {
	Route string `json:"route" binding:"required"`
	Args  []any  `json:"args"`
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Transport.Send(req.Route, normalizeArgs(req.Args)...); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, transport.ErrNoClient) || errors.Is(err, transport.ErrBadAddress) {
			status = http.StatusBadRequest
		}
		log.Warn().Err(err).Str("route", req.Route).Msg("admin send failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "route": req.Route})
}

func (s *Server) recordingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"recording": s.deps.Recorder.Recording(),
		"path":      s.deps.Recorder.Path(),
		"session":   s.deps.Recorder.Session(),
	})
}

// Serve runs the HTTP server until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Str("service", s.ID).Msg("admin listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type ClientInfo struct {
	Name string `json:"name"`
	Addr string `json:"addr"`
}

func clientInfos(clients []transport.Client) []ClientInfo {
	out := make([]ClientInfo, 0, len(clients))
	for _, c := range clients {
		out = append(out, ClientInfo{Name: c.Name, Addr: c.Addr.String()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// normalizeArgs turns integral JSON numbers back into ints so they go out
// as OSC ints.
func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, v := range args {
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			out[i] = int64(f)
			continue
		}
		out[i] = v
	}
	return out
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
