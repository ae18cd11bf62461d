// Package server assembles the gin engine: middleware chain, route table,
// and the locally served endpoints.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/linkedout/api-gateway/internal/config"
	"github.com/linkedout/api-gateway/internal/handler"
	"github.com/linkedout/api-gateway/internal/metrics"
	"github.com/linkedout/api-gateway/internal/pkg/response"
	"github.com/linkedout/api-gateway/internal/server/middleware"
	"github.com/linkedout/api-gateway/internal/service"

	"github.com/linkedout/api-gateway/internal/auth"
)

// Server wires the HTTP surface of the gateway.
type Server struct {
	engine *gin.Engine
	cfg    config.ServerConfig
}

// New builds the engine with the filter chain in its required order:
// correlation id, access log, CORS, auth, then routing.
func New(
	cfg *config.Config,
	bridge *service.Bridge,
	provider *auth.TokenProvider,
	m *metrics.Metrics,
) *Server {
	gin.SetMode(ginMode(cfg.Server.Mode))
	engine := gin.New()

	engine.Use(
		gin.Recovery(),
		middleware.CorrelationID(),
		middleware.AccessLog(),
		cors.New(corsConfig()),
		middleware.Auth(provider),
	)

	engine.GET("/api/health", handler.NewHealthHandler().Check)
	engine.GET("/actuator/prometheus", gin.WrapH(m.Handler()))
	engine.POST("/api/images", handler.NewImageHandler(cfg.Image).Upload)

	for _, route := range routeTable {
		key := route.RoutingKey
		engine.Any(route.Prefix+"/*path", func(c *gin.Context) {
			bridge.ProcessRequest(c, key)
		})
	}

	engine.NoRoute(func(c *gin.Context) {
		response.WriteError(c, http.StatusNotFound, "no route for "+c.Request.URL.Path)
	})

	return &Server{engine: engine, cfg: cfg.Server}
}

// Handler exposes the engine, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return fmt.Sprintf(":%d", s.cfg.Port) }

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

// corsConfig is permissive by default, per the fleet's contract with the
// web clients.
func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"*"}
	c.MaxAge = 3600 * time.Second
	return c
}
