package app

import (
	"github.com/gin-gonic/gin"
	"github.com/pagemind/core/internal/middleware"
	"github.com/pagemind/core/internal/modules/gemini"
	"github.com/pagemind/core/internal/modules/health"
	"github.com/pagemind/core/internal/modules/metrics"
	"github.com/pagemind/core/internal/modules/room"
	"github.com/pagemind/core/internal/modules/summary"
	"github.com/pagemind/core/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.Use(middleware.RateLimit(a.rc.Raw()))

	metricsSvc := metrics.NewService(a.rc, a.logger)
	cache := summary.NewCache(a.rc, metricsSvc)
	roomSvc := room.NewService(a.rc, cache)
	gen := gemini.New(gemini.Config{
		BaseURL: a.cfg.Gemini.Endpoint,
		Model:   a.cfg.Gemini.Model,
		Timeout: a.cfg.GeminiTimeout(),
	}, metricsSvc)
	summarySvc := summary.NewService(cache, roomSvc, gen, a.cfg.Gemini.APIKey, a.logger)

	root := r.Group("")
	health.RegisterRoutes(root, a.rc)
	metrics.RegisterRoutes(root, metricsSvc)
	room.NewHandler(roomSvc).RegisterRoutes(root)
	summary.NewHandler(summarySvc).RegisterRoutes(root)
}
