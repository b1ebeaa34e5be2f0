// server/internal/router/router.go
package router

import (
	"net/http"
	"time"

	"shelfsight/server/internal/config"
	"shelfsight/server/internal/handlers"
	"shelfsight/server/internal/services"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "Too many requests. Try again later.",
		"retry_after": time.Until(info.ResetTime).Round(time.Second).String(),
	})
}

func Setup(log *zap.Logger, service *services.AnalysisService, conf *config.Config) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      !conf.Server.ReleaseMode,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	healthHandler := handlers.NewHealthHandler(log)
	analysisHandler := handlers.NewAnalysisHandler(log, service, conf.Analysis)
	config.OnReload(func(c *config.Config) { analysisHandler.SetLimits(c.Analysis) })

	// Analysis runs are CPU bound, so only POST routes are limited.
	var limiter gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if conf.Server.RateLimit > 0 {
		rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Minute,
			Limit: conf.Server.RateLimit,
		})
		limiter = ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
			ErrorHandler: errorHandler,
			KeyFunc:      keyFunc,
		})
	}

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/v1")
	{
		v1.POST("/shelves", limiter, analysisHandler.AnalyzeShelves)
		v1.POST("/journey", limiter, analysisHandler.AnalyzeJourney)

		analyses := v1.Group("/analyses")
		{
			analyses.GET("", analysisHandler.ListAnalyses)
			analyses.POST("", limiter, analysisHandler.CreateAnalysis)
			analyses.GET("/:id", analysisHandler.GetAnalysis)
			analyses.GET("/:id/charts", analysisHandler.GetCharts)
		}
	}

	return router
}
