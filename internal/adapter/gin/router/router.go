package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-crud-service/api/swagger"
	"user-crud-service/internal/adapter/gin/handler"
	"user-crud-service/internal/adapter/gin/middleware"
	"user-crud-service/internal/metrics"
)

// Options selects the handlers and optional features mounted on the router.
// Nil RateLimiter, Metrics or Gatherer disable the corresponding feature.
type Options struct {
	Users          *handler.UserHandler
	Health         *handler.HealthHandler
	RateLimiter    *middleware.RateLimiter
	Metrics        *metrics.Collector
	Gatherer       prometheus.Gatherer
	SwaggerEnabled bool
	Log            *zap.Logger
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(opts Options) *gin.Engine {
	router := gin.New()
	// ClientIP is the socket peer; forwarded headers are not trusted
	_ = router.SetTrustedProxies(nil)

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(opts.Log))
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
	}
	router.Use(middleware.Recovery(opts.Log))

	router.GET("/", opts.Health.Root)
	router.GET("/health", opts.Health.Health)

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))
	}

	if opts.SwaggerEnabled {
		router.GET("/openapi.json", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", swagger.Document)
		})
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	}

	users := router.Group("/users")
	if opts.RateLimiter != nil {
		users.Use(opts.RateLimiter.Middleware())
	}
	{
		users.GET("/", opts.Users.ListUsers)
		users.POST("/", opts.Users.CreateUser)
		users.GET("/:id", opts.Users.GetUser)
		users.PATCH("/:id", opts.Users.UpdateUser)
		users.DELETE("/:id", opts.Users.DeleteUser)
	}

	return router
}
