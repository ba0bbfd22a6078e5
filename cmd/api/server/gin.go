package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ginrouter "user-crud-service/internal/adapter/gin/router"
)

// HTTP server timeouts
const (
	readHeaderTimeout = 2 * time.Second
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(opts ginrouter.Options, env, addr string, l *zap.Logger) *http.Server {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := ginrouter.SetupRouter(opts)

	l.Info("Gin REST API configured", zap.String("address", addr), zap.String("gin_mode", gin.Mode()))

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
