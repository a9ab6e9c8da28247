package http

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/caimari/musedock-sub009/docs"
	"github.com/caimari/musedock-sub009/internal/infrastructure/http/handlers"
)

// RegisterOperational mounts the routes that bypass the security pipeline:
// health checks, Prometheus metrics and the API docs.
func RegisterOperational(e *echo.Echo, db *mongo.Database, rdb *redis.Client) {
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(map[string]handlers.Check{
		"mongodb": handlers.MongoCheck(db),
		"redis":   handlers.RedisCheck(rdb),
	})

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are the stores up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
}
