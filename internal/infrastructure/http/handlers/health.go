package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// HealthHandler handles GET /health, the liveness probe.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// MongoPinger is satisfied by *mongo.Client.
type MongoPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// RedisPinger is satisfied by *redis.Client.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthDependenciesHandler handles GET /health/ready.
//
// MongoDB holds the credential records, so losing it makes the service
// unready. Redis only backs the session registry; without it requests are
// still served in degraded mode and the probe stays 200.
type HealthDependenciesHandler struct {
	mongo   MongoPinger
	redis   RedisPinger
	timeout time.Duration
}

// NewHealthDependenciesHandler accepts a nil rdb when the session registry
// is disabled.
func NewHealthDependenciesHandler(db MongoPinger, rdb RedisPinger) *HealthDependenciesHandler {
	if c, ok := rdb.(*redis.Client); ok && c == nil {
		rdb = nil
	}
	return &HealthDependenciesHandler{
		mongo:   db,
		redis:   rdb,
		timeout: 3 * time.Second,
	}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	deps := make(map[string]dependencyStatus, 2)
	status := "ok"
	httpStatus := http.StatusOK

	if err := h.mongo.Ping(ctx, readpref.Primary()); err != nil {
		deps["mongodb"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		deps["mongodb"] = dependencyStatus{Status: "ok"}
	}

	switch {
	case h.redis == nil:
		deps["redis"] = dependencyStatus{Status: "disabled"}
		if httpStatus == http.StatusOK {
			status = "degraded"
		}
	default:
		if err := h.redis.Ping(ctx).Err(); err != nil {
			deps["redis"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			if httpStatus == http.StatusOK {
				status = "degraded"
			}
		} else {
			deps["redis"] = dependencyStatus{Status: "ok"}
		}
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
