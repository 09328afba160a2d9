package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Health is the payload of the database health endpoint: a ping round trip
// plus the connection counts an operator needs when uploads start queueing.
type Health struct {
	Status string    `json:"status"`
	PingMS float64   `json:"ping_ms"`
	Conns  ConnStats `json:"conns"`
	Error  string    `json:"error,omitempty"`
}

// ConnStats summarizes pool occupancy.
type ConnStats struct {
	Total int32 `json:"total"`
	Idle  int32 `json:"idle"`
	InUse int32 `json:"in_use"`
	Max   int32 `json:"max"`
}

func connStats(pool *pgxpool.Pool) ConnStats {
	stat := pool.Stat()
	return ConnStats{
		Total: stat.TotalConns(),
		Idle:  stat.IdleConns(),
		InUse: stat.AcquiredConns(),
		Max:   stat.MaxConns(),
	}
}

// HealthHandler pings the database with a bounded timeout and reports pool
// occupancy alongside the result.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		err := pool.Ping(ctx)
		pingMS := float64(time.Since(start).Microseconds()) / 1000

		health := Health{
			Status: "healthy",
			PingMS: pingMS,
			Conns:  connStats(pool),
		}
		if err != nil {
			health.Status = "unhealthy"
			health.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, health)
		}
		return c.JSON(http.StatusOK, health)
	}
}
