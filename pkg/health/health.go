// Package health exposes liveness and readiness endpoints.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Checker is an extra readiness probe, e.g. a Redis ping.
type Checker func(ctx context.Context) error

// Handler serves /health and /health/ready.
type Handler struct {
	db       *gorm.DB
	service  string
	checkers map[string]Checker
}

// NewHandler creates a health handler. The database is always checked for
// readiness; extra checkers are added with WithChecker.
func NewHandler(db *gorm.DB, service string) *Handler {
	return &Handler{db: db, service: service, checkers: map[string]Checker{}}
}

// WithChecker registers an additional readiness dependency.
func (h *Handler) WithChecker(name string, fn Checker) *Handler {
	h.checkers[name] = fn
	return h
}

// RegisterRoutes registers the health routes on the engine root.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Live)
	r.GET("/health/ready", h.Ready)
}

// Live reports that the process is up.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready pings every dependency and reports 503 if any is down.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		checks["database"] = "ok"
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
	}
	for name, check := range h.checkers {
		checks[name] = "ok"
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		}
	}

	status, code := "ready", http.StatusOK
	if !healthy {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "service": h.service, "checks": checks})
}
