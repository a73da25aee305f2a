package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dependency is one backing service readiness depends on.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	deps []Dependency
}

func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	resp := gin.H{"status": "ok"}
	status := http.StatusOK
	for _, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			resp[dep.Name] = "unavailable"
			resp["status"] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		resp[dep.Name] = "connected"
	}
	c.JSON(status, resp)
}
