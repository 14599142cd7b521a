package http

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/AssistHub/internal/adapters/rtc"
	"github.com/dkeye/AssistHub/internal/app/orch"
)

type handlers struct {
	orch *orch.Orchestrator
	ice  []string
}

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Status())
}

func (h *handlers) sessions(c *gin.Context) {
	list := h.orch.Registry.Sessions()
	sort.Slice(list, func(i, j int) bool { return list[i].ConnectedAt.Before(list[j].ConnectedAt) })
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": rtc.ICEConfiguration(h.ice).ICEServers})
}

func (h *handlers) healthz(c *gin.Context) {
	if h.orch.Closing() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
