package status

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type sessionView struct {
	ChannelID  string    `json:"channel_id"`
	Turns      int       `json:"turns"`
	LastActive time.Time `json:"last_active"`
	IdleSec    float64   `json:"idle_sec"`
}

type queueView struct {
	Depth    int `json:"depth"`
	Capacity int `json:"capacity"`
}

func registerRoutes(router *gin.Engine, sessions SessionLister, queue QueueStats) {
	router.GET("/healthz", handleHealth())
	router.GET("/sessions", handleSessions(sessions))
	router.GET("/queue", handleQueue(queue))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleSessions(sessions SessionLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos := sessions.Snapshot()
		views := make([]sessionView, 0, len(infos))
		for _, info := range infos {
			views = append(views, sessionView{
				ChannelID:  info.ChannelID,
				Turns:      info.Turns,
				LastActive: info.LastActive,
				IdleSec:    info.Idle.Seconds(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"count": len(views), "sessions": views})
	}
}

func handleQueue(queue QueueStats) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, queueView{Depth: queue.Len(), Capacity: queue.Cap()})
	}
}
