package httpapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"letshare-server/internal/bridge"
	"letshare-server/internal/hub"
)

type StatsRoutes struct {
	hub       *hub.Hub
	bridge    bridge.Bridge
	startTime time.Time
}

func NewStatsRoutes(h *hub.Hub, b bridge.Bridge) *StatsRoutes {
	return &StatsRoutes{hub: h, bridge: b, startTime: time.Now()}
}

// Register wires the authenticated stats routes (connections, rooms).
func (s *StatsRoutes) Register(rg *gin.RouterGroup) {
	rg.GET("/stats/connections", s.connections)
	rg.GET("/stats/rooms", s.rooms)
}

// RegisterPublic wires the unauthenticated health probe (spec §6: GET
// /stats/health is not behind RequireUser).
func (s *StatsRoutes) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/stats/health", s.health)
}

// health reports process uptime, memory, and whether the cross-instance
// bridge has degraded to single-instance mode (spec §9).
func (s *StatsRoutes) health(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"uptime":     time.Since(s.startTime).String(),
		"goroutines": runtime.NumGoroutine(),
		"memoryMb":   m.Alloc / 1024 / 1024,
		"bridge": gin.H{
			"degraded": s.bridge.Degraded(),
		},
	})
}

func (s *StatsRoutes) connections(c *gin.Context) {
	connections, usersOnline := s.hub.Stats()
	c.JSON(http.StatusOK, gin.H{
		"connections": connections,
		"usersOnline": usersOnline,
	})
}

func (s *StatsRoutes) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.hub.RoomStats()})
}
