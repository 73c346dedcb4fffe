// Package server exposes the latest cached readings over HTTP and
// WebSocket and accepts inbound payload documents for the virtual
// sensor. It only ever serves cached snapshots; no request path
// touches hardware.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/sensors"
)

// Server is the HTTP/WebSocket presentation surface.
type Server struct {
	rt      *plugin.Runtime
	virtual *sensors.Virtual
	hub     *Hub

	stop chan struct{}
}

// New creates the server. virtual may be nil when the virtual sensor
// is disabled; the payload endpoint then answers 404.
func New(rt *plugin.Runtime, virtual *sensors.Virtual) *Server {
	return &Server{
		rt:      rt,
		virtual: virtual,
		hub:     NewHub(),
		stop:    make(chan struct{}),
	}
}

// Router builds the gin handler.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/sensors", s.handleSensors)
	r.GET("/api/sensors/:name", s.handleSensor)
	r.POST("/api/payload", s.handlePayload)
	r.GET("/ws", func(c *gin.Context) {
		s.hub.Add(c.Writer, c.Request)
	})

	return r
}

// BroadcastLoop pushes a snapshot of all readings to the WebSocket
// clients at the given cadence until Stop is called.
func (s *Server) BroadcastLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.hub.Count() == 0 {
				continue
			}
			s.hub.Broadcast(s.rt.Snapshot())
		}
	}
}

// Stop terminates the broadcast loop.
func (s *Server) Stop() {
	close(s.stop)
}

func (s *Server) handleSensors(c *gin.Context) {
	c.JSON(http.StatusOK, s.rt.Snapshot())
}

func (s *Server) handleSensor(c *gin.Context) {
	name := c.Param("name")
	for _, p := range s.rt.Plugins() {
		if p.Name() == name {
			c.JSON(http.StatusOK, gin.H{
				"state":   p.State().String(),
				"reading": p.Read(),
			})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown sensor"})
}

// handlePayload is the message-delivery path for the virtual sensor:
// an external transport posts the raw document here.
func (s *Server) handlePayload(c *gin.Context) {
	if s.virtual == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "virtual sensor disabled"})
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.virtual.SubmitJSON(raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}
