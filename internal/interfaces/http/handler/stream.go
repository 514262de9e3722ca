package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/application/session"
)

const streamHeartbeatInterval = 30 * time.Second

// StreamHandler pushes the session's mirror state over server-sent
// events. Every mirror change produces one full snapshot event; bursts
// coalesce, so a slow client always converges on the latest state.
type StreamHandler struct {
	BaseHandler
}

// NewStreamHandler creates a stream handler
func NewStreamHandler(logger *zap.Logger) *StreamHandler {
	return &StreamHandler{BaseHandler: NewBaseHandler(logger)}
}

// RegisterRoutes wires the stream endpoint
func (h *StreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stream", h.Stream)
}

type streamSnapshot struct {
	ActiveCompanyID   string `json:"active_company_id"`
	ActiveCompanyName string `json:"active_company_name"`
	Companies         any    `json:"companies"`
	Users             any    `json:"users"`
	Transactions      any    `json:"transactions"`
	Clients           any    `json:"clients"`
	Products          any    `json:"products"`
	Activities        any    `json:"activities"`
}

// Stream sends an initial snapshot, then one event per mirror change
func (h *StreamHandler) Stream(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var eventID uint64
	send := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Warn("failed to marshal stream event", zap.Error(err))
			return
		}
		eventID++
		fmt.Fprintf(c.Writer, "event: %s\nid: %d\ndata: %s\n\n", event, eventID, data)
		flusher.Flush()
	}

	changes, cancel := s.Mirrors().Watch()
	defer cancel()

	send("snapshot", snapshotOf(s))

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-changes:
			send("snapshot", snapshotOf(s))
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func snapshotOf(s *session.Session) streamSnapshot {
	m := s.Mirrors()
	return streamSnapshot{
		ActiveCompanyID:   s.ActiveTenant(),
		ActiveCompanyName: s.ActiveTenantName(),
		Companies:         m.Companies(),
		Users:             m.Users(),
		Transactions:      m.Transactions(),
		Clients:           m.Clients(),
		Products:          m.Products(),
		Activities:        m.Activities(),
	}
}
