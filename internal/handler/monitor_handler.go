package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/studyrail/attempt-backend/internal/config"
	"github.com/studyrail/attempt-backend/internal/middleware"
	"github.com/studyrail/attempt-backend/internal/response"
	"github.com/studyrail/attempt-backend/internal/service"
	ws "github.com/studyrail/attempt-backend/internal/websocket"
)

const keepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams attempt lifecycle events to exam owners over
// WebSocket, relayed from Redis Pub/Sub.
type MonitorHandler struct {
	rdb      *redis.Client
	exams    service.ExamProvider
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, exams service.ExamProvider, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:      rdb,
		exams:    exams,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// MonitorExamStream godoc
// WS /ws/v1/admin/exams/:exam_id/monitor
// Upgrades to WebSocket and relays the exam's event channel. Only the exam
// owner may attach.
func (h *MonitorHandler) MonitorExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.exams.GetExam(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if exam == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if exam.OwnerID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	reqCtx := c.Request.Context()
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamEventsChannel(examID.String()))
	defer pubsub.Close()
	events := pubsub.Channel()

	monLog := h.log.With().
		Int("admin_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()
	monLog.Info().Msg("Admin attached to live monitor")

	// Reader goroutine: answers pings and unblocks the writer on close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				return
			}
			if msg.Action == ws.ActionPing {
				ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-reqCtx.Done():
			monLog.Debug().Msg("Monitor context done")
			return
		case <-done:
			monLog.Debug().Msg("Monitor connection closed")
			return
		case msg, ok := <-events:
			if !ok {
				monLog.Warn().Msg("Event subscription closed")
				return
			}
			if err := ws.WriteTyped(conn, ws.MonitorFrame{
				Event:   ws.EventMonitor,
				Payload: []byte(msg.Payload),
			}); err != nil {
				monLog.Debug().Err(err).Msg("Monitor write failed")
				return
			}
		case <-keepAlive.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				monLog.Debug().Err(err).Msg("Keepalive failed")
				return
			}
		}
	}
}
