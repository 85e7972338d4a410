// Package sse streams server-sent events to the browser client: global
// announcements plus per-user notifications (battle requests, turn
// results) published over cache.PubSub so multiple server instances can
// fan out through Redis.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitquest/fitquest/cache"
	"github.com/fitquest/fitquest/config"
	mw "github.com/fitquest/fitquest/middleware"
)

const announceChannel = "announce"

// Event names delivered to clients.
const (
	EventAnnounce      = "announce"
	EventBattleRequest = "battle_request"
	EventBattleUpdate  = "battle_update"
)

// UserChannel returns the pub/sub channel carrying one user's events.
func UserChannel(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// envelope wraps a user event so one channel can carry several event types.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub cache.PubSub
	c      cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pubsub: pubsub, c: c, sec: sec, logger: logger}
}

// ServeSSE handles GET /sse?token=<jwt>.
// EventSource cannot set headers, so the token travels as a query param.
func (h *Handler) ServeSSE(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	exists, err := h.c.Exists(ctx, mw.SessionKey(tokenStr))
	if err != nil || !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, announceChannel, UserChannel(claims.UserID))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			h.writeEvent(c, msg)

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) writeEvent(c *gin.Context, msg *cache.Message) {
	if msg.Channel == announceChannel {
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", EventAnnounce, msg.Payload)
		c.Writer.Flush()
		return
	}
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		h.logger.Warn("sse malformed user event", zap.Error(err))
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", env.Event, string(env.Data))
	c.Writer.Flush()
}

// Announce publishes an announcement message to all SSE subscribers.
func (h *Handler) Announce(ctx context.Context, message string) error {
	return h.pubsub.Publish(ctx, announceChannel, message)
}

// NotifyUser publishes an event to a single user's channel. The data
// value is JSON-encoded into the event payload.
func (h *Handler) NotifyUser(ctx context.Context, userID int64, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}
	return h.pubsub.Publish(ctx, UserChannel(userID), string(payload))
}
