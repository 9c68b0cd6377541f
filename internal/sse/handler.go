package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

const (
	headerContentType     = "Content-Type"
	headerCacheControl    = "Cache-Control"
	headerConnection      = "Connection"
	headerXAccelBuffering = "X-Accel-Buffering"

	sseContentType = "text/event-stream"

	connectedMessage = "Connection established"
)

// SnapshotFunc returns the current platform-state table.
type SnapshotFunc func() map[domain.Source]domain.PlatformState

// ChannelFunc resolves the caller's channel from the request.
type ChannelFunc func(c *gin.Context) string

// Handler streams the caller's channel. The first two events on a new
// connection are an info "Connection established" and a full platform_state
// snapshot.
func Handler(broker Subscriber, snapshot SnapshotFunc, channelOf ChannelFunc, log logger.Logger, opts ...ClientOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		channel := channelOf(c)
		if channel == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user channel"})
			return
		}

		clientOpts := append([]ClientOption{WithChannel(channel)}, opts...)
		eventChan, cleanup := broker.Subscribe(c.Request.Context(), clientOpts...)
		defer cleanup()

		if eventChan == nil {
			log.Warn("SSE subscription rejected (max clients reached)")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many connections"})
			return
		}

		setHeaders(c.Writer)
		c.Status(http.StatusOK)

		if err := writeEvent(c.Writer, NewMessageEvent(channel, TypeInfo, connectedMessage)); err != nil {
			log.Error("Failed to write connection event", logger.Error(err))
			return
		}
		if err := writeEvent(c.Writer, NewPlatformStateEvent(channel, snapshot())); err != nil {
			log.Error("Failed to write state snapshot", logger.Error(err))
			return
		}

		log.Debug("SSE client connected",
			logger.String("channel", channel),
			logger.String("remote_addr", c.ClientIP()),
		)

		stream(c, eventChan, log)
	}
}

func setHeaders(w gin.ResponseWriter) {
	w.Header().Set(headerContentType, sseContentType)
	w.Header().Set(headerCacheControl, "no-cache")
	w.Header().Set(headerConnection, "keep-alive")
	w.Header().Set(headerXAccelBuffering, "no")
}

func stream(c *gin.Context, eventChan <-chan Event, log logger.Logger) {
	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				log.Debug("SSE event channel closed")
				return
			}
			if err := writeEvent(c.Writer, event); err != nil {
				log.Debug("SSE write failed (client likely disconnected)",
					logger.Error(err),
					logger.String("event_type", event.Type),
				)
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// writeEvent writes event in wire format and flushes.
func writeEvent(w gin.ResponseWriter, event Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return fmt.Errorf("write event type: %w", err)
	}
	if event.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", event.ID); err != nil {
			return fmt.Errorf("write event id: %w", err)
		}
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err = fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event data: %w", err)
	}
	w.Flush()
	return nil
}
