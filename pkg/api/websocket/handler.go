package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/pkg/adapters/events"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler streams invocation events to websocket clients.
type Handler struct {
	bus    events.Bus
	logger *zap.Logger
}

// NewHandler creates a websocket handler reading from bus.
func NewHandler(bus events.Bus, logger *zap.Logger) *Handler {
	return &Handler{
		bus:    bus,
		logger: logger,
	}
}

// Stream upgrades the connection and forwards invocation events until the
// client goes away. A unit query parameter narrows the stream to one unit.
func (h *Handler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	cl := &client{
		conn:   conn,
		unit:   c.Query("unit"),
		events: make(chan events.Event, sendBuffer),
		logger: h.logger,
	}
	h.logger.Info("websocket client connected",
		zap.String("unit_filter", cl.unit),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := h.bus.Subscribe(ctx, events.TopicInvocations, cl.enqueue(ctx)); err != nil {
		h.logger.Error("failed to subscribe to invocation events", zap.Error(err))
		_ = conn.Close()
		return
	}

	go cl.discardIncoming(cancel)
	cl.writeLoop(ctx)
}

// client is one connected websocket consumer.
type client struct {
	conn   *websocket.Conn
	unit   string
	events chan events.Event
	logger *zap.Logger
}

// enqueue returns a bus handler that buffers matching events for the write
// loop. Events are dropped, not queued, when the client cannot keep up.
func (cl *client) enqueue(ctx context.Context) events.Handler {
	return func(_ context.Context, event events.Event) error {
		if cl.unit != "" && event.Unit != cl.unit {
			return nil
		}
		select {
		case cl.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			cl.logger.Warn("slow websocket client, dropping event",
				zap.String("unit", event.Unit),
				zap.String("op", event.Op))
		}
		return nil
	}
}

// discardIncoming drains frames from the peer so close and pong control
// messages are processed, cancelling the stream once the peer goes away.
func (cl *client) discardIncoming(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (cl *client) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer func() { _ = cl.conn.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-cl.events:
			payload, err := json.Marshal(event)
			if err != nil {
				cl.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}
			if err := cl.write(websocket.TextMessage, payload); err != nil {
				cl.logger.Debug("websocket client gone", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := cl.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (cl *client) write(messageType int, payload []byte) error {
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteMessage(messageType, payload)
}
