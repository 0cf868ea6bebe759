package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"parcelroute/internal/domain"
	"parcelroute/internal/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ConnOptions tunes a connection.
type ConnOptions struct {
	SendBuffer     int
	MaxMessageSize int64
	EventsPerSec   float64
	EventBurst     int
}

// Dispatcher handles one inbound event for a connection.
type Dispatcher func(ctx context.Context, c *Conn, evt InboundEvent)

// Conn is a WebSocket client. Outbound events go through a buffered queue
// drained by a single writer goroutine; inbound events are handled in order
// on the reader goroutine.
type Conn struct {
	id         string
	principal  domain.Principal
	ws         *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	writerDone chan struct{}
	limiter    *rate.Limiter
	maxSize    int64
	logger     logrus.FieldLogger
}

// NewConn wraps an upgraded WebSocket for an authenticated principal.
func NewConn(ws *websocket.Conn, p domain.Principal, opts ConnOptions, logger logrus.FieldLogger) *Conn {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 8192
	}
	limit := rate.Inf
	if opts.EventsPerSec > 0 {
		limit = rate.Limit(opts.EventsPerSec)
	}
	if opts.EventBurst <= 0 {
		opts.EventBurst = 1
	}

	id := uuid.New().String()
	return &Conn{
		id:         id,
		principal:  p,
		ws:         ws,
		send:       make(chan []byte, opts.SendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		limiter:    rate.NewLimiter(limit, opts.EventBurst),
		maxSize:    opts.MaxMessageSize,
		logger:     logger.WithFields(logrus.Fields{"conn_id": id, "user_id": p.UserID}),
	}
}

func (c *Conn) ID() string                  { return c.id }
func (c *Conn) Principal() domain.Principal { return c.principal }

// Send queues evt without blocking. A full buffer or a closed connection
// drops the event.
func (c *Conn) Send(evt Event) bool {
	b, err := json.Marshal(evt)
	if err != nil {
		c.logger.WithError(err).WithField("event", evt.Name).Error("failed to encode event")
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- b:
		return true
	default:
		observability.DroppedSends.Inc()
		c.logger.WithField("event", evt.Name).Warn("send buffer full, dropping event")
		return false
	}
}

// SendError replies to the originating connection only.
func (c *Conn) SendError(inbound, code, message string) {
	c.Send(Event{Name: ErrorEventName(inbound), Data: ErrorPayload{Code: code, Message: message}})
}

// Close stops both pumps. It is safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed when the connection shuts down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Run serves the connection until the client disconnects or ctx ends.
func (c *Conn) Run(ctx context.Context, dispatch Dispatcher) {
	observability.ActiveConnections.Inc()
	defer observability.ActiveConnections.Dec()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer close(c.writerDone)
		c.writePump()
	}()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.readPump(ctx, dispatch)
	c.Close()
	<-c.writerDone
}

func (c *Conn) readPump(ctx context.Context, dispatch Dispatcher) {
	c.ws.SetReadLimit(c.maxSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.WithError(err).Debug("connection closed unexpectedly")
			}
			return
		}

		if !c.limiter.Allow() {
			c.SendError("rateLimit", "rate_limited", "too many events")
			continue
		}

		var evt InboundEvent
		if err := json.Unmarshal(data, &evt); err != nil || evt.Name == "" {
			c.Send(Event{Name: EventError, Data: ErrorPayload{Code: "bad_request", Message: "malformed event"}})
			continue
		}

		dispatch(ctx, c, evt)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ Handle = (*Conn)(nil)
