package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/observability"
	"parcelroute/internal/realtime"
	"parcelroute/internal/service"
)

// WSHandler upgrades authenticated requests to WebSocket connections and
// dispatches their events to the chat and tracking services.
type WSHandler struct {
	chatService     *service.ChatService
	trackingService *service.TrackingService
	upgrader        websocket.Upgrader
	opts            realtime.ConnOptions
	logger          logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

// NewWSHandler creates a new WSHandler. An empty allowedOrigins accepts any
// origin.
func NewWSHandler(
	chatService *service.ChatService,
	trackingService *service.TrackingService,
	opts realtime.ConnOptions,
	allowedOrigins []string,
	logger logrus.FieldLogger,
) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WSHandler{
		chatService:     chatService,
		trackingService: trackingService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		opts:   opts,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Serve handles GET /v1/ws. The route sits behind middleware.Authenticate,
// so unauthenticated clients get 401 before any upgrade.
func (h *WSHandler) Serve(c *gin.Context) {
	p := principal(c)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	h.conns.Add(1)
	defer h.conns.Done()

	conn := realtime.NewConn(ws, p, h.opts, h.logger)
	conn.Run(h.ctx, h.dispatch)
	h.chatService.Disconnect(conn)
}

// Shutdown closes every connection and waits for them to finish or for ctx
// to end.
func (h *WSHandler) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) dispatch(ctx context.Context, conn *realtime.Conn, evt realtime.InboundEvent) {
	var err error
	label := evt.Name

	switch evt.Name {
	case realtime.EventJoinRoom:
		err = h.joinRoom(ctx, conn, evt.Data)
	case realtime.EventLeaveRoom:
		err = h.leaveRoom(conn, evt.Data)
	case realtime.EventSendMessage:
		err = h.sendMessage(ctx, conn, evt.Data)
	case realtime.EventTyping:
		err = h.typing(conn, evt.Data, h.chatService.Typing)
	case realtime.EventStopTyping:
		err = h.typing(conn, evt.Data, h.chatService.StopTyping)
	case realtime.EventMessageRead:
		err = h.messageRead(ctx, conn, evt.Data)
	case realtime.EventGPSUpdate:
		err = h.gpsUpdate(ctx, conn, evt.Data)
	default:
		label = "unknown"
		err = fmt.Errorf("%w: unknown event %q", domain.ErrValidation, evt.Name)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		status, code, message := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).WithFields(logrus.Fields{
				"event":   evt.Name,
				"conn_id": conn.ID(),
			}).Error("websocket event failed")
		}
		conn.SendError(evt.Name, code, message)
	}
	observability.WSEventsTotal.WithLabelValues(label, outcome).Inc()
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing payload", domain.ErrValidation)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed payload", domain.ErrValidation)
	}
	return nil
}

func (h *WSHandler) joinRoom(ctx context.Context, conn *realtime.Conn, data json.RawMessage) error {
	var req realtime.RoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	history, err := h.chatService.JoinRoom(ctx, conn, req.TripID)
	if err != nil {
		return err
	}

	messages := make([]realtime.MessagePayload, 0, len(history))
	for _, m := range history {
		messages = append(messages, realtime.NewMessagePayload(m))
	}

	conn.Send(realtime.Event{Name: realtime.EventJoinedRoom, Data: realtime.RoomPayload{TripID: req.TripID}})
	conn.Send(realtime.Event{Name: realtime.EventLoadMessages, Data: realtime.LoadMessagesPayload{TripID: req.TripID, Messages: messages}})
	return nil
}

func (h *WSHandler) leaveRoom(conn *realtime.Conn, data json.RawMessage) error {
	var req realtime.RoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	h.chatService.LeaveRoom(req.TripID, conn)
	conn.Send(realtime.Event{Name: realtime.EventLeftRoom, Data: realtime.RoomPayload{TripID: req.TripID}})
	return nil
}

func (h *WSHandler) sendMessage(ctx context.Context, conn *realtime.Conn, data json.RawMessage) error {
	var req realtime.SendMessageRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	_, err := h.chatService.SendMessage(ctx, conn, service.SendMessageRequest{
		TripID:     req.TripID,
		Body:       req.Body,
		ReceiverID: req.ReceiverID,
	})
	return err
}

func (h *WSHandler) typing(conn *realtime.Conn, data json.RawMessage, fn func(realtime.Handle, string) error) error {
	var req realtime.RoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	return fn(conn, req.TripID)
}

func (h *WSHandler) messageRead(ctx context.Context, conn *realtime.Conn, data json.RawMessage) error {
	var req realtime.MessageReadRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	return h.chatService.MarkRead(ctx, conn, req.TripID, req.MessageID)
}

func (h *WSHandler) gpsUpdate(ctx context.Context, conn *realtime.Conn, data json.RawMessage) error {
	var req realtime.GPSUpdateRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.Lat == nil || req.Lng == nil {
		return fmt.Errorf("%w: lat and lng are required", domain.ErrValidation)
	}

	_, err := h.trackingService.RecordFix(ctx, service.RecordFixRequest{
		TripID:   req.TripID,
		UserID:   conn.Principal().UserID,
		Lat:      *req.Lat,
		Lng:      *req.Lng,
		Accuracy: req.Accuracy,
		Speed:    req.Speed,
		Altitude: req.Altitude,
		Source:   service.FixSourceWebSocket,
	})
	return err
}
