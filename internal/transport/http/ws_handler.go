package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizroom-service/internal/app"
)

// WSHandler upgrades connections and feeds inbound messages into the quiz
// session controller.
type WSHandler struct {
	controller *app.Controller
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewWSHandler(controller *app.Controller, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		controller: controller,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Inbound message envelope. Type names are part of the wire protocol.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type roomActionPayload struct {
	RoomID string `json:"roomId"`
}

type submitPayload struct {
	RoomID      string  `json:"roomId"`
	AnswerIndex int     `json:"answerIndex"`
	TimeSpent   float64 `json:"timeSpent"`
}

// wsClient adapts one websocket connection to the controller's Client
// interface. Send never blocks: when the buffer is full the oldest queued
// event is dropped so a slow reader cannot stall a room broadcast.
type wsClient struct {
	id   string
	send chan app.Event
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) Send(ev app.Event) {
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- ev:
		default:
		}
	}
}

// ServeWS runs one connection: a writer goroutine drains the send queue
// while the read loop dispatches inbound events to the controller.
func (h *WSHandler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client := &wsClient{
		id:   uuid.NewString(),
		send: make(chan app.Event, 16),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for ev := range client.send {
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("ws write error", zap.String("conn_id", client.id), zap.Error(err))
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(client, inbound)
	}

	h.controller.Disconnect(client)
	close(client.send)
	<-writerDone
}

func (h *WSHandler) dispatch(client *wsClient, inbound inboundMessage) {
	switch inbound.Type {
	case "join-room":
		var p joinPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			h.invalidPayload(client)
			return
		}
		h.controller.Join(client, p.RoomCode, p.Username, p.IsAdmin)
	case "start-quiz":
		var p roomActionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			h.invalidPayload(client)
			return
		}
		h.controller.Start(client, p.RoomID)
	case "submit-answer":
		var p submitPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			h.invalidPayload(client)
			return
		}
		h.controller.Submit(client, p.RoomID, p.AnswerIndex, p.TimeSpent)
	case "next-question":
		var p roomActionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			h.invalidPayload(client)
			return
		}
		h.controller.Next(client, p.RoomID)
	case "finish-quiz":
		var p roomActionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			h.invalidPayload(client)
			return
		}
		h.controller.Finish(client, p.RoomID)
	case "ping":
		h.controller.Ping(client)
	default:
		client.Send(app.Event{Type: app.EventError, Payload: app.ErrorPayload{Message: "unsupported message type"}})
	}
}

func (h *WSHandler) invalidPayload(client *wsClient) {
	client.Send(app.Event{Type: app.EventError, Payload: app.ErrorPayload{Message: "invalid payload"}})
}
