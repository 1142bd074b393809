package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/amaan-q00/beta-chatx/internal/chat/domain"
	"github.com/amaan-q00/beta-chatx/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pingInterval = 30 * time.Second

// ChatWebsocketHandler drives one websocket connection: read loop,
// event demux, implicit leave on disconnect.
type ChatWebsocketHandler struct {
	hub      *Hub
	maxFrame int64
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(hub *Hub, maxFrame int64) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{hub: hub, maxFrame: maxFrame}
}

// wsClient is the Subscriber behind one live connection. Writes are
// serialized; concurrent broadcasts share the connection safely.
type wsClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex

	roomID   string
	viewerID string
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) Send(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// HandleConnection is the websocket entry point for one client.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	client := &wsClient{id: uuid.New().String(), conn: conn}
	conn.SetReadLimit(h.maxFrame)

	ticker := time.NewTicker(pingInterval)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		if client.roomID != "" {
			h.hub.Leave(client.roomID, client.id)
		}
		logger.Log.Info("websocket close", zap.String("clientID", client.id))
		conn.Close()
		cancel()
	}()

	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	go func() {
		for {
			select {
			case <-ticker.C:
				client.mu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, []byte("ping"))
				client.mu.Unlock()
				if err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("clientID", client.id))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketEvent(ctx, client, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketEvent(ctx context.Context, client *wsClient, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageEvent(ctx, client, msg)

	default:
		h.sendError(client, "unknown message type")
	}
}

// textMessageEvent decodes the envelope and routes it. A malformed
// event is rejected right here; nothing partial ever reaches the hub.
func (h *ChatWebsocketHandler) textMessageEvent(ctx context.Context, client *wsClient, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("envelope unmarshal error:", err, zap.String("clientID", client.id))
		h.sendError(client, "malformed envelope")
		return
	}

	switch req.Event {
	case domain.EventJoin:
		p, err := decodePayload[domain.JoinPayload](req.Data)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		if client.roomID != "" && client.roomID != p.RoomID {
			h.hub.Leave(client.roomID, client.id)
		}
		client.roomID = p.RoomID
		client.viewerID = p.ViewerID
		h.hub.Join(p, client)

	case domain.EventMessage:
		p, err := decodePayload[domain.MessagePayload](req.Data)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		h.hub.HandleMessage(p)

	case domain.EventMediaViewed:
		p, err := decodePayload[domain.MediaViewedPayload](req.Data)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		h.hub.HandleMediaViewed(p)

	case domain.EventMediaChunk:
		p, err := decodePayload[domain.MediaChunkPayload](req.Data)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		if err := h.hub.HandleMediaChunk(ctx, p, client); err != nil {
			h.sendError(client, err.Error())
		}

	default:
		h.sendError(client, "unknown event")
	}
}

type validatable interface {
	Validate() error
}

func decodePayload[T validatable](data json.RawMessage) (T, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		var zero T
		return zero, err
	}
	if err := p.Validate(); err != nil {
		var zero T
		return zero, err
	}
	return p, nil
}

func (h *ChatWebsocketHandler) sendError(client *wsClient, errorMsg string) {
	resp := domain.WSResponse{
		Event: domain.EventError,
		Error: errorMsg,
	}
	if err := client.Send(resp); err != nil {
		logger.Log.Errorf("write error response failed:", err)
	}
}
