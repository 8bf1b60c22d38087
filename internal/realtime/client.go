package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// EventSubscribed is sent once after the upgrade with the current survey version.
	EventSubscribed = "subscribed"

	writeWait    = 10 * time.Second
	sendBuffer   = 64
	maxReadBytes = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS allow-list on the HTTP API
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is a single WebSocket subscription to one survey.
type Client struct {
	ID       string
	SurveyID string
	Address  string
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// TokenValidator returns the address bound to a session token.
type TokenValidator func(token string) (address string, err error)

// VersionLookup returns the current version of a survey, or an error if it does not exist.
type VersionLookup func(ctx context.Context, surveyID string) (int64, error)

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator, lookup VersionLookup) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		surveyID := c.Query("survey_id")
		token := c.Query("token")
		if surveyID == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "survey_id and token required"})
			return
		}
		address, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		version, err := lookup(c.Request.Context(), surveyID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "survey not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			SurveyID: surveyID,
			Address:  address,
			hub:      hub,
			conn:     conn,
			send:     make(chan WSMessage, sendBuffer),
			logger:   logger,
		}
		hub.Register(client)
		hub.SendToClient(surveyID, client.ID, EventSubscribed, SurveyChange{
			SurveyID: surveyID,
			Version:  version,
			At:       time.Now().Unix(),
		})
		hub.BroadcastToSurvey(surveyID, EventViewerCount, map[string]int{"count": hub.RoomSize(surveyID)})
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
		c.hub.BroadcastToSurvey(c.SurveyID, EventViewerCount, map[string]int{"count": c.hub.RoomSize(c.SurveyID)})
	}()

	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "ping":
			c.hub.SendToClient(c.SurveyID, c.ID, "pong", map[string]int64{"at": time.Now().Unix()})
		default:
			// subscriptions are read-only
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
