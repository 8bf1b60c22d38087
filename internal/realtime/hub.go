package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventSurveyUpdated tells subscribers a survey changed and should be refetched.
	EventSurveyUpdated = "survey_updated"
	// EventViewerCount carries the number of live subscribers of a survey.
	EventViewerCount = "viewer_count"
)

// SurveyChange is the payload of EventSurveyUpdated.
type SurveyChange struct {
	SurveyID string `json:"survey_id"`
	Version  int64  `json:"version"`
	Action   string `json:"action"`
	At       int64  `json:"at"`
}

// AudienceChangeHandler is called when the subscriber count of a survey room changes.
type AudienceChangeHandler func(surveyID string, count int)

// Hub maintains survey_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// surveyID -> map[clientID]*Client
	rooms      map[string]map[string]*Client
	subs       map[string]func() // cancel Redis subscription per survey
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
	onAudience AudienceChangeHandler
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishSurveyEvent(surveyID string, event string, payload []byte) error
}

// RedisSubscriber subscribes to survey channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSurvey(surveyID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetAudienceChangeHandler sets the callback for subscriber count changes.
func (h *Hub) SetAudienceChangeHandler(fn AudienceChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAudience = fn
}

// Register adds a client to a survey room. Starts Redis subscription for this survey if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.SurveyID] == nil {
		h.rooms[c.SurveyID] = make(map[string]*Client)
		if h.redisSub != nil {
			surveyID := c.SurveyID
			cancel, err := h.redisSub.SubscribeSurvey(surveyID, func(event string, payload []byte) {
				h.BroadcastToSurvey(surveyID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.String("survey_id", surveyID), zap.Error(err))
			} else {
				h.subs[surveyID] = cancel
			}
		}
	}
	h.rooms[c.SurveyID][c.ID] = c
	count := len(h.rooms[c.SurveyID])
	onAudience := h.onAudience
	h.mu.Unlock()
	if onAudience != nil {
		onAudience(c.SurveyID, count)
	}
	h.logger.Debug("client subscribed", zap.String("client_id", c.ID), zap.String("survey_id", c.SurveyID))
}

// Unregister removes a client from a survey room. Cancels Redis subscription when last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.rooms[c.SurveyID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.rooms, c.SurveyID)
			if cancel, ok := h.subs[c.SurveyID]; ok {
				cancel()
				delete(h.subs, c.SurveyID)
			}
		}
	}
	onAudience := h.onAudience
	h.mu.Unlock()
	if onAudience != nil {
		onAudience(c.SurveyID, count)
	}
	h.logger.Debug("client unsubscribed", zap.String("client_id", c.ID), zap.String("survey_id", c.SurveyID))
}

// BroadcastToSurvey sends a message to all clients in a survey room (local only).
func (h *Hub) BroadcastToSurvey(surveyID string, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[surveyID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full, dropping message", zap.String("client_id", c.ID))
		}
	}
}

// PublishToSurvey publishes through Redis so the subscriber callback performs the broadcast once for
// every instance (including this one). Without Redis it broadcasts locally.
func (h *Hub) PublishToSurvey(surveyID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		if err := h.redis.PublishSurveyEvent(surveyID, event, data); err != nil {
			h.logger.Warn("redis publish failed, broadcasting locally", zap.String("survey_id", surveyID), zap.Error(err))
			h.BroadcastToSurvey(surveyID, event, data)
		}
		return
	}
	h.BroadcastToSurvey(surveyID, event, data)
}

// PublishSurveyChange notifies subscribers that a survey reached a new version.
func (h *Hub) PublishSurveyChange(surveyID string, version int64, action string) {
	h.PublishToSurvey(surveyID, EventSurveyUpdated, SurveyChange{
		SurveyID: surveyID,
		Version:  version,
		Action:   action,
		At:       time.Now().Unix(),
	})
}

// RoomSize returns the number of connected clients subscribed to a survey.
func (h *Hub) RoomSize(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[surveyID])
}

// SendToClient sends a message to a single client in a survey room.
func (h *Hub) SendToClient(surveyID, clientID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.rooms[surveyID][clientID]
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
