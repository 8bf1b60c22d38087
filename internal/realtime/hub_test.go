package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, id, surveyID string) *Client {
	return &Client{ID: id, SurveyID: surveyID, hub: hub, send: make(chan WSMessage, 8)}
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return WSMessage{}
	}
}

func TestHubBroadcastsChangesToRoomOnly(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	var counts []int
	hub.SetAudienceChangeHandler(func(_ string, n int) { counts = append(counts, n) })

	a := newTestClient(hub, "a", "s1")
	b := newTestClient(hub, "b", "s2")
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 1, hub.RoomSize("s1"))

	hub.PublishSurveyChange("s1", 7, "responded")
	msg := receive(t, a)
	assert.Equal(t, EventSurveyUpdated, msg.Event)
	var change SurveyChange
	require.NoError(t, json.Unmarshal(msg.Data, &change))
	assert.Equal(t, "s1", change.SurveyID)
	assert.Equal(t, int64(7), change.Version)
	assert.Equal(t, "responded", change.Action)
	assert.Empty(t, b.send)

	hub.Unregister(a)
	assert.Equal(t, 0, hub.RoomSize("s1"))
	_, open := <-a.send
	assert.False(t, open)
	assert.Equal(t, []int{1, 1, 0}, counts)
}

func TestHubPublishesThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ps := NewRedisPubSub(client, nil)

	// Two hubs sharing Redis stand in for two server instances.
	first := NewHub(nil, ps, ps)
	second := NewHub(nil, ps, ps)
	a := newTestClient(first, "a", "s1")
	b := newTestClient(second, "b", "s1")
	first.Register(a)
	second.Register(b)

	first.PublishSurveyChange("s1", 2, "finalized")

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, EventSurveyUpdated, msg.Event)
	}
	first.Unregister(a)
	second.Unregister(b)
}

type failingPublisher struct{}

func (failingPublisher) PublishSurveyEvent(string, string, []byte) error {
	return errors.New("redis down")
}

func TestHubFallsBackToLocalBroadcast(t *testing.T) {
	hub := NewHub(nil, failingPublisher{}, nil)
	a := newTestClient(hub, "a", "s1")
	hub.Register(a)

	hub.PublishSurveyChange("s1", 3, "opened")
	assert.Equal(t, EventSurveyUpdated, receive(t, a).Event)
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, nil, nil)
	validate := func(token string) (string, error) {
		if token != "good" {
			return "", errors.New("bad token")
		}
		return "0xabc", nil
	}
	lookup := func(_ context.Context, id string) (int64, error) {
		if id != "s1" {
			return 0, errors.New("not found")
		}
		return 4, nil
	}
	r := gin.New()
	r.GET("/ws", ServeWs(hub, nil, validate, lookup))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?survey_id=s1&token=bad", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?survey_id=nope&token=good", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?survey_id=s1&token=good", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventSubscribed, msg.Event)
	var change SurveyChange
	require.NoError(t, json.Unmarshal(msg.Data, &change))
	assert.Equal(t, int64(4), change.Version)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventViewerCount, msg.Event)

	hub.PublishSurveyChange("s1", 5, "responded")
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventSurveyUpdated, msg.Event)
}
