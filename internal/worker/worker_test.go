package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveychain/backend/internal/models"
	"github.com/surveychain/backend/internal/notifications"
	"github.com/surveychain/backend/pkg/queue"
)

func setupTestQueue(t *testing.T) (*queue.Queue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := queue.NewQueue(client, nil)
	q.SetBlockTimeout(50 * time.Millisecond)
	return q, client
}

func TestRunDeliversQueuedNotifications(t *testing.T) {
	q, client := setupTestQueue(t)
	store := notifications.NewRedisStore(client, nil)
	service := notifications.NewService(store, nil)
	dispatcher := notifications.NewQueueDispatcher(q)

	ctx := context.Background()
	require.NoError(t, dispatcher.Dispatch(ctx, []models.NotificationEvent{
		{Recipient: "0xAAA", SurveyID: "s1", Type: models.NotificationSurveyClosed, Title: "Rewards Distributed!"},
		{Recipient: "0xaaa", SurveyID: "s2", Type: models.NotificationSurveyOpened, Title: "Survey Now Open!"},
	}))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		NewNotificationProcessor(service, q, nil).Run(runCtx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		list, err := service.List(ctx, "0xaaa")
		return err == nil && len(list) == 2
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

type failingStore struct{ notifications.Store }

func (failingStore) Add(context.Context, models.Notification) error { return errors.New("store down") }

func TestFailedJobsEndInDeadLetterQueue(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()
	p := NewNotificationProcessor(notifications.NewService(failingStore{}, nil), q, nil)
	p.backoff = time.Millisecond

	require.NoError(t, q.EnqueueNotifications(ctx, queue.NotificationPayload{Recipient: "0xaaa", Title: "x"}))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.Run(runCtx)

	assert.Eventually(t, func() bool {
		dead, err := q.DeadLetters(ctx, 10)
		return err == nil && len(dead) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestProcessRejectsUnknownJobs(t *testing.T) {
	q, _ := setupTestQueue(t)
	p := NewNotificationProcessor(notifications.NewService(notifications.NewMemoryStore(), nil), q, nil)

	err := p.Process(context.Background(), &queue.Job{Type: "email"})
	assert.Error(t, err)

	payload, _ := json.Marshal(queue.NotificationPayload{Title: "no recipient"})
	err = p.Process(context.Background(), &queue.Job{Type: queue.JobTypeNotification, Payload: payload})
	assert.Error(t, err)
}
