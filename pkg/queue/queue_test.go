package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := NewQueue(client, nil)
	q.SetBlockTimeout(100 * time.Millisecond)
	return q, mr
}

func TestEnqueueAndDequeueNotifications(t *testing.T) {
	q, mr := setupTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueNotifications(ctx,
		NotificationPayload{Recipient: "0xa", SurveyID: "s1", Type: "survey_closed", Title: "t1"},
		NotificationPayload{Recipient: "0xb", SurveyID: "s1", Type: "survey_closed", Title: "t2"},
	))
	list, err := mr.List(QueueNotifications)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	job, key, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, QueueNotifications, key)
	assert.Equal(t, JobTypeNotification, job.Type)
	assert.Equal(t, 0, job.Attempt)

	var p NotificationPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, "0xa", p.Recipient)
	assert.Equal(t, "t1", p.Title)
}

func TestEnqueueNothing(t *testing.T) {
	q, mr := setupTestQueue(t)
	require.NoError(t, q.EnqueueNotifications(context.Background()))
	assert.False(t, mr.Exists(QueueNotifications))
}

func TestRetryMovesToDeadLetterQueue(t *testing.T) {
	q, mr := setupTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.EnqueueNotifications(ctx, NotificationPayload{Recipient: "0xa"}))

	job, _, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		assert.Equal(t, i, job.Attempt)
		job, _, err = q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
	}
	require.NoError(t, q.Retry(ctx, job))
	assert.False(t, mr.Exists(QueueNotifications))

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, MaxRetries, dead[0].Attempt)
	assert.Equal(t, job.ID, dead[0].ID)
}

func TestDequeueInvalidPayloadIsSkipped(t *testing.T) {
	q, mr := setupTestQueue(t)
	_, err := mr.Push(QueueNotifications, "not json")
	require.NoError(t, err)

	job, _, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}
