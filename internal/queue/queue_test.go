package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/models"
)

func newTestQueue(t *testing.T, visibility string, maxReceive int) *BadgerQueue {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	q, err := NewBadgerQueue(db, &common.QueueConfig{
		QueueName:         "etl-jobs",
		VisibilityTimeout: visibility,
		MaxReceive:        maxReceive,
	}, common.GetLogger())
	require.NoError(t, err)
	return q
}

func TestEnqueueReceiveAck(t *testing.T) {
	q := newTestQueue(t, "5m", 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &models.JobMessage{JobID: "job-1", UserID: "user-1", AnpSeq: 1}))
	require.NoError(t, q.Enqueue(ctx, &models.JobMessage{JobID: "job-2", UserID: "user-2", AnpSeq: 2}))

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	first, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, ack())

	depth, err = q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	second, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, ack())

	assert.ElementsMatch(t, []string{"job-1", "job-2"}, []string{first.JobID, second.JobID})

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrQueueEmpty)
}

func TestUnackedMessageReappears(t *testing.T) {
	q := newTestQueue(t, "30ms", 5)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &models.JobMessage{JobID: "job-1", UserID: "user-1", AnpSeq: 1}))

	msg, _, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", msg.JobID)

	// invisible while the first receive is in flight
	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrQueueEmpty)

	time.Sleep(50 * time.Millisecond)

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", msg.JobID)
	require.NoError(t, ack())
}

func TestDeadLetterAfterMaxReceive(t *testing.T) {
	q := newTestQueue(t, "1ms", 2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &models.JobMessage{JobID: "poison", UserID: "user-1", AnpSeq: 1}))

	for i := 0; i < 2; i++ {
		_, _, err := q.Receive(ctx)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	// third receive parks the message instead of delivering it
	_, _, err := q.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrQueueEmpty)

	dead, err := q.DeadLetters()
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "poison", dead[0].JobID)

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestAckAfterVisibilityChange(t *testing.T) {
	q := newTestQueue(t, "5m", 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &models.JobMessage{JobID: "job-1", UserID: "user-1", AnpSeq: 1}))

	_, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, ack())
	// acking twice is harmless
	require.NoError(t, ack())

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestWorkerPoolProcessesMessages(t *testing.T) {
	q := newTestQueue(t, "5m", 3)
	ctx := context.Background()

	var mu sync.Mutex
	seen := make(map[string]bool)
	handler := func(ctx context.Context, msg *models.JobMessage) error {
		mu.Lock()
		seen[msg.JobID] = true
		mu.Unlock()
		return nil
	}

	require.NoError(t, q.Enqueue(ctx, &models.JobMessage{JobID: "job-1", UserID: "user-1", AnpSeq: 1}))
	require.NoError(t, q.Enqueue(ctx, &models.JobMessage{JobID: "job-2", UserID: "user-2", AnpSeq: 2}))
	require.NoError(t, q.Enqueue(ctx, &models.JobMessage{JobID: "job-3", UserID: "user-3", AnpSeq: 3}))

	pool := NewWorkerPool(q, handler, 2, 5*time.Millisecond, common.GetLogger())
	pool.Start(ctx)

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		done := len(seen) == 3
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("workers did not drain the queue")
		case <-time.After(10 * time.Millisecond):
		}
	}
	pool.Stop()

	depth, err := q.Depth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
	assert.True(t, seen["job-1"] && seen["job-2"] && seen["job-3"])
}
