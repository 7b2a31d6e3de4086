package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/interfaces"
	"github.com/aptihub/chatetl/internal/models"
)

// envelope wraps a job message with queue bookkeeping
type envelope struct {
	ID           string             `json:"id"`
	Body         *models.JobMessage `json:"body"`
	EnqueuedAt   time.Time          `json:"enqueued_at"`
	VisibleAt    time.Time          `json:"visible_at"`
	ReceiveCount int                `json:"receive_count"`
}

// BadgerQueue is a persistent at-least-once queue backed by BadgerDB.
// Message bodies live under msg keys; a visibility index keyed by
// zero-padded UnixNano timestamps gives ordered ready-message scans.
// Messages received more than maxReceive times move to a dead-letter
// prefix instead of looping forever.
type BadgerQueue struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
	logger            arbor.ILogger
}

// NewBadgerQueue creates a queue on an externally managed Badger database
func NewBadgerQueue(db *badger.DB, config *common.QueueConfig, logger arbor.ILogger) (*BadgerQueue, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	name := config.QueueName
	if name == "" {
		name = "etl-jobs"
	}
	maxReceive := config.MaxReceive
	if maxReceive <= 0 {
		maxReceive = 3
	}

	return &BadgerQueue{
		db:                db,
		queueName:         name,
		visibilityTimeout: config.VisibilityTimeoutDuration(),
		maxReceive:        maxReceive,
		logger:            logger,
	}, nil
}

var _ interfaces.JobQueue = (*BadgerQueue)(nil)

// Enqueue stores a message and makes it immediately visible
func (q *BadgerQueue) Enqueue(ctx context.Context, msg *models.JobMessage) error {
	env := envelope{
		ID:         uuid.New().String(),
		Body:       msg,
		EnqueuedAt: time.Now(),
		VisibleAt:  time.Now(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(q.msgKey(env.ID), data); err != nil {
			return err
		}
		return txn.Set(q.indexKey(env.VisibleAt, env.ID), []byte{})
	})
}

// Receive claims the next visible message. The returned ack function
// removes the message; an unacked message reappears after the visibility
// timeout.
func (q *BadgerQueue) Receive(ctx context.Context) (*models.JobMessage, func() error, error) {
	var claimed envelope

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := q.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			indexKey := it.Item().KeyCopy(nil)
			visibleAt, id, err := q.parseIndexKey(indexKey)
			if err != nil {
				continue
			}
			if visibleAt.After(now) {
				// index keys sort by timestamp, nothing later is ready
				break
			}

			item, err := txn.Get(q.msgKey(id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// orphaned index entry
					if err := txn.Delete(indexKey); err != nil {
						return err
					}
					continue
				}
				return err
			}

			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}

			if env.ReceiveCount >= q.maxReceive {
				if err := q.deadLetter(txn, indexKey, &env); err != nil {
					return err
				}
				continue
			}

			env.ReceiveCount++
			env.VisibleAt = now.Add(q.visibilityTimeout)
			data, err := json.Marshal(env)
			if err != nil {
				return err
			}
			if err := txn.Set(q.msgKey(id), data); err != nil {
				return err
			}
			if err := txn.Delete(indexKey); err != nil {
				return err
			}
			if err := txn.Set(q.indexKey(env.VisibleAt, id), []byte{}); err != nil {
				return err
			}

			claimed = env
			return nil
		}
		return models.ErrQueueEmpty
	})
	if err != nil {
		return nil, nil, err
	}

	ack := func() error { return q.delete(claimed.ID) }
	return claimed.Body, ack, nil
}

// Depth counts visible and in-flight messages
func (q *BadgerQueue) Depth() (int, error) {
	count := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := q.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// DeadLetters returns the messages parked after exceeding max receive
func (q *BadgerQueue) DeadLetters() ([]*models.JobMessage, error) {
	var out []*models.JobMessage
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(fmt.Sprintf("queue:%s:dead:", q.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var env envelope
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}
			out = append(out, env.Body)
		}
		return nil
	})
	return out, err
}

// Close is a no-op; the Badger database is managed by the caller
func (q *BadgerQueue) Close() error { return nil }

func (q *BadgerQueue) delete(id string) error {
	return q.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(q.msgKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		var env envelope
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		}); err != nil {
			return err
		}
		if err := txn.Delete(q.indexKey(env.VisibleAt, id)); err != nil &&
			!errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Delete(q.msgKey(id))
	})
}

func (q *BadgerQueue) deadLetter(txn *badger.Txn, indexKey []byte, env *envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	deadKey := []byte(fmt.Sprintf("queue:%s:dead:%s", q.queueName, env.ID))
	if err := txn.Set(deadKey, data); err != nil {
		return err
	}
	if err := txn.Delete(indexKey); err != nil {
		return err
	}
	if err := txn.Delete(q.msgKey(env.ID)); err != nil {
		return err
	}
	if q.logger != nil {
		q.logger.Warn().
			Str("queue", q.queueName).
			Str("message_id", env.ID).
			Int("receive_count", env.ReceiveCount).
			Msg("Message moved to dead letter store")
	}
	return nil
}

func (q *BadgerQueue) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", q.queueName, id))
}

func (q *BadgerQueue) indexPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", q.queueName))
}

func (q *BadgerQueue) indexKey(visibleAt time.Time, id string) []byte {
	// zero-padded so lexical order matches numeric order
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", q.queueName, visibleAt.UnixNano(), id))
}

func (q *BadgerQueue) parseIndexKey(key []byte) (time.Time, string, error) {
	suffix := strings.TrimPrefix(string(key), string(q.indexPrefix()))
	parts := strings.SplitN(suffix, ":", 2)
	if len(parts) != 2 || len(parts[0]) != 20 {
		return time.Time{}, "", fmt.Errorf("malformed index key %q", key)
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, nanos), parts[1], nil
}
