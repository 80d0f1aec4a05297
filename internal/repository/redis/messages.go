package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/RegistryGo/internal/repository"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
)

const keyPrefix = "registrar:messages:"

// MessageQueue implements repository.MessageQueue using a Redis list per
// registrar. Messages are polled oldest first and removed on acknowledgement,
// EPP poll semantics.
type MessageQueue struct {
	client *redis.Client
}

// NewMessageQueue creates a new Redis-backed registrar message queue.
func NewMessageQueue(client *redis.Client) *MessageQueue {
	return &MessageQueue{client: client}
}

// Enqueue appends a message to the registrar's inbox.
func (q *MessageQueue) Enqueue(ctx context.Context, registrarID string, msg repository.Message) error {
	key := keyPrefix + registrarID

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := q.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("redis push message: %w", err)
	}
	return nil
}

// Peek returns the oldest queued message without removing it.
func (q *MessageQueue) Peek(ctx context.Context, registrarID string) (*repository.Message, error) {
	key := keyPrefix + registrarID

	data, err := q.client.LIndex(ctx, key, 0).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("message", registrarID)
		}
		return nil, fmt.Errorf("redis peek message: %w", err)
	}

	var msg repository.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &msg, nil
}

// Ack removes the message with the given id if it is still the oldest. An id
// mismatch means another consumer already acknowledged it.
func (q *MessageQueue) Ack(ctx context.Context, registrarID, messageID string) error {
	head, err := q.Peek(ctx, registrarID)
	if err != nil {
		return err
	}
	if head.ID != messageID {
		return apperrors.Conflict(fmt.Sprintf("message %s is not at the head of the queue", messageID))
	}

	if err := q.client.LPop(ctx, keyPrefix+registrarID).Err(); err != nil {
		return fmt.Errorf("redis ack message: %w", err)
	}
	return nil
}
