package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisHub relays events through Redis pub/sub so that every process behind
// a load balancer sees the same stream. Channel names come from Scope.
type RedisHub struct {
	rc     *redis.Client
	logger *zap.Logger
}

func NewRedisHub(rc *redis.Client, logger *zap.Logger) *RedisHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisHub{rc: rc, logger: logger}
}

// Publish sends ev to the scope's Redis channel as JSON.
func (h *RedisHub) Publish(ctx context.Context, scope Scope, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.rc.Publish(ctx, scope.Channel(), payload).Err()
}

// Subscribe opens a Redis subscription on the scope and decodes incoming
// messages. The pump goroutine exits when ctx ends or Close is called.
func (h *RedisHub) Subscribe(ctx context.Context, scope Scope) (*Subscription, error) {
	pubsub := h.rc.Subscribe(ctx, scope.Channel())
	// Force the subscribe round trip so a dead Redis fails here, not silently.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	ch := make(chan Event, subscriberBuffer)
	go func() {
		defer close(ch)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.logger.Warn("realtime: bad event payload", zap.String("channel", scope.Channel()), zap.Error(err))
				continue
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}()

	return &Subscription{
		C:     ch,
		close: func() { _ = pubsub.Close() },
	}, nil
}
