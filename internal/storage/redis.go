package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisOpTimeout = 5 * time.Second

// redisChange is published on the change channel after every write
type redisChange struct {
	Origin  string `json:"origin"`
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// Redis keeps values under prefixed keys and announces every write on a
// pub/sub channel, so consoles on different hosts can share one session.
type Redis struct {
	client *redis.Client
	prefix string
	origin string
	logger zerolog.Logger
	subs   subscribers

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// OpenRedis connects to addr and verifies the connection
func OpenRedis(ctx context.Context, addr, prefix string, logger zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return NewRedis(client, prefix, logger), nil
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client, prefix string, logger zerolog.Logger) *Redis {
	if prefix == "" {
		prefix = "khutwa"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		origin: ulid.Make().String(),
		logger: logger.With().Str("component", "storage").Str("backend", "redis").Logger(),
	}
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + key
}

func (r *Redis) channel() string {
	return r.prefix + ":changes"
}

func (r *Redis) Get(key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return r.write(redisChange{Origin: r.origin, Key: key, Value: value})
}

func (r *Redis) Remove(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return r.write(redisChange{Origin: r.origin, Key: key, Removed: true})
}

func (r *Redis) write(change redisChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if change.Removed {
			pipe.Del(ctx, r.key(change.Key))
		} else {
			pipe.Set(ctx, r.key(change.Key), change.Value, 0)
		}
		pipe.Publish(ctx, r.channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", change.Key, err)
	}
	return nil
}

// Subscribe starts the pub/sub listener on first use
func (r *Redis) Subscribe(fn func(Change)) func() {
	unsubscribe := r.subs.add(fn)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub != nil {
		return unsubscribe
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	pubsub := r.client.Subscribe(context.Background(), r.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Failed to subscribe to storage changes")
		pubsub.Close()
		return unsubscribe
	}

	r.pubsub = pubsub
	r.done = make(chan struct{})
	go r.listen(pubsub.Channel(), r.done)

	return unsubscribe
}

func (r *Redis) listen(messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	for msg := range messages {
		var change redisChange
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			r.logger.Warn().Err(err).Msg("Ignoring malformed storage change")
			continue
		}
		if change.Origin == r.origin {
			continue
		}
		r.subs.notify(Change{
			Key:      change.Key,
			Value:    change.Value,
			Removed:  change.Removed,
			External: true,
		})
	}
}

func (r *Redis) Close() error {
	r.mu.Lock()
	pubsub, done := r.pubsub, r.done
	r.pubsub = nil
	r.mu.Unlock()

	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("Error closing storage subscription")
		}
		<-done
	}
	return r.client.Close()
}
