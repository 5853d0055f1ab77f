// internal/activity/redis.go
package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	goredis "github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultRedisChannel = "libradesk.activity"

// RedisPublisher broadcasts every recorded event on a Redis pub/sub channel
// so other processes (a websocket fan-out, an audit consumer) can follow the
// feed live. It does not keep history.
type RedisPublisher struct {
	rdb     *goredis.Client
	channel string
}

// NewRedisPublisher connects to addr and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr, channel string) (*RedisPublisher, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultRedisChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPublisher{rdb: rdb, channel: channel}, nil
}

// Channel is the pub/sub channel events are published on.
func (p *RedisPublisher) Channel() string { return p.channel }

func (p *RedisPublisher) Record(ctx context.Context, event Event) error {
	raw, err := EncodeMessage(event)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}
	return nil
}

// Subscribe delivers published events to onEvent until ctx is done.
// Messages that fail to decode are skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context, onEvent func(Event)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := DecodeMessage([]byte(msg.Payload))
			if err != nil {
				continue
			}
			onEvent(event)
		}
	}
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// EncodeMessage is the wire form of an event on the pub/sub channel.
func EncodeMessage(event Event) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activity event: %w", err)
	}
	return raw, nil
}

// DecodeMessage parses a message produced by EncodeMessage.
func DecodeMessage(raw []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal activity event: %w", err)
	}
	return event, nil
}
