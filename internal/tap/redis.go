// Package tap mirrors applied board mutations onto a Redis pub/sub channel
// so that other processes can observe board activity. Nothing is read back;
// the relay's in-memory store stays the only source of truth.
package tap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"CollabBoard/internal/protocol"
)

// DefaultBuffer is the number of events queued before new ones are dropped.
const DefaultBuffer = 1024

// Event is the JSON document published for every applied mutation.
type Event struct {
	Type protocol.Kind   `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	AtMS int64           `json:"at_ms"`
}

// Publisher implements relay.Tap. Publish only enqueues; Run performs the
// Redis round trips so a slow Redis never stalls the relay.
type Publisher struct {
	rdb     *redis.Client
	channel string
	queue   chan Event
	log     *slog.Logger
	dropped atomic.Int64
	now     func() time.Time
}

func NewPublisher(rdb *redis.Client, channel string, buffer int, log *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		rdb:     rdb,
		channel: channel,
		queue:   make(chan Event, buffer),
		log:     log,
		now:     time.Now,
	}
}

// Connect parses a redis:// URL, checks the server answers and returns a
// publisher for channel.
func Connect(ctx context.Context, url, channel string, log *slog.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach Redis at %s: %w", opts.Addr, err)
	}
	return NewPublisher(rdb, channel, DefaultBuffer, log), nil
}

// Publish queues the payload of frame as an event of the given kind. When
// the queue is full the event is dropped and counted.
func (p *Publisher) Publish(kind protocol.Kind, frame []byte) {
	var data json.RawMessage
	if msg, err := protocol.Decode(frame); err == nil {
		data = msg.Data
	}
	ev := Event{Type: kind, Data: data, AtMS: p.now().UnixMilli()}
	select {
	case p.queue <- ev:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.log.Warn("event tap queue full, dropping events", "dropped", n)
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Run publishes queued events until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.queue:
			if err := p.send(ctx, ev); err != nil {
				p.log.Error("failed to publish event", "type", string(ev.Type), "err", err)
			}
		}
	}
}

func (p *Publisher) send(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

// Serve runs the publisher until ctx is done, then releases the Redis
// client. The client is never closed while Run is still publishing.
func (p *Publisher) Serve(ctx context.Context) error {
	defer p.Close()
	return p.Run(ctx)
}

// Close releases the Redis client.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

// Subscribe streams events published on channel until ctx is done. Payloads
// that do not decode are skipped.
func Subscribe(ctx context.Context, rdb *redis.Client, channel string) (<-chan Event, error) {
	pubsub := rdb.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
