// Package notification delivers best-effort events to per-user topics.
//
// The publisher is an injected collaborator of the transfer service; there is
// no process-wide singleton. Delivery is fire-and-forget: the transfer that
// produced an event has already committed by the time the event goes out, and
// a delivery failure never reverses it.
package notification

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// envelope is the wire format published to a topic channel.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisPublisher fans events out over Redis pub/sub. Subscribers (the
// realtime gateway fronting user connections) subscribe to their user's
// channel.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher returns a RedisPublisher using the given client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish sends one event to the topic channel.
func (p *RedisPublisher) Publish(ctx context.Context, topic, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, topic, msg).Err()
}
