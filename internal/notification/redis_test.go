//go:build integration

package notification_test

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kefaspay/wallet/internal/notification"
	"github.com/kefaspay/wallet/internal/transferservice"
	"github.com/kefaspay/wallet/pkg/configpkg"
)

var redisAddress string

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	redisAddress = config.RedisAddress

	os.Exit(m.Run())
}

func TestPublish(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: redisAddress})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	topic := transferservice.Topic(1)

	sub := client.Subscribe(ctx, topic)
	t.Cleanup(func() { sub.Close() })

	// Wait for the subscription before publishing; pub/sub has no replay.
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := notification.NewRedisPublisher(client)

	payload := transferservice.Event{
		Message:    "Wallet funded successfully",
		NewBalance: 1000,
	}

	err = publisher.Publish(ctx, topic, transferservice.EventWalletFunded, payload)
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var got struct {
			Event string                `json:"event"`
			Data  transferservice.Event `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, transferservice.EventWalletFunded, got.Event)
		require.Equal(t, payload.Message, got.Data.Message)
		require.Equal(t, payload.NewBalance, got.Data.NewBalance)
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}
