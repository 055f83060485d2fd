package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay fans frames out across instances over a pub/sub channel.
type RedisRelay struct {
	Client  *redis.Client
	Channel string
	Logger  *zap.Logger
}

func (r *RedisRelay) Send(ctx context.Context, m Message) error {
	if r == nil || r.Client == nil || strings.TrimSpace(r.Channel) == "" {
		return errors.New("redis relay not configured")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.Client.Publish(ctx, r.Channel, b).Err()
}

// Run subscribes to the channel and hands every frame to deliver until ctx
// is done.
func (r *RedisRelay) Run(ctx context.Context, deliver func(Message)) error {
	if r == nil || r.Client == nil {
		return errors.New("redis relay not configured")
	}
	sub := r.Client.Subscribe(ctx, r.Channel)
	defer func() { _ = sub.Close() }()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				if r.Logger != nil {
					r.Logger.Warn("realtime: bad relay frame", zap.Error(err))
				}
				continue
			}
			deliver(m)
		}
	}
}
