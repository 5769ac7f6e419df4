package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/yumeworks/agora/internal/domain"
)

// SignalService fans group lifecycle events out through redis pubsub
// so every node can feed its realtime sockets.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, event domain.GroupEvent) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Realtime subscribes to channels received on input and forwards
// decoded events to output until ctx is done.
func (s *SignalService) Realtime(ctx context.Context, input chan []string, output chan domain.GroupEvent) {
	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case channels, ok := <-input:
			if !ok {
				return
			}
			if err := pubsub.Unsubscribe(ctx); err != nil {
				return
			}
			if err := pubsub.Subscribe(ctx, channels...); err != nil {
				return
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event domain.GroupEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
