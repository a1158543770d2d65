package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

// StartRedisSubscriber escuta o canal Redis Pub/Sub e repassa cada concurso
// arquivado aos clientes inscritos em TopicContests
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				handlePayload(hub, []byte(msg.Payload), log)
			}
		}
	}()
}

func handlePayload(hub *Hub, payload []byte, log *zap.Logger) {
	var res dto.ContestResult
	if err := json.Unmarshal(payload, &res); err != nil || res.ContestNumber <= 0 {
		log.Warn("ws subscriber: invalid payload", zap.Error(err))
		return
	}
	hub.Broadcast(Update{Topic: TopicContests, Payload: res})
}
