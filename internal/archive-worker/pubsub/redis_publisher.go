package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

// DefaultChannel é o canal escutado pelo /ws do results-service
const DefaultChannel = "megasena_updates_broadcast"

type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

// Publish envia o concurso arquivado no formato da API pública
func (b *RedisBroadcaster) Publish(ctx context.Context, res dto.ContestResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
