package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

// DefaultTTL replica a revalidação de 5 minutos do proxy
const DefaultTTL = 300 * time.Second

// Cache guarda respostas do proxy no Redis por até TTL.
// Um *Cache nil é válido e sempre dá miss.
type Cache struct {
	R   *redis.Client
	TTL time.Duration

	OnLookup func(hit bool) // métricas
}

func New(r *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{R: r, TTL: ttl}
}

func keyLatest() string { return "megasena:latest" }

// KeyContest é a chave de um concurso; o archive-worker aquece a mesma chave
func KeyContest(n int) string { return "megasena:contest:" + strconv.Itoa(n) }

func (c *Cache) GetLatest(ctx context.Context) (dto.ContestResult, bool, error) {
	return c.get(ctx, keyLatest())
}

func (c *Cache) SetLatest(ctx context.Context, v dto.ContestResult) error {
	return c.set(ctx, keyLatest(), v)
}

func (c *Cache) GetContest(ctx context.Context, n int) (dto.ContestResult, bool, error) {
	return c.get(ctx, KeyContest(n))
}

func (c *Cache) SetContest(ctx context.Context, v dto.ContestResult) error {
	return c.set(ctx, KeyContest(v.ContestNumber), v)
}

func (c *Cache) get(ctx context.Context, key string) (dto.ContestResult, bool, error) {
	var out dto.ContestResult
	if c == nil || c.R == nil {
		return out, false, nil
	}

	b, err := c.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.lookup(false)
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		// entrada corrompida conta como miss; será sobrescrita
		c.lookup(false)
		return out, false, nil
	}
	c.lookup(true)
	return out, true, nil
}

func (c *Cache) set(ctx context.Context, key string, v dto.ContestResult) error {
	if c == nil || c.R == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, c.TTL).Err()
}

func (c *Cache) lookup(hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
}
