package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/archive-worker/consumer"
	"github.com/radieske/megasena-tracker/internal/archive-worker/pubsub"
	"github.com/radieske/megasena-tracker/internal/archive-worker/repository"
	"github.com/radieske/megasena-tracker/internal/results-service/cache"
	sharedcache "github.com/radieske/megasena-tracker/internal/shared/cache"
	"github.com/radieske/megasena-tracker/internal/shared/config"
	"github.com/radieske/megasena-tracker/internal/shared/db"
	"github.com/radieske/megasena-tracker/internal/shared/kafka"
	"github.com/radieske/megasena-tracker/internal/shared/logger"
	"github.com/radieske/megasena-tracker/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "archive-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	repo := repository.NewPostgresRepo(pg)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal("postgres schema", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	if cfg.Env == "local" || cfg.Env == "dev" {
		for _, topic := range []string{cfg.TopicContests, cfg.TopicContestsDLQ} {
			if err := kafka.EnsureTopic(ctx, cfg.KafkaBrokers, topic); err != nil {
				log.Warn("kafka ensure topic failed", zap.String("topic", topic), zap.Error(err))
			}
		}
	}

	// Consumer Kafka (consumer group archive-worker) e writer da DLQ
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicContests, "archive-worker")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicContestsDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "archive_messages_consumed_total", Help: "mensagens consumidas"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "archive_db_writes_total", Help: "concursos gravados (upsert+faixas)"})
	cached := prometheus.NewCounter(prometheus.CounterOpts{Name: "archive_cache_sets_total", Help: "sets no cache do proxy"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "archive_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persist, cached, errorsBy)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Repo:       repo,
		Cache:      cache.New(redisClient, cfg.CacheTTL), // aquece a mesma chave lida pelo proxy
		Broadcast:  pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
		DLQ:        dlq,
		OnConsumed: consumed.Inc,
		OnPersist:  persist.Inc,
		OnCached:   cached.Inc,
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("archive-worker started", zap.String("topic", cfg.TopicContests))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}
	log.Info("archive-worker stopped")
}
