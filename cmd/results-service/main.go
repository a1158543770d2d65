package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/aggregator"
	"github.com/radieske/megasena-tracker/internal/results-service/cache"
	httpapi "github.com/radieske/megasena-tracker/internal/results-service/http"
	"github.com/radieske/megasena-tracker/internal/results-service/publisher"
	"github.com/radieske/megasena-tracker/internal/results-service/refresher"
	"github.com/radieske/megasena-tracker/internal/results-service/suggest"
	"github.com/radieske/megasena-tracker/internal/results-service/upstream"
	"github.com/radieske/megasena-tracker/internal/results-service/ws"
	sharedcache "github.com/radieske/megasena-tracker/internal/shared/cache"
	"github.com/radieske/megasena-tracker/internal/shared/config"
	"github.com/radieske/megasena-tracker/internal/shared/kafka"
	"github.com/radieske/megasena-tracker/internal/shared/logger"
	"github.com/radieske/megasena-tracker/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "results-service"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("upstream", cfg.LotteryAPIURL), zap.Int("window", cfg.WindowSize))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := newServiceMetrics()

	// cliente da API de loterias
	client := upstream.New(cfg.LotteryAPIURL,
		upstream.WithTimeout(cfg.UpstreamTimeout),
		upstream.WithUserAgent(cfg.UserAgent),
		upstream.WithRateLimit(cfg.UpstreamRPS, cfg.UpstreamBurst),
		upstream.WithObserver(m.observeUpstream),
	)

	agg := aggregator.New(client, log.Named("aggregator"))
	agg.OnWindow = m.observeWindow

	ref := refresher.New(agg, cfg.WindowSize, cfg.RefreshInterval, log.Named("refresher"))
	ref.OnOutcome = m.observeRefresh

	// Redis é opcional: sem ele o proxy responde direto do upstream e o /ws só recebe a janela local
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			log.Info("redis connected")
		}
	}

	var rcache *cache.Cache
	if redisClient != nil {
		rcache = cache.New(redisClient, cfg.CacheTTL)
		rcache.OnLookup = m.observeCache
	}

	hub := ws.NewHub(func(r *http.Request) bool { return true }, log.Named("ws"))
	ref.Subscribe(hub.PushWindow)
	if redisClient != nil {
		ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log.Named("ws"))
	}

	// publica concursos novos no Kafka para o archive-worker
	if cfg.PublishEnabled && cfg.KafkaBrokers != "" {
		if cfg.Env == "local" || cfg.Env == "dev" {
			if err := kafka.EnsureTopic(ctx, cfg.KafkaBrokers, cfg.TopicContests); err != nil {
				log.Warn("kafka ensure topic failed", zap.String("topic", cfg.TopicContests), zap.Error(err))
			}
		}
		pub := publisher.NewContestPublisher(kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicContests), log.Named("publisher"))
		pub.OnPublished = func(n int) { m.published.Add(float64(n)) }
		defer pub.Close()
		ref.Subscribe(pub.AnnounceNew)
		log.Info("kafka publisher ready", zap.String("topic", cfg.TopicContests))
	}

	// sugestão de dezenas (opcional)
	var gen suggest.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := suggest.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("gemini disabled", zap.Error(err))
		} else {
			gen = g
		}
	}

	limiter := httpapi.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	limiter.OnReject = m.rateRejected.Inc
	limiter.StartJanitor(ctx, 2*time.Minute)

	api := &httpapi.API{
		Upstream: client,
		Cache:    rcache,
		Window:   ref,
		Search:   agg,
		Suggest:  suggest.NewService(gen, log.Named("suggest")),
		WS:       hub.HandleWS,
		Limiter:  limiter,
		Log:      log.Named("http"),
	}

	// sobe servidor de métricas e health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, func(ctx context.Context) error {
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis not healthy: %w", err)
			}
		}
		return nil
	})

	// atualização periódica da janela
	go ref.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("results-service listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server failed", zap.Error(err))
	}
	log.Info("results-service stopped")
}
