package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/caixa-simulator/simulator"
	"github.com/radieske/megasena-tracker/internal/shared/config"
	"github.com/radieske/megasena-tracker/internal/shared/logger"
	"github.com/radieske/megasena-tracker/internal/shared/metrics"
)

// Métricas Prometheus para monitoramento das respostas simuladas
var simRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "caixa_sim_requests_total",
	Help: "requisições atendidas pelo simulador por operação e resultado",
}, []string{"op", "outcome"})

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "caixa-simulator"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(simRequests)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sim := simulator.New(cfg.SimLatestContest, cfg.SimFailRate, log)
	sim.OnRequest = func(op, outcome string) { simRequests.WithLabelValues(op, outcome).Inc() }

	// Sorteia um concurso novo a cada SIM_DRAW_EVERY
	if cfg.SimDrawEvery > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SimDrawEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					sim.Draw()
				}
			}
		}()
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, nil)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           http.StripPrefix("/portaldeloterias/api", sim.Router()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("caixa simulator running",
		zap.String("addr", srv.Addr),
		zap.Int("latest", sim.Latest()),
		zap.Float64("fail_rate", cfg.SimFailRate),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("public server error", zap.Error(err))
	}
}
