package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/results"
	sharedcache "github.com/radieske/bet-settlement-engine/internal/shared/cache"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
	"github.com/radieske/bet-settlement-engine/internal/settlement/engine"
	shttp "github.com/radieske/bet-settlement-engine/internal/settlement/http"
	"github.com/radieske/bet-settlement-engine/internal/settlement/producer"
	"github.com/radieske/bet-settlement-engine/internal/settlement/repo"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Inicializa dependências: Postgres (store de apostas) e Redis
	// (cache de scores do provedor)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka producer: publica eventos bet_settled consumidos pelo payout-worker
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	// Métricas Prometheus para monitoramento do ciclo de liquidação
	cycles := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_cycles_total", Help: "ciclos executados"})
	settledBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_settled_total", Help: "apostas liquidadas por status"}, []string{"status"})
	skippedBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_skipped_total", Help: "apostas mantidas PENDING por motivo"}, []string{"reason"})
	mismatches := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_team_mismatch_total", Help: "divergências de nome de time por esporte"}, []string{"sport"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros recuperados por estágio"}, []string{"stage"})
	prometheus.MustRegister(cycles, settledBy, skippedBy, mismatches, errorsBy)

	scores := results.NewClient(cfg.ScoresAPIBase, cfg.ScoresAPIKey, redisClient, cfg.ScoresCacheTTL, log)

	// Instancia o motor, conectando callbacks de métricas
	eng := &engine.Engine{
		Log:          log,
		Store:        repo.NewPostgres(pg),
		Provider:     scores,
		Publisher:    producer.NewKafkaPublisher(settledWriter),
		LookbackDays: cfg.ScoresLookbackDays,
		SportTimeout: cfg.SportFetchTimeout,

		OnSettled:  func(status string) { settledBy.WithLabelValues(status).Inc() },
		OnSkipped:  func(reason string) { skippedBy.WithLabelValues(reason).Inc() },
		OnMismatch: func(sport string) { mismatches.WithLabelValues(sport).Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor de métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	// Superfície de trigger: disparo manual e estatísticas
	trigger := shttp.NewServer(log, eng)
	go func() {
		addr := ":" + cfg.HTTPPort
		log.Info("settlement trigger listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, trigger.Router()); err != nil {
			log.Fatal("trigger server error", zap.Error(err))
		}
	}()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started",
		zap.Duration("interval", cfg.SettlementInterval),
		zap.Int("lookback_days", cfg.ScoresLookbackDays),
		zap.String("publish", cfg.TopicBetSettled),
	)

	// Loop principal: um ciclo agendado por intervalo. O guard de linha
	// no store torna seguro um trigger manual correndo em paralelo.
	ticker := time.NewTicker(cfg.SettlementInterval)
	defer ticker.Stop()

	runCycle := func() {
		cycles.Inc()
		sum := eng.RunSettlementCycle(ctx)
		trigger.RecordCycle(sum)
	}

	runCycle()
	for {
		select {
		case <-ticker.C:
			runCycle()
		case <-ctx.Done():
			log.Info("settlement-worker stopping")
			return
		}
	}
}
