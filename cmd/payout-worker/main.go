package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/payout/wallet"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
	ev "github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

var (
	// Métricas Prometheus do fluxo de pagamento
	payoutsDone = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_credits_total",
		Help: "créditos de carteira efetuados por status da aposta",
	}, []string{"status"})
	payoutsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_skipped_total",
		Help: "eventos sem crédito (LOST ou valor zero)",
	})
	payoutsDLQ = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_dlq_total",
		Help: "eventos enviados pra DLQ após esgotar retries",
	})
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(payoutsDone, payoutsSkipped, payoutsDLQ)

	// Kafka consumer: consome eventos bet_settled para creditar prêmios
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  "payout-worker",
		Topic:    cfg.TopicBetSettled,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicBetSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettledDLQ)
		defer dlqWriter.Close()
	}

	wcli := wallet.New(cfg.WalletBaseURL)

	// Servidor de métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error { return nil })

	log.Info("payout-worker started",
		zap.String("consume", cfg.TopicBetSettled),
		zap.String("wallet", cfg.WalletBaseURL),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Loop principal: consome eventos de liquidação e credita a carteira
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("payout-worker stopping")
				return
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var settled ev.BetSettled
		if jerr := json.Unmarshal(msg.Value, &settled); jerr != nil {
			log.Error("unmarshal bet_settled", zap.Error(jerr))
			continue
		}

		if err := processOne(ctx, log, wcli, dlqWriter, &settled); err != nil {
			log.Error("process payout", zap.String("betId", settled.BetID), zap.Error(err))
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processOne credita o valor liquidado de uma aposta:
// 1. LOST ou valor zero não movimenta carteira
// 2. WON/PUSHED credita com external_ref idempotente (a carteira deduplica)
// 3. Falha persistente vai pra DLQ
func processOne(
	ctx context.Context,
	log *zap.Logger,
	wcli *wallet.Client,
	dlqWriter *kafkago.Writer,
	settled *ev.BetSettled,
) error {
	if settled.ResultCents <= 0 {
		payoutsSkipped.Inc()
		return nil
	}

	// Pernas de parlay nunca são pagas diretamente; só o parent carrega
	// valor, mas o guard vale pra qualquer produtor mal comportado.
	if settled.ParentBetID != "" {
		payoutsSkipped.Inc()
		log.Warn("parlay leg with result amount ignored", zap.String("betId", settled.BetID))
		return nil
	}

	extRef := "bet-settle:" + settled.BetID

	_, err := wcli.Credit(ctx, settled.UserID, settled.ResultCents, extRef)
	if err != nil {
		// Retry simples: tenta até 3 vezes antes de enviar para DLQ
		const retries = 3
		for i := 0; i < retries; i++ {
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
			if _, err = wcli.Credit(ctx, settled.UserID, settled.ResultCents, extRef); err == nil {
				break
			}
		}
		if err != nil {
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, settled.BetID, mustJSON(settled))
				payoutsDLQ.Inc()
			}
			return err
		}
	}

	payoutsDone.WithLabelValues(settled.Status).Inc()
	log.Info("payout credited",
		zap.String("betId", settled.BetID),
		zap.String("userId", settled.UserID),
		zap.Int64("amount_cents", settled.ResultCents),
		zap.String("status", settled.Status),
	)
	return nil
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
