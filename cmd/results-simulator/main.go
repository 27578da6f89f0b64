package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
)

var (
	// Catálogo fixo de partidas simuladas por esporte
	eventCatalog = map[string][]fixture{
		"baseball_mlb": {
			{id: "MLB_001", home: "New York Yankees", away: "Boston Red Sox"},
			{id: "MLB_002", home: "Los Angeles Dodgers", away: "San Francisco Giants"},
			{id: "MLB_003", home: "Chicago Cubs", away: "St. Louis Cardinals"},
		},
		"basketball_nba": {
			{id: "NBA_001", home: "Los Angeles Lakers", away: "Boston Celtics"},
			{id: "NBA_002", home: "Golden State Warriors", away: "Phoenix Suns"},
		},
		"icehockey_nhl": {
			{id: "NHL_001", home: "Toronto Maple Leafs", away: "Montreal Canadiens"},
		},
	}

	// Métricas Prometheus para monitoramento das requisições servidas
	scoresRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_scores_requests_total",
		Help: "requisições de scores por esporte",
	}, []string{"sport"})
	scoresUnknown = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_scores_unknown_sport_total",
		Help: "requisições de esporte fora do catálogo (respondem vazio)",
	})
)

// fixture é uma partida do catálogo
type fixture struct {
	id   string
	home string
	away string
}

// scoreEntry/gameScore seguem o shape do endpoint de scores do provedor real
type scoreEntry struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

type gameScore struct {
	ID        string       `json:"id"`
	SportKey  string       `json:"sport_key"`
	HomeTeam  string       `json:"home_team"`
	AwayTeam  string       `json:"away_team"`
	Completed bool         `json:"completed"`
	Scores    []scoreEntry `json:"scores"`
}

// simulator mantém placares gerados uma única vez no startup; os jogos
// ficam "completed" depois do delay configurado, pra dar tempo de testar
// o caminho EventIncomplete.
type simulator struct {
	mu         sync.RWMutex
	games      map[string][]gameScore
	startedAt  time.Time
	completeIn time.Duration
	log        *zap.Logger
}

func newSimulator(log *zap.Logger, completeIn time.Duration) *simulator {
	s := &simulator{
		games:      make(map[string][]gameScore),
		startedAt:  time.Now(),
		completeIn: completeIn,
		log:        log,
	}

	for sport, fixtures := range eventCatalog {
		for _, f := range fixtures {
			s.games[sport] = append(s.games[sport], gameScore{
				ID:       f.id,
				SportKey: sport,
				HomeTeam: f.home,
				AwayTeam: f.away,
				// ordem proposital away-antes-de-home: consumidores não
				// podem confiar na posição do array
				Scores: []scoreEntry{
					{Name: f.away, Score: strconv.Itoa(rand.Intn(9))},
					{Name: f.home, Score: strconv.Itoa(rand.Intn(9))},
				},
			})
		}
		s.log.Info("fixtures seeded",
			zap.String("sport", sport),
			zap.Int("games", len(s.games[sport])),
		)
	}
	return s
}

// scoresHandler serve GET /v4/sports/{sport}/scores
func (s *simulator) scoresHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// esperado: v4/sports/{sport}/scores
	if len(parts) != 4 || parts[0] != "v4" || parts[1] != "sports" || parts[3] != "scores" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	sport := parts[2]

	s.mu.RLock()
	games, ok := s.games[sport]
	completed := time.Since(s.startedAt) >= s.completeIn
	s.mu.RUnlock()

	if !ok {
		// esporte fora do catálogo: o provedor real responde lista vazia
		scoresUnknown.Inc()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
		return
	}
	scoresRequests.WithLabelValues(sport).Inc()

	out := make([]gameScore, len(games))
	for i, g := range games {
		g.Completed = completed
		if !completed {
			g.Scores = nil
		}
		out[i] = g
	}

	// headers de cota, como o provedor real
	w.Header().Set("x-requests-remaining", "499")
	w.Header().Set("x-requests-used", "1")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(scoresRequests, scoresUnknown)

	sim := newSimulator(log, 30*time.Second)

	// ==== MUX PÚBLICO (HTTP principal): /v4/sports/{sport}/scores
	appMux := http.NewServeMux()
	appMux.HandleFunc("/v4/sports/", sim.scoresHandler)

	// ==== MUX DE MÉTRICAS (/healthz, /metrics)
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", promhttp.Handler())

	// Servidor de métricas em goroutine
	go func() {
		metricsAddr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("results simulator (metrics) running",
			zap.String("addr", metricsAddr),
			zap.String("paths", "/healthz,/metrics"),
		)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// Servidor público (scores)
	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("results simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/v4/sports/{sport}/scores"),
	)
	if err := http.ListenAndServe(publicAddr, appMux); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
