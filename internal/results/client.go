package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

const (
	apiVersion = "v4"
	userAgent  = "bet-settlement-engine/1.0"

	requestTimeout = 10 * time.Second
	maxRetries     = 3
	retryDelay     = 2 * time.Second
)

// RateLimits acompanha a cota do provedor via headers de resposta.
type RateLimits struct {
	RequestsRemaining int
	RequestsUsed      int
}

type httpError struct {
	StatusCode int
	Message    string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("provider http %d: %s", e.StatusCode, e.Message)
}

// Client busca resultados finalizados por esporte no provedor de scores.
// Cache Redis opcional com TTL curto: controle de custo/rate é
// responsabilidade deste client, não do orquestrador.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger

	cache    *redis.Client // nil desabilita o cache
	cacheTTL time.Duration

	mu         sync.RWMutex
	rateLimits RateLimits
}

// NewClient cria um client do provedor. rdb pode ser nil (sem cache).
func NewClient(baseURL, apiKey string, rdb *redis.Client, cacheTTL time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
		cache:      rdb,
		cacheTTL:   cacheTTL,
	}
}

// RateLimits retorna a última leitura de cota do provedor.
func (c *Client) RateLimits() RateLimits {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rateLimits
}

// resposta do endpoint de scores; placares chegam como string
type scoreEntry struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

type scoresResponse struct {
	ID        string       `json:"id"`
	SportKey  string       `json:"sport_key"`
	HomeTeam  string       `json:"home_team"`
	AwayTeam  string       `json:"away_team"`
	Completed bool         `json:"completed"`
	Scores    []scoreEntry `json:"scores"`
}

// GetCompletedResults busca os resultados de um esporte na janela de
// lookback. Um fetch por esporte por ciclo: o batching acontece no
// orquestrador, o cache aqui segura chamadas repetidas dentro do TTL.
func (c *Client) GetCompletedResults(ctx context.Context, sportKey string, lookbackDays int) ([]domain.GameResult, error) {
	cacheKey := "scores:" + sportKey

	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []domain.GameResult
			if jerr := json.Unmarshal(raw, &cached); jerr == nil {
				c.log.Debug("scores cache hit", zap.String("sport", sportKey))
				return cached, nil
			}
		}
	}

	endpoint := fmt.Sprintf("%s/%s/sports/%s/scores", c.baseURL, apiVersion, sportKey)
	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("daysFrom", strconv.Itoa(lookbackDays))
	params.Set("dateFormat", "iso")

	body, err := c.doRequestWithRetry(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch scores for %s: %w", sportKey, err)
	}

	var apiResp []scoresResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse scores response for %s: %w", sportKey, err)
	}

	games := c.mapResults(sportKey, apiResp)

	if c.cache != nil {
		if raw, jerr := json.Marshal(games); jerr == nil {
			if serr := c.cache.Set(ctx, cacheKey, raw, c.cacheTTL).Err(); serr != nil {
				c.log.Warn("scores cache set failed", zap.String("sport", sportKey), zap.Error(serr))
			}
		}
	}

	return games, nil
}

// mapResults converte a resposta do provedor pro modelo interno.
// Placar não numérico rebaixa o evento pra "não finalizado": a aposta
// fica PENDING em vez de liquidar com dado malformado.
func (c *Client) mapResults(sportKey string, apiResp []scoresResponse) []domain.GameResult {
	games := make([]domain.GameResult, 0, len(apiResp))
	for _, g := range apiResp {
		game := domain.GameResult{
			EventID:   g.ID,
			HomeTeam:  g.HomeTeam,
			AwayTeam:  g.AwayTeam,
			Completed: g.Completed,
		}

		for _, s := range g.Scores {
			n, err := strconv.Atoi(s.Score)
			if err != nil {
				c.log.Warn("malformed score from provider; demoting event to incomplete",
					zap.String("sport", sportKey),
					zap.String("event_id", g.ID),
					zap.String("team", s.Name),
					zap.String("score", s.Score),
				)
				game.Completed = false
				game.Scores = nil
				break
			}
			game.Scores = append(game.Scores, domain.TeamScore{Name: s.Name, Score: n})
		}

		games = append(games, game)
	}
	return games
}

// doRequestWithRetry executa a requisição com retry e backoff exponencial.
// 4xx (exceto 429) não tem retry.
func (c *Client) doRequestWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := c.doRequest(ctx, fullURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if httpErr, ok := err.(*httpError); ok {
			if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 && httpErr.StatusCode != 429 {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.updateRateLimits(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &httpError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return body, nil
}

func (c *Client) updateRateLimits(headers http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining := headers.Get("x-requests-remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimits.RequestsRemaining = val
		}
	}
	if used := headers.Get("x-requests-used"); used != "" {
		if val, err := strconv.Atoi(used); err == nil {
			c.rateLimits.RequestsUsed = val
		}
	}
}
