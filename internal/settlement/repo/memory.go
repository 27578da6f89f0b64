package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// Memory é um store de apostas em memória com a mesma semântica de guard
// do Postgres. Usado em testes e em execução local sem banco.
type Memory struct {
	mu     sync.RWMutex
	wagers map[string]domain.Wager
}

func NewMemory() *Memory {
	return &Memory{wagers: make(map[string]domain.Wager)}
}

// Insert grava uma aposta; gera id quando ausente.
func (m *Memory) Insert(w domain.Wager) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = domain.StatusPending
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	m.wagers[w.ID] = w
	return w.ID
}

// Get retorna uma cópia da aposta.
func (m *Memory) Get(id string) (domain.Wager, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wagers[id]
	return w, ok
}

func (m *Memory) ListPending(ctx context.Context, sport string) ([]domain.Wager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Wager
	for _, w := range m.wagers {
		if w.Status != domain.StatusPending {
			continue
		}
		if sport != "" && w.Sport != sport {
			continue
		}
		out = append(out, w)
	}
	sortByCreation(out)
	return out, nil
}

func (m *Memory) ListLegs(ctx context.Context, parentID string) ([]domain.Wager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Wager
	for _, w := range m.wagers {
		if w.ParentBetID == parentID {
			out = append(out, w)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (m *Memory) ApplyTerminal(ctx context.Context, wagerID string, newStatus domain.BetStatus, resultCents int64, settledAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(wagerID, newStatus, resultCents, settledAt), nil
}

func (m *Memory) ApplyBatch(ctx context.Context, results []domain.SettlementResult, settledAt time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	applied := make([]string, 0, len(results))
	for _, r := range results {
		if m.applyLocked(r.WagerID, r.Status, r.ResultCents, settledAt) {
			applied = append(applied, r.WagerID)
		}
	}
	return applied, nil
}

// applyLocked replica o guard do banco: só linha ainda PENDING transiciona.
func (m *Memory) applyLocked(wagerID string, newStatus domain.BetStatus, resultCents int64, settledAt time.Time) bool {
	w, ok := m.wagers[wagerID]
	if !ok || w.Status != domain.StatusPending {
		return false
	}
	w.Status = newStatus
	w.ResultCents = resultCents
	t := settledAt
	w.SettledAt = &t
	m.wagers[wagerID] = w
	return true
}

func sortByCreation(ws []domain.Wager) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].CreatedAt.Equal(ws[j].CreatedAt) {
			return ws[i].ID < ws[j].ID
		}
		return ws[i].CreatedAt.Before(ws[j].CreatedAt)
	})
}
