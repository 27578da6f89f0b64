package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/results"
	"github.com/radieske/bet-settlement-engine/internal/settlement/correlate"
	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/evaluator"
	"github.com/radieske/bet-settlement-engine/internal/settlement/parlay"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// WagerStore é a única dependência mutável do motor. A atualização
// condicional por linha (status ainda PENDING) precisa ser atômica.
type WagerStore interface {
	ListPending(ctx context.Context, sport string) ([]domain.Wager, error)
	ListLegs(ctx context.Context, parentID string) ([]domain.Wager, error)
	ApplyBatch(ctx context.Context, results []domain.SettlementResult, settledAt time.Time) (applied []string, err error)
}

// ResultsProvider busca resultados finalizados por esporte. Cache e
// controle de custo são responsabilidade do provedor.
type ResultsProvider interface {
	GetCompletedResults(ctx context.Context, sportKey string, lookbackDays int) ([]domain.GameResult, error)
}

// SettledPublisher publica eventos de liquidação (best-effort).
type SettledPublisher interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// CycleError é um erro recuperado dentro do ciclo, reportado no resumo.
type CycleError struct {
	Sport string `json:"sport,omitempty"`
	Stage string `json:"stage"`
	Msg   string `json:"msg"`
}

// Summary é o resultado estruturado de um ciclo. O ciclo nunca propaga
// erro além da própria borda.
type Summary struct {
	StartedAt       time.Time    `json:"started_at"`
	DurationMs      int64        `json:"duration_ms"`
	Verified        int          `json:"verified"`
	Settled         int          `json:"settled"`
	LeftPending     int          `json:"left_pending"`
	SkippedUnmapped int          `json:"skipped_unmapped"`
	Mismatches      int          `json:"mismatches"`
	WriteConflicts  int          `json:"write_conflicts"`
	Errors          []CycleError `json:"errors,omitempty"`
}

func (s *Summary) merge(other Summary) {
	s.Verified += other.Verified
	s.Settled += other.Settled
	s.LeftPending += other.LeftPending
	s.SkippedUnmapped += other.SkippedUnmapped
	s.Mismatches += other.Mismatches
	s.WriteConflicts += other.WriteConflicts
	s.Errors = append(s.Errors, other.Errors...)
}

// Engine é o orquestrador de liquidação. Callbacks On* alimentam
// métricas conectadas pelo main de cada serviço.
type Engine struct {
	Log       *zap.Logger
	Store     WagerStore
	Provider  ResultsProvider
	Props     evaluator.PropResolver // opcional; nil deixa props PENDING
	Publisher SettledPublisher       // opcional

	LookbackDays int
	SportTimeout time.Duration // timeout por grupo de esporte

	OnSettled  func(status string) // métricas (counter++ por status)
	OnSkipped  func(reason string) // métricas por motivo de skip
	OnMismatch func(sport string)  // divergência de nomes do provedor
	OnError    func(stage string)  // métricas por estágio
}

// RunSettlementCycle executa um ciclo completo: carrega apostas PENDING,
// agrupa por esporte normalizado, busca resultados (um fetch por esporte),
// correlaciona, avalia e aplica as transições terminais em batches
// atômicos. Parlays são avaliados num passo separado, só a partir dos
// status já gravados das pernas.
func (e *Engine) RunSettlementCycle(ctx context.Context) Summary {
	sum := Summary{StartedAt: time.Now().UTC()}

	pending, err := e.Store.ListPending(ctx, "")
	if err != nil {
		e.fail("load")
		e.Log.Error("list pending wagers", zap.Error(err))
		sum.Errors = append(sum.Errors, CycleError{Stage: "load", Msg: err.Error()})
		sum.DurationMs = time.Since(sum.StartedAt).Milliseconds()
		return sum
	}

	// Particiona: parents de parlay num grupo próprio, o resto por
	// esporte normalizado. Esporte não mapeável é pulado e contado —
	// nunca some do relatório.
	groups := make(map[string][]domain.Wager)
	var parents []domain.Wager
	for _, w := range pending {
		if w.BetType == domain.BetParlay {
			parents = append(parents, w)
			continue
		}
		key, ok := results.NormalizeSportKey(w.Sport)
		if !ok {
			sum.SkippedUnmapped++
			e.skip("unmapped_sport")
			e.Log.Warn("wager skipped: sport key not mapped",
				zap.String("wager_id", w.ID),
				zap.String("sport", w.Sport),
			)
			continue
		}
		groups[key] = append(groups[key], w)
	}

	// Grupos de esporte em paralelo: fetches independentes e read-only;
	// falha de um esporte nunca aborta os demais.
	var mu sync.Mutex
	var wg sync.WaitGroup
	for sport, wagers := range groups {
		wg.Add(1)
		go func(sport string, wagers []domain.Wager) {
			defer wg.Done()
			gs := e.settleSportGroup(ctx, sport, wagers)
			mu.Lock()
			sum.merge(gs)
			mu.Unlock()
		}(sport, wagers)
	}
	wg.Wait()

	// Parlays depois que as pernas do ciclo já foram gravadas.
	sum.merge(e.settleParlays(ctx, parents))

	sum.DurationMs = time.Since(sum.StartedAt).Milliseconds()
	e.Log.Info("settlement cycle finished",
		zap.Int("verified", sum.Verified),
		zap.Int("settled", sum.Settled),
		zap.Int("left_pending", sum.LeftPending),
		zap.Int("skipped_unmapped", sum.SkippedUnmapped),
		zap.Int("mismatches", sum.Mismatches),
		zap.Int("write_conflicts", sum.WriteConflicts),
		zap.Int("errors", len(sum.Errors)),
		zap.Int64("duration_ms", sum.DurationMs),
	)
	return sum
}

// settleSportGroup processa um esporte: um fetch no provedor, depois
// correlação + avaliação por aposta, e um batch de escrita all-or-nothing.
func (e *Engine) settleSportGroup(ctx context.Context, sport string, wagers []domain.Wager) Summary {
	gctx, cancel := context.WithTimeout(ctx, e.SportTimeout)
	defer cancel()

	var gs Summary

	games, err := e.Provider.GetCompletedResults(gctx, sport, e.LookbackDays)
	if err != nil {
		// ProviderUnavailable: o grupo inteiro fica pro próximo ciclo.
		e.fail("provider")
		e.Log.Warn("provider fetch failed; sport group deferred",
			zap.String("sport", sport),
			zap.Int("wagers", len(wagers)),
			zap.Error(err),
		)
		gs.LeftPending += len(wagers)
		gs.Errors = append(gs.Errors, CycleError{Sport: sport, Stage: "provider", Msg: err.Error()})
		return gs
	}

	byID := make(map[string]domain.Wager, len(wagers))
	var batch []domain.SettlementResult
	for _, w := range wagers {
		gs.Verified++
		out, ok := e.evaluateOne(gctx, sport, w, games, &gs)
		if !ok {
			gs.LeftPending++
			continue
		}
		byID[w.ID] = w
		batch = append(batch, domain.SettlementResult{
			WagerID:     w.ID,
			Status:      out.Status,
			ResultCents: out.ResultCents,
			Reason:      out.Reason,
		})
	}

	gs.merge(e.applyAndPublish(gctx, sport, batch, byID))
	return gs
}

// evaluateOne roda correlação + avaliador de uma aposta. ok=false
// significa "sem determinação terminal neste ciclo" (fica PENDING).
func (e *Engine) evaluateOne(ctx context.Context, sport string, w domain.Wager, games []domain.GameResult, gs *Summary) (domain.Outcome, bool) {
	if w.BetType == domain.BetProp {
		return e.resolveProp(ctx, sport, w)
	}

	scores, err := correlate.Match(w, games)
	if err != nil {
		var mismatch *correlate.TeamMismatchError
		switch {
		case errors.Is(err, correlate.ErrEventNotFound):
			e.skip("event_not_found")
		case errors.Is(err, correlate.ErrEventIncomplete):
			e.skip("event_incomplete")
		case errors.As(err, &mismatch):
			// Divergência de nomes do provedor: irrecuperável neste
			// ciclo, contada pra detecção de drift do operador.
			gs.Mismatches++
			e.mismatch(sport)
			e.Log.Warn("team name mismatch",
				zap.String("wager_id", w.ID),
				zap.String("sport", sport),
				zap.String("event_id", mismatch.EventID),
				zap.Strings("expected", mismatch.Expected),
				zap.Strings("received", mismatch.Received),
			)
		default:
			e.fail("correlate")
			e.Log.Warn("correlation failed", zap.String("wager_id", w.ID), zap.Error(err))
		}
		return domain.Outcome{}, false
	}

	out, err := evaluator.Evaluate(w, scores.Home, scores.Away)
	if err != nil {
		// Aposta malformada (linha/seleção ausente): integridade de
		// dados. Fica PENDING, nunca se assume uma linha.
		e.skip("invalid_wager_data")
		e.Log.Error("invalid wager data; left pending",
			zap.String("wager_id", w.ID),
			zap.String("sport", sport),
			zap.String("bet_type", string(w.BetType)),
			zap.Error(err),
		)
		return domain.Outcome{}, false
	}
	return out, true
}

// resolveProp delega props ao colaborador do esporte. Resultado
// indisponível (resolver ausente, erro ou nil) mantém PENDING — nunca é
// tratado como erro do ciclo.
func (e *Engine) resolveProp(ctx context.Context, sport string, w domain.Wager) (domain.Outcome, bool) {
	if e.Props == nil {
		e.skip("prop_unresolved")
		return domain.Outcome{}, false
	}
	out, err := e.Props.ResolveProp(ctx, w)
	if err != nil {
		e.skip("prop_unresolved")
		e.Log.Warn("prop resolver unavailable; left pending",
			zap.String("wager_id", w.ID),
			zap.String("sport", sport),
			zap.Error(err),
		)
		return domain.Outcome{}, false
	}
	if out == nil || !out.Status.Terminal() {
		e.skip("prop_unresolved")
		return domain.Outcome{}, false
	}
	return *out, true
}

// settleParlays avalia os parents a partir dos status correntes das
// pernas e aplica os terminais num batch próprio.
func (e *Engine) settleParlays(ctx context.Context, parents []domain.Wager) Summary {
	var ps Summary
	if len(parents) == 0 {
		return ps
	}

	byID := make(map[string]domain.Wager, len(parents))
	var batch []domain.SettlementResult
	for _, p := range parents {
		ps.Verified++

		legs, err := e.Store.ListLegs(ctx, p.ID)
		if err != nil {
			e.fail("legs")
			e.Log.Warn("list parlay legs failed", zap.String("wager_id", p.ID), zap.Error(err))
			ps.LeftPending++
			ps.Errors = append(ps.Errors, CycleError{Stage: "legs", Msg: err.Error()})
			continue
		}

		out := parlay.Evaluate(p, legs)
		if !out.Status.Terminal() {
			ps.LeftPending++
			if len(legs) == 0 || hasUnexpectedLegStatus(legs) {
				e.skip("parlay_flagged")
				e.Log.Warn("parlay left pending for operator review",
					zap.String("wager_id", p.ID),
					zap.Int("legs", len(legs)),
					zap.String("reason", out.Reason),
				)
			} else {
				e.skip("parlay_legs_pending")
			}
			continue
		}

		byID[p.ID] = p
		batch = append(batch, domain.SettlementResult{
			WagerID:     p.ID,
			Status:      out.Status,
			ResultCents: out.ResultCents,
			Reason:      out.Reason,
		})
	}

	ps.merge(e.applyAndPublish(ctx, "parlay", batch, byID))
	return ps
}

// applyAndPublish grava o write set num batch atômico e publica os
// eventos das linhas efetivamente aplicadas. Linha já liquidada por um
// ciclo concorrente é pulada em silêncio (caminho de idempotência).
func (e *Engine) applyAndPublish(ctx context.Context, group string, batch []domain.SettlementResult, byID map[string]domain.Wager) Summary {
	var s Summary
	if len(batch) == 0 {
		return s
	}

	settledAt := time.Now().UTC()
	applied, err := e.Store.ApplyBatch(ctx, batch, settledAt)
	if err != nil {
		// Rollback do próprio batch; todo o grupo fica pro próximo ciclo.
		e.fail("store_write")
		e.Log.Error("apply batch failed; group rolled back",
			zap.String("group", group),
			zap.Int("batch", len(batch)),
			zap.Error(err),
		)
		s.LeftPending += len(batch)
		s.Errors = append(s.Errors, CycleError{Sport: group, Stage: "store_write", Msg: err.Error()})
		return s
	}

	appliedSet := make(map[string]bool, len(applied))
	for _, id := range applied {
		appliedSet[id] = true
	}

	for _, r := range batch {
		if !appliedSet[r.WagerID] {
			s.WriteConflicts++
			e.skip("write_conflict")
			continue
		}
		s.Settled++
		e.settled(string(r.Status))

		w := byID[r.WagerID]
		e.Log.Info("wager settled",
			zap.String("wager_id", r.WagerID),
			zap.String("sport", w.Sport),
			zap.String("event_id", w.EventID),
			zap.String("status", string(r.Status)),
			zap.Int64("result_cents", r.ResultCents),
			zap.String("reason", r.Reason),
		)
		e.publish(w, r, settledAt)
	}
	return s
}

// publish emite bet_settled (best-effort; falha só gera warn).
func (e *Engine) publish(w domain.Wager, r domain.SettlementResult, settledAt time.Time) {
	if e.Publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ev := events.BetSettled{
		BetID:       r.WagerID,
		UserID:      w.UserID,
		ParentBetID: w.ParentBetID,
		Sport:       w.Sport,
		Status:      string(r.Status),
		ResultCents: r.ResultCents,
		Reason:      r.Reason,
		SettledAt:   settledAt,
	}
	if err := e.Publisher.PublishBetSettled(ctx, ev); err != nil {
		e.Log.Warn("publish bet_settled failed", zap.String("wager_id", r.WagerID), zap.Error(err))
	}
}

func hasUnexpectedLegStatus(legs []domain.Wager) bool {
	for _, leg := range legs {
		switch leg.Status {
		case domain.StatusPending, domain.StatusWon, domain.StatusLost, domain.StatusPushed:
		default:
			return true
		}
	}
	return false
}

func (e *Engine) settled(status string) {
	if e.OnSettled != nil {
		e.OnSettled(status)
	}
}

func (e *Engine) skip(reason string) {
	if e.OnSkipped != nil {
		e.OnSkipped(reason)
	}
}

func (e *Engine) mismatch(sport string) {
	if e.OnMismatch != nil {
		e.OnMismatch(sport)
	}
}

func (e *Engine) fail(stage string) {
	if e.OnError != nil {
		e.OnError(stage)
	}
}
