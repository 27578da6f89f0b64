package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// Postgres implementa a persistência de apostas do motor de liquidação.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const wagerColumns = `
	id, COALESCE(parent_bet_id,''), user_id, sport, event_id, home_team, away_team,
	bet_type, COALESCE(team_selection,''), COALESCE(over_under_selection,''),
	spread_value, total_points, odd_value, stake_cents, potential_win_cents,
	result_cents, status, created_at, settled_at`

// ListPending retorna todas as apostas PENDING; sport vazio lista todas.
func (p *Postgres) ListPending(ctx context.Context, sport string) ([]domain.Wager, error) {
	q := `SELECT ` + wagerColumns + ` FROM bets WHERE status='PENDING'`
	args := []any{}
	if sport != "" {
		q += ` AND sport=$1`
		args = append(args, sport)
	}
	q += ` ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	return scanWagers(rows)
}

// ListLegs retorna as pernas de um parlay, na ordem de criação.
func (p *Postgres) ListLegs(ctx context.Context, parentID string) ([]domain.Wager, error) {
	q := `SELECT ` + wagerColumns + ` FROM bets WHERE parent_bet_id=$1 ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, q, parentID)
	if err != nil {
		return nil, fmt.Errorf("list legs: %w", err)
	}
	defer rows.Close()

	return scanWagers(rows)
}

const applyTerminalQuery = `
	UPDATE bets
	SET status=$2, result_cents=$3, settled_at=$4, updated_at=NOW()
	WHERE id=$1 AND status='PENDING'`

// ApplyTerminal grava a transição PENDING->terminal de uma aposta.
// O guard "status='PENDING'" é o único mecanismo de segurança entre
// ciclos concorrentes: linha já liquidada retorna applied=false, sem
// erro — é o caminho esperado de idempotência.
func (p *Postgres) ApplyTerminal(ctx context.Context, wagerID string, newStatus domain.BetStatus, resultCents int64, settledAt time.Time) (bool, error) {
	res, err := p.db.ExecContext(ctx, applyTerminalQuery, wagerID, string(newStatus), resultCents, settledAt)
	if err != nil {
		return false, fmt.Errorf("apply terminal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply terminal rows: %w", err)
	}
	return n == 1, nil
}

// ApplyBatch aplica o write set de um grupo numa única transação,
// mantendo o guard por linha. Retorna os ids efetivamente aplicados;
// conflitos (linha não mais PENDING) são pulados em silêncio.
func (p *Postgres) ApplyBatch(ctx context.Context, results []domain.SettlementResult, settledAt time.Time) ([]string, error) {
	if len(results) == 0 {
		return nil, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	applied := make([]string, 0, len(results))
	for _, r := range results {
		res, err := tx.ExecContext(ctx, applyTerminalQuery, r.WagerID, string(r.Status), r.ResultCents, settledAt)
		if err != nil {
			return nil, fmt.Errorf("batch update %s: %w", r.WagerID, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			applied = append(applied, r.WagerID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return applied, nil
}

func scanWagers(rows *sql.Rows) ([]domain.Wager, error) {
	var out []domain.Wager
	for rows.Next() {
		var (
			w           domain.Wager
			betType     string
			side        string
			overUnder   string
			status      string
			spreadValue sql.NullFloat64
			totalPoints sql.NullFloat64
			settledAt   sql.NullTime
		)
		if err := rows.Scan(
			&w.ID, &w.ParentBetID, &w.UserID, &w.Sport, &w.EventID, &w.HomeTeam, &w.AwayTeam,
			&betType, &side, &overUnder,
			&spreadValue, &totalPoints, &w.OddValue, &w.StakeCents, &w.PotentialWinCents,
			&w.ResultCents, &status, &w.CreatedAt, &settledAt,
		); err != nil {
			return nil, fmt.Errorf("scan wager: %w", err)
		}

		w.BetType = domain.BetType(betType)
		w.TeamSelection = domain.TeamSide(side)
		w.OverUnderSelection = domain.OverUnder(overUnder)
		w.Status = domain.BetStatus(status)
		if spreadValue.Valid {
			v := spreadValue.Float64
			w.SpreadValue = &v
		}
		if totalPoints.Valid {
			v := totalPoints.Float64
			w.TotalPoints = &v
		}
		if settledAt.Valid {
			t := settledAt.Time
			w.SettledAt = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
