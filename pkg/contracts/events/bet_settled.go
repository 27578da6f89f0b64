package events

import "time"

// Evento emitido pelo settlement-worker após aplicar um resultado terminal.
type BetSettled struct {
	BetID       string    `json:"bet_id"`
	UserID      string    `json:"user_id"`
	ParentBetID string    `json:"parent_bet_id,omitempty"` // preenchido quando a aposta é perna de parlay
	Sport       string    `json:"sport"`
	Status      string    `json:"status"` // "WON" | "LOST" | "PUSHED"
	ResultCents int64     `json:"result_cents"`
	Reason      string    `json:"reason,omitempty"`
	SettledAt   time.Time `json:"settled_at"`
	TsUnixMs    int64     `json:"ts_unix_ms"`
}
