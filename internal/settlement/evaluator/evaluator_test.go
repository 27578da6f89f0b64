package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/evaluator"
)

func moneylineWager(side domain.TeamSide) domain.Wager {
	return domain.Wager{
		ID:                "w1",
		BetType:           domain.BetMoneyline,
		TeamSelection:     side,
		StakeCents:        10_00,
		PotentialWinCents: 9_00,
	}
}

func spreadWager(side domain.TeamSide, line float64) domain.Wager {
	w := moneylineWager(side)
	w.BetType = domain.BetSpread
	w.SpreadValue = &line
	return w
}

func totalWager(sel domain.OverUnder, line float64) domain.Wager {
	return domain.Wager{
		ID:                 "w1",
		BetType:            domain.BetTotal,
		OverUnderSelection: sel,
		TotalPoints:        &line,
		StakeCents:         10_00,
		PotentialWinCents:  9_09,
	}
}

func TestMoneyline(t *testing.T) {
	tests := []struct {
		name       string
		side       domain.TeamSide
		home, away int
		status     domain.BetStatus
		result     int64
	}{
		{"home selected, home wins", domain.SideHome, 5, 3, domain.StatusWon, 19_00},
		{"home selected, away wins", domain.SideHome, 2, 3, domain.StatusLost, 0},
		{"away selected, away wins", domain.SideAway, 2, 3, domain.StatusWon, 19_00},
		{"away selected, home wins", domain.SideAway, 5, 3, domain.StatusLost, 0},
		{"tie refunds stake", domain.SideHome, 4, 4, domain.StatusPushed, 10_00},
		{"scoreless tie refunds stake", domain.SideAway, 0, 0, domain.StatusPushed, 10_00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := evaluator.Moneyline(moneylineWager(tt.side), tt.home, tt.away)
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.result, out.ResultCents)
			assert.NotEmpty(t, out.Reason)
		})
	}
}

func TestMoneyline_MissingSelection(t *testing.T) {
	w := moneylineWager(domain.SideHome)
	w.TeamSelection = ""

	_, err := evaluator.Moneyline(w, 1, 0)
	assert.ErrorIs(t, err, evaluator.ErrInvalidWagerData)
}

func TestSpread(t *testing.T) {
	tests := []struct {
		name       string
		side       domain.TeamSide
		line       float64
		home, away int
		status     domain.BetStatus
		result     int64
	}{
		// away +3.5, home 20 - away 17: adjusted away 20.5 > 20
		{"underdog covers on the boundary", domain.SideAway, 3.5, 20, 17, domain.StatusWon, 19_00},
		{"underdog does not cover", domain.SideAway, 3.5, 21, 17, domain.StatusLost, 0},
		{"favorite covers", domain.SideHome, -7.5, 30, 20, domain.StatusWon, 19_00},
		{"favorite wins but misses the spread", domain.SideHome, -7.5, 27, 20, domain.StatusLost, 0},
		{"whole line lands exactly: push", domain.SideHome, -7, 27, 20, domain.StatusPushed, 10_00},
		{"away whole line push", domain.SideAway, 7, 27, 20, domain.StatusPushed, 10_00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := evaluator.Spread(spreadWager(tt.side, tt.line), tt.home, tt.away)
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.result, out.ResultCents)
		})
	}
}

func TestSpread_MissingLine(t *testing.T) {
	w := spreadWager(domain.SideHome, 0)
	w.SpreadValue = nil

	_, err := evaluator.Spread(w, 10, 7)
	assert.ErrorIs(t, err, evaluator.ErrInvalidWagerData)
}

func TestTotal(t *testing.T) {
	tests := []struct {
		name       string
		sel        domain.OverUnder
		line       float64
		home, away int
		status     domain.BetStatus
		result     int64
	}{
		// over 45.5, 24+20 = 44
		{"over misses half line", domain.SelectionOver, 45.5, 24, 20, domain.StatusLost, 0},
		// over 44, 24+20 = 44 lands on the line
		{"whole line push", domain.SelectionOver, 44, 24, 20, domain.StatusPushed, 10_00},
		{"under push on the line", domain.SelectionUnder, 44, 24, 20, domain.StatusPushed, 10_00},
		{"over hits", domain.SelectionOver, 43.5, 24, 20, domain.StatusWon, 19_09},
		{"under hits", domain.SelectionUnder, 45.5, 24, 20, domain.StatusWon, 19_09},
		{"under misses", domain.SelectionUnder, 43.5, 24, 20, domain.StatusLost, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := evaluator.Total(totalWager(tt.sel, tt.line), tt.home, tt.away)
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.result, out.ResultCents)
		})
	}
}

func TestTotal_MissingLine(t *testing.T) {
	w := totalWager(domain.SelectionOver, 0)
	w.TotalPoints = nil

	_, err := evaluator.Total(w, 24, 20)
	assert.ErrorIs(t, err, evaluator.ErrInvalidWagerData)
}

func TestEvaluate_Dispatch(t *testing.T) {
	out, err := evaluator.Evaluate(moneylineWager(domain.SideHome), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, out.Status)

	out, err = evaluator.Evaluate(spreadWager(domain.SideAway, 3.5), 20, 17)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWon, out.Status)

	out, err = evaluator.Evaluate(totalWager(domain.SelectionOver, 44), 24, 20)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPushed, out.Status)
}

func TestEvaluate_IndirectTypes(t *testing.T) {
	_, err := evaluator.Evaluate(domain.Wager{BetType: domain.BetParlay}, 1, 0)
	assert.ErrorIs(t, err, evaluator.ErrNotDirectlyEvaluable)

	_, err = evaluator.Evaluate(domain.Wager{BetType: domain.BetProp}, 1, 0)
	assert.ErrorIs(t, err, evaluator.ErrNotDirectlyEvaluable)

	_, err = evaluator.Evaluate(domain.Wager{BetType: "TEASER"}, 1, 0)
	assert.ErrorIs(t, err, evaluator.ErrInvalidWagerData)
}

// every evaluator must return exactly one terminal status and never error
// for any integer score pair on a well-formed wager
func TestEvaluators_TotalForWellFormedInput(t *testing.T) {
	line := 3.5
	wagers := []domain.Wager{
		moneylineWager(domain.SideHome),
		spreadWager(domain.SideAway, -line),
		totalWager(domain.SelectionUnder, line),
	}

	for home := 0; home <= 12; home++ {
		for away := 0; away <= 12; away++ {
			for _, w := range wagers {
				out, err := evaluator.Evaluate(w, home, away)
				require.NoError(t, err)
				require.True(t, out.Status.Terminal(),
					"bet %s scores %d-%d returned %s", w.BetType, home, away, out.Status)
			}
		}
	}
}
