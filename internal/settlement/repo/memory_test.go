package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/repo"
)

func TestMemory_GuardMatchesPostgresSemantics(t *testing.T) {
	store := repo.NewMemory()
	id := store.Insert(domain.Wager{Sport: "baseball_mlb", BetType: domain.BetMoneyline})

	settledAt := time.Now().UTC()

	applied, err := store.ApplyTerminal(context.Background(), id, domain.StatusWon, 19_00, settledAt)
	require.NoError(t, err)
	assert.True(t, applied)

	// segunda aplicação é barrada pelo guard, sem erro
	applied, err = store.ApplyTerminal(context.Background(), id, domain.StatusLost, 0, settledAt)
	require.NoError(t, err)
	assert.False(t, applied)

	w, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.StatusWon, w.Status)
	assert.Equal(t, int64(19_00), w.ResultCents)
}

func TestMemory_ListLegsOrdered(t *testing.T) {
	store := repo.NewMemory()
	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	store.Insert(domain.Wager{ID: "leg-2", ParentBetID: "p1", CreatedAt: base.Add(time.Minute)})
	store.Insert(domain.Wager{ID: "leg-1", ParentBetID: "p1", CreatedAt: base})
	store.Insert(domain.Wager{ID: "other", ParentBetID: "p2", CreatedAt: base})

	legs, err := store.ListLegs(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, "leg-1", legs[0].ID)
	assert.Equal(t, "leg-2", legs[1].ID)
}
