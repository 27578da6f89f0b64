package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/repo"
)

var wagerCols = []string{
	"id", "parent_bet_id", "user_id", "sport", "event_id", "home_team", "away_team",
	"bet_type", "team_selection", "over_under_selection",
	"spread_value", "total_points", "odd_value", "stake_cents", "potential_win_cents",
	"result_cents", "status", "created_at", "settled_at",
}

func TestListPending_ScansWager(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(wagerCols).AddRow(
		"w1", "", "u1", "baseball_mlb", "EVT_1", "Home FC", "Away FC",
		"SPREAD", "HOME", "",
		-7.5, nil, 1.91, int64(10_00), int64(9_10),
		int64(0), "PENDING", created, nil,
	)
	mock.ExpectQuery("SELECT .+ FROM bets WHERE status='PENDING' ORDER BY created_at").WillReturnRows(rows)

	store := repo.NewPostgres(db)
	wagers, err := store.ListPending(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, wagers, 1)

	w := wagers[0]
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, domain.BetSpread, w.BetType)
	assert.Equal(t, domain.SideHome, w.TeamSelection)
	require.NotNil(t, w.SpreadValue)
	assert.Equal(t, -7.5, *w.SpreadValue)
	assert.Nil(t, w.TotalPoints)
	assert.Equal(t, domain.StatusPending, w.Status)
	assert.Nil(t, w.SettledAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPending_FiltersBySport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM bets WHERE status='PENDING' AND sport=\\$1").
		WithArgs("basketball_nba").
		WillReturnRows(sqlmock.NewRows(wagerCols))

	store := repo.NewPostgres(db)
	wagers, err := store.ListPending(context.Background(), "basketball_nba")
	require.NoError(t, err)
	assert.Empty(t, wagers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTerminal_GuardRejectsSettledRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	settledAt := time.Now().UTC()

	// linha ainda PENDING: aplica
	mock.ExpectExec("UPDATE bets").
		WithArgs("w1", "WON", int64(19_00), settledAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// linha já terminal: guard barra, sem erro
	mock.ExpectExec("UPDATE bets").
		WithArgs("w1", "WON", int64(19_00), settledAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := repo.NewPostgres(db)

	applied, err := store.ApplyTerminal(context.Background(), "w1", domain.StatusWon, 19_00, settledAt)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.ApplyTerminal(context.Background(), "w1", domain.StatusWon, 19_00, settledAt)
	require.NoError(t, err)
	assert.False(t, applied, "second apply must be a silent no-op")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_SkipsConflictsInsideTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	settledAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bets").
		WithArgs("w1", "WON", int64(19_00), settledAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bets").
		WithArgs("w2", "LOST", int64(0), settledAt).
		WillReturnResult(sqlmock.NewResult(0, 0)) // liquidada por ciclo concorrente
	mock.ExpectCommit()

	store := repo.NewPostgres(db)
	applied, err := store.ApplyBatch(context.Background(), []domain.SettlementResult{
		{WagerID: "w1", Status: domain.StatusWon, ResultCents: 19_00},
		{WagerID: "w2", Status: domain.StatusLost, ResultCents: 0},
	}, settledAt)

	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	settledAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bets").
		WithArgs("w1", "WON", int64(19_00), settledAt).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	store := repo.NewPostgres(db)
	applied, err := store.ApplyBatch(context.Background(), []domain.SettlementResult{
		{WagerID: "w1", Status: domain.StatusWon, ResultCents: 19_00},
	}, settledAt)

	assert.Error(t, err)
	assert.Nil(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_EmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := repo.NewPostgres(db)
	applied, err := store.ApplyBatch(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
