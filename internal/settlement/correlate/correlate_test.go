package correlate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/settlement/correlate"
	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

func wager() domain.Wager {
	return domain.Wager{
		ID:       "w1",
		EventID:  "EVT_42",
		HomeTeam: "New York Yankees",
		AwayTeam: "Boston Red Sox",
	}
}

func TestMatch_AssignsScoresByNameNotPosition(t *testing.T) {
	// provider lists the away team first; assignment must follow names
	results := []domain.GameResult{{
		EventID:   "EVT_42",
		HomeTeam:  "New York Yankees",
		AwayTeam:  "Boston Red Sox",
		Completed: true,
		Scores: []domain.TeamScore{
			{Name: "Boston Red Sox", Score: 3},
			{Name: "New York Yankees", Score: 7},
		},
	}}

	scores, err := correlate.Match(wager(), results)
	require.NoError(t, err)
	assert.Equal(t, 7, scores.Home)
	assert.Equal(t, 3, scores.Away)
}

func TestMatch_NameComparisonIsLenient(t *testing.T) {
	results := []domain.GameResult{{
		EventID:   "EVT_42",
		Completed: true,
		Scores: []domain.TeamScore{
			{Name: " new york yankees ", Score: 2},
			{Name: "BOSTON RED SOX", Score: 5},
		},
	}}

	scores, err := correlate.Match(wager(), results)
	require.NoError(t, err)
	assert.Equal(t, 2, scores.Home)
	assert.Equal(t, 5, scores.Away)
}

func TestMatch_EventNotFound(t *testing.T) {
	results := []domain.GameResult{{EventID: "OTHER", Completed: true}}

	_, err := correlate.Match(wager(), results)
	assert.ErrorIs(t, err, correlate.ErrEventNotFound)
}

func TestMatch_EventIncomplete(t *testing.T) {
	results := []domain.GameResult{{EventID: "EVT_42", Completed: false}}

	_, err := correlate.Match(wager(), results)
	assert.ErrorIs(t, err, correlate.ErrEventIncomplete)
}

func TestMatch_TeamNameMismatch(t *testing.T) {
	// provider renamed one side; must refuse to guess and report both sets
	results := []domain.GameResult{{
		EventID:   "EVT_42",
		Completed: true,
		Scores: []domain.TeamScore{
			{Name: "NY Yankees", Score: 7},
			{Name: "Boston Red Sox", Score: 3},
		},
	}}

	_, err := correlate.Match(wager(), results)
	var mismatch *correlate.TeamMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "EVT_42", mismatch.EventID)
	assert.Equal(t, []string{"New York Yankees", "Boston Red Sox"}, mismatch.Expected)
	assert.Equal(t, []string{"NY Yankees", "Boston Red Sox"}, mismatch.Received)
}
