package brackets

import (
	"context"
	"testing"

	"github.com/smashforge/tournament-server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateDouble(t *testing.T, n int, reset bool) []*models.Match {
	t.Helper()
	g := NewDoubleEliminationGenerator()
	matches, err := g.GenerateBracket(context.Background(), GenerateBracketParams{
		Tournament:   testTournament(models.FormatDoubleElimination, reset),
		Participants: testParticipants(n),
	})
	require.NoError(t, err)
	return matches
}

func TestDoubleEliminationSegmentCounts(t *testing.T) {
	tests := []struct {
		n       int
		winners int
		losers  int
	}{
		{2, 1, 0},
		{4, 3, 2},
		{8, 7, 6},
		{16, 15, 14},
	}
	for _, tt := range tests {
		matches := generateDouble(t, tt.n, true)
		assert.Len(t, bySegment(matches, models.SegmentWinners), tt.winners, "n=%d winners", tt.n)
		assert.Len(t, bySegment(matches, models.SegmentLosers), tt.losers, "n=%d losers", tt.n)
		assert.Len(t, bySegment(matches, models.SegmentGrands), 2, "n=%d grands", tt.n)
	}
}

func TestDoubleEliminationTwoEntrants(t *testing.T) {
	// No losers bracket: the winners-final loser drops straight into grand
	// finals.
	matches := generateDouble(t, 2, true)
	require.Len(t, matches, 3)

	wf := findMatch(matches, models.SegmentWinners, 1, 1)
	gf1 := findMatch(matches, models.SegmentGrands, 1, 1)
	gf2 := findMatch(matches, models.SegmentGrands, 2, 1)
	require.NotNil(t, wf)
	require.NotNil(t, gf1)
	require.NotNil(t, gf2)

	assert.Equal(t, gf1.ID, *wf.NextMatchID)
	assert.Equal(t, gf1.ID, *wf.LoserNextMatchID)
	assert.Equal(t, gf2.ID, *gf1.NextMatchID)
	assert.Nil(t, gf2.NextMatchID)
}

func TestDoubleEliminationLinks(t *testing.T) {
	matches := generateDouble(t, 4, true)
	require.Len(t, matches, 7)

	w1 := findMatch(matches, models.SegmentWinners, 1, 1)
	w2 := findMatch(matches, models.SegmentWinners, 1, 2)
	wf := findMatch(matches, models.SegmentWinners, 2, 1)
	l1 := findMatch(matches, models.SegmentLosers, 1, 1)
	l2 := findMatch(matches, models.SegmentLosers, 2, 1)
	gf1 := findMatch(matches, models.SegmentGrands, 1, 1)
	gf2 := findMatch(matches, models.SegmentGrands, 2, 1)
	for _, m := range []*models.Match{w1, w2, wf, l1, l2, gf1, gf2} {
		require.NotNil(t, m)
	}

	// Winners round 1 feeds the winners final and the first losers round.
	assert.Equal(t, wf.ID, *w1.NextMatchID)
	assert.Equal(t, wf.ID, *w2.NextMatchID)
	assert.Equal(t, l1.ID, *w1.LoserNextMatchID)
	assert.Equal(t, l1.ID, *w2.LoserNextMatchID)

	// The losers final pits the winners-final drop against the losers round 1
	// survivor, and its winner meets the winners-final winner in grands.
	assert.Equal(t, l2.ID, *wf.LoserNextMatchID)
	assert.Equal(t, l2.ID, *l1.NextMatchID)
	assert.Equal(t, gf1.ID, *wf.NextMatchID)
	assert.Equal(t, gf1.ID, *l2.NextMatchID)
	assert.Equal(t, gf2.ID, *gf1.NextMatchID)

	// Nothing follows the reset match.
	assert.Nil(t, gf2.NextMatchID)
	assert.Nil(t, gf2.LoserNextMatchID)
}

func TestDoubleEliminationEightEntrantStructure(t *testing.T) {
	matches := generateDouble(t, 8, true)
	require.Len(t, matches, 15)

	losers := bySegment(matches, models.SegmentLosers)
	roundSizes := map[int]int{}
	for _, m := range losers {
		roundSizes[m.Round]++
	}
	// Four losers rounds alternating minor, major, minor, major.
	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 1, 4: 1}, roundSizes)

	// Every winners match except the final drops its loser somewhere.
	for _, m := range bySegment(matches, models.SegmentWinners) {
		require.NotNil(t, m.LoserNextMatchID, "winners round %d match %d", m.Round, m.MatchNumber)
		dest := findByID(matches, *m.LoserNextMatchID)
		require.NotNil(t, dest)
		assert.Equal(t, models.SegmentLosers, dest.Segment)
	}
}

func TestDoubleEliminationFullRun(t *testing.T) {
	// Play a 4-entrant bracket to completion. Participant 102 loses the
	// winners final, fights back through the losers bracket, takes the first
	// grand finals, and wins the reset.
	matches := generateDouble(t, 4, true)
	opts := PropagateOptions{BracketReset: true}

	w1 := findMatch(matches, models.SegmentWinners, 1, 1) // 101 vs 104
	w2 := findMatch(matches, models.SegmentWinners, 1, 2) // 102 vs 103
	wf := findMatch(matches, models.SegmentWinners, 2, 1)
	l1 := findMatch(matches, models.SegmentLosers, 1, 1)
	l2 := findMatch(matches, models.SegmentLosers, 2, 1)
	gf1 := findMatch(matches, models.SegmentGrands, 1, 1)
	gf2 := findMatch(matches, models.SegmentGrands, 2, 1)

	_, err := Propagate(matches, w1.ID, 101, 104, opts)
	require.NoError(t, err)
	_, err = Propagate(matches, w2.ID, 102, 103, opts)
	require.NoError(t, err)

	assert.Equal(t, 101, *wf.Player1ID)
	assert.Equal(t, 102, *wf.Player2ID)
	assert.Equal(t, 104, *l1.Player1ID)
	assert.Equal(t, 103, *l1.Player2ID)

	p, err := Propagate(matches, l1.ID, 103, 104, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{104}, p.Eliminated)
	assert.Equal(t, 103, *l2.Player1ID)

	p, err = Propagate(matches, wf.ID, 101, 102, opts)
	require.NoError(t, err)
	assert.Empty(t, p.Eliminated)
	assert.Equal(t, 101, *gf1.Player1ID)
	assert.Equal(t, 102, *l2.Player2ID)

	p, err = Propagate(matches, l2.ID, 102, 103, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{103}, p.Eliminated)
	assert.Equal(t, 102, *gf1.Player2ID)

	// Losers finalist takes grand finals 1: the bracket resets instead of
	// ending.
	p, err = Propagate(matches, gf1.ID, 102, 101, opts)
	require.NoError(t, err)
	assert.False(t, p.Complete)
	assert.Nil(t, p.ChampionID)
	assert.Equal(t, models.MatchStatusPending, gf2.Status)
	assert.Equal(t, 102, *gf2.Player1ID)
	assert.Equal(t, 101, *gf2.Player2ID)

	p, err = Propagate(matches, gf2.ID, 102, 101, opts)
	require.NoError(t, err)
	assert.True(t, p.Complete)
	assert.Equal(t, 102, *p.ChampionID)
	assert.Equal(t, []int{101}, p.Eliminated)
}

func TestDoubleEliminationWinnersSideSweep(t *testing.T) {
	// The winners-final winner also takes grand finals 1: no reset, the
	// provisioned second match closes unused.
	matches := generateDouble(t, 4, true)
	opts := PropagateOptions{BracketReset: true}

	w1 := findMatch(matches, models.SegmentWinners, 1, 1)
	w2 := findMatch(matches, models.SegmentWinners, 1, 2)
	wf := findMatch(matches, models.SegmentWinners, 2, 1)
	l1 := findMatch(matches, models.SegmentLosers, 1, 1)
	l2 := findMatch(matches, models.SegmentLosers, 2, 1)
	gf1 := findMatch(matches, models.SegmentGrands, 1, 1)
	gf2 := findMatch(matches, models.SegmentGrands, 2, 1)

	mustPropagate(t, matches, w1.ID, 101, 104, opts)
	mustPropagate(t, matches, w2.ID, 102, 103, opts)
	mustPropagate(t, matches, l1.ID, 103, 104, opts)
	mustPropagate(t, matches, wf.ID, 101, 102, opts)
	mustPropagate(t, matches, l2.ID, 102, 103, opts)

	p, err := Propagate(matches, gf1.ID, 101, 102, opts)
	require.NoError(t, err)
	assert.True(t, p.Complete)
	assert.Equal(t, 101, *p.ChampionID)
	assert.Contains(t, p.Eliminated, 102)
	assert.Equal(t, models.MatchStatusCompleted, gf2.Status)
	assert.Nil(t, gf2.WinnerID)
}

func TestDoubleEliminationResetDisabled(t *testing.T) {
	// With the reset off, the first grand finals decides the tournament even
	// when the losers finalist wins it.
	matches := generateDouble(t, 4, false)
	opts := PropagateOptions{BracketReset: false}

	w1 := findMatch(matches, models.SegmentWinners, 1, 1)
	w2 := findMatch(matches, models.SegmentWinners, 1, 2)
	wf := findMatch(matches, models.SegmentWinners, 2, 1)
	l1 := findMatch(matches, models.SegmentLosers, 1, 1)
	l2 := findMatch(matches, models.SegmentLosers, 2, 1)
	gf1 := findMatch(matches, models.SegmentGrands, 1, 1)
	gf2 := findMatch(matches, models.SegmentGrands, 2, 1)

	mustPropagate(t, matches, w1.ID, 101, 104, opts)
	mustPropagate(t, matches, w2.ID, 102, 103, opts)
	mustPropagate(t, matches, l1.ID, 103, 104, opts)
	mustPropagate(t, matches, wf.ID, 101, 102, opts)
	mustPropagate(t, matches, l2.ID, 102, 103, opts)

	p, err := Propagate(matches, gf1.ID, 102, 101, opts)
	require.NoError(t, err)
	assert.True(t, p.Complete)
	assert.Equal(t, 102, *p.ChampionID)
	assert.Equal(t, models.MatchStatusCompleted, gf2.Status)
}

func findByID(matches []*models.Match, id int) *models.Match {
	for _, m := range matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func mustPropagate(t *testing.T, matches []*models.Match, matchID, winnerID, loserID int, opts PropagateOptions) *Propagation {
	t.Helper()
	p, err := Propagate(matches, matchID, winnerID, loserID, opts)
	require.NoError(t, err)
	return p
}
