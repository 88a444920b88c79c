package gameflow

import (
	"testing"

	"github.com/smashforge/tournament-server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatch() *models.Match {
	p1, p2 := 101, 102
	return &models.Match{
		ID:        1,
		Player1ID: &p1,
		Player2ID: &p2,
		Status:    models.MatchStatusCheckin,
	}
}

func testGame(number int) *models.MatchGame {
	return &models.MatchGame{
		ID:              1,
		MatchID:         1,
		GameNumber:      number,
		Phase:           models.PhaseLobby,
		BannedStages:    []string{},
		BannedByPlayer1: []string{},
		BannedByPlayer2: []string{},
	}
}

func joinBoth(t *testing.T, match *models.Match, game *models.MatchGame) {
	t.Helper()
	require.NoError(t, JoinLobby(match, game, models.SlotPlayer1))
	require.NoError(t, JoinLobby(match, game, models.SlotPlayer2))
	require.Equal(t, models.PhaseStageBan, game.Phase)
}

func TestJoinLobby(t *testing.T) {
	match := testMatch()
	game := testGame(1)

	require.NoError(t, JoinLobby(match, game, models.SlotPlayer1))
	assert.True(t, game.Player1InLobby)
	assert.Equal(t, models.PhaseLobby, game.Phase)

	// Joining again is harmless.
	require.NoError(t, JoinLobby(match, game, models.SlotPlayer1))
	assert.Equal(t, models.PhaseLobby, game.Phase)

	require.NoError(t, JoinLobby(match, game, models.SlotPlayer2))
	assert.Equal(t, models.PhaseStageBan, game.Phase)
	assert.Equal(t, models.SlotPlayer1, game.CurrentTurn)

	// No joining once bans started.
	assert.ErrorIs(t, JoinLobby(match, game, models.SlotPlayer1), ErrWrongPhase)
}

func TestGameOneBanSequence(t *testing.T) {
	// Game 1 runs the 1-2-1 pattern: player 1 bans one starter, player 2 bans
	// two, player 1 bans the last. The remaining starter is picked by player 1.
	match := testMatch()
	game := testGame(1)
	joinBoth(t, match, game)

	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageBattlefield))
	assert.Equal(t, models.SlotPlayer2, game.CurrentTurn)

	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StageFinalDestination))
	assert.Equal(t, models.SlotPlayer2, game.CurrentTurn)

	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StagePokemonStadium2))
	assert.Equal(t, models.SlotPlayer1, game.CurrentTurn)

	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageSmashville))

	assert.Equal(t, models.PhaseStageSelect, game.Phase)
	assert.Equal(t, models.SlotPlayer1, game.CurrentTurn)
	assert.Len(t, game.BannedStages, 4)
	assert.Equal(t, []string{StageBattlefield, StageSmashville}, []string(game.BannedByPlayer1))
	assert.Equal(t, []string{StageFinalDestination, StagePokemonStadium2}, []string(game.BannedByPlayer2))

	// A fifth ban is no longer possible.
	assert.ErrorIs(t, BanStage(match, game, models.SlotPlayer1, StageTownAndCity), ErrWrongPhase)

	// Only the untouched starter remains pickable.
	assert.ErrorIs(t, SelectStage(match, game, models.SlotPlayer1, StageBattlefield), ErrAlreadyBanned)
	require.NoError(t, SelectStage(match, game, models.SlotPlayer1, StageTownAndCity))
	assert.Equal(t, models.PhasePlaying, game.Phase)
	assert.Equal(t, models.SlotNone, game.CurrentTurn)
	assert.Equal(t, StageTownAndCity, *game.SelectedStage)
}

func TestBanValidation(t *testing.T) {
	match := testMatch()
	game := testGame(1)
	joinBoth(t, match, game)

	// Not player 2's turn.
	assert.ErrorIs(t, BanStage(match, game, models.SlotPlayer2, StageBattlefield), ErrNotYourTurn)

	// Counterpicks are not legal in game 1.
	assert.ErrorIs(t, BanStage(match, game, models.SlotPlayer1, StageHollowBastion), ErrStageNotLegal)

	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageBattlefield))
	assert.ErrorIs(t, BanStage(match, game, models.SlotPlayer2, StageBattlefield), ErrAlreadyBanned)

	// Banning before both players joined is a phase error.
	fresh := testGame(1)
	assert.ErrorIs(t, BanStage(match, fresh, models.SlotPlayer1, StageBattlefield), ErrWrongPhase)
}

func TestCounterpickBanSequence(t *testing.T) {
	// From game 2 on, the previous winner bans three stages in a row and the
	// previous loser picks from the full pool.
	match := testMatch()
	game := testGame(2)
	winner := 101 // player 1 took game 1
	game.PreviousWinnerID = &winner
	joinBoth(t, match, game)

	assert.Equal(t, models.SlotPlayer1, game.CurrentTurn)

	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageBattlefield))
	assert.Equal(t, models.SlotPlayer1, game.CurrentTurn)
	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageSmashville))
	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageTownAndCity))

	assert.Equal(t, models.PhaseStageSelect, game.Phase)
	assert.Equal(t, models.SlotPlayer2, game.CurrentTurn)

	// Counterpicks are open now.
	require.NoError(t, SelectStage(match, game, models.SlotPlayer2, StageHollowBastion))
	assert.Equal(t, StageHollowBastion, *game.SelectedStage)
}

func TestCounterpickWinnerSlotFollowsMatch(t *testing.T) {
	// Player 2 won the previous game, so player 2 bans and player 1 picks.
	match := testMatch()
	game := testGame(2)
	winner := 102
	game.PreviousWinnerID = &winner
	joinBoth(t, match, game)

	assert.Equal(t, models.SlotPlayer2, game.CurrentTurn)
	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StageBattlefield))
	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StageSmashville))
	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StageTownAndCity))
	assert.Equal(t, models.SlotPlayer1, game.CurrentTurn)
}

func TestDaveStupidRule(t *testing.T) {
	// The picker may not return to a stage they already won a game on in this
	// match.
	match := testMatch()
	match.Player2WonStages = []string{StageBattlefield}

	game := testGame(2)
	winner := 101
	game.PreviousWinnerID = &winner
	joinBoth(t, match, game)

	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageFinalDestination))
	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageSmashville))
	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageTownAndCity))

	assert.ErrorIs(t, SelectStage(match, game, models.SlotPlayer2, StageBattlefield), ErrDSRViolation)

	// The opponent's won stages do not constrain the picker.
	match2 := testMatch()
	match2.Player1WonStages = []string{StagePokemonStadium2}

	game2 := testGame(2)
	game2.PreviousWinnerID = &winner
	joinBoth(t, match2, game2)
	require.NoError(t, BanStage(match2, game2, models.SlotPlayer1, StageFinalDestination))
	require.NoError(t, BanStage(match2, game2, models.SlotPlayer1, StageSmashville))
	require.NoError(t, BanStage(match2, game2, models.SlotPlayer1, StageTownAndCity))
	require.NoError(t, SelectStage(match2, game2, models.SlotPlayer2, StagePokemonStadium2))
}

func TestDSRNotAppliedInGameOne(t *testing.T) {
	// Game 1 carries no stage-win history, so the rule never triggers there
	// even with stale data on the match.
	match := testMatch()
	match.Player1WonStages = []string{StageTownAndCity}

	game := testGame(1)
	joinBoth(t, match, game)

	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageBattlefield))
	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StageFinalDestination))
	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StagePokemonStadium2))
	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageSmashville))

	require.NoError(t, SelectStage(match, game, models.SlotPlayer1, StageTownAndCity))
}

func TestSelectValidation(t *testing.T) {
	match := testMatch()
	game := testGame(1)
	joinBoth(t, match, game)

	// Selecting during bans is a phase error.
	assert.ErrorIs(t, SelectStage(match, game, models.SlotPlayer1, StageBattlefield), ErrWrongPhase)

	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageBattlefield))
	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StageFinalDestination))
	require.NoError(t, BanStage(match, game, models.SlotPlayer2, StagePokemonStadium2))
	require.NoError(t, BanStage(match, game, models.SlotPlayer1, StageSmashville))

	// Player 2 is not the picker in game 1.
	assert.ErrorIs(t, SelectStage(match, game, models.SlotPlayer2, StageTownAndCity), ErrNotYourTurn)

	// Counterpicks stay illegal in game 1 even at select time.
	assert.ErrorIs(t, SelectStage(match, game, models.SlotPlayer1, StageSmallBattlefield), ErrStageNotLegal)
}

func TestLegalStages(t *testing.T) {
	assert.Len(t, LegalStages(1), 5)
	assert.Len(t, LegalStages(2), 8)

	assert.True(t, IsLegalStage(StageBattlefield, 1))
	assert.False(t, IsLegalStage(StageKalosPokemonLeague, 1))
	assert.True(t, IsLegalStage(StageKalosPokemonLeague, 3))
	assert.False(t, IsLegalStage("fountain_of_dreams", 2))
}
