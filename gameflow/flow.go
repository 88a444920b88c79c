// Package gameflow implements the per-game stage ban/select state machine
// played between the two participants of a match. Transitions mutate the
// persisted MatchGame record only, so the machine is resumable statelessly: a
// fresh load of the record reconstructs the exact next legal action.
package gameflow

import (
	"errors"

	"github.com/smashforge/tournament-server/models"
)

var (
	ErrWrongPhase    = errors.New("game is not in the right phase for this action")
	ErrNotYourTurn   = errors.New("it is not this player's turn")
	ErrAlreadyBanned = errors.New("stage is already banned")
	ErrStageNotLegal = errors.New("stage is not legal for this game")
	ErrDSRViolation  = errors.New("player already won a game on this stage")
)

// Ban counts per game. Game 1 runs the fixed 1-2-1 pattern over the starters;
// from game 2 on the previous winner bans three stages in a row.
const (
	game1Bans       = 4
	counterpickBans = 3
)

// game1BanOrder is the 1-2-1 pattern indexed by BanTurnCount.
var game1BanOrder = [game1Bans]models.PlayerSlot{
	models.SlotPlayer1,
	models.SlotPlayer2,
	models.SlotPlayer2,
	models.SlotPlayer1,
}

// JoinLobby records the player's presence. Once both players are in, the game
// advances to the stage-ban phase with the opening ban turn assigned.
func JoinLobby(match *models.Match, game *models.MatchGame, slot models.PlayerSlot) error {
	if game.Phase != models.PhaseLobby {
		return ErrWrongPhase
	}

	switch slot {
	case models.SlotPlayer1:
		game.Player1InLobby = true
	case models.SlotPlayer2:
		game.Player2InLobby = true
	default:
		return ErrNotYourTurn
	}

	if game.Player1InLobby && game.Player2InLobby {
		game.Phase = models.PhaseStageBan
		game.BanTurnCount = 0
		game.CurrentTurn = banTurn(match, game)
	}
	return nil
}

// BanStage records one stage ban for the player on turn. When the ban quota is
// exhausted the game advances to stage select with the picker assigned: player
// 1 for game 1, the previous game's loser otherwise.
func BanStage(match *models.Match, game *models.MatchGame, slot models.PlayerSlot, stage string) error {
	if game.Phase != models.PhaseStageBan {
		return ErrWrongPhase
	}
	if slot != game.CurrentTurn {
		return ErrNotYourTurn
	}
	if !IsLegalStage(stage, game.GameNumber) {
		return ErrStageNotLegal
	}
	for _, banned := range game.BannedStages {
		if banned == stage {
			return ErrAlreadyBanned
		}
	}

	game.BannedStages = append(game.BannedStages, stage)
	if slot == models.SlotPlayer1 {
		game.BannedByPlayer1 = append(game.BannedByPlayer1, stage)
	} else {
		game.BannedByPlayer2 = append(game.BannedByPlayer2, stage)
	}
	game.BanTurnCount++

	if game.BanTurnCount >= totalBans(game.GameNumber) {
		game.Phase = models.PhaseStageSelect
		game.CurrentTurn = pickerSlot(match, game)
		return nil
	}
	game.CurrentTurn = banTurn(match, game)
	return nil
}

// SelectStage picks the stage the game is played on. The picker may not choose
// a banned stage, and from game 2 on may not re-pick a stage they already won
// a game on within this match (Dave's Stupid Rule). On success the turn is
// cleared and the game moves to playing.
func SelectStage(match *models.Match, game *models.MatchGame, slot models.PlayerSlot, stage string) error {
	if game.Phase != models.PhaseStageSelect {
		return ErrWrongPhase
	}
	if slot != game.CurrentTurn {
		return ErrNotYourTurn
	}
	if !IsLegalStage(stage, game.GameNumber) {
		return ErrStageNotLegal
	}
	for _, banned := range game.BannedStages {
		if banned == stage {
			return ErrAlreadyBanned
		}
	}
	if game.GameNumber > 1 {
		for _, won := range wonStages(match, slot) {
			if won == stage {
				return ErrDSRViolation
			}
		}
	}

	game.SelectedStage = &stage
	game.CurrentTurn = models.SlotNone
	game.Phase = models.PhasePlaying
	return nil
}

func totalBans(gameNumber int) int {
	if gameNumber <= 1 {
		return game1Bans
	}
	return counterpickBans
}

// banTurn derives the slot on ban turn purely from persisted fields.
func banTurn(match *models.Match, game *models.MatchGame) models.PlayerSlot {
	if game.GameNumber <= 1 {
		return game1BanOrder[game.BanTurnCount]
	}
	return previousWinnerSlot(match, game)
}

func pickerSlot(match *models.Match, game *models.MatchGame) models.PlayerSlot {
	if game.GameNumber <= 1 {
		return models.SlotPlayer1
	}
	return previousWinnerSlot(match, game).Other()
}

func previousWinnerSlot(match *models.Match, game *models.MatchGame) models.PlayerSlot {
	if game.PreviousWinnerID != nil {
		if slot := match.SlotOf(*game.PreviousWinnerID); slot != models.SlotNone {
			return slot
		}
	}
	return models.SlotPlayer1
}

func wonStages(match *models.Match, slot models.PlayerSlot) []string {
	if slot == models.SlotPlayer1 {
		return match.Player1WonStages
	}
	return match.Player2WonStages
}
