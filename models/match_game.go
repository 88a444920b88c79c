package models

import (
	"time"

	"github.com/lib/pq"
)

// GamePhase matches the game_phase ENUM in the database.
type GamePhase string

const (
	PhaseLobby       GamePhase = "lobby"
	PhaseStageBan    GamePhase = "stage_ban"
	PhaseStageSelect GamePhase = "stage_select"
	PhasePlaying     GamePhase = "playing"
	PhaseCompleted   GamePhase = "completed"
)

// PlayerSlot identifies one side of a match. SlotNone means no player is on
// turn (stored as an empty string).
type PlayerSlot string

const (
	SlotNone    PlayerSlot = ""
	SlotPlayer1 PlayerSlot = "player1"
	SlotPlayer2 PlayerSlot = "player2"
)

// Other returns the opposing slot.
func (s PlayerSlot) Other() PlayerSlot {
	switch s {
	case SlotPlayer1:
		return SlotPlayer2
	case SlotPlayer2:
		return SlotPlayer1
	default:
		return SlotNone
	}
}

// MatchGame is one game within a match's best-of series. Every field needed to
// resume the ban/select flow is persisted; no turn state lives in memory
// between requests.
type MatchGame struct {
	ID          int        `json:"id" db:"id"`
	MatchID     int        `json:"match_id" db:"match_id"`
	GameNumber  int        `json:"game_number" db:"game_number"`
	Phase       GamePhase  `json:"phase" db:"phase"`
	CurrentTurn PlayerSlot `json:"current_turn" db:"current_turn"`

	Player1InLobby bool `json:"player1_in_lobby" db:"player1_in_lobby"`
	Player2InLobby bool `json:"player2_in_lobby" db:"player2_in_lobby"`

	// BannedStages is the union of the two per-player ban lists.
	BannedStages    pq.StringArray `json:"banned_stages" db:"banned_stages"`
	BannedByPlayer1 pq.StringArray `json:"banned_by_player1" db:"banned_by_player1"`
	BannedByPlayer2 pq.StringArray `json:"banned_by_player2" db:"banned_by_player2"`
	BanTurnCount    int            `json:"ban_turn_count" db:"ban_turn_count"`

	SelectedStage *string `json:"selected_stage,omitempty" db:"selected_stage"`

	// PreviousWinnerID carries the prior game's winner forward to seed the
	// turn order of game 2 and later.
	PreviousWinnerID *int `json:"previous_winner_id,omitempty" db:"previous_winner_id"`

	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
