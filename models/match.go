package models

import (
	"time"

	"github.com/lib/pq"
)

// BracketSegment identifies which elimination ladder a match belongs to.
type BracketSegment string

const (
	SegmentWinners BracketSegment = "winners"
	SegmentLosers  BracketSegment = "losers"
	SegmentGrands  BracketSegment = "grands"
)

// MatchStatus matches the match_status ENUM in the database.
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusCheckin   MatchStatus = "checkin"
	MatchStatusBanning   MatchStatus = "banning"
	MatchStatusPlaying   MatchStatus = "playing"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusDQ        MatchStatus = "dq"
)

// Match is a single best-of series between two participants. Player slots are
// nil until populated by result propagation or a bye. NextMatchID points to the
// match the winner advances into; LoserNextMatchID points to the losers-bracket
// match the loser drops into (double elimination only).
type Match struct {
	ID           int            `json:"id" db:"id"`
	TournamentID int            `json:"tournament_id" db:"tournament_id"`
	Segment      BracketSegment `json:"segment" db:"segment"`
	Round        int            `json:"round" db:"round"`
	MatchNumber  int            `json:"match_number" db:"match_number"`
	Player1ID    *int           `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int           `json:"player2_id,omitempty" db:"player2_id"`
	Player1Score int            `json:"player1_score" db:"player1_score"`
	Player2Score int            `json:"player2_score" db:"player2_score"`
	WinnerID     *int           `json:"winner_id,omitempty" db:"winner_id"`
	LoserID      *int           `json:"loser_id,omitempty" db:"loser_id"`
	Status       MatchStatus    `json:"status" db:"status"`

	NextMatchID      *int `json:"next_match_id,omitempty" db:"next_match_id"`
	LoserNextMatchID *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`

	// Stage-win memory for Dave's Stupid Rule: stages each player already won
	// a game on within this match. Grows as games complete, cleared only when
	// the bracket is reset.
	Player1WonStages pq.StringArray `json:"player1_won_stages" db:"player1_won_stages"`
	Player2WonStages pq.StringArray `json:"player2_won_stages" db:"player2_won_stages"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasPlayer reports whether the participant occupies one of the match slots.
func (m *Match) HasPlayer(participantID int) bool {
	return (m.Player1ID != nil && *m.Player1ID == participantID) ||
		(m.Player2ID != nil && *m.Player2ID == participantID)
}

// SlotOf returns the slot the participant occupies, or SlotNone.
func (m *Match) SlotOf(participantID int) PlayerSlot {
	switch {
	case m.Player1ID != nil && *m.Player1ID == participantID:
		return SlotPlayer1
	case m.Player2ID != nil && *m.Player2ID == participantID:
		return SlotPlayer2
	default:
		return SlotNone
	}
}

// PlayerInSlot returns the participant id occupying the slot, or nil.
func (m *Match) PlayerInSlot(slot PlayerSlot) *int {
	switch slot {
	case SlotPlayer1:
		return m.Player1ID
	case SlotPlayer2:
		return m.Player2ID
	default:
		return nil
	}
}
