package models

import "time"

type Participant struct {
	ID           int `json:"id" db:"id"`
	TournamentID int `json:"tournament_id" db:"tournament_id"`
	UserID       int `json:"user_id" db:"user_id"`
	// Seed is assigned before bracket generation; 1 is the top seed.
	Seed       *int      `json:"seed,omitempty" db:"seed"`
	CheckedIn  bool      `json:"checked_in" db:"checked_in"`
	Eliminated bool      `json:"eliminated" db:"eliminated"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
