package models

import "time"

// TournamentStatus matches the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusCheckin      TournamentStatus = "checkin"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
)

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	Format      TournamentFormat `json:"format" db:"format"`
	// BestOf is the series length of every match (3 or 5).
	BestOf int `json:"best_of" db:"best_of"`
	// BracketReset controls whether the losers-bracket finalist gets a second
	// grand-finals match after winning the first one. Only meaningful for
	// double elimination.
	BracketReset bool             `json:"bracket_reset" db:"bracket_reset"`
	MaxEntrants  int              `json:"max_entrants" db:"max_entrants"`
	RegCloseAt   time.Time        `json:"reg_close_at" db:"reg_close_at"`
	StartAt      time.Time        `json:"start_at" db:"start_at"`
	Status       TournamentStatus `json:"status" db:"status"`
	WinnerID     *int             `json:"winner_id,omitempty" db:"winner_id"`
	BannerKey    *string          `json:"-" db:"banner_key"`
	BannerURL    *string          `json:"banner_url,omitempty" db:"-"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`

	// Optional related entities, loaded on demand.
	Organizer    *User         `json:"organizer,omitempty" db:"-"`
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}
