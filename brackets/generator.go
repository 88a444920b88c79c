package brackets

import (
	"context"
	"errors"

	"github.com/smashforge/tournament-server/models"
)

var (
	// ErrInvalidParticipantCount is returned when fewer than two participants
	// are supplied to a generator.
	ErrInvalidParticipantCount = errors.New("at least 2 participants are required to generate a bracket")

	// ErrMatchNotFound is returned when a propagated match id is absent from
	// the bracket snapshot.
	ErrMatchNotFound = errors.New("match not found in bracket")

	// ErrInconsistentResult is returned when the reported winner and loser are
	// not exactly the two players of the match.
	ErrInconsistentResult = errors.New("winner and loser do not match the players of this match")
)

type GenerateBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant
}

// BracketGenerator produces the full match graph for a tournament. Generated
// matches carry synthetic sequential ids (1-based, local to the build) in their
// ID, NextMatchID and LoserNextMatchID fields; the persistence layer remaps
// them to database ids. Byes are resolved at build time, so single-occupant
// first-round matches come back completed with their winner already advanced.
type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error)

	GetName() string
}
