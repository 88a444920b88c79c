package brackets

import (
	"context"

	"github.com/smashforge/tournament-server/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds a single-elimination tree of bracketSize-1 matches,
// where bracketSize is the next power of two at or above the participant
// count. Byes auto-advance their occupant at build time.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error) {
	participants := sortedBySeed(params.Participants)
	if len(participants) < 2 {
		return nil, ErrInvalidParticipantCount
	}

	b := newBuilder(params.Tournament)
	b.buildWinnersBracket(participants)
	b.resolveByes(false)

	return b.matches, nil
}
