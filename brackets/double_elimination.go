package brackets

import (
	"context"
	"slices"

	"github.com/smashforge/tournament-server/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket builds a winners bracket, a losers bracket of alternating
// minor and major rounds, and a grand-finals pair (the second match is the
// provisioned bracket reset, used only when the losers-bracket finalist wins
// the first one).
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error) {
	participants := sortedBySeed(params.Participants)
	if len(participants) < 2 {
		return nil, ErrInvalidParticipantCount
	}

	b := newBuilder(params.Tournament)
	winnersRounds := b.buildWinnersBracket(participants)
	losersRounds := b.buildLosersBracket(winnersRounds)
	b.buildGrandFinals(winnersRounds, losersRounds)
	b.resolveByes(params.Tournament.BracketReset)

	return b.matches, nil
}

// buildLosersBracket derives the losers bracket from the winners bracket
// structure: 2*(winnersRounds-1) rounds in total. Minor rounds pair survivors
// of the losers bracket among themselves; major rounds pit a winners-bracket
// drop against a minor-round survivor. Drop order is half-swapped on
// alternating major rounds to delay rematches.
func (b *builder) buildLosersBracket(winnersRounds [][]*models.Match) [][]*models.Match {
	w := len(winnersRounds)
	if w < 2 {
		// Two entrants: no losers bracket, the winners-final loser drops
		// straight into grand finals.
		return nil
	}

	rounds := make([][]*models.Match, 0, 2*(w-1))

	first := make([]*models.Match, len(winnersRounds[0])/2)
	for k := range first {
		m := b.newMatch(models.SegmentLosers, 1, k+1)
		winnersRounds[0][2*k].LoserNextMatchID = intp(m.ID)
		winnersRounds[0][2*k+1].LoserNextMatchID = intp(m.ID)
		first[k] = m
	}
	rounds = append(rounds, first)

	roundNum := 1
	for j := 1; j < w; j++ {
		prev := rounds[len(rounds)-1]

		drops := slices.Clone(winnersRounds[j])
		if (j-1)%2 == 0 {
			swapHalves(drops)
		}

		roundNum++
		major := make([]*models.Match, len(drops))
		for k := range major {
			m := b.newMatch(models.SegmentLosers, roundNum, k+1)
			drops[k].LoserNextMatchID = intp(m.ID)
			prev[k].NextMatchID = intp(m.ID)
			major[k] = m
		}
		rounds = append(rounds, major)

		if j < w-1 {
			roundNum++
			minor := make([]*models.Match, len(major)/2)
			for k := range minor {
				m := b.newMatch(models.SegmentLosers, roundNum, k+1)
				major[2*k].NextMatchID = intp(m.ID)
				major[2*k+1].NextMatchID = intp(m.ID)
				minor[k] = m
			}
			rounds = append(rounds, minor)
		}
	}

	return rounds
}

func (b *builder) buildGrandFinals(winnersRounds, losersRounds [][]*models.Match) {
	gf1 := b.newMatch(models.SegmentGrands, 1, 1)
	gf2 := b.newMatch(models.SegmentGrands, 2, 1)
	gf1.NextMatchID = intp(gf2.ID)

	winnersFinal := winnersRounds[len(winnersRounds)-1][0]
	winnersFinal.NextMatchID = intp(gf1.ID)

	if len(losersRounds) > 0 {
		losersFinal := losersRounds[len(losersRounds)-1][0]
		losersFinal.NextMatchID = intp(gf1.ID)
	} else {
		winnersFinal.LoserNextMatchID = intp(gf1.ID)
	}
}
