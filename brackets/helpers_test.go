package brackets

import (
	"github.com/smashforge/tournament-server/models"
)

func testTournament(format models.TournamentFormat, reset bool) *models.Tournament {
	return &models.Tournament{
		ID:           42,
		Format:       format,
		BestOf:       3,
		BracketReset: reset,
		Status:       models.StatusActive,
	}
}

// testParticipants returns n participants with ids 101..100+n seeded 1..n.
func testParticipants(n int) []*models.Participant {
	participants := make([]*models.Participant, n)
	for i := 0; i < n; i++ {
		seed := i + 1
		participants[i] = &models.Participant{
			ID:           101 + i,
			TournamentID: 42,
			Seed:         &seed,
			CheckedIn:    true,
		}
	}
	return participants
}

func bySegment(matches []*models.Match, segment models.BracketSegment) []*models.Match {
	var out []*models.Match
	for _, m := range matches {
		if m.Segment == segment {
			out = append(out, m)
		}
	}
	return out
}

func findMatch(matches []*models.Match, segment models.BracketSegment, round, number int) *models.Match {
	for _, m := range matches {
		if m.Segment == segment && m.Round == round && m.MatchNumber == number {
			return m
		}
	}
	return nil
}
