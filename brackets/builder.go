package brackets

import (
	"sort"

	"github.com/lib/pq"
	"github.com/smashforge/tournament-server/models"
)

// builder accumulates matches during bracket generation, handing out synthetic
// sequential ids that the persistence layer later remaps to database ids.
type builder struct {
	tournamentID int
	nextID       int
	matches      []*models.Match
}

func newBuilder(tournament *models.Tournament) *builder {
	return &builder{tournamentID: tournament.ID}
}

func (b *builder) newMatch(segment models.BracketSegment, round, number int) *models.Match {
	b.nextID++
	m := &models.Match{
		ID:               b.nextID,
		TournamentID:     b.tournamentID,
		Segment:          segment,
		Round:            round,
		MatchNumber:      number,
		Status:           models.MatchStatusPending,
		Player1WonStages: pq.StringArray{},
		Player2WonStages: pq.StringArray{},
	}
	b.matches = append(b.matches, m)
	return m
}

// buildWinnersBracket creates the full winners-bracket tree for the given
// participants, links every match to the one its winner advances into, and
// seeds round 1 in standard tournament order. Returns the matches grouped by
// round, first round first.
func (b *builder) buildWinnersBracket(participants []*models.Participant) [][]*models.Match {
	size := bracketSize(len(participants))
	rounds := make([][]*models.Match, numRounds(size))

	for r := range rounds {
		count := size >> (r + 1)
		round := make([]*models.Match, count)
		for k := range round {
			round[k] = b.newMatch(models.SegmentWinners, r+1, k+1)
		}
		rounds[r] = round
	}

	for r := 0; r < len(rounds)-1; r++ {
		for k, m := range rounds[r] {
			m.NextMatchID = intp(rounds[r+1][k/2].ID)
		}
	}

	order := seedOrder(size)
	for i := 0; i < size; i += 2 {
		m := rounds[0][i/2]
		if order[i] < len(participants) {
			m.Player1ID = intp(participants[order[i]].ID)
		}
		if order[i+1] < len(participants) {
			m.Player2ID = intp(participants[order[i+1]].ID)
		}
	}

	return rounds
}

// resolveByes runs the propagation cascade over the freshly built graph so
// that single-occupant matches complete without a reported result.
func (b *builder) resolveByes(reset bool) {
	a := newArena(b.matches, PropagateOptions{BracketReset: reset})
	for _, m := range b.matches {
		a.checkAuto(m)
	}
}

// sortedBySeed returns a copy of the participants ordered by seed (1 first).
// Participants without a seed sort last, ties break on id so the order is
// stable for any input.
func sortedBySeed(participants []*models.Participant) []*models.Participant {
	sorted := make([]*models.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Seed, sorted[j].Seed
		switch {
		case si == nil && sj == nil:
			return sorted[i].ID < sorted[j].ID
		case si == nil:
			return false
		case sj == nil:
			return true
		case *si != *sj:
			return *si < *sj
		default:
			return sorted[i].ID < sorted[j].ID
		}
	})
	return sorted
}

// bracketSize returns the smallest power of two that fits n participants.
func bracketSize(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

func numRounds(size int) int {
	rounds := 0
	for s := size; s > 1; s >>= 1 {
		rounds++
	}
	return rounds
}

// seedOrder returns 0-based seed indexes arranged in standard bracket order
// for a bracket of the given size: adjacent pairs form round-1 matches, and
// the top two seeds can only meet in the final. Byes fall on the highest
// indexes, so the best seeds receive them first.
func seedOrder(size int) []int {
	order := []int{0}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		total := len(order) * 2
		for _, s := range order {
			next = append(next, s, total-1-s)
		}
		order = next
	}
	return order
}

func swapHalves(matches []*models.Match) {
	for i, j := 0, len(matches)/2; j < len(matches); i, j = i+1, j+1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
}

func intp(v int) *int {
	p := v
	return &p
}
