package brackets

import (
	"github.com/smashforge/tournament-server/models"
)

type PropagateOptions struct {
	// BracketReset enables the second grand-finals match when the
	// losers-bracket finalist wins the first one.
	BracketReset bool
}

// Propagation is the closed set of records changed by one reported result,
// including cascaded bye advances. The caller persists Changed transactionally
// so a crash cannot leave the source match completed but its fan-out missing.
type Propagation struct {
	Changed    []*models.Match
	Eliminated []int
	Complete   bool
	ChampionID *int
}

// Propagate marks the match completed with the given result and advances the
// winner and loser through the bracket graph. The snapshot is mutated in
// place; the returned Propagation lists exactly the matches that changed.
//
// Calling it again with the same result is a no-op for downstream slots: a
// player already placed is never duplicated.
func Propagate(snapshot []*models.Match, matchID, winnerID, loserID int, opts PropagateOptions) (*Propagation, error) {
	a := newArena(snapshot, opts)

	m, ok := a.byID[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.Player1ID == nil || m.Player2ID == nil {
		return nil, ErrInconsistentResult
	}
	p1, p2 := *m.Player1ID, *m.Player2ID
	if !(winnerID == p1 && loserID == p2) && !(winnerID == p2 && loserID == p1) {
		return nil, ErrInconsistentResult
	}

	a.complete(m, intp(winnerID), intp(loserID), models.MatchStatusCompleted)
	return a.result(), nil
}

// PropagateDisqualification completes a match by disqualification. With one
// disqualified player the other advances as winner; with both disqualified the
// match produces no winner and the downstream slots stay permanently empty,
// cascading byes further down the graph. Disqualified players never drop into
// the losers bracket.
func PropagateDisqualification(snapshot []*models.Match, matchID int, dqIDs []int, opts PropagateOptions) (*Propagation, error) {
	a := newArena(snapshot, opts)

	m, ok := a.byID[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.Player1ID == nil || m.Player2ID == nil || len(dqIDs) == 0 || len(dqIDs) > 2 {
		return nil, ErrInconsistentResult
	}
	for _, id := range dqIDs {
		if !m.HasPlayer(id) {
			return nil, ErrInconsistentResult
		}
	}

	if len(dqIDs) == 2 && dqIDs[0] != dqIDs[1] {
		m.Status = models.MatchStatusDQ
		m.WinnerID = nil
		m.LoserID = nil
		a.markChanged(m)
		for _, id := range dqIDs {
			a.eliminate(id)
		}
		a.checkDownstream(m)
		return a.result(), nil
	}

	dq := dqIDs[0]
	winner := *m.Player1ID
	if winner == dq {
		winner = *m.Player2ID
	}

	m.Status = models.MatchStatusDQ
	m.WinnerID = intp(winner)
	m.LoserID = intp(dq)
	a.markChanged(m)
	a.eliminate(dq)

	if m.Segment == models.SegmentGrands {
		a.completeGrands(m)
	} else if m.NextMatchID != nil {
		a.place(*m.NextMatchID, winner)
	} else {
		a.crown(winner)
	}
	// The loser slot downstream stays empty.
	if m.LoserNextMatchID != nil {
		a.checkAuto(a.byID[*m.LoserNextMatchID])
	}
	return a.result(), nil
}

// arena indexes a bracket snapshot by id for propagation. Forward links are
// plain identifier fields, so the graph stays free of ownership cycles.
type arena struct {
	byID    map[int]*models.Match
	feeders map[int][]*models.Match
	opts    PropagateOptions

	changed     map[int]bool
	changeOrder []*models.Match
	eliminated      []int
	bracketComplete bool
	championID      *int
}

func newArena(snapshot []*models.Match, opts PropagateOptions) *arena {
	a := &arena{
		byID:    make(map[int]*models.Match, len(snapshot)),
		feeders: make(map[int][]*models.Match),
		opts:    opts,
		changed: make(map[int]bool),
	}
	for _, m := range snapshot {
		a.byID[m.ID] = m
	}
	for _, m := range snapshot {
		if m.NextMatchID != nil {
			a.feeders[*m.NextMatchID] = append(a.feeders[*m.NextMatchID], m)
		}
		if m.LoserNextMatchID != nil {
			a.feeders[*m.LoserNextMatchID] = append(a.feeders[*m.LoserNextMatchID], m)
		}
	}
	return a
}

func (a *arena) result() *Propagation {
	return &Propagation{
		Changed:    a.changeOrder,
		Eliminated: a.eliminated,
		Complete:   a.bracketComplete,
		ChampionID: a.championID,
	}
}

func (a *arena) markChanged(m *models.Match) {
	if !a.changed[m.ID] {
		a.changed[m.ID] = true
		a.changeOrder = append(a.changeOrder, m)
	}
}

func (a *arena) eliminate(participantID int) {
	for _, id := range a.eliminated {
		if id == participantID {
			return
		}
	}
	a.eliminated = append(a.eliminated, participantID)
}

func (a *arena) crown(participantID int) {
	a.bracketComplete = true
	a.championID = intp(participantID)
}

// complete records the result on the match and fans the winner and loser out
// along the forward links. A nil winner marks a dead match (double DQ upstream
// or two byes meeting in the losers bracket).
func (a *arena) complete(m *models.Match, winnerID, loserID *int, status models.MatchStatus) {
	m.Status = status
	m.WinnerID = winnerID
	m.LoserID = loserID
	a.markChanged(m)

	if m.Segment == models.SegmentGrands {
		a.completeGrands(m)
		return
	}

	if winnerID != nil {
		if m.NextMatchID != nil {
			a.place(*m.NextMatchID, *winnerID)
		} else {
			a.crown(*winnerID)
		}
	} else if m.NextMatchID != nil {
		a.checkAuto(a.byID[*m.NextMatchID])
	}

	if loserID != nil {
		if m.LoserNextMatchID != nil {
			a.place(*m.LoserNextMatchID, *loserID)
		} else {
			a.eliminate(*loserID)
		}
	} else if m.LoserNextMatchID != nil {
		a.checkAuto(a.byID[*m.LoserNextMatchID])
	}
}

// completeGrands handles the grand-finals special case. The first grand-finals
// match activates the provisioned reset match only when the winner arrived
// through the losers bracket and the reset option is on; otherwise the reset
// match is closed unused and the tournament is over.
func (a *arena) completeGrands(m *models.Match) {
	if m.Round == 1 {
		var reset *models.Match
		if m.NextMatchID != nil {
			reset = a.byID[*m.NextMatchID]
		}

		if m.WinnerID != nil && a.opts.BracketReset && reset != nil && a.cameFromLosers(m, *m.WinnerID) {
			reset.Player1ID = m.WinnerID
			reset.Player2ID = m.LoserID
			reset.Status = models.MatchStatusPending
			a.markChanged(reset)
			return
		}

		if reset != nil && reset.Status != models.MatchStatusCompleted {
			reset.Status = models.MatchStatusCompleted
			a.markChanged(reset)
		}
	}

	if m.LoserID != nil {
		a.eliminate(*m.LoserID)
	}
	if m.WinnerID != nil {
		a.crown(*m.WinnerID)
	}
}

// cameFromLosers reports whether the participant reached the grand-finals
// match through the losers bracket, either by winning the losers final or by
// dropping straight in from the winners final (two-entrant brackets).
func (a *arena) cameFromLosers(gf *models.Match, participantID int) bool {
	for _, f := range a.feeders[gf.ID] {
		if f.NextMatchID != nil && *f.NextMatchID == gf.ID &&
			f.Segment == models.SegmentLosers &&
			f.WinnerID != nil && *f.WinnerID == participantID {
			return true
		}
		if f.LoserNextMatchID != nil && *f.LoserNextMatchID == gf.ID &&
			f.LoserID != nil && *f.LoserID == participantID {
			return true
		}
	}
	return false
}

// place advances a participant into the first empty slot of the destination
// match. Placing an already-present participant is a no-op, which makes
// propagation idempotent.
func (a *arena) place(destID, participantID int) {
	dest := a.byID[destID]
	if dest == nil {
		return
	}
	if !dest.HasPlayer(participantID) {
		switch {
		case dest.Player1ID == nil:
			dest.Player1ID = intp(participantID)
		case dest.Player2ID == nil:
			dest.Player2ID = intp(participantID)
		default:
			return
		}
		a.markChanged(dest)
	}
	a.checkAuto(dest)
}

// checkAuto resolves byes: once every match feeding into dest has completed,
// a single occupant advances without playing, and an empty match dies and
// cascades onward.
func (a *arena) checkAuto(dest *models.Match) {
	if dest == nil || dest.Status == models.MatchStatusCompleted || dest.Status == models.MatchStatusDQ {
		return
	}
	for _, f := range a.feeders[dest.ID] {
		if f.Status != models.MatchStatusCompleted && f.Status != models.MatchStatusDQ {
			return
		}
	}

	switch {
	case dest.Player1ID != nil && dest.Player2ID != nil:
		// Both slots filled: ready to be played.
	case dest.Player1ID != nil:
		a.complete(dest, dest.Player1ID, nil, models.MatchStatusCompleted)
	case dest.Player2ID != nil:
		a.complete(dest, dest.Player2ID, nil, models.MatchStatusCompleted)
	default:
		a.complete(dest, nil, nil, models.MatchStatusCompleted)
	}
}

func (a *arena) checkDownstream(m *models.Match) {
	if m.NextMatchID != nil {
		a.checkAuto(a.byID[*m.NextMatchID])
	}
	if m.LoserNextMatchID != nil {
		a.checkAuto(a.byID[*m.LoserNextMatchID])
	}
}
