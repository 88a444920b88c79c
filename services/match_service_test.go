package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/smashforge/tournament-server/models"
	"github.com/smashforge/tournament-server/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMatchRepo struct {
	byID    map[int]*models.Match
	updated []*models.Match
}

func (r *stubMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.byID[m.ID] = m
	return nil
}

func (r *stubMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.get(id)
}

func (r *stubMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.get(id)
}

func (r *stubMatchRepo) get(id int) (*models.Match, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	found := *m
	return &found, nil
}

func (r *stubMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	matches := make([]*models.Match, 0, len(r.byID))
	for _, m := range r.byID {
		if m.TournamentID == tournamentID {
			found := *m
			matches = append(matches, &found)
		}
	}
	return matches, nil
}

func (r *stubMatchRepo) UpdateLinks(ctx context.Context, exec repositories.SQLExecutor, id int, nextMatchID, loserNextMatchID *int) error {
	return nil
}

func (r *stubMatchRepo) Update(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	saved := *m
	r.byID[m.ID] = &saved
	r.updated = append(r.updated, &saved)
	return nil
}

func (r *stubMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus) error {
	if m, ok := r.byID[id]; ok {
		m.Status = status
	}
	return nil
}

func (r *stubMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return nil
}

type stubGameRepo struct {
	current *models.MatchGame
	created []*models.MatchGame
	updated []*models.MatchGame
}

func (r *stubGameRepo) Create(ctx context.Context, exec repositories.SQLExecutor, g *models.MatchGame) error {
	g.ID = 100 + len(r.created)
	r.created = append(r.created, g)
	return nil
}

func (r *stubGameRepo) GetCurrentForUpdate(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.MatchGame, error) {
	if r.current == nil || r.current.MatchID != matchID {
		return nil, repositories.ErrMatchGameNotFound
	}
	found := *r.current
	return &found, nil
}

func (r *stubGameRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchGame, error) {
	return nil, nil
}

func (r *stubGameRepo) Update(ctx context.Context, exec repositories.SQLExecutor, g *models.MatchGame) error {
	saved := *g
	r.current = &saved
	r.updated = append(r.updated, &saved)
	return nil
}

func (r *stubGameRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return nil
}

type stubTournamentRepo struct {
	tournament *models.Tournament
	winnerID   *int
	status     models.TournamentStatus
}

func (r *stubTournamentRepo) Create(ctx context.Context, t *models.Tournament) error { return nil }

func (r *stubTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	if r.tournament == nil || r.tournament.ID != id {
		return nil, repositories.ErrTournamentNotFound
	}
	found := *r.tournament
	return &found, nil
}

func (r *stubTournamentRepo) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	return nil, nil
}

func (r *stubTournamentRepo) Update(ctx context.Context, t *models.Tournament) error { return nil }

func (r *stubTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.status = status
	return nil
}

func (r *stubTournamentRepo) UpdateWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerID *int) error {
	r.winnerID = winnerID
	return nil
}

func (r *stubTournamentRepo) UpdateBannerKey(ctx context.Context, id int, key *string) error {
	return nil
}

func (r *stubTournamentRepo) ListDueForCheckin(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	return nil, nil
}

type stubParticipantRepo struct {
	byUser     map[int]*models.Participant
	eliminated []int
}

func (r *stubParticipantRepo) Create(ctx context.Context, p *models.Participant) error { return nil }

func (r *stubParticipantRepo) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	for _, p := range r.byUser {
		if p.ID == id {
			found := *p
			return &found, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *stubParticipantRepo) GetByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	p, ok := r.byUser[userID]
	if !ok || p.TournamentID != tournamentID {
		return nil, repositories.ErrParticipantNotFound
	}
	found := *p
	return &found, nil
}

func (r *stubParticipantRepo) ListByTournament(ctx context.Context, tournamentID int, checkedInOnly bool, withUsers bool) ([]*models.Participant, error) {
	return nil, nil
}

func (r *stubParticipantRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	return len(r.byUser), nil
}

func (r *stubParticipantRepo) UpdateSeed(ctx context.Context, exec repositories.SQLExecutor, id int, seed *int) error {
	return nil
}

func (r *stubParticipantRepo) SetCheckedIn(ctx context.Context, id int, checkedIn bool) error {
	return nil
}

func (r *stubParticipantRepo) SetEliminated(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, participantIDs []int) error {
	r.eliminated = append(r.eliminated, participantIDs...)
	return nil
}

func (r *stubParticipantRepo) ClearEliminations(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return nil
}

func (r *stubParticipantRepo) Delete(ctx context.Context, id int) error { return nil }

type matchFixture struct {
	svc             MatchService
	mock            sqlmock.Sqlmock
	matchRepo       *stubMatchRepo
	gameRepo        *stubGameRepo
	tournamentRepo  *stubTournamentRepo
	participantRepo *stubParticipantRepo
}

// newMatchFixture wires the match service against stub repositories and a
// mocked connection that only has to satisfy the transaction boundary.
func newMatchFixture(t *testing.T, match *models.Match, game *models.MatchGame) *matchFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	matchRepo := &stubMatchRepo{byID: map[int]*models.Match{match.ID: match}}
	gameRepo := &stubGameRepo{current: game}
	tournamentRepo := &stubTournamentRepo{tournament: &models.Tournament{
		ID:           match.TournamentID,
		Status:       models.StatusActive,
		Format:       models.FormatSingleElimination,
		BestOf:       5,
		BracketReset: true,
	}}
	participantRepo := &stubParticipantRepo{byUser: map[int]*models.Participant{
		1: {ID: 101, TournamentID: match.TournamentID, UserID: 1},
		2: {ID: 102, TournamentID: match.TournamentID, UserID: 2},
		3: {ID: 103, TournamentID: match.TournamentID, UserID: 3, Eliminated: true},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewMatchService(db, tournamentRepo, participantRepo, matchRepo, gameRepo, nil, logger)

	return &matchFixture{
		svc:             svc,
		mock:            mock,
		matchRepo:       matchRepo,
		gameRepo:        gameRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
	}
}

func playingMatch() *models.Match {
	return &models.Match{
		ID:           7,
		TournamentID: 42,
		Segment:      models.SegmentWinners,
		Round:        1,
		MatchNumber:  1,
		Player1ID:    intPtr(101),
		Player2ID:    intPtr(102),
		Status:       models.MatchStatusPlaying,
	}
}

func playingGame(number int, stage string) *models.MatchGame {
	return &models.MatchGame{
		ID:            50,
		MatchID:       7,
		GameNumber:    number,
		Phase:         models.PhasePlaying,
		SelectedStage: strPtr(stage),
	}
}

func TestReportGameWinnerRejectsNonPlayers(t *testing.T) {
	cases := []struct {
		name           string
		reporterUserID int
	}{
		// participant 103 is registered for the tournament but plays
		// elsewhere in the bracket
		{"other participant of the tournament", 3},
		{"user without a registration", 99},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newMatchFixture(t, playingMatch(), playingGame(1, "battlefield"))
			fx.mock.ExpectBegin()
			fx.mock.ExpectRollback()

			_, err := fx.svc.ReportGameWinner(context.Background(), 7, tc.reporterUserID, 101)
			assert.ErrorIs(t, err, ErrNotAPlayer)
			assert.Empty(t, fx.matchRepo.updated)
			assert.Empty(t, fx.gameRepo.updated)
			assert.NoError(t, fx.mock.ExpectationsWereMet())
		})
	}
}

func TestReportGameWinnerAcceptsEitherPlayer(t *testing.T) {
	// The losing side reports the winner's game; the result still counts.
	fx := newMatchFixture(t, playingMatch(), playingGame(1, "battlefield"))
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	updated, err := fx.svc.ReportGameWinner(context.Background(), 7, 2, 101)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Player1Score)
	assert.Equal(t, 0, updated.Player2Score)

	require.Len(t, fx.gameRepo.updated, 1)
	completed := fx.gameRepo.updated[0]
	assert.Equal(t, models.PhaseCompleted, completed.Phase)
	assert.NotNil(t, completed.CompletedAt)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestReportGameWinnerKeepsWonStagesDuplicateFree(t *testing.T) {
	match := playingMatch()
	match.Player1Score = 1
	match.Player2Score = 1
	match.Player1WonStages = pq.StringArray{"battlefield"}
	match.Player2WonStages = pq.StringArray{"smashville"}

	// Player 2 picked battlefield back; a second win there must not store a
	// duplicate entry.
	fx := newMatchFixture(t, match, playingGame(3, "battlefield"))
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	updated, err := fx.svc.ReportGameWinner(context.Background(), 7, 1, 101)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Player1Score)
	assert.Equal(t, pq.StringArray{"battlefield"}, updated.Player1WonStages)
	assert.Equal(t, pq.StringArray{"smashville"}, updated.Player2WonStages)

	require.Len(t, fx.gameRepo.created, 1)
	next := fx.gameRepo.created[0]
	assert.Equal(t, 4, next.GameNumber)
	assert.Equal(t, models.PhaseLobby, next.Phase)
	require.NotNil(t, next.PreviousWinnerID)
	assert.Equal(t, 101, *next.PreviousWinnerID)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestReportGameWinnerCompletesSeriesAndTournament(t *testing.T) {
	match := playingMatch()
	match.Player1Score = 2
	match.Player2Score = 1

	fx := newMatchFixture(t, match, playingGame(4, "final_destination"))
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	updated, err := fx.svc.ReportGameWinner(context.Background(), 7, 1, 101)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Player1Score)

	stored := fx.matchRepo.byID[7]
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, 101, *stored.WinnerID)
	assert.Equal(t, models.MatchStatusCompleted, stored.Status)

	// A one-match bracket crowns the winner immediately.
	assert.Equal(t, []int{102}, fx.participantRepo.eliminated)
	assert.Equal(t, models.StatusCompleted, fx.tournamentRepo.status)
	require.NotNil(t, fx.tournamentRepo.winnerID)
	assert.Equal(t, 101, *fx.tournamentRepo.winnerID)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }
