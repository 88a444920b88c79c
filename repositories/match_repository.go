package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smashforge/tournament-server/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	UpdateLinks(ctx context.Context, exec SQLExecutor, id int, nextMatchID, loserNextMatchID *int) error
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct{}

func NewPostgresMatchRepository() MatchRepository {
	return &postgresMatchRepository{}
}

const matchColumns = `id, tournament_id, segment, round, match_number,
	player1_id, player2_id, player1_score, player2_score, winner_id, loser_id,
	status, next_match_id, loser_next_match_id, player1_won_stages, player2_won_stages, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, segment, round, match_number, player1_id, player2_id,
			 player1_score, player2_score, winner_id, loser_id, status,
			 next_match_id, loser_next_match_id, player1_won_stages, player2_won_stages)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		m.TournamentID,
		m.Segment,
		m.Round,
		m.MatchNumber,
		m.Player1ID,
		m.Player2ID,
		m.Player1Score,
		m.Player2Score,
		m.WinnerID,
		m.LoserID,
		m.Status,
		m.NextMatchID,
		m.LoserNextMatchID,
		m.Player1WonStages,
		m.Player2WonStages,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

// GetByIDForUpdate locks the match row for the duration of the surrounding
// transaction so concurrent result reports serialize.
func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresMatchRepository) scanOne(row *sql.Row, id int) (*models.Match, error) {
	m := &models.Match{}
	err := scanMatch(row, m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY id`

	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := scanMatch(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, id int, nextMatchID, loserNextMatchID *int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET next_match_id = $1, loser_next_match_id = $2 WHERE id = $3`,
		nextMatchID, loserNextMatchID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update links for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// Update persists every mutable field of the match in one statement, which
// keeps propagation fan-out writes simple.
func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches
		SET player1_id = $1, player2_id = $2, player1_score = $3, player2_score = $4,
		    winner_id = $5, loser_id = $6, status = $7,
		    player1_won_stages = $8, player2_won_stages = $9
		WHERE id = $10`

	result, err := exec.ExecContext(ctx, query,
		m.Player1ID, m.Player2ID, m.Player1Score, m.Player2Score,
		m.WinnerID, m.LoserID, m.Status,
		m.Player1WonStages, m.Player2WonStages, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update match %d: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	result, err := exec.ExecContext(ctx, `UPDATE matches SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func scanMatch(row rowScanner, m *models.Match) error {
	return row.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Segment,
		&m.Round,
		&m.MatchNumber,
		&m.Player1ID,
		&m.Player2ID,
		&m.Player1Score,
		&m.Player2Score,
		&m.WinnerID,
		&m.LoserID,
		&m.Status,
		&m.NextMatchID,
		&m.LoserNextMatchID,
		&m.Player1WonStages,
		&m.Player2WonStages,
		&m.CreatedAt,
	)
}
