package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smashforge/tournament-server/models"
)

var ErrMatchGameNotFound = errors.New("match game not found")

type MatchGameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.MatchGame) error
	GetCurrentForUpdate(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchGame, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchGame, error)
	Update(ctx context.Context, exec SQLExecutor, game *models.MatchGame) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchGameRepository struct {
	db *sql.DB
}

func NewPostgresMatchGameRepository(db *sql.DB) MatchGameRepository {
	return &postgresMatchGameRepository{db: db}
}

const matchGameColumns = `id, match_id, game_number, phase, current_turn,
	player1_in_lobby, player2_in_lobby, banned_stages, banned_by_player1, banned_by_player2,
	ban_turn_count, selected_stage, previous_winner_id, completed_at, created_at`

func (r *postgresMatchGameRepository) Create(ctx context.Context, exec SQLExecutor, g *models.MatchGame) error {
	query := `
		INSERT INTO match_games
			(match_id, game_number, phase, current_turn, player1_in_lobby, player2_in_lobby,
			 banned_stages, banned_by_player1, banned_by_player2, ban_turn_count,
			 selected_stage, previous_winner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		g.MatchID,
		g.GameNumber,
		g.Phase,
		g.CurrentTurn,
		g.Player1InLobby,
		g.Player2InLobby,
		g.BannedStages,
		g.BannedByPlayer1,
		g.BannedByPlayer2,
		g.BanTurnCount,
		g.SelectedStage,
		g.PreviousWinnerID,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match game: %w", err)
	}
	return nil
}

// GetCurrentForUpdate returns the latest game of the match with its row
// locked, so ban/select transitions apply as one atomic read-modify-write.
func (r *postgresMatchGameRepository) GetCurrentForUpdate(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchGame, error) {
	query := `SELECT ` + matchGameColumns + `
		FROM match_games
		WHERE match_id = $1
		ORDER BY game_number DESC
		LIMIT 1
		FOR UPDATE`

	g := &models.MatchGame{}
	err := scanMatchGame(exec.QueryRowContext(ctx, query, matchID), g)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchGameNotFound
		}
		return nil, fmt.Errorf("failed to scan current game for match %d: %w", matchID, err)
	}
	return g, nil
}

func (r *postgresMatchGameRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchGame, error) {
	query := `SELECT ` + matchGameColumns + ` FROM match_games WHERE match_id = $1 ORDER BY game_number`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query games for match %d: %w", matchID, err)
	}
	defer rows.Close()

	games := make([]*models.MatchGame, 0)
	for rows.Next() {
		g := &models.MatchGame{}
		if err := scanMatchGame(rows, g); err != nil {
			return nil, fmt.Errorf("failed to scan match game row: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match game rows iteration: %w", err)
	}
	return games, nil
}

func (r *postgresMatchGameRepository) Update(ctx context.Context, exec SQLExecutor, g *models.MatchGame) error {
	query := `
		UPDATE match_games
		SET phase = $1, current_turn = $2, player1_in_lobby = $3, player2_in_lobby = $4,
		    banned_stages = $5, banned_by_player1 = $6, banned_by_player2 = $7,
		    ban_turn_count = $8, selected_stage = $9, completed_at = $10
		WHERE id = $11`

	result, err := exec.ExecContext(ctx, query,
		g.Phase, g.CurrentTurn, g.Player1InLobby, g.Player2InLobby,
		g.BannedStages, g.BannedByPlayer1, g.BannedByPlayer2,
		g.BanTurnCount, g.SelectedStage, g.CompletedAt, g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update match game %d: %w", g.ID, err)
	}
	return checkAffectedRows(result, ErrMatchGameNotFound)
}

func (r *postgresMatchGameRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	query := `
		DELETE FROM match_games
		WHERE match_id IN (SELECT id FROM matches WHERE tournament_id = $1)`
	_, err := exec.ExecContext(ctx, query, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete games for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func scanMatchGame(row rowScanner, g *models.MatchGame) error {
	return row.Scan(
		&g.ID,
		&g.MatchID,
		&g.GameNumber,
		&g.Phase,
		&g.CurrentTurn,
		&g.Player1InLobby,
		&g.Player2InLobby,
		&g.BannedStages,
		&g.BannedByPlayer1,
		&g.BannedByPlayer2,
		&g.BanTurnCount,
		&g.SelectedStage,
		&g.PreviousWinnerID,
		&g.CompletedAt,
		&g.CreatedAt,
	)
}
