package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/smashforge/tournament-server/models"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantConflict = errors.New("user is already registered for this tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	GetByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, checkedInOnly bool, withUsers bool) ([]*models.Participant, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error
	SetCheckedIn(ctx context.Context, id int, checkedIn bool) error
	SetEliminated(ctx context.Context, exec SQLExecutor, tournamentID int, participantIDs []int) error
	ClearEliminations(ctx context.Context, exec SQLExecutor, tournamentID int) error
	Delete(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, user_id, seed)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, p.TournamentID, p.UserID, p.Seed).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "participants_tournament_id_user_id_key" {
			return ErrParticipantConflict
		}
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, seed, checked_in, eliminated, created_at
		FROM participants
		WHERE id = $1`

	p := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.Seed, &p.CheckedIn, &p.Eliminated, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) GetByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, seed, checked_in, eliminated, created_at
		FROM participants
		WHERE tournament_id = $1 AND user_id = $2`

	p := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, userID).Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.Seed, &p.CheckedIn, &p.Eliminated, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, checkedInOnly bool, withUsers bool) ([]*models.Participant, error) {
	query := `
		SELECT p.id, p.tournament_id, p.user_id, p.seed, p.checked_in, p.eliminated, p.created_at,
		       u.id, u.tag, u.email, u.role, u.created_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.tournament_id = $1`
	if checkedInOnly {
		query += ` AND p.checked_in = TRUE`
	}
	query += ` ORDER BY p.seed NULLS LAST, p.id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		u := &models.User{}
		if err := rows.Scan(
			&p.ID, &p.TournamentID, &p.UserID, &p.Seed, &p.CheckedIn, &p.Eliminated, &p.CreatedAt,
			&u.ID, &u.Tag, &u.Email, &u.Role, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		if withUsers {
			p.User = u
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresParticipantRepository) UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error {
	result, err := exec.ExecContext(ctx, `UPDATE participants SET seed = $1 WHERE id = $2`, seed, id)
	if err != nil {
		return fmt.Errorf("failed to update seed for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) SetCheckedIn(ctx context.Context, id int, checkedIn bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE participants SET checked_in = $1 WHERE id = $2`, checkedIn, id)
	if err != nil {
		return fmt.Errorf("failed to update check-in for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) SetEliminated(ctx context.Context, exec SQLExecutor, tournamentID int, participantIDs []int) error {
	if len(participantIDs) == 0 {
		return nil
	}
	_, err := exec.ExecContext(ctx,
		`UPDATE participants SET eliminated = TRUE WHERE tournament_id = $1 AND id = ANY($2)`,
		tournamentID, pq.Array(participantIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to mark participants eliminated: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) ClearEliminations(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := exec.ExecContext(ctx,
		`UPDATE participants SET eliminated = FALSE WHERE tournament_id = $1`, tournamentID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear eliminations for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
