package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smashforge/tournament-server/brackets"
	"github.com/smashforge/tournament-server/models"
	"github.com/smashforge/tournament-server/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error)
	GetBracket(ctx context.Context, tournamentID int) (*models.Tournament, error)
	DeleteBracket(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error
}

type bracketService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	gameRepo        repositories.MatchGameRepository
	logger          *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	gameRepo repositories.MatchGameRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		gameRepo:        gameRepo,
		logger:          logger,
	}
}

// GenerateAndSaveBracket runs the generator for the tournament's format over
// its checked-in participants and persists the whole match graph in one
// transaction. Generated matches carry synthetic ids; the save inserts every
// match first, then rewrites the forward links with the database ids.
func (s *bracketService) GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, tournament.ID, true, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list checked-in participants for tournament %d: %w", tournament.ID, err)
	}
	if len(participants) < 2 {
		return nil, brackets.ErrInvalidParticipantCount
	}

	var generator brackets.BracketGenerator
	switch tournament.Format {
	case models.FormatSingleElimination:
		generator = brackets.NewSingleEliminationGenerator()
	case models.FormatDoubleElimination:
		generator = brackets.NewDoubleEliminationGenerator()
	default:
		return nil, ErrInvalidFormat
	}

	generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament:   tournament,
		Participants: participants,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s bracket for tournament %d: %w",
			generator.GetName(), tournament.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// First pass: insert every match without links, remembering the mapping
	// from synthetic build id to database id.
	dbIDBySynthetic := make(map[int]int, len(generated))
	for _, m := range generated {
		syntheticID := m.ID
		if err := s.matchRepo.Create(ctx, tx, m); err != nil {
			return nil, err
		}
		dbIDBySynthetic[syntheticID] = m.ID
	}

	// Second pass: rewrite forward links onto database ids.
	for _, m := range generated {
		changed := false
		if m.NextMatchID != nil {
			dbID, ok := dbIDBySynthetic[*m.NextMatchID]
			if !ok {
				return nil, fmt.Errorf("next match link of match %d points outside the build", m.ID)
			}
			m.NextMatchID = &dbID
			changed = true
		}
		if m.LoserNextMatchID != nil {
			dbID, ok := dbIDBySynthetic[*m.LoserNextMatchID]
			if !ok {
				return nil, fmt.Errorf("loser match link of match %d points outside the build", m.ID)
			}
			m.LoserNextMatchID = &dbID
			changed = true
		}
		if changed {
			if err := s.matchRepo.UpdateLinks(ctx, tx, m.ID, m.NextMatchID, m.LoserNextMatchID); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket for tournament %d: %w", tournament.ID, err)
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.String("generator", generator.GetName()),
		slog.Int("participants", len(participants)),
		slog.Int("matches", len(generated)),
	)
	return generated, nil
}

// GetBracket loads the tournament with its participants and full match graph,
// fetching the related sets in parallel.
func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, tournamentID, false, true)
		if err != nil {
			return fmt.Errorf("failed to fetch participants for tournament %d: %w", tournamentID, err)
		}
		tournament.Participants = make([]models.Participant, len(participants))
		for i, p := range participants {
			tournament.Participants[i] = *p
		}
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, s.db, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to fetch matches for tournament %d: %w", tournamentID, err)
		}
		tournament.Matches = make([]models.Match, len(matches))
		for i, m := range matches {
			tournament.Matches[i] = *m
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

// DeleteBracket removes every match and game of the tournament and clears
// participant eliminations, as part of a full bracket reset.
func (s *bracketService) DeleteBracket(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	if err := s.gameRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
		return err
	}
	if err := s.matchRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
		return err
	}
	return s.participantRepo.ClearEliminations(ctx, exec, tournamentID)
}
