package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smashforge/tournament-server/models"
	"github.com/smashforge/tournament-server/repositories"
)

type SeedAssignment struct {
	ParticipantID int  `json:"participant_id"`
	Seed          *int `json:"seed"`
}

type ParticipantService interface {
	Register(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
	CheckIn(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
	Withdraw(ctx context.Context, tournamentID, userID int) error
	List(ctx context.Context, tournamentID int) ([]*models.Participant, error)
	SetSeeds(ctx context.Context, tournamentID, organizerID int, assignments []SeedAssignment) error
}

type participantService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
}

func NewParticipantService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
) ParticipantService {
	return &participantService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
	}
}

func (s *participantService) Register(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	count, err := s.participantRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if count >= tournament.MaxEntrants {
		return nil, ErrTournamentFull
	}

	participant := &models.Participant{
		TournamentID: tournamentID,
		UserID:       userID,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return nil, ErrRegistrationConflict
		}
		return nil, err
	}
	return participant, nil
}

func (s *participantService) CheckIn(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusCheckin {
		return nil, ErrCheckinNotOpen
	}

	participant, err := s.participantRepo.GetByTournamentAndUser(ctx, tournamentID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	if participant.CheckedIn {
		return participant, nil
	}
	if err := s.participantRepo.SetCheckedIn(ctx, participant.ID, true); err != nil {
		return nil, err
	}
	participant.CheckedIn = true
	return participant, nil
}

// Withdraw removes the caller's registration. Only allowed before the bracket
// exists; after the start an organizer disqualifies instead.
func (s *participantService) Withdraw(ctx context.Context, tournamentID, userID int) error {
	tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.StatusRegistration && tournament.Status != models.StatusCheckin {
		return ErrInvalidStatusTransition
	}

	participant, err := s.participantRepo.GetByTournamentAndUser(ctx, tournamentID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	return s.participantRepo.Delete(ctx, participant.ID)
}

func (s *participantService) List(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.loadTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.participantRepo.ListByTournament(ctx, tournamentID, false, true)
}

// SetSeeds applies the organizer's manual seeding in one transaction so a
// half-applied reorder never becomes visible.
func (s *participantService) SetSeeds(ctx context.Context, tournamentID, organizerID int, assignments []SeedAssignment) error {
	tournament, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.OrganizerID != organizerID {
		return ErrOrganizerOnly
	}
	if tournament.Status != models.StatusRegistration && tournament.Status != models.StatusCheckin {
		return ErrInvalidStatusTransition
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range assignments {
		participant, err := s.participantRepo.GetByID(ctx, a.ParticipantID)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		if participant.TournamentID != tournamentID {
			return ErrParticipantNotFound
		}
		if err := s.participantRepo.UpdateSeed(ctx, tx, a.ParticipantID, a.Seed); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seeding for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (s *participantService) loadTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}
