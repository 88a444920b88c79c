package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/smashforge/tournament-server/brackets"
	"github.com/smashforge/tournament-server/models"
	"github.com/smashforge/tournament-server/repositories"
	"github.com/smashforge/tournament-server/storage"
)

type CreateTournamentInput struct {
	Name         string                  `json:"name"`
	Description  *string                 `json:"description"`
	Format       models.TournamentFormat `json:"format"`
	BestOf       int                     `json:"best_of"`
	BracketReset *bool                   `json:"bracket_reset"`
	MaxEntrants  int                     `json:"max_entrants"`
	RegCloseAt   time.Time               `json:"reg_close_at"`
	StartAt      time.Time               `json:"start_at"`
}

type UpdateTournamentDetailsInput struct {
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	BestOf       *int       `json:"best_of"`
	BracketReset *bool      `json:"bracket_reset"`
	MaxEntrants  *int       `json:"max_entrants"`
	RegCloseAt   *time.Time `json:"reg_close_at"`
	StartAt      *time.Time `json:"start_at"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	UpdateDetails(ctx context.Context, id, userID int, input UpdateTournamentDetailsInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	OpenCheckin(ctx context.Context, id, userID int) (*models.Tournament, error)
	Start(ctx context.Context, id, userID int) (*models.Tournament, error)
	Cancel(ctx context.Context, id, userID int) error
	ResetBracket(ctx context.Context, id, userID int) error
	UploadBanner(ctx context.Context, id, userID int, contentType string, file io.Reader) (*models.Tournament, error)
	AutoAdvanceStatusesByDates(ctx context.Context) error
}

type tournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketService  BracketService
	uploader        storage.FileUploader
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketService BracketService,
	uploader storage.FileUploader,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketService:  bracketService,
		uploader:        uploader,
		hub:             hub,
		logger:          logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	switch input.Format {
	case models.FormatSingleElimination, models.FormatDoubleElimination:
	default:
		return nil, ErrInvalidFormat
	}
	if input.BestOf != 3 && input.BestOf != 5 {
		return nil, ErrInvalidBestOf
	}
	if input.MaxEntrants < 2 {
		return nil, ErrInvalidCapacity
	}
	if !input.StartAt.After(input.RegCloseAt) {
		return nil, ErrInvalidDateRange
	}

	bracketReset := true
	if input.BracketReset != nil {
		bracketReset = *input.BracketReset
	}

	tournament := &models.Tournament{
		Name:         input.Name,
		Description:  input.Description,
		OrganizerID:  organizerID,
		Format:       input.Format,
		BestOf:       input.BestOf,
		BracketReset: bracketReset,
		MaxEntrants:  input.MaxEntrants,
		RegCloseAt:   input.RegCloseAt,
		StartAt:      input.StartAt,
		Status:       models.StatusRegistration,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrNameConflict
		}
		return nil, err
	}
	s.resolveBannerURL(tournament)
	return tournament, nil
}

// UpdateDetails edits tournament settings before it starts. The format is
// fixed at creation; everything else can change while registration or
// check-in is open.
func (s *tournamentService) UpdateDetails(ctx context.Context, id, userID int, input UpdateTournamentDetailsInput) (*models.Tournament, error) {
	tournament, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusRegistration && tournament.Status != models.StatusCheckin {
		return nil, ErrInvalidStatusTransition
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = *input.Name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.BestOf != nil {
		if *input.BestOf != 3 && *input.BestOf != 5 {
			return nil, ErrInvalidBestOf
		}
		tournament.BestOf = *input.BestOf
	}
	if input.BracketReset != nil {
		tournament.BracketReset = *input.BracketReset
	}
	if input.MaxEntrants != nil {
		if *input.MaxEntrants < 2 {
			return nil, ErrInvalidCapacity
		}
		tournament.MaxEntrants = *input.MaxEntrants
	}
	if input.RegCloseAt != nil {
		tournament.RegCloseAt = *input.RegCloseAt
	}
	if input.StartAt != nil {
		tournament.StartAt = *input.StartAt
	}
	if !tournament.StartAt.After(tournament.RegCloseAt) {
		return nil, ErrInvalidDateRange
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrNameConflict
		}
		return nil, err
	}
	s.resolveBannerURL(tournament)
	s.broadcast(tournament)
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.bracketService.GetBracket(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	for _, t := range tournaments {
		s.resolveBannerURL(t)
	}
	return tournaments, nil
}

// OpenCheckin closes registration and opens participant check-in.
func (s *tournamentService) OpenCheckin(ctx context.Context, id, userID int) (*models.Tournament, error) {
	tournament, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusRegistration {
		return nil, ErrInvalidStatusTransition
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, id, models.StatusCheckin); err != nil {
		return nil, err
	}
	tournament.Status = models.StatusCheckin
	s.broadcast(tournament)
	return tournament, nil
}

// Start seeds any unseeded checked-in participants by registration order,
// generates the bracket and activates the tournament.
func (s *tournamentService) Start(ctx context.Context, id, userID int) (*models.Tournament, error) {
	tournament, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusCheckin {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.assignMissingSeeds(ctx, id); err != nil {
		return nil, err
	}

	if _, err := s.bracketService.GenerateAndSaveBracket(ctx, tournament); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, id, models.StatusActive); err != nil {
		return nil, err
	}
	tournament.Status = models.StatusActive

	s.logger.Info("tournament started", slog.Int("tournament_id", id))
	s.broadcast(tournament)
	return tournament, nil
}

func (s *tournamentService) Cancel(ctx context.Context, id, userID int) error {
	tournament, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	if tournament.Status == models.StatusCompleted {
		return ErrInvalidStatusTransition
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, id, models.StatusCanceled); err != nil {
		return err
	}
	tournament.Status = models.StatusCanceled
	s.broadcast(tournament)
	return nil
}

// ResetBracket wipes every match and game of the tournament and reopens
// check-in. This is the only path that deletes match records.
func (s *tournamentService) ResetBracket(ctx context.Context, id, userID int) error {
	tournament, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	if tournament.Status != models.StatusActive && tournament.Status != models.StatusCompleted {
		return ErrInvalidStatusTransition
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.bracketService.DeleteBracket(ctx, tx, id); err != nil {
		return err
	}
	if err := s.tournamentRepo.UpdateWinner(ctx, tx, id, nil); err != nil {
		return err
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, tx, id, models.StatusCheckin); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bracket reset for tournament %d: %w", id, err)
	}

	s.logger.Info("bracket reset", slog.Int("tournament_id", id))
	tournament.Status = models.StatusCheckin
	s.broadcast(tournament)
	return nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, id, userID int, contentType string, file io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrBannerStorageUnavailable
	}
	tournament, err := s.loadOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/banner", id)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload banner for tournament %d: %w", id, err)
	}
	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}
	tournament.BannerKey = &result.Key
	s.resolveBannerURL(tournament)
	return tournament, nil
}

// AutoAdvanceStatusesByDates flips registration-phase tournaments whose
// registration window has closed into check-in. Run periodically by the
// scheduler in main.
func (s *tournamentService) AutoAdvanceStatusesByDates(ctx context.Context) error {
	due, err := s.tournamentRepo.ListDueForCheckin(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, t := range due {
		if err := s.tournamentRepo.UpdateStatus(ctx, s.db, t.ID, models.StatusCheckin); err != nil {
			return err
		}
		t.Status = models.StatusCheckin
		s.logger.Info("check-in opened automatically", slog.Int("tournament_id", t.ID))
		s.broadcast(t)
	}
	return nil
}

func (s *tournamentService) loadOwned(ctx context.Context, id, userID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.OrganizerID != userID {
		return nil, ErrOrganizerOnly
	}
	return tournament, nil
}

// assignMissingSeeds gives unseeded checked-in participants the next free
// seeds in registration order, so the generator always sees a fully seeded
// field.
func (s *tournamentService) assignMissingSeeds(ctx context.Context, tournamentID int) error {
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, true, false)
	if err != nil {
		return err
	}

	used := make(map[int]bool)
	for _, p := range participants {
		if p.Seed != nil {
			used[*p.Seed] = true
		}
	}

	next := 1
	for _, p := range participants {
		if p.Seed != nil {
			continue
		}
		for used[next] {
			next++
		}
		seed := next
		used[seed] = true
		if err := s.participantRepo.UpdateSeed(ctx, s.db, p.ID, &seed); err != nil {
			return err
		}
	}
	return nil
}

func (s *tournamentService) resolveBannerURL(t *models.Tournament) {
	if t.BannerKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.BannerKey)
		t.BannerURL = &url
	}
}

func (s *tournamentService) broadcast(t *models.Tournament) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(fmt.Sprintf("%d", t.ID), brackets.WebSocketMessage{
		Type:    brackets.EventTournamentUpdated,
		Payload: t,
		RoomID:  fmt.Sprintf("%d", t.ID),
	})
}
