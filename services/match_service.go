package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/smashforge/tournament-server/brackets"
	"github.com/smashforge/tournament-server/gameflow"
	"github.com/smashforge/tournament-server/models"
	"github.com/smashforge/tournament-server/repositories"
)

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, []*models.MatchGame, error)
	JoinLobby(ctx context.Context, matchID, userID int) (*models.MatchGame, error)
	BanStage(ctx context.Context, matchID, userID int, stage string) (*models.MatchGame, error)
	SelectStage(ctx context.Context, matchID, userID int, stage string) (*models.MatchGame, error)
	ReportGameWinner(ctx context.Context, matchID, reporterUserID, winnerParticipantID int) (*models.Match, error)
	Disqualify(ctx context.Context, matchID, organizerUserID int, participantIDs []int) (*models.Match, error)
}

type matchService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	gameRepo        repositories.MatchGameRepository
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	gameRepo repositories.MatchGameRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		gameRepo:        gameRepo,
		hub:             hub,
		logger:          logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, []*models.MatchGame, error) {
	match, err := s.matchRepo.GetByID(ctx, s.db, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, err
	}
	games, err := s.gameRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	return match, games, nil
}

// JoinLobby records the caller's presence in the current game's lobby,
// creating game 1 on the first join. Once both players are in, the game moves
// to stage bans and the match is marked as banning.
func (s *matchService) JoinLobby(ctx context.Context, matchID, userID int) (*models.MatchGame, error) {
	var game *models.MatchGame
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		match, slot, err := s.lockMatchAsPlayer(ctx, tx, matchID, userID)
		if err != nil {
			return err
		}
		if match.Status == models.MatchStatusCompleted || match.Status == models.MatchStatusDQ {
			return ErrMatchAlreadyDecided
		}

		game, err = s.gameRepo.GetCurrentForUpdate(ctx, tx, matchID)
		if err != nil {
			if !errors.Is(err, repositories.ErrMatchGameNotFound) {
				return err
			}
			game = &models.MatchGame{
				MatchID:         matchID,
				GameNumber:      1,
				Phase:           models.PhaseLobby,
				BannedStages:    []string{},
				BannedByPlayer1: []string{},
				BannedByPlayer2: []string{},
			}
			if err := s.gameRepo.Create(ctx, tx, game); err != nil {
				return err
			}
		}

		if err := gameflow.JoinLobby(match, game, slot); err != nil {
			return err
		}
		if err := s.gameRepo.Update(ctx, tx, game); err != nil {
			return err
		}
		if game.Phase == models.PhaseStageBan && match.Status != models.MatchStatusBanning {
			if err := s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchStatusBanning); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcastGame(ctx, matchID, game)
	return game, nil
}

// BanStage applies one stage ban under a row lock on the current game.
func (s *matchService) BanStage(ctx context.Context, matchID, userID int, stage string) (*models.MatchGame, error) {
	return s.withCurrentGame(ctx, matchID, userID, func(tx *sql.Tx, match *models.Match, game *models.MatchGame, slot models.PlayerSlot) error {
		return gameflow.BanStage(match, game, slot, stage)
	})
}

// SelectStage picks the stage for the current game and moves the match to
// playing.
func (s *matchService) SelectStage(ctx context.Context, matchID, userID int, stage string) (*models.MatchGame, error) {
	return s.withCurrentGame(ctx, matchID, userID, func(tx *sql.Tx, match *models.Match, game *models.MatchGame, slot models.PlayerSlot) error {
		if err := gameflow.SelectStage(match, game, slot, stage); err != nil {
			return err
		}
		if match.Status != models.MatchStatusPlaying {
			return s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchStatusPlaying)
		}
		return nil
	})
}

// ReportGameWinner closes the current game in the winner's favor. When the
// winner reaches the best-of threshold the match completes and the result
// propagates through the bracket in the same transaction; otherwise the next
// game is opened with the winner carried forward for the counterpick flow.
func (s *matchService) ReportGameWinner(ctx context.Context, matchID, reporterUserID, winnerParticipantID int) (*models.Match, error) {
	var (
		match        *models.Match
		tournamentID int
		propagated   *brackets.Propagation
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		match, _, err = s.lockMatchAsPlayer(ctx, tx, matchID, reporterUserID)
		if err != nil {
			return err
		}
		tournamentID = match.TournamentID
		if match.Status != models.MatchStatusPlaying {
			return gameflow.ErrWrongPhase
		}
		if !match.HasPlayer(winnerParticipantID) {
			return ErrNotAPlayer
		}

		game, err := s.gameRepo.GetCurrentForUpdate(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchGameNotFound) {
				return ErrGameNotFound
			}
			return err
		}
		if game.Phase != models.PhasePlaying {
			return gameflow.ErrWrongPhase
		}

		now := time.Now()
		game.Phase = models.PhaseCompleted
		game.CurrentTurn = models.SlotNone
		game.CompletedAt = &now
		if err := s.gameRepo.Update(ctx, tx, game); err != nil {
			return err
		}

		winnerSlot := match.SlotOf(winnerParticipantID)
		if winnerSlot == models.SlotPlayer1 {
			match.Player1Score++
			match.Player1WonStages = appendWonStage(match.Player1WonStages, game.SelectedStage)
		} else {
			match.Player2Score++
			match.Player2WonStages = appendWonStage(match.Player2WonStages, game.SelectedStage)
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
		if err != nil {
			return err
		}
		winsNeeded := tournament.BestOf/2 + 1

		if match.Player1Score < winsNeeded && match.Player2Score < winsNeeded {
			if err := s.matchRepo.Update(ctx, tx, match); err != nil {
				return err
			}
			next := &models.MatchGame{
				MatchID:          matchID,
				GameNumber:       game.GameNumber + 1,
				Phase:            models.PhaseLobby,
				BannedStages:     []string{},
				BannedByPlayer1:  []string{},
				BannedByPlayer2:  []string{},
				PreviousWinnerID: &winnerParticipantID,
			}
			return s.gameRepo.Create(ctx, tx, next)
		}

		// Series decided. Persist the scores first, then run propagation over
		// a locked snapshot of the whole bracket.
		if err := s.matchRepo.Update(ctx, tx, match); err != nil {
			return err
		}

		loserID := *match.Player1ID
		if loserID == winnerParticipantID {
			loserID = *match.Player2ID
		}

		snapshot, err := s.matchRepo.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		propagated, err = brackets.Propagate(snapshot, matchID, winnerParticipantID, loserID, brackets.PropagateOptions{
			BracketReset: tournament.BracketReset,
		})
		if err != nil {
			return err
		}
		return s.persistPropagation(ctx, tx, tournamentID, propagated)
	})
	if err != nil {
		return nil, err
	}

	s.broadcastMatch(tournamentID, match)
	if propagated != nil {
		s.afterPropagation(tournamentID, propagated)
	}
	return match, nil
}

// Disqualify removes one or both players of a match by organizer decision and
// propagates the outcome. Disqualified players never drop into the losers
// bracket.
func (s *matchService) Disqualify(ctx context.Context, matchID, organizerUserID int, participantIDs []int) (*models.Match, error) {
	var (
		match        *models.Match
		tournamentID int
		propagated   *brackets.Propagation
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		tournamentID = match.TournamentID

		tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.OrganizerID != organizerUserID {
			return ErrOrganizerOnly
		}
		if match.Status == models.MatchStatusCompleted || match.Status == models.MatchStatusDQ {
			return ErrMatchAlreadyDecided
		}

		snapshot, err := s.matchRepo.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		propagated, err = brackets.PropagateDisqualification(snapshot, matchID, participantIDs, brackets.PropagateOptions{
			BracketReset: tournament.BracketReset,
		})
		if err != nil {
			return err
		}
		for _, m := range propagated.Changed {
			if m.ID == matchID {
				match = m
				break
			}
		}
		return s.persistPropagation(ctx, tx, tournamentID, propagated)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("players disqualified",
		slog.Int("match_id", matchID),
		slog.Any("participant_ids", participantIDs),
	)
	s.broadcastMatch(tournamentID, match)
	s.afterPropagation(tournamentID, propagated)
	return match, nil
}

// persistPropagation writes every match the propagation touched, marks
// eliminated participants, and closes the tournament when a champion emerged.
func (s *matchService) persistPropagation(ctx context.Context, tx *sql.Tx, tournamentID int, p *brackets.Propagation) error {
	for _, m := range p.Changed {
		if err := s.matchRepo.Update(ctx, tx, m); err != nil {
			return err
		}
	}
	if err := s.participantRepo.SetEliminated(ctx, tx, tournamentID, p.Eliminated); err != nil {
		return err
	}
	if p.Complete {
		if err := s.tournamentRepo.UpdateWinner(ctx, tx, tournamentID, p.ChampionID); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusCompleted); err != nil {
			return err
		}
	}
	return nil
}

func (s *matchService) afterPropagation(tournamentID int, p *brackets.Propagation) {
	if p.Complete {
		s.logger.Info("tournament completed",
			slog.Int("tournament_id", tournamentID),
			slog.Any("champion_participant_id", p.ChampionID),
		)
	}
	s.broadcastBracket(tournamentID)
}

// withCurrentGame runs a gameflow transition over the locked match and its
// locked current game, persisting the game and broadcasting on success.
func (s *matchService) withCurrentGame(
	ctx context.Context,
	matchID, userID int,
	fn func(tx *sql.Tx, match *models.Match, game *models.MatchGame, slot models.PlayerSlot) error,
) (*models.MatchGame, error) {
	var game *models.MatchGame
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		match, slot, err := s.lockMatchAsPlayer(ctx, tx, matchID, userID)
		if err != nil {
			return err
		}
		game, err = s.gameRepo.GetCurrentForUpdate(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchGameNotFound) {
				return ErrGameNotFound
			}
			return err
		}
		if err := fn(tx, match, game, slot); err != nil {
			return err
		}
		return s.gameRepo.Update(ctx, tx, game)
	})
	if err != nil {
		return nil, err
	}
	s.broadcastGame(ctx, matchID, game)
	return game, nil
}

// lockMatchAsPlayer locks the match row and resolves the caller's slot in it.
// The caller's user id is resolved to a participant registration of the
// match's tournament; anyone who is not one of the match's two players is
// rejected, other participants of the tournament included.
func (s *matchService) lockMatchAsPlayer(ctx context.Context, tx *sql.Tx, matchID, userID int) (*models.Match, models.PlayerSlot, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, models.SlotNone, ErrMatchNotFound
		}
		return nil, models.SlotNone, err
	}
	if match.Player1ID == nil || match.Player2ID == nil {
		return nil, models.SlotNone, ErrMatchNotReady
	}

	participant, err := s.participantRepo.GetByTournamentAndUser(ctx, match.TournamentID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, models.SlotNone, ErrNotAPlayer
		}
		return nil, models.SlotNone, err
	}
	slot := match.SlotOf(participant.ID)
	if slot == models.SlotNone {
		return nil, models.SlotNone, ErrNotAPlayer
	}
	return match, slot, nil
}

// appendWonStage records a stage win once per player and match. A second win
// on the same stage is legal when the opponent picks it back, but the stored
// list must stay duplicate free.
func appendWonStage(stages pq.StringArray, stage *string) pq.StringArray {
	if stage == nil {
		return stages
	}
	for _, s := range stages {
		if s == *stage {
			return stages
		}
	}
	return append(stages, *stage)
}

func (s *matchService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *matchService) broadcastGame(ctx context.Context, matchID int, game *models.MatchGame) {
	if s.hub == nil || game == nil {
		return
	}
	match, err := s.matchRepo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return
	}
	room := fmt.Sprintf("%d", match.TournamentID)
	s.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    brackets.EventGameUpdated,
		Payload: game,
		RoomID:  room,
	})
}

func (s *matchService) broadcastMatch(tournamentID int, match *models.Match) {
	if s.hub == nil || match == nil {
		return
	}
	room := fmt.Sprintf("%d", tournamentID)
	s.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    brackets.EventMatchUpdated,
		Payload: match,
		RoomID:  room,
	})
}

func (s *matchService) broadcastBracket(tournamentID int) {
	if s.hub == nil {
		return
	}
	room := fmt.Sprintf("%d", tournamentID)
	s.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    brackets.EventBracketUpdated,
		Payload: map[string]int{"tournament_id": tournamentID},
		RoomID:  room,
	})
}
