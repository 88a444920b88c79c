package handlers

import (
	"net/http"

	"github.com/smashforge/tournament-server/middleware"
	"github.com/smashforge/tournament-server/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// GetHandler handles GET /matches/{matchID} and returns the match with its
// game history.
func (h *MatchHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, games, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match, "games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// JoinLobbyHandler handles POST /matches/{matchID}/lobby
func (h *MatchHandler) JoinLobbyHandler(w http.ResponseWriter, r *http.Request) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}

	game, err := h.matchService.JoinLobby(r.Context(), matchID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// BanStageHandler handles POST /matches/{matchID}/bans
func (h *MatchHandler) BanStageHandler(w http.ResponseWriter, r *http.Request) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}

	var input struct {
		Stage string `json:"stage"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.matchService.BanStage(r.Context(), matchID, currentUserID, input.Stage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SelectStageHandler handles POST /matches/{matchID}/stage
func (h *MatchHandler) SelectStageHandler(w http.ResponseWriter, r *http.Request) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}

	var input struct {
		Stage string `json:"stage"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.matchService.SelectStage(r.Context(), matchID, currentUserID, input.Stage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportGameHandler handles POST /matches/{matchID}/games/report
func (h *MatchHandler) ReportGameHandler(w http.ResponseWriter, r *http.Request) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}

	var input struct {
		WinnerParticipantID int `json:"winner_participant_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ReportGameWinner(r.Context(), matchID, currentUserID, input.WinnerParticipantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DisqualifyHandler handles POST /matches/{matchID}/disqualify
func (h *MatchHandler) DisqualifyHandler(w http.ResponseWriter, r *http.Request) {
	matchID, currentUserID, ok := h.matchAndUser(w, r)
	if !ok {
		return
	}

	var input struct {
		ParticipantIDs []int `json:"participant_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Disqualify(r.Context(), matchID, currentUserID, input.ParticipantIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) matchAndUser(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, false
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return 0, 0, false
	}
	return matchID, currentUserID, true
}
