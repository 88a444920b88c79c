package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/smashforge/tournament-server/handlers"
	"github.com/smashforge/tournament-server/middleware"
	"github.com/smashforge/tournament-server/models"
)

// SetupRoutes wires every HTTP endpoint onto the router. Reads are public;
// anything that mutates state sits behind JWT authentication, and creating a
// tournament additionally requires an organizer or admin account.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	participantHandler *handlers.ParticipantHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	organizerOnly := middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin)

	router.Post("/auth/register", authHandler.RegisterHandler)
	router.Post("/auth/login", authHandler.LoginHandler)
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/auth/me", authHandler.MeHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/participants", participantHandler.ListHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.With(organizerOnly).Post("/", tournamentHandler.CreateHandler)
			r.Put("/{tournamentID}", tournamentHandler.UpdateDetailsHandler)
			r.Post("/{tournamentID}/checkin", tournamentHandler.OpenCheckinHandler)
			r.Post("/{tournamentID}/start", tournamentHandler.StartHandler)
			r.Post("/{tournamentID}/cancel", tournamentHandler.CancelHandler)
			r.Post("/{tournamentID}/reset", tournamentHandler.ResetBracketHandler)
			r.Put("/{tournamentID}/banner", tournamentHandler.UploadBannerHandler)

			r.Post("/{tournamentID}/participants", participantHandler.RegisterHandler)
			r.Post("/{tournamentID}/participants/checkin", participantHandler.CheckInHandler)
			r.Delete("/{tournamentID}/participants", participantHandler.WithdrawHandler)
			r.Put("/{tournamentID}/participants/seeds", participantHandler.SetSeedsHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{matchID}/lobby", matchHandler.JoinLobbyHandler)
			r.Post("/{matchID}/bans", matchHandler.BanStageHandler)
			r.Post("/{matchID}/stage", matchHandler.SelectStageHandler)
			r.Post("/{matchID}/games/report", matchHandler.ReportGameHandler)
			r.Post("/{matchID}/disqualify", matchHandler.DisqualifyHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
