package services

import "errors"

// Sentinel errors shared across services and mapped to HTTP statuses by the
// handler layer. Core bracket and game-flow errors live in their own packages
// and are mapped there as well.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed        = errors.New("validation failed")
	ErrPasswordTooShort        = errors.New("password is too short")
	ErrTagRequired             = errors.New("player tag is required")
	ErrInvalidRole             = errors.New("role must be player or organizer")
	ErrTournamentNameRequired  = errors.New("tournament name is required")
	ErrInvalidFormat           = errors.New("invalid tournament format")
	ErrInvalidBestOf           = errors.New("best-of must be 3 or 5")
	ErrInvalidCapacity         = errors.New("max entrants must be at least 2")
	ErrInvalidDateRange        = errors.New("start must be after registration close")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrRegistrationNotOpen     = errors.New("tournament registration is not open")
	ErrCheckinNotOpen          = errors.New("tournament check-in is not open")
	ErrTournamentFull          = errors.New("tournament registration is full")
	ErrTournamentNotStarted    = errors.New("tournament has not started")
	ErrNotAPlayer              = errors.New("user is not a player of this match")
	ErrMatchNotReady           = errors.New("match does not have both players yet")
	ErrMatchAlreadyDecided     = errors.New("match already has a result")

	// Conflicts
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserTagConflict      = errors.New("tag is already in use")
	ErrRegistrationConflict = errors.New("user is already registered for this tournament")
	ErrNameConflict         = errors.New("tournament name already exists")

	// Authentication and authorization
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrOrganizerOnly      = errors.New("only the tournament organizer can perform this action")

	// Infrastructure
	ErrBannerStorageUnavailable = errors.New("banner storage is not configured")

	// Entity lookups
	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrGameNotFound        = errors.New("match game not found")
)
