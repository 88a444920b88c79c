package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/smashforge/tournament-server/models"
	"github.com/smashforge/tournament-server/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	nextID  int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*models.User)}
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.byEmail {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if u.Tag == user.Tag {
			return repositories.ErrUserTagConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	saved := *user
	r.byEmail[user.Email] = &saved
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			found := *u
			return &found, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

const testSecret = "test-secret"

func TestRegisterIssuesValidToken(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), testSecret)

	user, token, err := svc.Register(context.Background(), RegisterInput{
		Tag:      "mango",
		Email:    "mango@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RolePlayer, user.Role)
	assert.Empty(t, user.PasswordHash)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, float64(user.ID), claims["user_id"])
	assert.Equal(t, string(models.RolePlayer), claims["role"])
}

func TestRegisterRoleSelection(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), testSecret)

	user, token, err := svc.Register(context.Background(), RegisterInput{
		Tag:      "keitaro",
		Email:    "keitaro@example.com",
		Password: "password123",
		Role:     "organizer",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganizer, user.Role)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleOrganizer), claims["role"])

	_, _, err = svc.Register(context.Background(), RegisterInput{
		Tag: "sneaky", Email: "sneaky@example.com", Password: "password123", Role: "admin",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, _, err = svc.Register(context.Background(), RegisterInput{
		Tag: "typo", Email: "typo@example.com", Password: "password123", Role: "commentator",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), testSecret)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "x@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrTagRequired)

	_, _, err = svc.Register(context.Background(), RegisterInput{
		Tag:      "mango",
		Email:    "x@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegisterConflicts(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, testSecret)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Tag: "mango", Email: "mango@example.com", Password: "password123",
	})
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), RegisterInput{
		Tag: "zain", Email: "mango@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUserEmailConflict)

	_, _, err = svc.Register(context.Background(), RegisterInput{
		Tag: "mango", Email: "other@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUserTagConflict)
}

func TestLogin(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, testSecret)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Tag: "mango", Email: "mango@example.com", Password: "password123",
	})
	require.NoError(t, err)

	user, token, err := svc.Login(context.Background(), LoginInput{
		Email: "mango@example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "mango", user.Tag)
	assert.Empty(t, user.PasswordHash)

	_, _, err = svc.Login(context.Background(), LoginInput{
		Email: "mango@example.com", Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), LoginInput{
		Email: "nobody@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
