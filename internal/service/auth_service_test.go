package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/admissions-api/internal/models"
	"github.com/campushq/admissions-api/pkg/config"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

type mockAuthUserStore struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revoked       []string
	lastLogin     map[string]time.Time
}

func newMockAuthUserStore() *mockAuthUserStore {
	return &mockAuthUserStore{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		lastLogin:     map[string]time.Time{},
	}
}

func (m *mockAuthUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "new-user"
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthUserStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockAuthUserStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthUserStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
		Issuer:            "admissions-api",
	}
}

func seedUser(store *mockAuthUserStore, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		FullName:     "Alice",
		Role:         models.RoleApplicant,
		Active:       true,
	}
	store.users[user.ID] = user
	return user
}

func TestRegisterCreatesApplicant(t *testing.T) {
	store := newMockAuthUserStore()
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	user, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "bob@example.com",
		Password: "supersecret",
		FullName: "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleApplicant, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, "supersecret", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMockAuthUserStore()
	seedUser(store, "password123")
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "supersecret",
		FullName: "Alice Again",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", appErrors.FromError(err).Code)
}

func TestLoginIssuesTokens(t *testing.T) {
	store := newMockAuthUserStore()
	seedUser(store, "password123")
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "user-1", res.User.ID)
	assert.Contains(t, store.refreshTokens, res.RefreshToken)
	assert.Contains(t, store.lastLogin, "user-1")

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleApplicant, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMockAuthUserStore()
	seedUser(store, "password123")
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	store := newMockAuthUserStore()
	user := seedUser(store, "password123")
	user.Active = false
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newMockAuthUserStore()
	seedUser(store, "password123")
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	res, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)
	require.Len(t, store.revoked, 1)

	// Replaying the revoked token fails.
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", appErrors.FromError(err).Code)
}

func TestRefreshExpiredToken(t *testing.T) {
	store := newMockAuthUserStore()
	seedUser(store, "password123")
	store.refreshTokens["stale"] = &models.RefreshToken{
		ID:        "token-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := NewAuthService(store, testJWTConfig(), nil, nil)

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newMockAuthUserStore(), testJWTConfig(), nil, nil)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", appErrors.FromError(err).Code)
}
