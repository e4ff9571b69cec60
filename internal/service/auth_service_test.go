package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

type mockAuthRepo struct {
	user    *models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
	audits  []models.AuditLog
}

func newMockAuthRepo(user *models.User) *mockAuthRepo {
	return &mockAuthRepo{user: user, tokens: map[string]*models.RefreshToken{}}
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	copy := *m.user
	return &copy, nil
}

func (m *mockAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *m.user
	return &copy, nil
}

func (m *mockAuthRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	stored := *token
	m.tokens[token.Token] = &stored
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			m.revoked = append(m.revoked, id)
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

func authTestUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        "admin@studio.test",
		FullName:     "Ana Torres",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func newAuthTestService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "studio-pos-api",
		Audience:           []string{"studio-pos"},
	})
}

func TestAuthLoginIssuesTokens(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc := newAuthTestService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@studio.test",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc := newAuthTestService(newMockAuthRepo(authTestUser(t, "secret123")))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@studio.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	user := authTestUser(t, "secret123")
	user.Active = false
	svc := newAuthTestService(newMockAuthRepo(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@studio.test",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc := newAuthTestService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@studio.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)

	// The used token is burned.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutRejectsForeignToken(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc := newAuthTestService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@studio.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u1", models.LoginRequest{}))
	assert.NotEmpty(t, repo.revoked)
}
