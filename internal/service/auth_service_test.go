package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/pkg/config"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

type fakeAuthMembers struct {
	members map[string]*models.Member
}

func (f *fakeAuthMembers) FindByUsername(ctx context.Context, username string) (*models.Member, error) {
	for _, m := range f.members {
		if m.Username == username {
			copied := *m
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthMembers) FindByID(ctx context.Context, id string) (*models.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *m
	return &copied, nil
}

func newAuthService(t *testing.T, password string) (*AuthService, *fakeAuthMembers) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeAuthMembers{members: map[string]*models.Member{
		"m-1": {
			ID:               "m-1",
			Username:         "fry",
			WorkshiftManager: true,
			PasswordHash:     string(hash),
			Active:           true,
		},
	}}
	cfg := config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}
	return NewAuthService(repo, cfg, nil, nil), repo
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newAuthService(t, "hunter2")

	token, err := svc.Login(context.Background(), models.LoginRequest{Username: "fry", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := svc.ParseToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "m-1", claims.MemberID)
	assert.Equal(t, "fry", claims.Username)
	assert.True(t, claims.WorkshiftManager)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t, "hunter2")

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "fry", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, err.(*appErrors.Error).Code)
}

func TestLoginRejectsUnknownUsername(t *testing.T) {
	svc, _ := newAuthService(t, "hunter2")

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "hunter2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, err.(*appErrors.Error).Code)
}

func TestLoginRejectsInactiveMember(t *testing.T) {
	svc, repo := newAuthService(t, "hunter2")
	repo.members["m-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "fry", Password: "hunter2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, err.(*appErrors.Error).Code)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issuer, _ := newAuthService(t, "hunter2")
	token, err := issuer.Login(context.Background(), models.LoginRequest{Username: "fry", Password: "hunter2"})
	require.NoError(t, err)

	verifier := NewAuthService(&fakeAuthMembers{}, config.JWTConfig{Secret: "other-secret", Expiration: time.Hour}, nil, nil)
	_, err = verifier.ParseToken(token.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, err.(*appErrors.Error).Code)
}

func TestMemberRejectsVanishedAccount(t *testing.T) {
	svc, _ := newAuthService(t, "hunter2")

	_, err := svc.Member(context.Background(), &models.JWTClaims{MemberID: "m-gone"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, err.(*appErrors.Error).Code)
}
