package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/internal/service"
	"github.com/farnsworth-bsc/workshift-api/pkg/config"
)

type memberStoreStub struct {
	member *models.Member
}

func (s *memberStoreStub) FindByUsername(ctx context.Context, username string) (*models.Member, error) {
	if s.member == nil || s.member.Username != username {
		return nil, sql.ErrNoRows
	}
	copied := *s.member
	return &copied, nil
}

func (s *memberStoreStub) FindByID(ctx context.Context, id string) (*models.Member, error) {
	if s.member == nil || s.member.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.member
	return &copied, nil
}

func newAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &memberStoreStub{member: &models.Member{
		ID:           "m-1",
		Username:     "fry",
		PasswordHash: string(hash),
		Active:       true,
	}}
	auth := service.NewAuthService(store, config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, nil, nil)
	return NewAuthHandler(auth)
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(t)

	payload, _ := json.Marshal(models.LoginRequest{Username: "fry", Password: "hunter2"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
}

func TestAuthHandlerLoginInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Login(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(t)

	payload, _ := json.Marshal(models.LoginRequest{Username: "fry", Password: "wrong"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Login(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
