package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/internal/service"
	"github.com/farnsworth-bsc/workshift-api/pkg/config"
)

const testSecret = "test-secret"

func signTestToken(t *testing.T, manager bool) string {
	t.Helper()
	claims := models.JWTClaims{
		MemberID:         "m-1",
		Username:         "fry",
		WorkshiftManager: manager,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "m-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func protectedRouter() (*gin.Engine, *service.AuthService) {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, config.JWTConfig{Secret: testSecret, Expiration: time.Hour}, nil, nil)
	router := gin.New()
	router.Use(JWT(auth))
	router.GET("/", func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.Username)
	})
	return router, auth
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	router, _ := protectedRouter()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTMiddlewareRejectsMalformedHeader(t *testing.T) {
	router, _ := protectedRouter()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTMiddlewareRejectsBadToken(t *testing.T) {
	router, _ := protectedRouter()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTMiddlewarePassesClaimsThrough(t *testing.T) {
	router, _ := protectedRouter()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, false))
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if recorder.Body.String() != "fry" {
		t.Fatalf("unexpected body: %s", recorder.Body.String())
	}
}

func TestRequireWorkshiftManager(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, config.JWTConfig{Secret: testSecret, Expiration: time.Hour}, nil, nil)
	router := gin.New()
	router.Use(JWT(auth), RequireWorkshiftManager())
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, false))
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden for non-manager, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, true))
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected manager to pass, got %d", recorder.Code)
	}
}
