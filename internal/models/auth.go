package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims carries the authenticated member identity through requests.
type JWTClaims struct {
	MemberID         string `json:"member_id"`
	Username         string `json:"username"`
	WorkshiftManager bool   `json:"workshift_manager"`
	jwt.RegisteredClaims
}

// LoginRequest is the credential payload for token issuance.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse returns an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
