package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/farnsworth-bsc/workshift-api/internal/middleware"
	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/internal/service"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// resolveActor builds the acting identity for instance transitions: the
// authenticated member plus their profile in the given semester.
func resolveActor(ctx context.Context, c *gin.Context, profiles *service.ProfileService, semesterID string) (service.Actor, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.Actor{}, appErrors.Clone(appErrors.ErrUnauthorized, appErrors.ErrUnauthorized.Message)
	}
	profile, err := profiles.GetByMember(ctx, claims.MemberID, semesterID)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{
		MemberID:         claims.MemberID,
		ProfileID:        profile.ID,
		WorkshiftManager: claims.WorkshiftManager,
	}, nil
}
