package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
	"github.com/farnsworth-bsc/workshift-api/pkg/response"
)

// RequireWorkshiftManager gates administrative routes behind the
// workshift-manager capability. Pool-scoped manager checks stay in the
// services, where the target pool is known.
func RequireWorkshiftManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.WorkshiftManager {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "workshift manager capability required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
