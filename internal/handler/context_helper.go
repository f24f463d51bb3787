package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guarderia-api/internal/middleware"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/internal/service"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext turns the JWT claims into the service-level actor.
func actorFromContext(c *gin.Context) (service.Actor, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.Actor{}, appErrors.ErrUnauthorized
	}
	return service.Actor{UserID: claims.UserID, Role: claims.Role, FacilityID: claims.FacilityID}, nil
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, key string) (models.Date, bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return models.Date{}, false, nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, false, appErrors.Clone(appErrors.ErrValidation, key+" must be formatted as YYYY-MM-DD")
	}
	return date, true, nil
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative integer")
	}
	return n, nil
}

func bindError(err error) error {
	return appErrors.Validation(err, "invalid request payload")
}
