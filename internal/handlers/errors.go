package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/pagepass/pagepass/internal/services"
	appErrors "github.com/pagepass/pagepass/pkg/errors"
	"github.com/pagepass/pagepass/pkg/response"
	appValidator "github.com/pagepass/pagepass/pkg/validator"
)

// writeServiceError maps service layer sentinel errors onto API errors.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPageNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrGrantNotFound):
		response.Error(c, appErrors.ErrNotFound)

	case errors.Is(err, services.ErrPageExists),
		errors.Is(err, services.ErrProductExists):
		response.Error(c, appErrors.ErrConflict)

	default:
		var ve appValidator.ValidationErrors
		if errors.As(err, &ve) {
			response.Error(c, appErrors.NewBadRequest(formatValidationError(ve)))
			return
		}
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
	}
}
