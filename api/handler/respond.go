package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/scanlate/models"
)

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ErrorResponse{
		Error: scrapeErr.ToDetail(),
	})
}

// respondCode is respondError for errors minted at the handler boundary.
func respondCode(c *gin.Context, code, message string) {
	respondError(c, models.NewScrapeError(code, message, nil))
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeNavTimeout, models.ErrCodeSelectorTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodePoolExhausted, models.ErrCodeLaunchFailure:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeUnknownSource:
		return http.StatusNotFound // 404
	case models.ErrCodeUnsupported:
		return http.StatusNotImplemented // 501
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
