package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/moltbot/philosopher/internal/apperrors"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Hint  string `json:"hint,omitempty"`
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a 500 with the message withheld.
func writeError(c echo.Context, err error) error {
	var ve *apperrors.ValidationError
	var nfe *apperrors.NotFoundError
	var rle *apperrors.RateLimitError
	var ue *apperrors.UpstreamError

	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorBody{Error: ve.Error(), Code: "validation_error"})
	case errors.As(err, &nfe):
		return c.JSON(http.StatusNotFound, errorBody{Error: nfe.Error(), Code: "not_found"})
	case errors.Is(err, apperrors.ErrDuplicateThread):
		return c.JSON(http.StatusConflict, errorBody{Error: err.Error(), Code: "duplicate_thread"})
	case errors.As(err, &rle):
		retryAfter := int(math.Ceil(rle.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return c.JSON(http.StatusTooManyRequests, errorBody{
			Error: "Rate limit exceeded",
			Code:  "rate_limited",
			Hint:  fmt.Sprintf("Retry after %d seconds", retryAfter),
		})
	case errors.As(err, &ue):
		return c.JSON(http.StatusBadGateway, errorBody{Error: ue.Error(), Code: "upstream_error"})
	default:
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "Internal server error", Code: "internal_error"})
	}
}
