package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/wire"
)

// statusOf maps service sentinels to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists), errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the error envelope. Internal errors are logged and
// their text is not exposed.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	code := statusOf(err)
	env := wire.ErrorEnvelope{Message: publicMessage(code, err)}

	var rl *errs.RateLimitError
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		env.RetryAfter = &secs
		c.Header("Retry-After", strconv.Itoa(secs))
	}
	if code == http.StatusInternalServerError {
		log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, env)
}

func writeMessage(c *gin.Context, code int, msg string) {
	c.JSON(code, wire.ErrorEnvelope{Message: msg})
}

func publicMessage(code int, err error) string {
	switch code {
	case http.StatusBadRequest:
		return strings.TrimPrefix(err.Error(), errs.ErrValidation.Error()+": ")
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		if errors.Is(err, errs.ErrConflict) {
			return "conflict"
		}
		return "already exists"
	case http.StatusTooManyRequests:
		return "too many attempts, try again later"
	default:
		return "internal error"
	}
}

// bindError turns a gin binding failure into a validation error.
func bindError(err error) error {
	return errs.Validation("invalid request body: " + err.Error())
}
