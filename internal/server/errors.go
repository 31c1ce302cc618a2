package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	codedomain "github.com/glowface/pointgate/internal/code/domain"
	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
	"github.com/glowface/pointgate/internal/generation"
	"github.com/glowface/pointgate/internal/generation/imagestore"
	"github.com/glowface/pointgate/internal/identity"
	redemptiondomain "github.com/glowface/pointgate/internal/redemption/domain"
)

var errBadRequest = errors.New("bad_request")

// httpStatus maps domain sentinels onto the wire taxonomy. Anything
// unrecognized is an internal error and must not leak details.
func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, redemptiondomain.ErrCodeNotFound),
		errors.Is(err, codedomain.ErrNotFound):
		return http.StatusNotFound, "code_not_found"
	case errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, consumptiondomain.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, redemptiondomain.ErrCodeExhausted):
		return http.StatusBadRequest, "code_exhausted"
	case errors.Is(err, redemptiondomain.ErrAccountRequired):
		return http.StatusBadRequest, "account_required"
	case errors.Is(err, consumptiondomain.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "insufficient_balance"
	case errors.Is(err, redemptiondomain.ErrDeviceRequired),
		errors.Is(err, consumptiondomain.ErrInvalidCost),
		errors.Is(err, codedomain.ErrMalformedCode),
		errors.Is(err, codedomain.ErrInvalidKind),
		errors.Is(err, codedomain.ErrInvalidPointValue),
		errors.Is(err, codedomain.ErrInvalidUsageCap),
		errors.Is(err, codedomain.ErrInvalidCount),
		errors.Is(err, imagestore.ErrInvalidDataURL),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, generation.ErrUpstream):
		return http.StatusBadGateway, "generation_upstream_error"
	case errors.Is(err, redemptiondomain.ErrInconsistentState):
		return http.StatusInternalServerError, "inconsistent_state"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code := httpStatus(err)
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

// classifyError feeds the request logger's error fields.
func classifyError(err error) (string, string) {
	status, code := httpStatus(err)
	switch {
	case status == http.StatusUnauthorized:
		return "auth", code
	case status == http.StatusNotFound:
		return "not_found", code
	case status == http.StatusPaymentRequired:
		return "payment", code
	case status == http.StatusBadGateway:
		return "upstream", code
	case status >= http.StatusInternalServerError:
		return "integrity", code
	default:
		return "policy", code
	}
}
