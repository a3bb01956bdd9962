package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/logger"
)

// writeError maps domain errors to status codes. Anything unrecognized is a
// 500 whose message is only shown when exposeErrors is set.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation   *domain.ValidationError
		authn        *domain.AuthenticationError
		authz        *domain.AuthorizationError
		notFound     *domain.NotFoundError
		conflict     *domain.ConflictError
		transition   *domain.InvalidTransitionError
		pricing      *domain.PricingUnavailableError
		insufficient *domain.InsufficientInventoryError
		limited      *domain.RateLimitError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, envelope{Message: validation.Message, Errors: validation.Fields})
	case errors.As(err, &authn):
		writeMessage(w, http.StatusUnauthorized, authn.Message)
	case errors.As(err, &authz):
		writeMessage(w, http.StatusForbidden, authz.Message)
	case errors.As(err, &notFound):
		writeMessage(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		writeMessage(w, http.StatusConflict, conflict.Message)
	case errors.As(err, &transition):
		writeMessage(w, http.StatusConflict, transition.Error())
	case errors.As(err, &pricing):
		writeMessage(w, http.StatusUnprocessableEntity, pricing.Error())
	case errors.As(err, &insufficient):
		writeMessage(w, http.StatusUnprocessableEntity, insufficient.Error())
	case errors.As(err, &limited):
		secs := int(math.Ceil(limited.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeMessage(w, http.StatusTooManyRequests, limited.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg := "internal server error"
		if h.exposeErrors {
			msg = err.Error()
		}
		writeMessage(w, http.StatusInternalServerError, msg)
	}
}

func badRequest(field, message string) error {
	return domain.NewValidationError("invalid request").WithField(field, message)
}
