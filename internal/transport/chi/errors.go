package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

var domainErrors = []struct {
	sentinel error
	status   int
	code     ErrorCode
}{
	{domain.ErrInvalidProduct, http.StatusUnprocessableEntity, ErrorCodeValidationFailed},
	{domain.ErrInvalidOptions, http.StatusBadRequest, ErrorCodeValidationFailed},
	{domain.ErrProductNotFound, http.StatusNotFound, ErrorCodeProductNotFound},
	{domain.ErrExtractionQuotaExceeded, http.StatusPaymentRequired, ErrorCodeExtractionQuotaExceeded},
	{domain.ErrExtractionFailed, http.StatusBadGateway, ErrorCodeExtractionProviderError},
	{domain.ErrProviderNotConfigured, http.StatusNotImplemented, ErrorCodeNotConfigured},
}

func defaultErrorHandlers() []errorHandler {
	hs := make([]errorHandler, len(domainErrors))
	for i, d := range domainErrors {
		hs[i] = sentinelHandler(d.sentinel, d.status, d.code)
	}
	return hs
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, d := range domainErrors {
		if errors.Is(err, d.sentinel) {
			return d.sentinel.Error()
		}
	}
	return "internal error"
}

func errorCode(err error) ErrorCode {
	for _, d := range domainErrors {
		if errors.Is(err, d.sentinel) {
			return d.code
		}
	}
	return ErrorCodeInternalError
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
