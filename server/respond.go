package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/utils"
)

const codeRateLimited = "RATE_LIMITED"

// statusOf maps an error code to an HTTP status.
func statusOf(code string) int {
	switch code {
	case types.ErrCodeInvalidAmount, types.ErrCodeInvalidToken, types.ErrCodeInvalidPayload:
		return http.StatusBadRequest
	case types.ErrCodeNotFound:
		return http.StatusNotFound
	case types.ErrCodeInvalidState, types.ErrCodeAlreadySettled:
		return http.StatusConflict
	case types.ErrCodeNoRoute, types.ErrCodeInsufficientAmount:
		return http.StatusUnprocessableEntity
	case types.ErrCodeNetworkError, types.ErrCodeNetworkDegraded:
		return http.StatusBadGateway
	case types.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case codeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *types.PaymentError
	if !errors.As(err, &pe) {
		pe = types.NewError("INTERNAL", "internal error")
	}

	status := statusOf(pe.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
			"code":       pe.Code,
			"error":      err.Error(),
		})
	}

	writeJSON(w, status, types.ErrorResponse{Code: pe.Code, Message: pe.Message})
}

// decode reads a JSON body into v and validates its struct tags. It writes
// the error response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, types.NewError(types.ErrCodeInvalidPayload, "invalid request body: %v", err))
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		s.writeError(w, r, types.NewError(types.ErrCodeInvalidPayload, "%v", err))
		return false
	}
	return true
}
