package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserAlreadyExists  = fmt.Errorf("username already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrInvalidUsername    = fmt.Errorf("username does not meet requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid or expired session token")
	ErrSessionRevoked     = fmt.Errorf("session has been revoked")
)

// MapToHTTPStatus translates domain sentinels into HTTP status codes for the
// plain request/response endpoints. Unknown errors map to 500.
func MapToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidPassword), errors.Is(err, ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSessionRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
