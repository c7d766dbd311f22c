package http

import (
	"net/http"
	"strings"

	apperrors "roomdesk/pkg/errors"
)

const (
	PasswordHeader = "X-Reservation-Password"
	PasswordQuery  = "password"
)

// ExtractCredential reads the reservation credential from the password
// header, falling back to the password query parameter.
func ExtractCredential(r *http.Request) (string, error) {
	if v := r.Header.Get(PasswordHeader); v != "" {
		return v, nil
	}
	if v := r.URL.Query().Get(PasswordQuery); v != "" {
		return v, nil
	}
	return "", apperrors.InvalidInput("reservation password is required")
}

// ClientAddress returns the caller address used for rate limiting.
func ClientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
