package security

import (
	"net/http"
	"strings"
)

// TokenFromRequest looks for a session token in the Authorization bearer
// header, then the token query parameter, then the named cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}
