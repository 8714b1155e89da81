package httpmw

import (
	"context"
	"net/http"

	"github.com/cwrk-planet/poker-service/internal/domain"
	"github.com/cwrk-planet/poker-service/internal/security"
	"github.com/cwrk-planet/poker-service/pkg/logger"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

type SessionParser interface {
	Parse(token string) (domain.Session, error)
}

// RequireSession rejects requests without a valid session token. The token is
// read from the bearer header, the token query parameter or the cookie.
func RequireSession(sessions SessionParser, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := security.TokenFromRequest(r, cookieName)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing_session")
				return
			}
			sess, err := sessions.Parse(token)
			if err != nil || !sess.Valid() {
				logger.FromContext(r.Context()).Debug("session rejected", "err", err)
				writeError(w, http.StatusUnauthorized, "invalid_session")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromCtx(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(ctxKeySession).(domain.Session)
	return sess, ok
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}
