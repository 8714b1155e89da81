package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/cwrk-planet/poker-service/internal/domain"
)

// SessionSigner issues and verifies HS256 tokens that carry a lobby session.
type SessionSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewSessionSigner(secret []byte, issuer string, ttl time.Duration) *SessionSigner {
	return &SessionSigner{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

func (s *SessionSigner) TTL() time.Duration {
	return s.ttl
}

// SessionClaims: sub is the display name, code the game code, gid the game
// instance the ticket was issued for.
type SessionClaims struct {
	jwt.StandardClaims
	Code   string `json:"code"`
	GameID uint64 `json:"gid"`
}

func (s *SessionSigner) Sign(sess domain.Session, now time.Time) (string, error) {
	claims := SessionClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   sess.Name,
			Issuer:    s.issuer,
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
		Code:   sess.Code,
		GameID: sess.GameID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr and returns the session it carries.
func (s *SessionSigner) Parse(tokenStr string) (domain.Session, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return domain.Session{}, ErrTokenExpired
		}
		return domain.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return domain.Session{}, ErrInvalidToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return domain.Session{}, ErrInvalidIssuer
	}

	sess := domain.Session{Code: claims.Code, Name: claims.Subject, GameID: claims.GameID}
	if !sess.Valid() {
		return domain.Session{}, ErrInvalidClaims
	}
	return sess, nil
}
