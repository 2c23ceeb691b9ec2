package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tazhibayda/task-service/internal/apperr"
)

// SessionTTL is how long an issued bearer token stays valid.
const SessionTTL = 7 * 24 * time.Hour

// Claims binds a session token to one internal user id. The uid is the
// sole custom claim; everything else rides on the registered set.
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Issue mints a signed HS256 bearer token for uid.
func Issue(secret, uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   uid,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(secret))
}

// Parse validates signature and expiry and returns the embedded uid.
func Parse(secret, token string) (string, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidToken, "invalid session token", err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return "", apperr.New(apperr.InvalidToken, "invalid session token")
	}
	uid := c.UID
	if uid == "" {
		uid = c.Subject
	}
	if uid == "" {
		return "", apperr.New(apperr.InvalidToken, "session token missing uid")
	}
	return uid, nil
}
