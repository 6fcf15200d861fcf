package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued bearer token stays valid. Clients
// re-authenticate through the Login Widget when it expires.
const TokenTTL = 7 * 24 * time.Hour

// NewAccessToken mints a signed bearer token for the given Telegram account.
// The subject carries the telegram_id (not our internal UUID) because it is
// the stable external identifier the auth middleware resolves users by.
func NewAccessToken(telegramID int64, secret string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(telegramID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken validates a bearer token's signature and expiry and
// returns the telegram_id it was issued for.
func ParseAccessToken(tokenStr, secret string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, fmt.Errorf("token missing subject")
	}
	return strconv.ParseInt(claims.Subject, 10, 64)
}
