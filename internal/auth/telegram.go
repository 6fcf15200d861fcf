// Package auth implements the platform's authentication primitives:
// verifying Telegram Login Widget payloads and minting/parsing the API's
// own bearer tokens.
//
// The login flow: the frontend embeds Telegram's Login Widget, which hands
// it a signed set of profile fields. The backend verifies that signature
// against the bot token, upserts the user, and returns a short-lived JWT
// the client presents on every subsequent call.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LoginData is the payload the Telegram Login Widget delivers to the
// frontend. Fields other than ID, AuthDate, and Hash are optional and only
// participate in the signature when present.
// See https://core.telegram.org/widgets/login#receiving-authorization-data
type LoginData struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// MaxLoginAge bounds how old an auth_date can be before the payload is
// rejected. Telegram signs the timestamp, so this caps replay of a captured
// payload to one day.
const MaxLoginAge = 24 * time.Hour

var (
	ErrBadSignature = errors.New("telegram login data has an invalid signature")
	ErrStaleLogin   = errors.New("telegram login data is too old")
)

// VerifyLogin checks the widget payload's HMAC signature and freshness.
//
// Per Telegram's spec: the data-check string is every provided field except
// hash, formatted as "key=value" lines, sorted alphabetically and joined
// with newlines; the HMAC key is SHA256(bot token).
func VerifyLogin(data LoginData, botToken string, now time.Time) error {
	if now.Sub(time.Unix(data.AuthDate, 0)) > MaxLoginAge {
		return ErrStaleLogin
	}

	pairs := []string{
		fmt.Sprintf("auth_date=%d", data.AuthDate),
		fmt.Sprintf("id=%d", data.ID),
	}
	if data.FirstName != "" {
		pairs = append(pairs, "first_name="+data.FirstName)
	}
	if data.LastName != "" {
		pairs = append(pairs, "last_name="+data.LastName)
	}
	if data.Username != "" {
		pairs = append(pairs, "username="+data.Username)
	}
	if data.PhotoURL != "" {
		pairs = append(pairs, "photo_url="+data.PhotoURL)
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison; the hash is attacker-supplied.
	if !hmac.Equal([]byte(expected), []byte(data.Hash)) {
		return ErrBadSignature
	}
	return nil
}
