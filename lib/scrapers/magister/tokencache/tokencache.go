// Package tokencache persists a bearer token between runs so the
// login dance only happens when the token is about to expire.
package tokencache

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"magister-backend/lib/chrono"
)

// tokens this close to expiry trigger a fresh login
const expiryMargin = 5 * time.Minute

// tokens whose payload cannot be decoded get this assumed lifetime
const defaultLifetime = time.Hour

type Record struct {
	Expires     time.Time
	AccessToken string
}

// Load reads a cache file of `key=value` lines. Any read or parse
// problem means "no cached token", never an error: the caller just
// logs in again.
func Load(path string) (Record, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, false
	}

	var rec Record
	for _, line := range strings.Split(string(raw), "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "expires":
			rec.Expires, err = chrono.UtcTime(value)
			if err != nil {
				return Record{}, false
			}
		case "accesstoken":
			rec.AccessToken = value
		}
	}
	if rec.AccessToken == "" || rec.Expires.IsZero() {
		return Record{}, false
	}
	return rec, true
}

// Accept reports whether a cached token still has more than the
// expiry margin of validity left.
func Accept(rec Record, now time.Time) bool {
	return rec.Expires.After(now.Add(expiryMargin))
}

// Store writes the token with its decoded expiry, overwriting any
// prior content. Concurrent writers are not a supported scenario.
func Store(path, token string, now time.Time) error {
	expires := ExpiryOf(token, now)
	content := fmt.Sprintf(
		"expires=%s\naccesstoken=%s\n",
		expires.UTC().Format("2006-01-02T15:04:05Z"),
		token,
	)
	return os.WriteFile(path, []byte(content), 0600)
}

// ExpiryOf decodes the expiry from the token's payload segment
// (base64url JSON with a numeric `exp`); tokens that don't decode are
// assumed valid for the default lifetime from now.
func ExpiryOf(token string, now time.Time) time.Time {
	segments := strings.Split(token, ".")
	if len(segments) < 2 {
		return now.Add(defaultLifetime)
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segments[1], "="))
	if err != nil {
		return now.Add(defaultLifetime)
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return now.Add(defaultLifetime)
	}
	return time.Unix(claims.Exp, 0).UTC()
}

// DefaultPath builds a per-credential cache file path in the user's
// home directory so two credential sets never race on one file.
func DefaultPath(schoolServer, username string) string {
	sanitize := strings.NewReplacer(".", "_", "@", "_", "/", "_")
	suffix := ""
	if schoolServer != "" && username != "" {
		suffix = fmt.Sprintf("_%s_%s", sanitize.Replace(schoolServer), sanitize.Replace(username))
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".magister_auth_cache"+suffix)
}
