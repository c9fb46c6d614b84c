package tokens

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var segments = jwt.NewParser(jwt.WithPaddingAllowed())

// IsExpired decodes the token's middle segment, without looking at the
// header or the signature, and compares the exp claim (seconds) to now.
// Anything that cannot be decoded, or carries no exp, counts as expired.
func IsExpired(token string, now time.Time) bool {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return true
	}
	raw, err := segments.DecodeSegment(parts[1])
	if err != nil {
		return true
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Unix() < now.Unix()
}
