package twilio

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenIssuer mints Twilio Voice access tokens for the browser client.
// Twilio access tokens are ordinary HS256 JWTs with a grants claim.
type AccessTokenIssuer struct {
	AccountSID   string
	APIKeySID    string
	APIKeySecret string
	TwiMLAppSID  string
	TTL          time.Duration

	now func() time.Time
}

func (i *AccessTokenIssuer) Configured() bool {
	return i != nil && i.AccountSID != "" && i.APIKeySID != "" && i.APIKeySecret != "" && i.TwiMLAppSID != ""
}

type voiceGrantClaims struct {
	jwt.RegisteredClaims
	Grants map[string]any `json:"grants"`
}

// Issue returns a signed token granting outbound voice for the identity.
func (i *AccessTokenIssuer) Issue(identity string) (string, error) {
	if !i.Configured() {
		return "", fmt.Errorf("voice token signing credentials are not configured")
	}
	if identity == "" {
		return "", fmt.Errorf("missing identity")
	}
	nowFn := i.now
	if nowFn == nil {
		nowFn = time.Now
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := nowFn()

	claims := voiceGrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", i.APIKeySID, now.Unix()),
			Issuer:    i.APIKeySID,
			Subject:   i.AccountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Grants: map[string]any{
			"identity": identity,
			"voice": map[string]any{
				"outgoing": map[string]any{
					"application_sid": i.TwiMLAppSID,
				},
			},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = "twilio-fpa;v=1"
	return token.SignedString([]byte(i.APIKeySecret))
}
