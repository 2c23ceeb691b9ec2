package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tazhibayda/task-service/internal/apperr"
)

// VerifyFunc verifies one token format and yields the claim it asserts.
type VerifyFunc func(ctx context.Context, raw string) (*Claim, error)

// Verifier tries the provider-native session token first, then the
// general OAuth id token. Sequential on purpose: the native path
// carries richer provider metadata and wins whenever it parses.
type Verifier struct {
	Native   VerifyFunc
	Fallback VerifyFunc
}

// NewVerifier wires the two verification paths against their JWKS
// endpoints. projectID scopes the native path, clientID the OAuth one.
func NewVerifier(nativeKeys, googleKeys *Fetcher, projectID, clientID string) *Verifier {
	return &Verifier{
		Native: verifyRS256(nativeKeys,
			[]string{"https://securetoken.google.com/" + projectID},
			projectID),
		Fallback: verifyRS256(googleKeys,
			[]string{"https://accounts.google.com", "accounts.google.com"},
			clientID),
	}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (*Claim, error) {
	if raw == "" {
		return nil, apperr.New(apperr.InvalidToken, "empty identity token")
	}
	if v.Native != nil {
		if c, err := v.Native(ctx, raw); err == nil {
			return checked(c)
		}
	}
	if v.Fallback != nil {
		if c, err := v.Fallback(ctx, raw); err == nil {
			return checked(c)
		}
	}
	return nil, apperr.New(apperr.InvalidToken, "identity token verification failed")
}

// checked rejects claims that cannot anchor an account.
func checked(c *Claim) (*Claim, error) {
	if c.SubjectID == "" || c.Email == "" {
		return nil, apperr.New(apperr.InvalidToken, "identity token missing subject or email")
	}
	return c, nil
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
	jwt.RegisteredClaims
}

func verifyRS256(keys *Fetcher, issuers []string, audience string) VerifyFunc {
	return func(ctx context.Context, raw string) (*Claim, error) {
		claims := &idClaims{}
		keyfunc := func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("no kid")
			}
			return keys.Key(ctx, kid)
		}
		if _, err := jwt.ParseWithClaims(raw, claims, keyfunc,
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithAudience(audience),
		); err != nil {
			return nil, err
		}
		iss, _ := claims.GetIssuer()
		ok := false
		for _, want := range issuers {
			if iss == want {
				ok = true
				break
			}
		}
		if !ok {
			return nil, errors.New("bad iss")
		}

		provider := claims.Firebase.SignInProvider
		if provider == "" {
			provider = "google.com"
		}
		return &Claim{
			SubjectID:     claims.Subject,
			Email:         claims.Email,
			EmailVerified: claims.EmailVerified,
			Name:          claims.Name,
			Picture:       claims.Picture,
			GivenName:     claims.GivenName,
			FamilyName:    claims.FamilyName,
			Provider:      provider,
		}, nil
	}
}
