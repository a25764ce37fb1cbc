package identity

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Claims is the decoded payload of a verified ID token.
type Claims map[string]any

// String returns claim key as a string, or "" when absent or not a string.
func (c Claims) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Verifier checks an ID token's signature, issuer, expiry and audience.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Claims, error)
}

// OIDCVerifier verifies tokens against an OpenID Connect provider's key set.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier fetches signing keys from jwksURL on demand. ctx scopes the
// key set's HTTP fetches and should outlive the verifier. An empty audience
// disables the audience check.
func NewOIDCVerifier(ctx context.Context, issuer, jwksURL, audience string) *OIDCVerifier {
	return NewOIDCVerifierWithKeySet(issuer, oidc.NewRemoteKeySet(ctx, jwksURL), audience, nil)
}

// NewOIDCVerifierWithKeySet uses a caller-supplied key set. now overrides the
// clock used for expiry checks when non-nil.
func NewOIDCVerifierWithKeySet(issuer string, keys oidc.KeySet, audience string, now func() time.Time) *OIDCVerifier {
	cfg := &oidc.Config{
		ClientID:          audience,
		SkipClientIDCheck: audience == "",
		Now:               now,
	}
	return &OIDCVerifier{verifier: oidc.NewVerifier(issuer, keys, cfg)}
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	claims := Claims{}
	if err := tok.Claims(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}
