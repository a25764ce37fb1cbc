package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://accounts.google.com"

type idClaims struct {
	jwt.Claims
	Name  string `json:"name"`
	Email string `json:"email"`
}

func signToken(t *testing.T, key *rsa.PrivateKey, c idClaims) string {
	t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)

	raw, err := jwt.Signed(signer).Claims(c).Serialize()
	require.NoError(t, err)
	return raw
}

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func validClaims(now time.Time, audience string) idClaims {
	return idClaims{
		Claims: jwt.Claims{
			Issuer:   testIssuer,
			Subject:  "1234567890",
			Audience: jwt.Audience{audience},
			IssuedAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			Expiry:   jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	}
}

func TestOIDCVerifier_ValidToken(t *testing.T) {
	key := newKey(t)
	now := time.Now()
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := NewOIDCVerifierWithKeySet(testIssuer, keys, "client-123", func() time.Time { return now })

	claims, err := v.Verify(context.Background(), signToken(t, key, validClaims(now, "client-123")))
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", claims.String("name"))
	assert.Equal(t, "ada@example.com", claims.String("email"))
	assert.Equal(t, "1234567890", claims.String("sub"))
}

func TestOIDCVerifier_AudienceMismatch(t *testing.T) {
	key := newKey(t)
	now := time.Now()
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := NewOIDCVerifierWithKeySet(testIssuer, keys, "client-123", func() time.Time { return now })

	_, err := v.Verify(context.Background(), signToken(t, key, validClaims(now, "someone-else")))
	assert.Error(t, err)
}

func TestOIDCVerifier_NoAudienceConfiguredSkipsCheck(t *testing.T) {
	key := newKey(t)
	now := time.Now()
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := NewOIDCVerifierWithKeySet(testIssuer, keys, "", func() time.Time { return now })

	_, err := v.Verify(context.Background(), signToken(t, key, validClaims(now, "any-client")))
	assert.NoError(t, err)
}

func TestOIDCVerifier_Expired(t *testing.T) {
	key := newKey(t)
	now := time.Now()
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := NewOIDCVerifierWithKeySet(testIssuer, keys, "client-123", func() time.Time { return now.Add(2 * time.Hour) })

	_, err := v.Verify(context.Background(), signToken(t, key, validClaims(now, "client-123")))
	assert.Error(t, err)
}

func TestOIDCVerifier_WrongKey(t *testing.T) {
	signing := newKey(t)
	other := newKey(t)
	now := time.Now()
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&other.PublicKey}}
	v := NewOIDCVerifierWithKeySet(testIssuer, keys, "client-123", func() time.Time { return now })

	_, err := v.Verify(context.Background(), signToken(t, signing, validClaims(now, "client-123")))
	assert.Error(t, err)
}

func TestResolver_WithOIDCVerifier(t *testing.T) {
	key := newKey(t)
	now := time.Now()
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	r := NewResolver(NewOIDCVerifierWithKeySet(testIssuer, keys, "client-123", func() time.Time { return now }))

	caller, err := r.Resolve(context.Background(), Credentials{
		Authorization: "Bearer " + signToken(t, key, validClaims(now, "client-123")),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ada Lovelace","email":"ada@example.com"}`, caller.String())

	_, err = r.Resolve(context.Background(), Credentials{Authorization: "Bearer not-a-jwt"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
