package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	claims Claims
	err    error
	tokens []string
}

func (s *stubVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	s.tokens = append(s.tokens, rawToken)
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func TestResolve_BearerToken(t *testing.T) {
	v := &stubVerifier{claims: Claims{"name": "Ada Lovelace", "email": "ada@example.com", "sub": "123"}}
	r := NewResolver(v)

	caller, err := r.Resolve(context.Background(), Credentials{Authorization: "Bearer tok-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"tok-1"}, v.tokens)
	assert.Equal(t, SourceToken, caller.Source)
	assert.Equal(t, `{"name":"Ada Lovelace","email":"ada@example.com"}`, caller.String())
}

func TestResolve_TokenTakesPrecedenceOverHeader(t *testing.T) {
	r := NewResolver(&stubVerifier{claims: Claims{"name": "Ada", "email": "ada@example.com"}})

	caller, err := r.Resolve(context.Background(), Credentials{Authorization: "Bearer tok", User: "intruder"})
	require.NoError(t, err)
	assert.Equal(t, SourceToken, caller.Source)
	assert.NotContains(t, caller.String(), "intruder")
}

func TestResolve_InvalidTokenDoesNotFallBackToHeader(t *testing.T) {
	r := NewResolver(&stubVerifier{err: errors.New("token expired")})

	_, err := r.Resolve(context.Background(), Credentials{Authorization: "Bearer tok", User: "alice"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "token expired")
}

func TestResolve_TrustedHeader(t *testing.T) {
	r := NewResolver(nil)

	caller, err := r.Resolve(context.Background(), Credentials{User: "service-account-7"})
	require.NoError(t, err)
	assert.Equal(t, SourceHeader, caller.Source)
	assert.Equal(t, "service-account-7", caller.String())
}

func TestResolve_NonBearerAuthorizationUsesHeader(t *testing.T) {
	r := NewResolver(&stubVerifier{})

	caller, err := r.Resolve(context.Background(), Credentials{Authorization: "Basic abc", User: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "bob", caller.String())
}

func TestResolve_Unauthenticated(t *testing.T) {
	r := NewResolver(&stubVerifier{})

	_, err := r.Resolve(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = r.Resolve(context.Background(), Credentials{Authorization: "Basic abc"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_NoVerifierRejectsTokens(t *testing.T) {
	_, err := NewResolver(nil).Resolve(context.Background(), Credentials{Authorization: "Bearer tok"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_EmptyToken(t *testing.T) {
	_, err := NewResolver(&stubVerifier{}).Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestEmailOf(t *testing.T) {
	cases := []struct {
		in    string
		email string
		ok    bool
	}{
		{`{"name":"Ada","email":"ada@example.com"}`, "ada@example.com", true},
		{`{"email": "spaced@example.com", "name": "x"}`, "spaced@example.com", true},
		{`{"name":"Ada"}`, "", false},
		{`{"email":""}`, "", false},
		{`{"email":42}`, "", false},
		{`"ada@example.com"`, "", false},
		{`plain-user`, "", false},
		{``, "", false},
	}
	for _, tc := range cases {
		email, ok := EmailOf(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.email, email, "input %q", tc.in)
	}
}

func TestClaimsString(t *testing.T) {
	c := Claims{"name": "Ada", "exp": float64(12)}
	assert.Equal(t, "Ada", c.String("name"))
	assert.Equal(t, "", c.String("exp"))
	assert.Equal(t, "", c.String("missing"))
}
