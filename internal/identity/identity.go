// Package identity resolves who is calling. A bearer ID token is verified
// against the identity provider's published keys; failing that, a trusted
// X-User header value is accepted as-is for internal and dev callers.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated means no identity evidence was supplied.
	ErrUnauthenticated = errors.New("missing authentication: provide an Authorization Bearer token or X-User header")
	// ErrInvalidToken means a token was supplied but did not verify.
	ErrInvalidToken = errors.New("invalid ID token")
)

const bearerPrefix = "Bearer "

// Source says where a caller identity came from.
type Source string

const (
	SourceToken  Source = "token"
	SourceHeader Source = "header"
)

// Credentials are the raw identity headers of a request.
type Credentials struct {
	Authorization string
	User          string // X-User
}

// Caller is a resolved identity.
type Caller struct {
	Name   string
	Email  string
	Raw    string // header value when Source is SourceHeader
	Source Source
}

type tokenIdentity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// String flattens the caller into the identity string stored on records:
// compact JSON {"name","email"} for token callers, the raw value otherwise.
func (c Caller) String() string {
	if c.Source != SourceToken {
		return c.Raw
	}
	b, err := json.Marshal(tokenIdentity{Name: c.Name, Email: c.Email})
	if err != nil {
		// two plain strings cannot fail to encode
		panic(err)
	}
	return string(b)
}

// EmailOf decodes a structured identity string and returns its email.
// ok is false for opaque strings, non-object JSON, or an empty email.
func EmailOf(identity string) (email string, ok bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(identity), &obj); err != nil {
		return "", false
	}
	email, ok = obj["email"].(string)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

// Resolver turns request credentials into a Caller.
type Resolver struct {
	verifier Verifier
}

// NewResolver creates a Resolver. verifier may be nil, in which case any
// bearer token is rejected as invalid.
func NewResolver(verifier Verifier) *Resolver {
	return &Resolver{verifier: verifier}
}

// Resolve checks the bearer token first, so a token always wins over X-User.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (Caller, error) {
	if strings.HasPrefix(creds.Authorization, bearerPrefix) {
		token := strings.TrimSpace(strings.TrimPrefix(creds.Authorization, bearerPrefix))
		claims, err := r.verify(ctx, token)
		if err != nil {
			return Caller{}, err
		}
		return Caller{
			Name:   claims.String("name"),
			Email:  claims.String("email"),
			Source: SourceToken,
		}, nil
	}

	if creds.User != "" {
		return Caller{Raw: creds.User, Source: SourceHeader}, nil
	}
	return Caller{}, ErrUnauthenticated
}

// Verify checks a raw ID token and returns all of its claims.
func (r *Resolver) Verify(ctx context.Context, token string) (Claims, error) {
	return r.verify(ctx, token)
}

func (r *Resolver) verify(ctx context.Context, token string) (Claims, error) {
	if r.verifier == nil {
		return nil, fmt.Errorf("%w: no token verifier configured", ErrInvalidToken)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	claims, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
