// Package identity resolves the tenant a request or CLI invocation acts for.
// Nothing in the dataset layer runs until a tenant id is known.
package identity

import (
	"context"
	"fmt"
	"strings"

	supa "github.com/supabase-community/supabase-go"

	"okrboard/internal/apperr"
)

// Identity is an authenticated tenant.
type Identity struct {
	TenantID string
	Email    string
}

// Provider authenticates a bearer token.
type Provider interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// Static always resolves to one tenant. It serves local single-user setups
// where no sign-in exists.
type Static struct {
	Tenant string
}

func (s Static) Authenticate(ctx context.Context, token string) (Identity, error) {
	if strings.TrimSpace(s.Tenant) == "" {
		return Identity{}, apperr.Unauthenticated("no tenant configured")
	}
	return Identity{TenantID: s.Tenant}, nil
}

// Supabase validates access tokens against Supabase Auth and uses the user
// id as tenant id.
type Supabase struct {
	client *supa.Client
}

func NewSupabase(url, key string) (*Supabase, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Supabase{client: client}, nil
}

func (s *Supabase) Authenticate(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, apperr.Unauthenticated("sign in to continue")
	}
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	user, err := s.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return Identity{}, &apperr.Error{
			Kind:        apperr.KindUnauthenticated,
			Title:       "not signed in",
			Description: "your session is invalid or has expired",
			Err:         err,
		}
	}
	return Identity{TenantID: user.ID.String(), Email: user.Email}, nil
}
