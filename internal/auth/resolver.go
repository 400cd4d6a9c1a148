package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MediSynth-io/casetracker/internal/models"
	"github.com/MediSynth-io/casetracker/internal/store"
)

// UserFinder looks users up by username.
type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Resolver turns a bearer token into the user it was issued for.
type Resolver struct {
	tokens *TokenManager
	users  UserFinder
}

// NewResolver creates a Resolver
func NewResolver(tokens *TokenManager, users UserFinder) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve validates token and loads its subject. Token failures are returned
// unchanged; a subject with no matching user is KindUnknownSubject. Any other
// error is a storage failure.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	username, err := r.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAuthError(KindUnknownSubject, fmt.Errorf("no user %q", username))
		}
		return nil, fmt.Errorf("failed to load token subject: %w", err)
	}
	return user, nil
}
