// Package tracker implements account registration, login and the
// owner-scoped test case operations on top of the store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MediSynth-io/casetracker/internal/auth"
	"github.com/MediSynth-io/casetracker/internal/models"
	"github.com/MediSynth-io/casetracker/internal/store"
)

// Service holds the components every request needs. It has no mutable state.
type Service struct {
	store    *store.Store
	hasher   *auth.Hasher
	tokens   *auth.TokenManager
	tokenTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger

	exporter   Uploader
	presignTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithExporter enables ExportTestCases using uploader. Download links stay
// valid for presignTTL.
func WithExporter(uploader Uploader, presignTTL time.Duration) Option {
	return func(s *Service) {
		s.exporter = uploader
		s.presignTTL = presignTTL
	}
}

// New creates a Service. Login tokens live for tokenTTL.
func New(st *store.Store, hasher *auth.Hasher, tokens *auth.TokenManager, tokenTTL time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		now:      func() time.Time { return time.Now() },
		logger:   logger,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = auth.DefaultTokenTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time in UTC at the precision every supported
// database can store.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Register creates an active user after checking that the username and email are free.
func (s *Service) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	if err := auth.ValidateRegistration(reg); err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     reg.Email,
		Username:  reg.Username,
		IsActive:  true,
		CreatedAt: s.timestamp(),
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		if err := ensureAbsent(tx.GetUserByUsername(ctx, reg.Username)); err != nil {
			if errors.Is(err, errTaken) {
				return ErrDuplicateUsername
			}
			return err
		}
		if err := ensureAbsent(tx.GetUserByEmail(ctx, reg.Email)); err != nil {
			if errors.Is(err, errTaken) {
				return ErrDuplicateEmail
			}
			return err
		}

		hash, err := s.hasher.Hash(reg.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash

		if err := tx.CreateUser(ctx, user); err != nil {
			var dup *store.UniqueViolationError
			if errors.As(err, &dup) {
				if dup.Field == "email" {
					return ErrDuplicateEmail
				}
				return ErrDuplicateUsername
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

var errTaken = errors.New("taken")

func ensureAbsent(_ *models.User, err error) error {
	switch {
	case err == nil:
		return errTaken
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Login checks the credentials and issues a bearer token. Unknown users and
// wrong passwords fail identically with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Token, error) {
	var user *models.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		var err error
		user, err = tx.GetUserByUsername(ctx, username)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.VerifyAbsent(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.Username, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &models.Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokenTTL / time.Second),
		ExpiresAt:   expiresAt,
	}, nil
}

// Authenticate resolves a bearer token to its user. Token problems are
// returned as *auth.AuthError.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	var user *models.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Store) error {
		var err error
		user, err = auth.NewResolver(s.tokens, tx).Resolve(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Ping reports whether the backing database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
