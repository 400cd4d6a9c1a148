package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MediSynth-io/casetracker/internal/models"
	"github.com/stretchr/testify/assert"
)

type authenticatorFunc func(ctx context.Context, token string) (*models.User, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return f(ctx, token)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer a b", "", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		token, ok := BearerToken(r)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestAuthMiddleware(t *testing.T) {
	alice := &models.User{ID: 1, Username: "alice"}
	authenticator := authenticatorFunc(func(ctx context.Context, token string) (*models.User, error) {
		switch token {
		case "good":
			return alice, nil
		case "expired":
			return nil, ErrExpired
		case "ghost":
			return nil, newAuthError(KindUnknownSubject, nil)
		default:
			return nil, errors.New("database unavailable")
		}
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := AuthMiddleware(authenticator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if assert.True(t, ok) {
			w.Write([]byte(user.Username))
		}
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
		{"wrong scheme", "Token good", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
		{"expired token", "Bearer expired", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
		{"unknown subject", "Bearer ghost", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
		{"storage failure", "Bearer broken", http.StatusInternalServerError, `{"detail":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
				return
			}
			assert.JSONEq(t, tt.body, w.Body.String())
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestGetUserFromContextEmpty(t *testing.T) {
	_, ok := GetUserFromContext(context.Background())
	assert.False(t, ok)
}
