package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// InternalIdentity is the caller name given to requests bearing the
// internal-service secret.
const InternalIdentity = "internal-service"

// Identity is the authenticated caller.
type Identity struct {
	ID       string
	Username string
	Role     model.Role
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller stored by Authenticate.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authenticator resolves callers from request headers.
type Authenticator struct {
	tokens         *Manager
	internalSecret string
}

// NewAuthenticator builds an Authenticator.
func NewAuthenticator(tokens *Manager, internalSecret string) *Authenticator {
	return &Authenticator{tokens: tokens, internalSecret: internalSecret}
}

// Middleware rejects unauthenticated requests with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.resolve(r)
		if err != nil {
			code := "AUTH_UNAUTHORIZED"
			if errors.Is(err, ErrTokenExpired) {
				code = "AUTH_TOKEN_EXPIRED"
			}
			logrus.WithField("path", r.URL.Path).WithError(err).Debug("authentication failed")
			writeError(w, http.StatusUnauthorized, code, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

var errMissingCredentials = errors.New("missing authorization token")

func (a *Authenticator) resolve(r *http.Request) (Identity, error) {
	if secret := r.Header.Get("X-Internal-Secret"); secret != "" && a.internalSecret != "" {
		if subtle.ConstantTimeCompare([]byte(secret), []byte(a.internalSecret)) == 1 {
			return Identity{Username: InternalIdentity, Role: model.RoleWebmaster}, nil
		}
	}
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Identity{}, errMissingCredentials
	}
	claims, err := a.tokens.ParseToken(strings.TrimSpace(raw))
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		ID:       claims.ID,
		Username: claims.Username,
		Role:     model.Role(claims.Role),
	}, nil
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
