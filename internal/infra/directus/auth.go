package directus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"content-mesh/internal/observability/metrics"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthentication is returned when login or refresh does not yield a token.
var ErrAuthentication = errors.New("directus: authentication failed")

type grantResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires"` // milliseconds
}

// tokenSource hands out the bearer token. A static token is used as-is;
// email/password credentials log in lazily and refresh the access token
// refreshSkew before it expires. Without credentials requests are anonymous.
type tokenSource struct {
	client   *Client
	static   string
	email    string
	password string
	skew     time.Duration
	now      func() time.Time

	mu      sync.Mutex
	access  string
	refresh string
	expiry  time.Time
}

func newTokenSource(c *Client, cfg Config, skew time.Duration, now func() time.Time) *tokenSource {
	return &tokenSource{
		client:   c,
		static:   cfg.Token,
		email:    cfg.Email,
		password: cfg.Password,
		skew:     skew,
		now:      now,
	}
}

// Token returns a usable access token, logging in or refreshing as needed.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if s.static != "" || s.email == "" {
		return s.static, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.access != "" && (s.expiry.IsZero() || s.now().Add(s.skew).Before(s.expiry)) {
		return s.access, nil
	}

	if s.refresh != "" {
		err := s.grant(ctx, "refresh", "/auth/refresh", map[string]string{
			"refresh_token": s.refresh,
			"mode":          "json",
		})
		if err == nil {
			return s.access, nil
		}
		s.client.logger.Warn("token refresh failed, logging in again",
			slog.Any("error", err))
	}

	if err := s.grant(ctx, "login", "/auth/login", map[string]string{
		"email":    s.email,
		"password": s.password,
	}); err != nil {
		return "", err
	}
	return s.access, nil
}

// invalidate drops the cached access token. It reports false when a new
// token cannot be obtained, i.e. for static tokens and anonymous access.
func (s *tokenSource) invalidate() bool {
	if s.static != "" || s.email == "" {
		return false
	}
	s.mu.Lock()
	s.access = ""
	s.mu.Unlock()
	return true
}

// grant runs a login or refresh call. The caller holds s.mu.
func (s *tokenSource) grant(ctx context.Context, name, path string, body map[string]string) (err error) {
	defer func() { metrics.RecordTokenRefresh(name, err) }()

	env, err := s.client.send(ctx, request{
		endpoint: "auth/" + name,
		method:   http.MethodPost,
		path:     path,
		body:     body,
		authCall: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAuthentication, name, err)
	}

	var g grantResponse
	if err := json.Unmarshal(env.Data, &g); err != nil || g.AccessToken == "" {
		return fmt.Errorf("%w: %s: no access token in response", ErrAuthentication, name)
	}

	s.access = g.AccessToken
	if g.RefreshToken != "" {
		s.refresh = g.RefreshToken
	}
	s.expiry = tokenExpiry(g.AccessToken)
	if s.expiry.IsZero() && g.Expires > 0 {
		s.expiry = s.now().Add(time.Duration(g.Expires) * time.Millisecond)
	}

	s.client.logger.Debug("access token obtained",
		slog.String("grant", name),
		slog.Time("expires_at", s.expiry))
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client only needs to know when to refresh. Zero means unknown.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
