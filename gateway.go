package sessionkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Auth routes resolved beneath the configured base URL. The backend mounts
// them under /auth/ with trailing slashes.
const (
	routeLogin              = "/auth/login/"
	routeRegister           = "/auth/register/"
	routeRefresh            = "/auth/refresh/"
	routeMe                 = "/auth/me/"
	routeLogout             = "/auth/logout/"
	routeRegistrationStatus = "/auth/registration-status/"
)

// gateway performs the auth network operations. It never lets a transport
// fault escape as an untyped error: every failure resolves to a *Failure.
// It is stateless; the Manager owns session state.
type gateway struct {
	base      *url.URL
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    zerolog.Logger
	clock     func() time.Time
}

func newGateway(cfg GatewayConfig, client *http.Client, logger zerolog.Logger, clock func() time.Time) (*gateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway base URL: %w", err)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &gateway{
		base:      base,
		client:    client,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		logger:    logger,
		clock:     clock,
	}, nil
}

type tokenGrant struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
}

func (g *gateway) login(ctx context.Context, creds Credentials) (*Session, error) {
	var grant tokenGrant
	if err := g.call(ctx, http.MethodPost, routeLogin, "", creds, &grant); err != nil {
		return nil, err
	}
	return g.sessionFromGrant(grant)
}

func (g *gateway) register(ctx context.Context, payload RegisterPayload) (*Session, error) {
	var grant tokenGrant
	err := g.call(ctx, http.MethodPost, routeRegister, "", payload, &grant)
	if err != nil {
		if f, ok := FailureFrom(err); ok && f.Status == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %s", ErrRegistrationDisabled, f.Message)
		}
		return nil, err
	}
	return g.sessionFromGrant(grant)
}

// refresh exchanges a refresh token for a new access token. The backend
// returns only the access token; the caller splices it into the retained
// session.
func (g *gateway) refresh(ctx context.Context, refreshToken string) (string, error) {
	body := struct {
		Refresh string `json:"refresh"`
	}{Refresh: refreshToken}

	var out struct {
		Access string `json:"access"`
	}
	if err := g.call(ctx, http.MethodPost, routeRefresh, "", body, &out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", newFailure(KindUnknown, 0, "refresh response carried no access token")
	}
	return out.Access, nil
}

func (g *gateway) currentUser(ctx context.Context, accessToken string) (UserProfile, error) {
	var out struct {
		User json.RawMessage `json:"user"`
	}
	if err := g.call(ctx, http.MethodGet, routeMe, accessToken, nil, &out); err != nil {
		return UserProfile{}, err
	}
	if len(out.User) == 0 {
		return UserProfile{}, newFailure(KindUnknown, 0, "me response carried no user payload")
	}
	profile, err := parseProfile(out.User)
	if err != nil {
		return UserProfile{}, newFailure(KindUnknown, 0, fmt.Sprintf("undecodable user payload: %v", err))
	}
	return profile, nil
}

// logout revokes the refresh token server-side. Best effort by contract:
// callers destroy the local session regardless of the outcome here.
func (g *gateway) logout(ctx context.Context, accessToken, refreshToken string) error {
	body := struct {
		Refresh string `json:"refresh"`
	}{Refresh: refreshToken}
	return g.call(ctx, http.MethodPost, routeLogout, accessToken, body, nil)
}

func (g *gateway) registrationEnabled(ctx context.Context) (bool, error) {
	var out struct {
		Enabled bool `json:"registration_enabled"`
	}
	if err := g.call(ctx, http.MethodGet, routeRegistrationStatus, "", nil, &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

func (g *gateway) sessionFromGrant(grant tokenGrant) (*Session, error) {
	if grant.Access == "" || grant.Refresh == "" {
		return nil, newFailure(KindUnknown, 0, "grant response missing token pair")
	}
	user, err := parseProfile(grant.User)
	if err != nil {
		return nil, newFailure(KindUnknown, 0, fmt.Sprintf("undecodable user payload: %v", err))
	}
	return newSession(grant.Access, grant.Refresh, user, g.clock()), nil
}

// call issues one JSON request and decodes a 2xx response into out. Non-2xx
// statuses and transport faults come back as *Failure.
func (g *gateway) call(ctx context.Context, method, route, bearer string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", route, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.base.String()+route, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", route, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	requestID := requestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug().Str("route", route).Str("request_id", requestID).Err(err).Msg("gateway transport fault")
		return transportFailure(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return transportFailure(err)
	}

	g.logger.Debug().Str("route", route).Str("request_id", requestID).Int("status", resp.StatusCode).Msg("gateway call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(resp.StatusCode, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return newFailure(KindUnknown, resp.StatusCode, fmt.Sprintf("undecodable %s response: %v", route, err))
	}
	return nil
}

// decodeFailure maps a non-2xx auth response onto the failure taxonomy.
//
// The backend answers with either {"message": ...} / {"detail": ...}
// (credential-shaped) or a DRF-style {"field": ["msg", ...]} map (validation).
func decodeFailure(status int, payload []byte) *Failure {
	message, fields := parseErrorBody(payload)

	switch {
	case status == http.StatusNotFound:
		return newFailure(KindEndpointMissing, status, message)
	case status >= 500:
		return newFailure(KindServerError, status, message)
	case status == http.StatusUnauthorized:
		return newFailure(KindInvalidCredentials, status, message)
	case status == http.StatusBadRequest && len(fields) > 0:
		f := newFailure(KindValidation, status, message)
		f.Fields = fields
		return f
	case status == http.StatusBadRequest && message != "":
		return newFailure(KindInvalidCredentials, status, message)
	default:
		return newFailure(KindUnknown, status, message)
	}
}

func parseErrorBody(payload []byte) (message string, fields map[string][]string) {
	if len(payload) == 0 {
		return "", nil
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return strings.TrimSpace(string(payload)), nil
	}

	for _, key := range []string{"message", "detail", "error"} {
		raw, ok := body[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			message = s
			break
		}
	}

	for key, raw := range body {
		if key == "message" || key == "detail" || key == "error" {
			continue
		}
		var many []string
		if json.Unmarshal(raw, &many) == nil && len(many) > 0 {
			if fields == nil {
				fields = make(map[string][]string)
			}
			fields[key] = many
			continue
		}
		var one string
		if json.Unmarshal(raw, &one) == nil && one != "" {
			if fields == nil {
				fields = make(map[string][]string)
			}
			fields[key] = []string{one}
		}
	}
	return message, fields
}
