package sessionkit

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by sessionkit APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	Gateway GatewayConfig
	Renewal RenewalConfig
	Events  EventConfig
	Metrics MetricsConfig
}

/*
====================================
GATEWAY CONFIG
====================================
*/

// GatewayConfig configures the HTTP client side of the auth gateway.
type GatewayConfig struct {
	// BaseURL is the backend root, e.g. "https://api.example.com". Auth
	// routes are resolved beneath it ("/auth/login/", "/auth/refresh/", ...).
	BaseURL string
	// Timeout bounds every gateway call. Calls past it resolve as
	// KindNetworkUnreachable rather than hanging.
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
RENEWAL CONFIG
====================================
*/

// RenewalConfig owns the proactive refresh policy.
type RenewalConfig struct {
	// CheckInterval is the background re-classification cadence.
	CheckInterval time.Duration
	// AccessMargin is the safety buffer before access-token expiry. Renewal
	// is attempted once a session's age crosses expiry minus this margin, so
	// it happens before failure rather than after.
	AccessMargin time.Duration
	// AccessTTLHint is assumed when the access token carries no parsable
	// exp claim.
	AccessTTLHint time.Duration
	// RefreshLifetime is the refresh token's assumed absolute lifetime when
	// it carries no parsable exp claim. Past it the session is unsalvageable.
	RefreshLifetime time.Duration
}

/*
====================================
EVENT CONFIG
====================================
*/

// EventConfig configures the async lifecycle-event dispatcher.
type EventConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking emitters when the buffer
	// is full. Dropped events are counted, never silently lost.
	DropIfFull bool
}

// MetricsConfig defines a public type used by sessionkit APIs.
type MetricsConfig struct {
	Enabled bool
}

var (
	errConfigBaseURL         = errors.New("config: gateway base URL is required and must be absolute")
	errConfigTimeout         = errors.New("config: gateway timeout must be positive")
	errConfigCheckInterval   = errors.New("config: renewal check interval must be positive")
	errConfigAccessMargin    = errors.New("config: renewal access margin must be positive")
	errConfigAccessTTL       = errors.New("config: renewal access TTL hint must exceed the access margin")
	errConfigRefreshLifetime = errors.New("config: renewal refresh lifetime must exceed the access TTL hint")
)

func defaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Timeout:   30 * time.Second,
			UserAgent: "sessionkit/1",
		},
		Renewal: RenewalConfig{
			CheckInterval:   time.Minute,
			AccessMargin:    time.Minute,
			AccessTTLHint:   5 * time.Minute,
			RefreshLifetime: 7 * 24 * time.Hour,
		},
		Events: EventConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// Config holds no reference types today; a shallow copy is a deep copy.
	return cfg
}

func (c Config) validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Gateway.BaseURL))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errConfigBaseURL
	}
	if c.Gateway.Timeout <= 0 {
		return errConfigTimeout
	}
	if c.Renewal.CheckInterval <= 0 {
		return errConfigCheckInterval
	}
	if c.Renewal.AccessMargin <= 0 {
		return errConfigAccessMargin
	}
	if c.Renewal.AccessTTLHint <= c.Renewal.AccessMargin {
		return errConfigAccessTTL
	}
	if c.Renewal.RefreshLifetime <= c.Renewal.AccessTTLHint {
		return errConfigRefreshLifetime
	}
	return nil
}
