package sessionkit

import (
	"io"
	"net/http"
)

// Transport wraps outbound business-data calls with the session's bearer
// token and single-retry 401 recovery. It implements http.RoundTripper:
//
//  1. Attach the current access token.
//  2. Issue the call.
//  3. On 401, join (or start) the coalesced refresh and retry exactly once
//     with the renewed token.
//  4. If the retry is also unauthorized, force the manager to LoggedOut and
//     surface the 401 to the caller verbatim.
//
// Once the manager is LoggedOut, calls fail locally with [ErrNoSession]
// without touching the network.
//
// Requests that already carry an Authorization header pass through untouched.
type Transport struct {
	manager *Manager
	base    http.RoundTripper
}

// Transport returns a RoundTripper bound to this manager. base may be nil,
// in which case http.DefaultTransport is used.
func (m *Manager) Transport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{manager: m, base: base}
}

// Client returns an http.Client whose transport attaches session credentials.
func (m *Manager) Client() *http.Client {
	return &http.Client{Transport: m.Transport(nil)}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.base.RoundTrip(req)
	}

	sess := t.manager.CurrentSession()
	if sess == nil {
		return nil, ErrNoSession
	}

	resp, err := t.roundTripWithToken(req, sess.AccessToken, false)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Retry requires replaying the body; requests that cannot be replayed
	// surface the 401 as-is.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	renewed, refreshErr := t.manager.Refresh(req.Context())
	if refreshErr != nil {
		// Terminal failures already forced LoggedOut inside the manager.
		// Either way the caller gets the original unauthorized response.
		t.manager.metrics.inc(MetricRetryFailure)
		return resp, nil
	}

	drain(resp)

	retry, err := t.roundTripWithToken(req, renewed.AccessToken, true)
	if err != nil {
		return nil, err
	}
	if retry.StatusCode == http.StatusUnauthorized {
		t.manager.metrics.inc(MetricRetryFailure)
		t.manager.ForceLoggedOut(req.Context())
		return retry, nil
	}
	t.manager.metrics.inc(MetricRetrySuccess)
	return retry, nil
}

func (t *Transport) roundTripWithToken(req *http.Request, accessToken string, replayBody bool) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+accessToken)
	if replayBody && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	return t.base.RoundTrip(out)
}

// drain releases a response we are about to replace so the underlying
// connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
