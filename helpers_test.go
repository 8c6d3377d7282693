package sessionkit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/sessionkit/store"
)

var testSigningKey = []byte("sessionkit-test-signing-key")

// mintToken issues an HS256 JWT the way the backend's simplejwt stack does,
// with iat/exp anchored at issued.
func mintToken(t *testing.T, tokenType string, issued time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"token_type": tokenType,
		"user_id":    1,
		"username":   "admin",
		"role":       "admin",
		"iat":        issued.Unix(),
		"exp":        issued.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return signed
}

func adminUserJSON() []byte {
	return []byte(`{"id":1,"username":"admin","email":"admin@example.com","role":"admin","is_active":true,"is_verified":true}`)
}

func adminProfile(t *testing.T) UserProfile {
	t.Helper()
	p, err := parseProfile(adminUserJSON())
	if err != nil {
		t.Fatalf("parse profile: %v", err)
	}
	return p
}

// testClock is a settable time source shared between a test and its Manager.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestManager builds an uninitialized Manager against baseURL with a
// settable clock and an inert background cadence; tests drive checkOnce
// directly.
func newTestManager(t *testing.T, baseURL string, opts ...func(*Builder)) (*Manager, *store.MemoryStore, *testClock) {
	t.Helper()
	clock := newTestClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	st := store.NewMemoryStore()

	b := New().
		WithBaseURL(baseURL).
		WithStore(st).
		WithClock(clock.Now).
		WithRenewal(RenewalConfig{
			CheckInterval:   time.Hour,
			AccessMargin:    time.Minute,
			AccessTTLHint:   5 * time.Minute,
			RefreshLifetime: 24 * time.Hour,
		})
	for _, opt := range opts {
		opt(b)
	}

	m, err := b.Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, st, clock
}

func seedStore(t *testing.T, st store.Store, access, refresh string) {
	t.Helper()
	err := st.Write(context.Background(), &store.Record{
		AccessToken:  access,
		RefreshToken: refresh,
		Profile:      adminUserJSON(),
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

// brokenStore fails every operation, for degradation tests.
type brokenStore struct{}

func (brokenStore) Read(context.Context) (*store.Record, error) {
	return nil, errors.New("keychain unavailable")
}
func (brokenStore) Write(context.Context, *store.Record) error {
	return errors.New("keychain unavailable")
}
func (brokenStore) Clear(context.Context) error {
	return errors.New("keychain unavailable")
}

func jsonDecode(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func grantBody(access, refresh string) map[string]any {
	var user map[string]any
	_ = json.Unmarshal(adminUserJSON(), &user)
	return map[string]any{
		"access":  access,
		"refresh": refresh,
		"user":    user,
	}
}
