// Command sessionkit-probe exercises a sessionkit client against a real
// backend or a built-in fake one: login, an authorized business call, a
// forced 401/refresh/retry cycle, and logout, with every lifecycle event and
// counter printed at the end.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	sessionkit "github.com/MrEthical07/sessionkit"
	"github.com/MrEthical07/sessionkit/metrics/export/prometheus"
	"github.com/MrEthical07/sessionkit/store"
)

func main() {
	var (
		envFile      = flag.String("env", "", "optional .env file to load")
		baseURL      = flag.String("base-url", "", "backend base URL; empty starts the built-in fake backend")
		username     = flag.String("username", "admin", "login username")
		password     = flag.String("password", "secret123", "login password")
		storeKind    = flag.String("store", "memory", "token store: memory or file")
		storePath    = flag.String("store-path", "", "session file path for -store file")
		storeKeyHex  = flag.String("store-key", "", "hex-encoded 32-byte sealing key for -store file")
		businessPath = flag.String("business-path", "/api/customers/", "authorized GET issued through the interceptor")
		accessTTL    = flag.Duration("fake-access-ttl", 2*time.Second, "access token TTL minted by the fake backend")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
			os.Exit(2)
		}
	}
	if *baseURL == "" {
		*baseURL = os.Getenv("SESSIONKIT_BASE_URL")
	}

	figure.NewFigure("sessionkit", "", true).Print()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.DebugLevel).With().Timestamp().Logger()

	fake := false
	if *baseURL == "" {
		backend := newFakeBackend(*username, *password, *accessTTL)
		server := httptest.NewServer(backend)
		defer server.Close()
		*baseURL = server.URL
		fake = true
		logger.Info().Str("url", server.URL).Msg("started built-in fake backend")
	}

	tokenStore, err := buildStore(*storeKind, *storePath, *storeKeyHex)
	if err != nil {
		logger.Fatal().Err(err).Msg("token store")
	}

	manager, err := sessionkit.New().
		WithBaseURL(*baseURL).
		WithStore(tokenStore).
		WithLogger(logger).
		WithEventSink(sessionkit.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("build manager")
	}
	defer manager.Close()

	ctx := context.Background()
	if err := manager.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("init")
	}
	logger.Info().Stringer("state", manager.State()).Msg("initialized")

	if manager.State() != sessionkit.StateLoggedIn {
		sess, err := manager.Login(ctx, sessionkit.Credentials{Username: *username, Password: *password})
		if err != nil {
			logger.Fatal().Err(err).Msg("login")
		}
		logger.Info().Str("user", sess.User.Username).Str("role", sess.User.Role).Msg("logged in")
	}

	client := manager.Client()
	probeOnce(ctx, logger, client, *baseURL+*businessPath)

	if fake {
		// Outlive the fake's access TTL, so the next call takes the
		// 401 -> refresh -> retry path.
		logger.Info().Dur("ttl", *accessTTL).Msg("waiting out the access token")
		time.Sleep(*accessTTL + time.Second)
		probeOnce(ctx, logger, client, *baseURL+*businessPath)
	}

	if err := manager.Logout(ctx); err != nil {
		logger.Error().Err(err).Msg("logout")
	}
	logger.Info().Stringer("state", manager.State()).Msg("logged out")

	fmt.Println(prometheus.NewPrometheusExporter(manager).Render())
}

func probeOnce(ctx context.Context, logger zerolog.Logger, client *http.Client, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("build business request")
	}
	resp, err := client.Do(req)
	if err != nil {
		logger.Error().Err(err).Msg("business call failed")
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	logger.Info().Int("status", resp.StatusCode).Str("body", string(body)).Msg("business call")
}

func buildStore(kind, path, keyHex string) (store.Store, error) {
	switch kind {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		if path == "" {
			return nil, fmt.Errorf("-store file requires -store-path")
		}
		if keyHex == "" {
			return store.NewFileStore(path), nil
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("decode -store-key: %w", err)
		}
		return store.NewSealedFileStore(path, key)
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}

// fakeBackend is a minimal stand-in for the real API: one user, HS256 JWTs
// with a short access TTL, and a business route that actually checks the
// bearer token so the interceptor's retry path gets exercised.
type fakeBackend struct {
	mux      *http.ServeMux
	username string
	password string
	ttl      time.Duration
	key      []byte
	refresh  atomic.Int64
}

func newFakeBackend(username, password string, ttl time.Duration) *fakeBackend {
	b := &fakeBackend{
		username: username,
		password: password,
		ttl:      ttl,
		key:      []byte("sessionkit-probe-signing-key"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login/", b.handleLogin)
	mux.HandleFunc("POST /auth/refresh/", b.handleRefresh)
	mux.HandleFunc("POST /auth/logout/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
	})
	mux.HandleFunc("GET /auth/registration-status/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"registration_enabled": false})
	})
	mux.HandleFunc("GET /api/", b.handleBusiness)
	b.mux = mux
	return b
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

func (b *fakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil ||
		creds.Username != b.username || creds.Password != b.password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  b.mint("access", b.ttl),
		"refresh": b.mint("refresh", 24*time.Hour),
		"user": map[string]any{
			"id": 1, "username": b.username, "role": "admin", "is_active": true,
		},
	})
}

func (b *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !b.verify(body.Refresh) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	b.refresh.Add(1)
	writeJSON(w, http.StatusOK, map[string]string{"access": b.mint("access", b.ttl)})
}

func (b *fakeBackend) handleBusiness(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get("Authorization")
	if len(raw) < 8 || !b.verify(raw[7:]) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": []string{}, "refreshes_served": b.refresh.Load()})
}

func (b *fakeBackend) mint(tokenType string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"token_type": tokenType,
		"user_id":    1,
		"username":   b.username,
		"role":       "admin",
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.key)
	if err != nil {
		panic(err)
	}
	return signed
}

func (b *fakeBackend) verify(raw string) bool {
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return b.key, nil },
		jwt.WithValidMethods([]string{"HS256"}))
	return err == nil && tok.Valid
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
