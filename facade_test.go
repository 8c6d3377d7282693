package sessionkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func recvView(t *testing.T, ch <-chan StateView) StateView {
	t.Helper()
	select {
	case view, ok := <-ch:
		if !ok {
			t.Fatal("view channel closed early")
		}
		return view
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a state view")
	}
	return StateView{}
}

func TestSubscribeObservesLifecycleInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			writeJSON(w, http.StatusOK, grantBody("A1", "R1"))
		case "/auth/logout/":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	m, _, _ := newTestManager(t, server.URL)

	views, cancel := m.Subscribe()
	defer cancel()

	// Before Init the machine is still settling.
	if view := recvView(t, views); !view.Loading {
		t.Fatalf("initial view = %+v, want Loading", view)
	}

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if view := recvView(t, views); view.Loading || view.Authenticated {
		t.Fatalf("post-init view = %+v, want settled logged out", view)
	}

	if _, err := m.Login(context.Background(), Credentials{Username: "admin", Password: "secret123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	view := recvView(t, views)
	if !view.Authenticated || view.SessionExpired {
		t.Fatalf("post-login view = %+v", view)
	}
	if view.User == nil || view.User.Username != "admin" {
		t.Fatalf("post-login user = %+v", view.User)
	}

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	view = recvView(t, views)
	if view.Authenticated || view.SessionExpired || view.User != nil {
		t.Fatalf("post-logout view = %+v", view)
	}
}

// A forced logout is distinguishable from a user-initiated one, and the flag
// resets on the next successful login.
func TestSubscribeMarksForcedLogoutAsExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			writeJSON(w, http.StatusOK, grantBody("A1", "R1"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	m, _, _ := newTestManager(t, server.URL)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := m.Login(context.Background(), Credentials{Username: "admin", Password: "secret123"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	views, cancel := m.Subscribe()
	defer cancel()
	if view := recvView(t, views); !view.Authenticated {
		t.Fatalf("subscription must start from the current state, got %+v", view)
	}

	m.ForceLoggedOut(context.Background())
	view := recvView(t, views)
	if view.Authenticated || !view.SessionExpired {
		t.Fatalf("forced-logout view = %+v, want SessionExpired", view)
	}

	if _, err := m.Login(context.Background(), Credentials{Username: "admin", Password: "secret123"}); err != nil {
		t.Fatalf("re-login: %v", err)
	}
	view = recvView(t, views)
	if !view.Authenticated || view.SessionExpired {
		t.Fatalf("re-login must clear the expiry flag, got %+v", view)
	}
}

// A subscriber that never reads must not stall the machine or other
// subscribers; its views queue up and drain whenever it catches up.
func TestSubscribeSlowConsumerDoesNotBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			writeJSON(w, http.StatusOK, grantBody("A1", "R1"))
		case "/auth/logout/":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	m, _, _ := newTestManager(t, server.URL)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	slow, cancelSlow := m.Subscribe()
	defer cancelSlow()
	fast, cancelFast := m.Subscribe()
	defer cancelFast()
	recvView(t, fast) // initial

	for i := 0; i < 3; i++ {
		if _, err := m.Login(context.Background(), Credentials{Username: "admin", Password: "secret123"}); err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		if view := recvView(t, fast); !view.Authenticated {
			t.Fatalf("fast login view %d = %+v", i, view)
		}
		if err := m.Logout(context.Background()); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
		if view := recvView(t, fast); view.Authenticated {
			t.Fatalf("fast logout view %d = %+v", i, view)
		}
	}

	// The slow subscriber now drains every queued view in order.
	if view := recvView(t, slow); view.Authenticated {
		t.Fatalf("slow initial view = %+v", view)
	}
	for i := 0; i < 3; i++ {
		if view := recvView(t, slow); !view.Authenticated {
			t.Fatalf("slow login view %d = %+v", i, view)
		}
		if view := recvView(t, slow); view.Authenticated {
			t.Fatalf("slow logout view %d = %+v", i, view)
		}
	}
}

func TestSubscribeCancelClosesStream(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	m, _, _ := newTestManager(t, server.URL)

	views, cancel := m.Subscribe()
	recvView(t, views)
	cancel()

	select {
	case _, ok := <-views:
		if ok {
			t.Fatal("expected channel close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}
