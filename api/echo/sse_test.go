package echo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForSubscriber(t *testing.T, f *apiFixture) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.broker.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeHandler_DeliversLogoutEvent(t *testing.T) {
	f := newAPIFixture(t)
	access, _, sessionID := f.login(t, "alice")

	req := httptest.NewRequest(http.MethodGet,
		"/api/sse/subscribe/alice/"+sessionID+"?token="+access, nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.e.ServeHTTP(rec, req)
	}()

	waitForSubscriber(t, f)
	require.NoError(t, f.svc.RevokeSession(context.Background(), "alice", sessionID))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after revocation")
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: logout")
	assert.Contains(t, body, "Your session has been revoked")
	assert.Equal(t, 0, f.broker.Count(), "registration cleaned up")
}

func TestSubscribeHandler_DisconnectCleansUp(t *testing.T) {
	f := newAPIFixture(t)
	access, _, sessionID := f.login(t, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet,
		"/api/sse/subscribe/alice/"+sessionID+"?token="+access, nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.e.ServeHTTP(rec, req)
	}()

	waitForSubscriber(t, f)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after client disconnect")
	}
	assert.Equal(t, 0, f.broker.Count())
}

func TestSubscribeHandler_Rejections(t *testing.T) {
	f := newAPIFixture(t)
	aliceAccess, _, aliceSession := f.login(t, "alice")

	t.Run("missing token is a 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/sse/subscribe/alice/"+aliceSession, nil)
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token is a 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/api/sse/subscribe/alice/"+aliceSession+"?token=garbage", nil)
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("subscribing for another user is a 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/api/sse/subscribe/bob/some-session?token="+aliceAccess, nil)
		f.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
