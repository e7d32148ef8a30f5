package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveEndpoint(t *testing.T) {
	s := New()

	w := httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint_NotReadyUntilSet(t *testing.T) {
	s := New()

	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.SetReady(true)
	w = httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	s := New()
	s.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	s.SetReady(true)

	s.Start(context.Background(), time.Hour)
	defer s.Stop()

	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return w.Code == http.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)

	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestReadyEndpoint_PassingCheck(t *testing.T) {
	s := New()
	s.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return nil
	})
	s.SetReady(true)

	s.Start(context.Background(), time.Hour)
	defer s.Stop()

	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return w.Code == http.StatusOK
	}, time.Second, 10*time.Millisecond)
}

func TestStop_HaltsChecks(t *testing.T) {
	s := New()
	calls := make(chan struct{}, 100)
	s.AddReadinessCheck("probe", time.Second, func(context.Context) error {
		calls <- struct{}{}
		return nil
	})

	s.Start(context.Background(), 10*time.Millisecond)
	<-calls
	s.Stop()

	// Drain anything in flight, then verify no further runs.
	for len(calls) > 0 {
		<-calls
	}
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, calls)
}
