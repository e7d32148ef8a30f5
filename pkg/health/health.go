// Package health provides liveness and readiness probe endpoints. Readiness
// checks run periodically in the background; the HTTP endpoints only read the
// latest results.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. It returns nil when healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	lastErr error
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *check) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Service runs readiness checks and serves probe endpoints.
type Service struct {
	ready  atomic.Bool
	checks []*check
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a health Service. The service starts not-ready; call SetReady
// once initialization completes.
func New() *Service {
	return &Service{}
}

// AddReadinessCheck registers a named dependency check with a per-run
// timeout. Must be called before Start.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.checks = append(s.checks, &check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the overall readiness flag, used for startup and drain.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start runs every registered check immediately and then at the given
// interval until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			for _, c := range s.checks {
				c.run(ctx)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the background checks and waits for them to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// LiveEndpoint always reports the process as alive.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyEndpoint reports 200 when the service is ready and every dependency
// check passed, 503 otherwise with per-check detail.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	detail := make(map[string]string, len(s.checks))

	if !s.ready.Load() {
		status = http.StatusServiceUnavailable
	}
	for _, c := range s.checks {
		if err := c.err(); err != nil {
			status = http.StatusServiceUnavailable
			detail[c.name] = err.Error()
		} else {
			detail[c.name] = "ok"
		}
	}

	body := map[string]any{"checks": detail}
	if status == http.StatusOK {
		body["status"] = "ok"
	} else {
		body["status"] = "unavailable"
	}
	writeStatus(w, status, body)
}

func writeStatus(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
