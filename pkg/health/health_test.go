package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, handler http.HandlerFunc) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w.Code, w.Body.String()
}

func runN(ctx context.Context, c *check, n int) {
	for range n {
		c.run(ctx)
	}
}

func TestLiveEndpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("no checks", func(t *testing.T) {
		code, body := probe(t, New().LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"status":"ok"}`, body)
	})
	t.Run("below threshold", func(t *testing.T) {
		h := New()
		h.Add(Liveness, "flaky", failing("temporary"))
		runN(ctx, h.checks[Liveness][0], 2)

		code, _ := probe(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
	})
	t.Run("failing", func(t *testing.T) {
		h := New()
		h.Add(Liveness, "db", failing("connection refused"))
		runN(ctx, h.checks[Liveness][0], 3)

		code, body := probe(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, body)
	})
	t.Run("custom threshold", func(t *testing.T) {
		h := New()
		h.Add(Liveness, "db", failing("down"), WithThresholds(1, 0))
		runN(ctx, h.checks[Liveness][0], 1)

		code, _ := probe(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}

func TestReadyEndpoint(t *testing.T) {
	ctx := context.Background()

	h := New()
	h.Add(Readiness, "postgres", passing)
	h.Add(Readiness, "rabbitmq", failing("connection closed"), WithTimeout(50*time.Millisecond))

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, body)

	h.SetReady(true)
	code, _ = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, h.IsReady())

	runN(ctx, h.checks[Readiness][1], 3)
	code, body = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"rabbitmq":"connection closed"}}`, body)
	assert.False(t, h.IsReady())

	h.SetReady(false)
	_, body = probe(t, h.ReadyEndpoint)
	assert.Contains(t, body, "_readiness")
}

func TestCheckRecovery(t *testing.T) {
	down := true
	h := New()
	h.Add(Liveness, "flaky", func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(3, 2))
	c := h.checks[Liveness][0]
	ctx := context.Background()

	runN(ctx, c, 3)
	msg, failed := c.failure()
	require.True(t, failed)
	assert.Equal(t, "down", msg)

	down = false
	c.run(ctx)
	_, failed = c.failure()
	assert.True(t, failed, "one success is below the success threshold")

	c.run(ctx)
	_, failed = c.failure()
	assert.False(t, failed)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, PingCheck(pinger{})(ctx))
	assert.EqualError(t, PingCheck(pinger{err: errors.New("refused")})(ctx), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.ErrorContains(t, GoroutineCountCheck(0)(context.Background()), "exceeds threshold")
}

func TestStartStop(t *testing.T) {
	h := New()
	h.Add(Liveness, "goroutines", failing("err"))
	h.Add(Readiness, "postgres", passing)
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				probe(t, h.LiveEndpoint)
				probe(t, h.ReadyEndpoint)
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		_, failed := h.checks[Liveness][0].failure()
		return failed
	}, time.Second, 10*time.Millisecond)

	h.Stop()
	h.Stop()
}
