//go:build !integration

package httpclient

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	log := zerolog.Nop()

	t.Run("should pass 4xx responses through without tripping", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":false}`))
		}))
		defer srv.Close()

		c := New(Options{Name: "test", FailureThreshold: 2}, &log)
		for i := 0; i < 3; i++ {
			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			resp, err := c.Do(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.Status)
		}
		assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	})

	t.Run("should open after consecutive 5xx and stop calling upstream", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := New(Options{Name: "test", FailureThreshold: 2, OpenFor: time.Minute}, &log)
		for i := 0; i < 2; i++ {
			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			resp, err := c.Do(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadGateway, resp.Status)
		}
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		_, err := c.Do(req)
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})

	t.Run("should time out slow upstreams", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		c := New(Options{Name: "test", Timeout: 20 * time.Millisecond}, &log)
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		_, err := c.Do(req)
		assert.Error(t, err)
	})
}
