package httpserver

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServer_Pprof(t *testing.T) {
	tests := []struct {
		name         string
		enablePprof  bool
		expectedCode int
	}{
		{name: "enabled", enablePprof: true, expectedCode: http.StatusOK},
		{name: "disabled", enablePprof: false, expectedCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := New(&HTTPServerConfig{
				Log:         testLogger(),
				EnablePprof: tt.enablePprof,
			}, NewHandler(new(MockBackend), testLogger()))
			require.NoError(t, err)

			code, _ := get(t, srv.srv.Handler, "/debug/pprof/")
			assert.Equal(t, tt.expectedCode, code)
		})
	}
}

func TestServer_RunAndShutdown(t *testing.T) {
	apiAddr, metricsAddr := freeAddr(t), freeAddr(t)
	srv, err := New(&HTTPServerConfig{
		ListenAddr:               apiAddr,
		MetricsAddr:              metricsAddr,
		Log:                      testLogger(),
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, NewHandler(new(MockBackend), testLogger()))
	require.NoError(t, err)

	srv.RunInBackground()

	for _, url := range []string{
		fmt.Sprintf("http://%s/livez", apiAddr),
		fmt.Sprintf("http://%s/metrics", metricsAddr),
	} {
		require.Eventually(t, func() bool {
			resp, err := http.Get(url)
			if err != nil {
				return false
			}
			resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 5*time.Second, 10*time.Millisecond, url)
	}

	srv.Shutdown()
	assert.False(t, srv.isReady.Load())

	_, err = http.Get(fmt.Sprintf("http://%s/livez", apiAddr))
	assert.Error(t, err)
}
