package netprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNetworkState_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := New(srv.URL, zap.NewNop())
	state, err := p.NetworkState(context.Background())
	require.NoError(t, err)

	if !state.IsConnected {
		t.Skip("no active network interface in test environment")
	}
	assert.True(t, state.IsInternetReachable)
}

func TestNetworkState_CaptivePortalIsNotReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>hotel wifi login</html>"))
	}))
	defer srv.Close()

	p := New(srv.URL, zap.NewNop())
	state, err := p.NetworkState(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsInternetReachable)
}

func TestNetworkState_UnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := New(srv.URL, zap.NewNop())
	state, err := p.NetworkState(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsInternetReachable)
}
