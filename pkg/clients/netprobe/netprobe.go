// Package netprobe reports network connectivity for the offline queue. Link
// presence and internet reachability are separate signals: a phone can hold a
// wifi association with no route to the world.
package netprobe

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/queue"
)

// DefaultCheckURL returns HTTP 204 with no body when the internet is reachable
const DefaultCheckURL = "http://connectivitycheck.gstatic.com/generate_204"

const probeTimeout = 5 * time.Second

// Probe implements queue.ConnectivityProbe
type Probe struct {
	checkURL   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a probe. An empty checkURL selects DefaultCheckURL.
func New(checkURL string, logger *zap.Logger) *Probe {
	if checkURL == "" {
		checkURL = DefaultCheckURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{
		checkURL:   checkURL,
		httpClient: &http.Client{Timeout: probeTimeout},
		logger:     logger,
	}
}

// NetworkState checks for an up non-loopback interface, then confirms
// reachability with a captive-portal style request.
func (p *Probe) NetworkState(ctx context.Context) (queue.NetworkState, error) {
	state := queue.NetworkState{IsConnected: hasActiveInterface()}
	if !state.IsConnected {
		return state, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.checkURL, nil)
	if err != nil {
		return state, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("Reachability check failed", zap.Error(err))
		return state, nil
	}
	resp.Body.Close()

	// Captive portals answer with 200 and a login page; only the expected
	// 204 counts as real internet.
	state.IsInternetReachable = resp.StatusCode == http.StatusNoContent
	return state, nil
}

func hasActiveInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
