package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// defaultSnapdSocket is where snapd's REST API listens on a stock
// Ubuntu Core / classic-with-snapd install.
const defaultSnapdSocket = "/run/snapd.socket"

// SnapdClient is the real PolicyClient backend: it queries snapd's local
// REST API over its UNIX control socket, the same interface-connections
// endpoint `snap connections <name>` itself uses.
type SnapdClient struct {
	httpClient *http.Client
}

// NewSnapdClient builds a PolicyClient against snapd's control socket. An
// empty socketPath uses the standard location.
func NewSnapdClient(socketPath string) *SnapdClient {
	if socketPath == "" {
		socketPath = defaultSnapdSocket
	}
	return &SnapdClient{
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

// snapdConnectionsResponse mirrors the subset of snapd's
// /v2/connections response this gate needs: for each plug, whether it's
// attached to a slot.
type snapdConnectionsResponse struct {
	Result struct {
		Established []struct {
			Plug struct {
				Snap string `json:"snap"`
				Plug string `json:"plug"`
			} `json:"plug"`
		} `json:"established"`
	} `json:"result"`
}

// IsPlugConnected implements PolicyClient by querying snapd's
// established-connections list and checking whether snapName has
// plugName among them.
func (c *SnapdClient) IsPlugConnected(snapName, plugName string) (bool, error) {
	url := fmt.Sprintf("http://localhost/v2/connections?snap=%s&interface=%s", snapName, plugName)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false, pulseerrors.NewIOError("sandbox.snapd.request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, pulseerrors.NewIOError("sandbox.snapd.do", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, pulseerrors.NewIOError("sandbox.snapd.status",
			fmt.Errorf("snapd returned %d", resp.StatusCode))
	}
	var parsed snapdConnectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, pulseerrors.NewIOError("sandbox.snapd.decode", err)
	}
	for _, e := range parsed.Result.Established {
		if e.Plug.Snap == snapName && e.Plug.Plug == plugName {
			return true, nil
		}
	}
	return false, nil
}
