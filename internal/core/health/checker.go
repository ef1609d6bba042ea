package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"

	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/types"
)

// ErrUnexpectedStatus is returned when the connectivity service answers with a non-2xx code.
var ErrUnexpectedStatus = errors.New("unexpected status code from connectivity service")

// mullvadResponse defines the structure of the am.i.mullvad.net JSON response.
type mullvadResponse struct {
	IP                    string `json:"ip"`
	Country               string `json:"country"`
	City                  string `json:"city"`
	MullvadExitIP         bool   `json:"mullvad_exit_ip"`
	MullvadExitIPHostname string `json:"mullvad_exit_ip_hostname"`
	MullvadServerType     string `json:"mullvad_server_type"`
}

// Checker 对 Mullvad 的连接检查接口执行一次探测，实现 types.StatusProbe。
type Checker struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// Options configures a Checker.
type Options struct {
	URL     string
	Timeout time.Duration
	// Socks5Addr routes the probe through a local SOCKS5 proxy when set.
	Socks5Addr string
}

// New 创建一个新的 Checker 实例。
func New(opts Options) (*Checker, error) {
	if opts.URL == "" {
		return nil, errors.New("health: probe url required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		IdleConnTimeout:     opts.Timeout,
		TLSHandshakeTimeout: opts.Timeout / 2,
	}

	if opts.Socks5Addr != "" {
		socksDialer, err := proxy.SOCKS5("tcp", opts.Socks5Addr, nil, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		ctxDialer, ok := socksDialer.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("health: SOCKS5 dialer does not support contexts")
		}
		transport.DialContext = ctxDialer.DialContext
	}

	return &Checker{
		url: opts.URL,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		now: time.Now,
	}, nil
}

// Probe performs exactly one connectivity check.
func (c *Checker) Probe(ctx context.Context) (types.Status, error) {
	l := logger.WithComponent("Probe")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return types.Status{}, fmt.Errorf("failed to create probe request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return types.Status{}, fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return types.Status{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body mullvadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.Status{}, fmt.Errorf("failed to decode probe response: %w", err)
	}

	status := types.Status{
		Connected:  body.MullvadExitIP,
		IP:         body.IP,
		Country:    body.Country,
		City:       body.City,
		Hostname:   body.MullvadExitIPHostname,
		ServerType: body.MullvadServerType,
		ProbedAt:   c.now().UTC(),
	}

	l.Debug().
		Bool("connected", status.Connected).
		Str("country", status.Country).
		Str("hostname", status.Hostname).
		Dur("latency", time.Since(start)).
		Msg("Probe completed.")

	return status, nil
}

var _ types.StatusProbe = (*Checker)(nil)
