// Package connectivity checks whether the internet is reachable through the
// current uplink.
package connectivity

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/logging"
)

// Defaults for the reachability probe.
const (
	DefaultURL     = "http://connectivitycheck.gstatic.com/generate_204"
	DefaultTimeout = 3 * time.Second
)

// Prober issues a GET against a generate_204 endpoint. Only a 204 response
// counts as reachable; captive portals answer with a redirect or a page.
type Prober struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
	Logger  *zap.Logger
}

// NewProber returns a prober for url with timeout, falling back to the
// defaults for zero values.
func NewProber(url string, timeout time.Duration) *Prober {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		URL:     url,
		Timeout: timeout,
		Client: &http.Client{
			// A redirect means a captive portal; do not follow it.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Logger: logging.Named("connectivity"),
	}
}

// CheckInternet reports whether the probe URL answered 204 within the timeout.
func (p *Prober) CheckInternet(ctx context.Context) bool {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		log.Warn("Invalid connectivity probe URL", zap.String("url", p.URL), zap.Error(err))
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug("Connectivity probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusNoContent {
		log.Debug("Connectivity probe got unexpected status", zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}
