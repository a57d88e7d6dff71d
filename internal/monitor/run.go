package monitor

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/watering/internal/client"
	"github.com/muurk/watering/internal/discovery"
	"github.com/muurk/watering/internal/logging"
)

// Options configures Run.
type Options struct {
	// URL of the bridge. When empty the bridge is looked up via mDNS.
	URL string
	// Instance restricts the mDNS lookup to one bridge name.
	Instance string
	// Refresh is the getInfo polling interval.
	Refresh time.Duration
	// ScanTimeout bounds the mDNS lookup.
	ScanTimeout time.Duration
}

// ResolveURL returns opts.URL, or the address of the first bridge announced
// on the local network.
func ResolveURL(ctx context.Context, opts Options) (string, error) {
	if opts.URL != "" {
		return opts.URL, nil
	}

	scanner := discovery.NewScanner()
	if opts.ScanTimeout > 0 {
		scanner.Timeout = opts.ScanTimeout
	}
	bridge, err := scanner.WaitForBridge(ctx, opts.Instance)
	if err != nil {
		return "", fmt.Errorf("discover bridge: %w", err)
	}
	logging.Info("Discovered bridge", zap.String("bridge", bridge.String()))
	return bridge.BaseURL(), nil
}

// Run starts the full-screen monitor and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	url, err := ResolveURL(ctx, opts)
	if err != nil {
		return err
	}

	model := New(client.NewClient(url), url, opts.Refresh)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
