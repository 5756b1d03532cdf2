package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	BackendDSN  string
	RealtimeURL string
	AccessToken string
	// PollInterval is the spacing of match-request existence checks.
	PollInterval time.Duration
	// SearchWindow bounds the total wall-clock time a match search may
	// keep polling before it gives up.
	SearchWindow time.Duration
	// ReconcileInterval is how often the unread counter is re-seeded
	// from a full count. Zero disables reconciliation.
	ReconcileInterval time.Duration
	DebugAddr         string
}

func NewConfig(dsn, realtimeURL, accessToken string, pollInterval, searchWindow, reconcileInterval time.Duration, debugAddr string) (*Config, error) {
	if dsn == "" {
		return nil, fmt.Errorf("backend DSN cannot be empty")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}
	if realtimeURL == "" {
		return nil, fmt.Errorf("realtime URL cannot be empty")
	}

	u, err := url.Parse(realtimeURL)
	if err != nil {
		return nil, fmt.Errorf("parse realtime URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("realtime URL scheme must be ws or wss, got %q", u.Scheme)
	}

	if pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if searchWindow < pollInterval {
		return nil, fmt.Errorf("search window cannot be shorter than the poll interval")
	}
	if reconcileInterval < 0 {
		return nil, fmt.Errorf("reconcile interval cannot be negative")
	}

	return &Config{
		BackendDSN:        dsn,
		RealtimeURL:       realtimeURL,
		AccessToken:       accessToken,
		PollInterval:      pollInterval,
		SearchWindow:      searchWindow,
		ReconcileInterval: reconcileInterval,
		DebugAddr:         debugAddr,
	}, nil
}
