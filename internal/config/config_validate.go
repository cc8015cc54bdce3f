// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package config

import (
	"errors"
	"fmt"

	"github.com/tomtom215/deskmirror/internal/validation"
)

// ErrHelpdeskNotConfigured is returned by RequireHelpdesk when no upstream URL is set.
var ErrHelpdeskNotConfigured = errors.New("helpdesk API is not configured (set HELPDESK_URL)")

// Validate checks struct tags first, then the cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	validators := []func() error{
		c.validateHelpdesk,
		c.validateSync,
		c.validateServer,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateHelpdesk() error {
	if c.Helpdesk.URL != "" && c.Helpdesk.APIKey == "" {
		return fmt.Errorf("HELPDESK_API_KEY is required when HELPDESK_URL is set")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.BackoffBase <= 0 {
		return fmt.Errorf("sync.backoff_base must be positive, got %s", c.Sync.BackoffBase)
	}
	if c.Sync.TransientDelay < 0 {
		return fmt.Errorf("sync.transient_delay must not be negative, got %s", c.Sync.TransientDelay)
	}
	if c.Sync.IncrementalOverlap < 0 {
		return fmt.Errorf("sync.incremental_overlap must not be negative, got %s", c.Sync.IncrementalOverlap)
	}
	if c.Sync.Interval < 0 || c.Sync.RunTimeout < 0 {
		return fmt.Errorf("sync.interval and sync.run_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("server.rate_limit_window must be positive when rate limiting is enabled")
	}
	return nil
}

// RequireHelpdesk reports whether the upstream API can be called.
func (c *Config) RequireHelpdesk() error {
	if c.Helpdesk.URL == "" {
		return ErrHelpdeskNotConfigured
	}
	return nil
}
