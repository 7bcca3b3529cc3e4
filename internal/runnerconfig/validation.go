package runnerconfig

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrNoBrowsers       = errors.New("at least one browser must be enabled")
	ErrUnknownBrowser   = errors.New("unknown browser")
	ErrDuplicateBrowser = errors.New("browser enabled more than once")
	ErrInvalidBaseURL   = errors.New("project base url must be an absolute http(s) url")
	ErrInvalidTimeout   = errors.New("project timeout must not be negative")
)

func (c *Config) Validate() error {
	if len(c.EnabledBrowsers) == 0 {
		return ErrNoBrowsers
	}

	seen := make(map[Browser]struct{}, len(c.EnabledBrowsers))
	for _, b := range c.EnabledBrowsers {
		if !b.IsKnown() {
			return fmt.Errorf("%w: %q", ErrUnknownBrowser, b)
		}
		if _, dup := seen[b]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateBrowser, b)
		}
		seen[b] = struct{}{}
	}

	for name, p := range c.projects() {
		if !p.Enabled {
			continue
		}
		if err := validateBaseURL(p.Opts.Use.BaseURL); err != nil {
			return fmt.Errorf("project %s: %w", name, err)
		}
		if p.Opts.Use.TimeoutSeconds < 0 {
			return fmt.Errorf("project %s: %w", name, ErrInvalidTimeout)
		}
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return nil
}
