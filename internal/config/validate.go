package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateBanners(); err != nil {
		return err
	}
	return c.validateLogging()
}

// RequirePlex reports whether media server access is configured. Offline
// commands (detect, apply, compare) run without it.
func (c *Config) RequirePlex() error {
	if c.Plex.URL == "" {
		return fmt.Errorf("plex.url is required. Set %s or edit the config file (create with 'plexbanner config init')", plexURLEnvVar)
	}
	if c.Plex.Token == "" {
		return fmt.Errorf("plex.token is required. Set %s or edit the config file", plexTokenEnvVar)
	}
	return nil
}

func (c *Config) validatePlex() error {
	if c.Plex.URL != "" {
		parsed, err := url.Parse(c.Plex.URL)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("plex.url must be an http(s) URL, got %q", c.Plex.URL)
		}
	}
	if (c.Plex.PathPrefix == "") != (c.Plex.LocalPrefix == "") {
		return errors.New("plex.path_prefix and plex.local_prefix must be set together")
	}
	return nil
}

func (c *Config) validateDetection() error {
	for key, value := range map[string]int{
		"detection.change_cutoff":  c.Detection.ChangeCutoff,
		"detection.compare_cutoff": c.Detection.CompareCutoff,
		"detection.film_cutoff":    c.Detection.FilmCutoff,
		"detection.tv_cutoff":      c.Detection.TVCutoff,
	} {
		if value < 0 || value > maxHashDistance {
			return fmt.Errorf("%s must be between 0 and %d", key, maxHashDistance)
		}
	}
	return nil
}

func (c *Config) validateBanners() error {
	if c.Banners.Mini4K && !c.Banners.Films4K {
		return errors.New("banners.mini_4k requires banners.films_4k")
	}
	if c.Banners.Mini3D && !c.Banners.Posters3D {
		return errors.New("banners.mini_3d requires banners.posters_3d")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
}
