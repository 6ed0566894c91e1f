package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"plexbanner/internal/config"
	"plexbanner/internal/logging"
	"plexbanner/internal/pipeline"
	"plexbanner/internal/services/plex"
	"plexbanner/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withProcessor opens the store and Plex client and hands fn a processor.
func (c *commandContext) withProcessor(fn func(*pipeline.Processor) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	client, err := plex.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open item store: %w", err)
	}
	defer st.Close()
	return fn(pipeline.New(cfg, client, st, nil, logger))
}

func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open item store: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
