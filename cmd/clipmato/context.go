package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"clipmato/internal/api"
	"clipmato/internal/config"
	"clipmato/internal/daemonctl"
	"clipmato/internal/daemonrun"
	"clipmato/internal/logging"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	componentsOnce sync.Once
	components     *daemonrun.Components
	logger         *slog.Logger
	componentsErr  error
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
	}
}

// loadDotEnv imports variables from path. Variables already present in the
// environment win; a missing file is not an error.
func loadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureComponents wires the stores and services for commands that work
// without the daemon.
func (c *commandContext) ensureComponents(ctx context.Context) (*daemonrun.Components, error) {
	c.componentsOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.componentsErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.componentsErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
		c.components, c.componentsErr = daemonrun.Build(ctx, cfg, logger)
	})
	return c.components, c.componentsErr
}

func (c *commandContext) recordService(ctx context.Context) (*api.RecordService, error) {
	components, err := c.ensureComponents(ctx)
	if err != nil {
		return nil, err
	}
	cfg, _ := c.ensureConfig()
	return api.NewRecordService(components.Records, components.Progress, components.Uploads, components.Auto, api.ScheduleDefaults{
		Cadence: cfg.Scheduling.DefaultCadence,
		NDays:   cfg.Scheduling.DefaultNDays,
	}, components.Notifier, c.logger), nil
}

func (c *commandContext) client() (*daemonctl.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return daemonctl.NewClient(cfg.Paths.APIBind)
}

func wrapClientError(err error, bind string) error {
	if daemonctl.IsUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: not reachable; start it with `clipmato serve`", bind)
	}
	return err
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
