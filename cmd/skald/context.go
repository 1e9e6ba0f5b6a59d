package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"skald/internal/config"
	"skald/internal/daemonctl"
)

type commandContext struct {
	addressFlag *string
	configFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addressFlag, configFlag *string) *commandContext {
	return &commandContext{
		addressFlag: addressFlag,
		configFlag:  configFlag,
	}
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// apiAddress resolves the daemon address: the --address flag wins, then
// the configured api_bind, then the package default.
func (c *commandContext) apiAddress() string {
	if c.addressFlag != nil {
		if addr := strings.TrimSpace(*c.addressFlag); addr != "" {
			return addr
		}
	}
	if cfg := c.configValue(); cfg != nil {
		if addr := strings.TrimSpace(cfg.Paths.APIBind); addr != "" {
			return addr
		}
	}
	return daemonctl.DefaultAddress
}

func (c *commandContext) withClient(fn func(*daemonctl.Client) error) error {
	client := daemonctl.NewClient(c.apiAddress())
	if err := fn(client); err != nil {
		if daemonctl.Unavailable(err) {
			return fmt.Errorf("no skald daemon reachable at %s; start one with `skald daemon` or skaldd", client.Address())
		}
		return err
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
