package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"veil/internal/api"
	"veil/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
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

func (c *commandContext) apiAddress() (address, token string, err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", "", err
	}
	address = strings.TrimSpace(cfg.Paths.APIBind)
	token = cfg.Paths.APIToken
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		address = strings.TrimSpace(*c.apiFlag)
	}
	if address == "" {
		return "", "", errors.New("no daemon API address configured (set paths.api_bind or pass --api)")
	}
	return address, token, nil
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	address, token, err := c.apiAddress()
	if err != nil {
		return err
	}
	if err := fn(api.NewClient(address, token)); err != nil {
		return wrapClientError(err, address)
	}
	return nil
}

func wrapClientError(err error, address string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: %s refused the connection; verify veild is running", address)
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
