package main

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	cfg "github.com/maastricht-university/mediagram/config"
	"github.com/maastricht-university/mediagram/logging"
)

// commandContext holds the persistent flags and the lazily loaded config shared by subcommands.
type commandContext struct {
	configFlag string
	logLevel   string
	verbose    bool

	configOnce sync.Once
	config     *cfg.Root
	configPath string
	configErr  error
}

func (c *commandContext) ensureConfig() (*cfg.Root, error) {
	c.configOnce.Do(func() {
		c.config, c.configPath, c.configErr = cfg.Load(strings.TrimSpace(c.configFlag))
	})
	return c.config, c.configErr
}

// logger builds the run logger. --verbose beats --log-level, which beats the config file.
func (c *commandContext) logger(out io.Writer) (*logrus.Logger, error) {
	conf, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := conf.Pipeline.LogLvl
	if strings.TrimSpace(c.logLevel) != "" {
		level = c.logLevel
	}
	if c.verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, Format: conf.Pipeline.LogFormat, Output: out})
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
