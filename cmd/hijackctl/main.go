// Command hijackctl checks whether functions can be hijacked and exercises
// the hijack engine against itself.
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pboyd/hijack"
)

// cliConfig is the --config file layout.
type cliConfig struct {
	Engine   hijack.Config `yaml:"engine"`
	LogLevel string        `yaml:"log_level"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Engine:   hijack.DefaultConfig(),
		LogLevel: "info",
	}
}

var (
	configPath string
	logLevel   string

	cfg = defaultCLIConfig()
	log = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "hijackctl",
		Short:             "Inspect and exercise function hijacking",
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")

	rootCmd.AddCommand(newInspectCmd(), newSelftestCmd())

	err := rootCmd.Execute()
	_ = log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = loadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, err = newLogger(cfg.LogLevel)
	return err
}

// loadConfig reads path over the defaults. An empty path means defaults.
func loadConfig(path string) (cliConfig, error) {
	c := defaultCLIConfig()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cliConfig{}, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return cliConfig{}, errors.Wrapf(err, "parse %s", path)
	}
	if err := c.Engine.Validate(); err != nil {
		return cliConfig{}, errors.Wrapf(err, "%s", path)
	}
	return c, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = lvl
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}
