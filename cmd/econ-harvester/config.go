// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/econ-harvester/internal/secrets"
	"github.com/pdiddy/econ-harvester/internal/source"
	"github.com/pdiddy/econ-harvester/pkg/types"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultUserAgent   = "econ-harvester/0.1"
	defaultMaxArticles = 100
)

func init() {
	viper.SetDefault("timeout", defaultTimeout)
	viper.SetDefault("user_agent", defaultUserAgent)
	viper.SetDefault("max_articles", defaultMaxArticles)
	viper.SetDefault("scrape_timeout", source.DefaultScrapeTimeout)
	viper.SetDefault("rate_burst", 1)
	viper.SetDefault("catalog_path", "")
	viper.SetDefault("ssrn_cookie", "")

	rootCmd.AddCommand(configCmd)
}

// bindFlags maps each named flag onto the viper key of the same config
// field, so flags override the config file and ECON_HARVESTER_* variables.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if f := flags.Lookup(flag); f != nil {
			viper.BindPFlag(key, f)
		}
	}
}

// loadConfig resolves the harvest configuration from defaults, the config
// file, the environment and bound flags, in increasing precedence. The SSRN
// cookie falls back to the secrets directory.
func loadConfig() (types.HarvestConfig, error) {
	var cfg types.HarvestConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.SSRNCookie = secretDefault(secrets.SSRNCookie, cfg.SSRNCookie)
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration a harvest would run with after merging
defaults, the config file, ECON_HARVESTER_* environment variables and the
secrets directory. Secrets are never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return fmt.Errorf("marshaling configuration: %w", err)
		}
		out := cmd.OutOrStdout()
		out.Write(data)
		if cfg.SSRNCookie != "" {
			fmt.Fprintln(out, "# ssrn cookie: set")
		}
		return nil
	},
}
