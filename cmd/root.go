// Package cmd provides the sitekit command-line interface.
//
// Configuration is read from several sources, highest priority first:
//
//  1. Command-line flags (--config, --site-dir, --log-level, ...)
//  2. SITEKIT_CONFIG_FILE: path to a custom configuration file
//  3. SITEKIT_<SECTION>_<OPTION> environment variables, e.g.
//     SITEKIT_SERVICE_WORKER_CACHE_PREFIX
//  4. The .sitekit.yml file in the working directory
//  5. site_dir, docs_dir and site_name from mkdocs.yml
//  6. Built-in defaults
//
// A .env file in the working directory is loaded first; variables already
// set in the environment win over it.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/sitekit/internal/config"
	"github.com/conneroisu/sitekit/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sitekit",
	Short: "Offline support for MkDocs sites",
	Long: `sitekit turns a freshly built MkDocs site into an installable,
offline-capable one. It copies the PWA support files into the site, lists
every cacheable asset, stamps a unique build version into the web app
manifests and writes a service worker that serves the site cache-first.

Quick Start:
  mkdocs build && sitekit build   Copy support files and generate sw.js
  sitekit sw                      Regenerate sw.js only
  sitekit audit                   Check offline coverage of every page
  sitekit serve --watch           Preview with live reload`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .sitekit.yml, can also use SITEKIT_CONFIG_FILE env var)")
	flags.String("site-dir", "", "built site directory (default from mkdocs.yml, else site)")
	flags.String("docs-dir", "", "docs source directory (default from mkdocs.yml, else docs)")
	flags.String("mkdocs-file", "", "MkDocs project file (default mkdocs.yml)")
	flags.StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	bindFlag("site.dir", "site-dir")
	bindFlag("site.docs_dir", "docs-dir")
	bindFlag("site.mkdocs_file", "mkdocs-file")
	bindFlag("log.level", "log-level")
	bindFlag("log.format", "log-format")
}

func bindFlag(key, name string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
	}
}

// initConfig selects the config file and wires environment variables.
func initConfig() {
	// Missing .env files are fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SITEKIT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sitekit")
	}

	if err := config.ConfigureEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and the logger configured by it.
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    cmd.ErrOrStderr(),
		Component: "sitekit",
	})
	return cfg, logger, nil
}
