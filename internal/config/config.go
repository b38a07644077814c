// Package config provides configuration management for sitekit using Viper
// for flexible loading from files, environment variables and command-line
// flags.
//
// Values are resolved in this order: flags, SITEKIT_* environment variables,
// the .sitekit.yml file, the MkDocs project file (site_dir, docs_dir,
// site_name) and finally built-in defaults matching a stock MkDocs layout.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	siteerrors "github.com/conneroisu/sitekit/internal/errors"
)

type Config struct {
	Site          SiteConfig          `mapstructure:"site" yaml:"site"`
	ServiceWorker ServiceWorkerConfig `mapstructure:"service_worker" yaml:"service_worker"`
	Copy          CopyConfig          `mapstructure:"copy" yaml:"copy"`
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
	Watch         WatchConfig         `mapstructure:"watch" yaml:"watch"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
}

type SiteConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	DocsDir    string `mapstructure:"docs_dir" yaml:"docs_dir"`
	MkDocsFile string `mapstructure:"mkdocs_file" yaml:"mkdocs_file"`
	Name       string `mapstructure:"name" yaml:"name"`
}

type ServiceWorkerConfig struct {
	Output      string   `mapstructure:"output" yaml:"output"`
	CachePrefix string   `mapstructure:"cache_prefix" yaml:"cache_prefix"`
	OfflinePage string   `mapstructure:"offline_page" yaml:"offline_page"`
	Extensions  []string `mapstructure:"extensions" yaml:"extensions"`
	SkipDirs    []string `mapstructure:"skip_dirs" yaml:"skip_dirs"`
}

type CopyConfig struct {
	Files []string `mapstructure:"files" yaml:"files"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Built-in defaults.
const (
	DefaultSiteDir     = "site"
	DefaultDocsDir     = "docs"
	DefaultMkDocsFile  = "mkdocs.yml"
	DefaultWorkerFile  = "sw.js"
	DefaultCachePrefix = "tech-guide"
	DefaultOfflinePage = "/offline.html"
	DefaultManifest    = "manifest.json"
	DefaultHost        = "localhost"
	DefaultPort        = 8000
	DefaultDebounce    = 300 * time.Millisecond
)

// DefaultExtensions lists the file types precached by the service worker.
func DefaultExtensions() []string {
	return []string{".html", ".css", ".js", ".json", ".png", ".ico", ".svg", ".woff", ".woff2"}
}

// DefaultSkipDirs lists directory names never descended into.
func DefaultSkipDirs() []string {
	return []string{"node_modules", ".git", ".cache"}
}

// DefaultCopyFiles lists the support files copied from docs into the site.
func DefaultCopyFiles() []string {
	return []string{DefaultManifest, "offline.html"}
}

// EnvPrefix prefixes every environment variable read by sitekit.
const EnvPrefix = "SITEKIT"

// Keys lists every configuration key.
var Keys = []string{
	"site.dir", "site.docs_dir", "site.mkdocs_file", "site.name",
	"service_worker.output", "service_worker.cache_prefix", "service_worker.offline_page",
	"service_worker.extensions", "service_worker.skip_dirs",
	"copy.files",
	"server.host", "server.port",
	"watch.debounce",
	"log.level", "log.format",
}

// ConfigureEnv maps every key to a SITEKIT_<SECTION>_<OPTION> variable,
// e.g. SITEKIT_SERVICE_WORKER_CACHE_PREFIX. Keys are bound explicitly so
// Unmarshal sees variables for keys no config file mentions.
func ConfigureEnv() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, key := range Keys {
		if err := viper.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Default returns a configuration populated with built-in defaults only.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load builds the configuration from the global viper instance.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle slices set via viper (workaround for viper slice handling)
	if viper.IsSet("service_worker.extensions") && len(config.ServiceWorker.Extensions) == 0 {
		config.ServiceWorker.Extensions = viper.GetStringSlice("service_worker.extensions")
	}
	if viper.IsSet("service_worker.skip_dirs") && len(config.ServiceWorker.SkipDirs) == 0 {
		config.ServiceWorker.SkipDirs = viper.GetStringSlice("service_worker.skip_dirs")
	}
	if viper.IsSet("copy.files") && len(config.Copy.Files) == 0 {
		config.Copy.Files = viper.GetStringSlice("copy.files")
	}

	if config.Site.MkDocsFile == "" {
		config.Site.MkDocsFile = DefaultMkDocsFile
	}
	if err := applyMkDocs(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMkDocs fills site settings left unset from the MkDocs project file.
// A missing project file is not an error.
func applyMkDocs(config *Config) error {
	if config.Site.Dir != "" && config.Site.DocsDir != "" && config.Site.Name != "" {
		return nil
	}

	info, err := ReadMkDocs(config.Site.MkDocsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	// MkDocs resolves site_dir and docs_dir relative to the project file.
	base := filepath.Dir(config.Site.MkDocsFile)
	if config.Site.Dir == "" && info.SiteDir != "" {
		config.Site.Dir = joinRelative(base, info.SiteDir)
	}
	if config.Site.DocsDir == "" && info.DocsDir != "" {
		config.Site.DocsDir = joinRelative(base, info.DocsDir)
	}
	if config.Site.Name == "" {
		config.Site.Name = info.SiteName
	}

	return nil
}

func joinRelative(base, path string) string {
	if filepath.IsAbs(path) || base == "." {
		return path
	}
	return filepath.Join(base, path)
}

func applyDefaults(config *Config) {
	if config.Site.Dir == "" {
		config.Site.Dir = DefaultSiteDir
	}
	if config.Site.DocsDir == "" {
		config.Site.DocsDir = DefaultDocsDir
	}
	if config.Site.MkDocsFile == "" {
		config.Site.MkDocsFile = DefaultMkDocsFile
	}

	if config.ServiceWorker.Output == "" {
		config.ServiceWorker.Output = DefaultWorkerFile
	}
	if config.ServiceWorker.CachePrefix == "" {
		config.ServiceWorker.CachePrefix = DefaultCachePrefix
	}
	if config.ServiceWorker.OfflinePage == "" {
		config.ServiceWorker.OfflinePage = DefaultOfflinePage
	}
	if len(config.ServiceWorker.Extensions) == 0 {
		config.ServiceWorker.Extensions = DefaultExtensions()
	}
	if len(config.ServiceWorker.SkipDirs) == 0 {
		config.ServiceWorker.SkipDirs = DefaultSkipDirs()
	}

	if len(config.Copy.Files) == 0 {
		config.Copy.Files = DefaultCopyFiles()
	}

	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if config.Server.Port == 0 && !viper.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}

	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}

	if config.Log.Level == "" {
		config.Log.Level = "warn"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// WorkerPath returns the on-disk path of the generated service worker.
func (c *Config) WorkerPath() string {
	return filepath.Join(c.Site.Dir, c.ServiceWorker.Output)
}

// WorkerURL returns the site-absolute URL of the generated service worker.
func (c *Config) WorkerURL() string {
	return "/" + filepath.ToSlash(c.ServiceWorker.Output)
}

// ManifestPaths returns the web app manifests stamped with the build
// version, built site first.
func (c *Config) ManifestPaths() []string {
	return []string{
		filepath.Join(c.Site.Dir, DefaultManifest),
		filepath.Join(c.Site.DocsDir, DefaultManifest),
	}
}

// SiteName returns the configured site name or a generic fallback.
func (c *Config) SiteName() string {
	if c.Site.Name != "" {
		return c.Site.Name
	}
	return "Documentation"
}

func configError(format string, args ...interface{}) error {
	return siteerrors.NewConfigError(siteerrors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...))
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateSiteConfig(&config.Site); err != nil {
		return fmt.Errorf("site config: %w", err)
	}

	if err := validateServiceWorkerConfig(&config.ServiceWorker); err != nil {
		return fmt.Errorf("service_worker config: %w", err)
	}

	for _, file := range config.Copy.Files {
		if err := validateFileName(file); err != nil {
			return fmt.Errorf("copy config: %w", err)
		}
	}

	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return configError("server port %d is not in valid range 0-65535", config.Server.Port)
	}
	if strings.ContainsAny(config.Server.Host, dangerousChars) {
		return configError("server host contains dangerous characters: %s", config.Server.Host)
	}

	if config.Watch.Debounce < 0 {
		return configError("watch debounce must not be negative")
	}

	return nil
}

func validateSiteConfig(config *SiteConfig) error {
	for _, path := range []string{config.Dir, config.DocsDir, config.MkDocsFile} {
		if err := validatePath(path); err != nil {
			return err
		}
	}
	return nil
}

func validateServiceWorkerConfig(config *ServiceWorkerConfig) error {
	if err := validateFileName(config.Output); err != nil {
		return err
	}

	// The prefix and offline page end up inside JavaScript string literals.
	if strings.ContainsAny(config.CachePrefix, "'\"`\\\n\r") {
		return configError("cache_prefix contains quote, backslash or newline: %q", config.CachePrefix)
	}
	if !strings.HasPrefix(config.OfflinePage, "/") {
		return configError("offline_page must be site-absolute: %s", config.OfflinePage)
	}
	if strings.ContainsAny(config.OfflinePage, "'\"`\\\n\r") {
		return configError("offline_page contains quote, backslash or newline: %q", config.OfflinePage)
	}

	for _, ext := range config.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return configError("extension must start with a dot: %q", ext)
		}
	}
	for _, dir := range config.SkipDirs {
		if dir == "" || strings.ContainsAny(dir, `/\`) {
			return configError("skip_dirs entries must be bare directory names: %q", dir)
		}
	}

	return nil
}

const dangerousChars = ";&|$`()<>\"'"

// validatePath rejects empty paths, upward traversal and shell
// metacharacters.
func validatePath(path string) error {
	if path == "" {
		return siteerrors.ErrInvalidPath(path, "empty path")
	}

	cleanPath := filepath.Clean(path)

	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return siteerrors.ErrPathTraversal(path)
		}
	}

	if strings.ContainsAny(cleanPath, dangerousChars) {
		return siteerrors.ErrInvalidPath(path, "path contains dangerous characters")
	}

	return nil
}

// validateFileName accepts a single path element.
func validateFileName(name string) error {
	if err := validatePath(name); err != nil {
		return err
	}
	if strings.ContainsAny(name, `/\`) || name == "." {
		return siteerrors.ErrInvalidPath(name, "must be a bare file name")
	}
	return nil
}
