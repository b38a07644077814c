//go:build property
// +build property

package config

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigurationProperties tests configuration validation properties
func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("ports in range validate", prop.ForAll(
		func(port int) bool {
			cfg := Default()
			cfg.Server.Port = port
			return validateConfig(cfg) == nil
		},
		gen.IntRange(0, 65535),
	))

	properties.Property("ports out of range are rejected", prop.ForAll(
		func(port int) bool {
			cfg := Default()
			cfg.Server.Port = 65536 + port
			return validateConfig(cfg) != nil
		},
		gen.IntRange(0, 100000),
	))

	properties.Property("identifier cache prefixes validate", prop.ForAll(
		func(prefix string) bool {
			cfg := Default()
			cfg.ServiceWorker.CachePrefix = prefix
			return validateConfig(cfg) == nil
		},
		gen.Identifier(),
	))

	properties.Property("quoted cache prefixes are rejected", prop.ForAll(
		func(prefix string, quote string) bool {
			cfg := Default()
			cfg.ServiceWorker.CachePrefix = prefix + quote
			return validateConfig(cfg) != nil
		},
		gen.Identifier(),
		gen.OneConstOf("'", "\"", "`", "\\"),
	))

	properties.Property("paths escaping upwards are rejected", prop.ForAll(
		func(segments []string) bool {
			path := strings.Join(append([]string{".."}, segments...), "/")
			return validatePath(path) != nil
		},
		gen.SliceOfN(3, gen.Identifier()),
	))

	properties.TestingRun(t)
}
