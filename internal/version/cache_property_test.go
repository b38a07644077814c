//go:build property
// +build property

package version

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCacheVersionProperties checks the version format for arbitrary clocks
// and entropy.
func TestCacheVersionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("versions parse back to their timestamp", prop.ForAll(
		func(ms int64, seed []byte) bool {
			g := NewGenerator(WithClock(fixedClock(ms)), WithEntropy(bytes.NewReader(seed)))
			v, err := g.Next()
			if err != nil {
				return false
			}
			stamp, suffix, err := ParseCacheVersion(v)
			return err == nil &&
				stamp.UnixMilli() == ms &&
				len(suffix) == 6 &&
				cacheVersionPattern.MatchString(v)
		},
		gen.Int64Range(0, 4102444800000),
		gen.SliceOfN(8, gen.UInt8()),
	))

	properties.Property("consecutive versions differ", prop.ForAll(
		func(ms int64, count int) bool {
			g := NewGenerator(WithClock(fixedClock(ms)))
			previous := ""
			for i := 0; i < count; i++ {
				v, err := g.Next()
				if err != nil || v == previous {
					return false
				}
				previous = v
			}
			return true
		},
		gen.Int64Range(0, 4102444800000),
		gen.IntRange(2, 20),
	))

	properties.TestingRun(t)
}
