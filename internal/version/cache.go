package version

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	suffixLen = 6
	// 36^6, the number of distinct suffixes.
	suffixSpace = 2176782336
)

// Generator produces cache versions of the form
// v<base36 unix millis>-<6 random base36 chars>, e.g. "vmgestecm-yd5c73".
//
// A Generator never returns the same version twice in a row.
type Generator struct {
	now     func() time.Time
	entropy io.Reader

	mu   sync.Mutex
	last string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithEntropy overrides the random source.
func WithEntropy(r io.Reader) GeneratorOption {
	return func(g *Generator) { g.entropy = r }
}

// NewGenerator returns a generator backed by the wall clock and crypto/rand.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		now:     time.Now,
		entropy: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a new cache version.
func (g *Generator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < 8; attempt++ {
		suffix, err := g.suffix()
		if err != nil {
			return "", fmt.Errorf("failed to read entropy: %w", err)
		}

		v := "v" + strconv.FormatInt(g.now().UnixMilli(), 36) + "-" + suffix
		if v != g.last {
			g.last = v
			return v, nil
		}
	}

	return "", fmt.Errorf("entropy source keeps repeating version %s", g.last)
}

func (g *Generator) suffix() (string, error) {
	var buf [8]byte
	if _, err := io.ReadFull(g.entropy, buf[:]); err != nil {
		return "", err
	}

	n := binary.BigEndian.Uint64(buf[:]) % suffixSpace
	s := strconv.FormatUint(n, 36)

	return strings.Repeat("0", suffixLen-len(s)) + s, nil
}

// ParseCacheVersion splits a cache version into its timestamp and random
// suffix.
func ParseCacheVersion(v string) (time.Time, string, error) {
	body, ok := strings.CutPrefix(v, "v")
	if !ok {
		return time.Time{}, "", fmt.Errorf("cache version %q must start with 'v'", v)
	}

	stamp, suffix, ok := strings.Cut(body, "-")
	if !ok || len(suffix) != suffixLen {
		return time.Time{}, "", fmt.Errorf("cache version %q must end with -%s", v, strings.Repeat("x", suffixLen))
	}

	ms, err := strconv.ParseInt(stamp, 36, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("cache version %q has invalid timestamp: %w", v, err)
	}
	if _, err := strconv.ParseUint(suffix, 36, 64); err != nil {
		return time.Time{}, "", fmt.Errorf("cache version %q has invalid suffix: %w", v, err)
	}

	return time.UnixMilli(ms), suffix, nil
}
