package cache

import "github.com/adulau/akumuli-core/internal/options"

// Option configures a Config via NewConfig. Spec §6 pins {ttl, max_size,
// shift} as the only recognized fields; Option exists so callers can build
// one without a bare struct literal, matching the teacher's functional-
// options convention.
type Option = options.Option[*Config]

// NewConfig builds a Config from functional options, defaulting every
// field to zero when omitted.
func NewConfig(opts ...Option) (Config, error) {
	cfg := &Config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

// WithTTL sets the max lateness (in baseline units) a sample may lag the
// Cache's minimum live baseline before it is rejected.
func WithTTL(ttl uint64) Option {
	return options.NoError(func(c *Config) { c.TTL = ttl })
}

// WithMaxSize sets the max admitted samples per Bucket.
func WithMaxSize(maxSize int64) Option {
	return options.NoError(func(c *Config) { c.MaxSize = maxSize })
}

// WithShift sets the baseline shift: bucket_baseline = timestamp >> shift.
func WithShift(shift uint8) Option {
	return options.NoError(func(c *Config) { c.Shift = shift })
}
