package inputlog

import "github.com/adulau/akumuli-core/internal/options"

// Option configures a Config via NewConfig (spec §6: {root_dir,
// max_volumes, volume_size} are the only recognized fields).
type Option = options.Option[*Config]

// NewConfig builds a Config from functional options.
func NewConfig(opts ...Option) (Config, error) {
	cfg := &Config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return Config{}, err
	}
	return *cfg, nil
}

// WithRootDir sets the directory volumes are created in and scanned from.
func WithRootDir(dir string) Option {
	return options.NoError(func(c *Config) { c.RootDir = dir })
}

// WithMaxVolumes sets the max number of live volumes before Rotate evicts
// the oldest.
func WithMaxVolumes(n int) Option {
	return options.NoError(func(c *Config) { c.MaxVolumes = n })
}

// WithVolumeSize sets the max byte size of one volume before Append
// reports status.ErrOverflow.
func WithVolumeSize(bytes int64) Option {
	return options.NoError(func(c *Config) { c.VolumeSize = bytes })
}
