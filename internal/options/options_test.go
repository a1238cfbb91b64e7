package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// volumeConfig stands in for the real WithXxx targets (cache.Config,
// inputlog.Config) this package configures.
type volumeConfig struct {
	sizeBytes int64
	label     string
}

func (c *volumeConfig) setSizeBytes(n int64) error {
	if n <= 0 {
		return errors.New("size must be positive")
	}
	c.sizeBytes = n
	return nil
}

func TestOption_New_PropagatesError(t *testing.T) {
	cfg := &volumeConfig{}
	opt := New(func(c *volumeConfig) error { return c.setSizeBytes(-1) })

	err := opt.apply(cfg)
	require.Error(t, err)
	require.Zero(t, cfg.sizeBytes)
}

func TestOption_NoError_NeverFails(t *testing.T) {
	cfg := &volumeConfig{}
	opt := NoError(func(c *volumeConfig) { c.label = "primary" })

	require.NoError(t, opt.apply(cfg))
	require.Equal(t, "primary", cfg.label)
}

func TestApply_StopsAtFirstError(t *testing.T) {
	cfg := &volumeConfig{}
	opts := []Option[*volumeConfig]{
		New(func(c *volumeConfig) error { return c.setSizeBytes(8 << 20) }),
		New(func(c *volumeConfig) error { return c.setSizeBytes(0) }),
		NoError(func(c *volumeConfig) { c.label = "should not run" }),
	}

	err := Apply(cfg, opts...)
	require.Error(t, err)
	require.EqualValues(t, 8<<20, cfg.sizeBytes)
	require.Empty(t, cfg.label)
}

func TestApply_EmptyOptionsLeavesZeroValue(t *testing.T) {
	cfg := &volumeConfig{}
	require.NoError(t, Apply(cfg))
	require.Zero(t, cfg.sizeBytes)
	require.Empty(t, cfg.label)
}

func TestApply_AllSucceedInOrder(t *testing.T) {
	cfg := &volumeConfig{}
	err := Apply(cfg,
		New(func(c *volumeConfig) error { return c.setSizeBytes(4096) }),
		NoError(func(c *volumeConfig) { c.label = "secondary" }),
	)

	require.NoError(t, err)
	require.EqualValues(t, 4096, cfg.sizeBytes)
	require.Equal(t, "secondary", cfg.label)
}
