package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zelak312/fumkit/internal/config"
)

func testConfig() config.Config {
	intermediates := 5
	overwrite := false
	return config.Config{
		Encoder: config.Encoder{
			FrameRate:   12,
			Codec:       "libx265",
			PixelFormat: "yuv444p",
			Overwrite:   &overwrite,
		},
		Defaults: config.Defaults{
			Intermediates: &intermediates,
			OutputVideo:   "clip.mp4",
			UpscaleFactor: 3,
		},
	}
}

func TestPipelineOptionsOnlyChangedFlagsOverride(t *testing.T) {
	require.NoError(t, rootCmd.ParseFlags([]string{"--fps", "24", "--upscale"}))

	opts := pipelineOptions(rootCmd, testConfig(), "shots")

	assert.Equal(t, "shots", opts.Folder)
	assert.Equal(t, 24.0, opts.Encoder.FrameRate)
	assert.True(t, opts.Upscale)

	// flag defaults must not shadow the config
	assert.Equal(t, 5, opts.Intermediates)
	assert.Equal(t, "clip.mp4", opts.OutputVideo)
	assert.Equal(t, 3, opts.UpscaleFactor)
	assert.Equal(t, "libx265", opts.Encoder.Codec)
	assert.Equal(t, "yuv444p", opts.Encoder.PixelFormat)
	assert.False(t, opts.Encoder.Overwrite)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := optionsFromConfig(testConfig(), "shots")

	assert.Equal(t, 5, opts.Intermediates)
	assert.Equal(t, 12.0, opts.Encoder.FrameRate)
	assert.False(t, opts.Upscale)
	assert.Empty(t, opts.Encoder.Pattern)
}
