package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestGetConfigDefaults(t *testing.T) {
	config, err := GetConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", config.BindAddress)
	assert.EqualValues(t, 8080, config.Port)
	assert.Equal(t, "./makevid.db", config.DatabasePath)
	assert.Equal(t, "./logs", config.LogPath)
	assert.Equal(t, 1, config.Workers)

	assert.Equal(t, "ffmpeg", config.Encoder.FfmpegBinary)
	assert.Equal(t, "ffprobe", config.Encoder.FfprobeBinary)
	assert.Equal(t, 30.0, config.Encoder.FrameRate)
	assert.Equal(t, "libx264", config.Encoder.Codec)
	assert.Equal(t, "yuv420p", config.Encoder.PixelFormat)
	assert.True(t, *config.Encoder.Overwrite)

	assert.Equal(t, 3, *config.Defaults.Intermediates)
	assert.Equal(t, "output.mp4", config.Defaults.OutputVideo)
	assert.Equal(t, 2, config.Defaults.UpscaleFactor)
}

func TestGetConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
port: 9000
workers: 4
encoder:
  frameRate: 24
  codec: libx265
  overwrite: false
defaults:
  intermediates: 0
  outputVideo: clip.mp4
  upscale: true
`)

	config, err := GetConfig(path)
	require.NoError(t, err)
	assert.EqualValues(t, 9000, config.Port)
	assert.Equal(t, 4, config.Workers)
	assert.Equal(t, 24.0, config.Encoder.FrameRate)
	assert.Equal(t, "libx265", config.Encoder.Codec)
	assert.False(t, *config.Encoder.Overwrite)
	assert.Equal(t, 0, *config.Defaults.Intermediates)
	assert.Equal(t, "clip.mp4", config.Defaults.OutputVideo)
	assert.True(t, config.Defaults.Upscale)
}

func TestGetConfigEnvOverride(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("BIND_ADDRESS", "0.0.0.0")

	config, err := GetConfig(writeConfig(t, "port: 9000\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 7070, config.Port)
	assert.Equal(t, "0.0.0.0", config.BindAddress)
}

func TestGetConfigEmptyPath(t *testing.T) {
	config, err := GetConfig("")
	require.NoError(t, err)
	assert.Equal(t, "libx264", config.Encoder.Codec)
}

func TestGetConfigErrors(t *testing.T) {
	_, err := GetConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = GetConfig(writeConfig(t, "port: [1, 2\n"))
	assert.Error(t, err)

	_, err = GetConfig(writeConfig(t, "defaults:\n  intermediates: -1\n"))
	assert.Error(t, err)

	_, err = GetConfig(writeConfig(t, "defaults:\n  upscaleFactor: -2\n"))
	assert.Error(t, err)
}

func TestVerifyConfigNil(t *testing.T) {
	assert.Error(t, verifyConfig(nil))
}
