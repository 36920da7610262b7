// Package config loads the makevid configuration: YAML file first,
// environment variables on top, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BindAddress  string   `yaml:"bindAddress"`
	Port         int32    `yaml:"port"`
	DatabasePath string   `yaml:"databasePath"`
	LogPath      string   `yaml:"logPath"`
	Workers      int      `yaml:"workers"`
	Debug        bool     `yaml:"debug"`
	Encoder      Encoder  `yaml:"encoder"`
	Defaults     Defaults `yaml:"defaults"`
}

type Encoder struct {
	FfmpegBinary  string  `yaml:"ffmpegBinary"`
	FfprobeBinary string  `yaml:"ffprobeBinary"`
	FrameRate     float64 `yaml:"frameRate"`
	Codec         string  `yaml:"codec"`
	PixelFormat   string  `yaml:"pixelFormat"`
	// FramePattern is the glob handed to ffmpeg, empty means "*<ext>"
	// of the first frame.
	FramePattern string `yaml:"framePattern"`
	Overwrite    *bool  `yaml:"overwrite"`
}

type Defaults struct {
	Intermediates *int   `yaml:"intermediates"`
	OutputVideo   string `yaml:"outputVideo"`
	Upscale       bool   `yaml:"upscale"`
	UpscaleFactor int    `yaml:"upscaleFactor"`
}

// Verify config and set defaults
func verifyConfig(config *Config) error {
	if config == nil {
		return errors.New("cannot verify config, config is nil")
	}

	if config.BindAddress == "" {
		config.BindAddress = "127.0.0.1"
	}

	if config.Port == 0 {
		config.Port = 8080
	}

	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port %d", config.Port)
	}

	if config.DatabasePath == "" {
		config.DatabasePath = "./makevid.db"
	}

	if config.LogPath == "" {
		config.LogPath = "./logs"
	}

	if config.Workers == 0 {
		config.Workers = 1
	}

	if config.Workers < 0 {
		return errors.New("workers must be positive")
	}

	enc := &config.Encoder
	if enc.FfmpegBinary == "" {
		enc.FfmpegBinary = "ffmpeg"
	}

	if enc.FfprobeBinary == "" {
		enc.FfprobeBinary = "ffprobe"
	}

	if enc.FrameRate == 0 {
		enc.FrameRate = 30
	}

	if enc.FrameRate < 0 {
		return errors.New("encoder frame rate must be positive")
	}

	if enc.Codec == "" {
		enc.Codec = "libx264"
	}

	if enc.PixelFormat == "" {
		enc.PixelFormat = "yuv420p"
	}

	if enc.Overwrite == nil {
		defaultVal := true
		enc.Overwrite = &defaultVal
	}

	def := &config.Defaults
	if def.Intermediates == nil {
		defaultVal := 3
		def.Intermediates = &defaultVal
	}

	if *def.Intermediates < 0 {
		return errors.New("intermediates cannot be negative")
	}

	if def.OutputVideo == "" {
		def.OutputVideo = "output.mp4"
	}

	if def.UpscaleFactor == 0 {
		def.UpscaleFactor = 2
	}

	if def.UpscaleFactor < 1 {
		return errors.New("upscale factor must be at least 1")
	}

	return nil
}

// GetConfig reads path, applies environment overrides and fills defaults.
// An empty path skips the file.
func GetConfig(path string) (Config, error) {
	config := Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}

		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return Config{}, err
		}
	}

	// Override with env variables if they are passed in
	err := envconfig.ProcessWithOptions("", &config, envconfig.Options{SplitWords: true})
	if err != nil {
		return Config{}, err
	}

	err = verifyConfig(&config)
	if err != nil {
		return Config{}, err
	}

	return config, nil
}
