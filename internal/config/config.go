// Package config loads the engine's environment knobs (spec.md §6)
// from an optional YAML file with command-line overrides, grounded on
// the teacher's deviceid.go (gopkg.in/yaml.v3) and its pflag-based
// option parsing in kissutil.go / cmd/direwolf.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every recognized environment knob, at its resolved
// value after YAML-file and command-line overrides have been applied.
type Config struct {
	Audio struct {
		SampleRate int `yaml:"sample_rate"`
		BufferSize int `yaml:"buffer_size"`
	} `yaml:"audio"`

	Supervisor struct {
		RingDepth         int `yaml:"ring_depth"`
		PrimeTimeoutMs    int `yaml:"prime_timeout_ms"`
		HeartbeatPeriodMs int `yaml:"heartbeat_period_ms"`
		LeadTargetFrames  int `yaml:"lead_target_frames"`
	} `yaml:"supervisor"`

	OSC struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"osc"`

	Viz struct {
		Host   string `yaml:"host"`
		Port   int    `yaml:"port"`
		Enable bool   `yaml:"enable"`
	} `yaml:"viz"`
}

// Default returns the built-in defaults named throughout spec.md §6.
func Default() Config {
	var c Config
	c.Audio.SampleRate = 48000
	c.Audio.BufferSize = 256
	c.Supervisor.RingDepth = 16
	c.Supervisor.PrimeTimeoutMs = 500
	c.Supervisor.HeartbeatPeriodMs = 5
	c.Supervisor.LeadTargetFrames = 3
	c.OSC.Host = "localhost"
	c.OSC.Port = 5005
	c.Viz.Host = "localhost"
	c.Viz.Port = 5006
	c.Viz.Enable = true
	return c
}

// LoadFile merges a YAML config file's contents onto c, leaving any
// field the file doesn't mention at its prior value. A missing file
// is not an error: the YAML layer is optional per spec.md §6.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// RegisterFlags binds command-line overrides for every knob onto fs,
// defaulting each flag to c's current value so "unset flag" and
// "flag set to the current value" are indistinguishable, matching
// pflag's usual precedence model.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.Audio.SampleRate, "audio.sample-rate", c.Audio.SampleRate, "sample rate: 44100 or 48000")
	fs.IntVar(&c.Audio.BufferSize, "audio.buffer-size", c.Audio.BufferSize, "buffer size: 128, 256, 512, or 1024")
	fs.IntVar(&c.Supervisor.RingDepth, "supervisor.ring-depth", c.Supervisor.RingDepth, "audio ring depth: 8, 16, or 32")
	fs.IntVar(&c.Supervisor.PrimeTimeoutMs, "supervisor.prime-timeout-ms", c.Supervisor.PrimeTimeoutMs, "patch-commit prime timeout in ms")
	fs.IntVar(&c.Supervisor.HeartbeatPeriodMs, "supervisor.heartbeat-period-ms", c.Supervisor.HeartbeatPeriodMs, "liveness monitor poll period in ms")
	fs.IntVar(&c.Supervisor.LeadTargetFrames, "supervisor.lead-target-frames", c.Supervisor.LeadTargetFrames, "worker lead target in frames")
	fs.StringVar(&c.OSC.Host, "osc.host", c.OSC.Host, "OSC listen host")
	fs.IntVar(&c.OSC.Port, "osc.port", c.OSC.Port, "OSC listen port")
	fs.StringVar(&c.Viz.Host, "viz.host", c.Viz.Host, "visualizer broadcast host")
	fs.IntVar(&c.Viz.Port, "viz.port", c.Viz.Port, "visualizer broadcast port")
	fs.BoolVar(&c.Viz.Enable, "viz.enable", c.Viz.Enable, "enable the visualizer broadcast")
}

// Validate rejects knob combinations spec.md §6 doesn't recognize.
func (c *Config) Validate() error {
	switch c.Audio.SampleRate {
	case 44100, 48000:
	default:
		return fmt.Errorf("config: audio.sample_rate must be 44100 or 48000, got %d", c.Audio.SampleRate)
	}
	switch c.Audio.BufferSize {
	case 128, 256, 512, 1024:
	default:
		return fmt.Errorf("config: audio.buffer_size must be 128, 256, 512, or 1024, got %d", c.Audio.BufferSize)
	}
	switch c.Supervisor.RingDepth {
	case 8, 16, 32:
	default:
		return fmt.Errorf("config: supervisor.ring_depth must be 8, 16, or 32, got %d", c.Supervisor.RingDepth)
	}
	return nil
}
