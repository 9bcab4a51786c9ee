// ABOUTME: Configuration for the engine binaries
// ABOUTME: Merges defaults, an ini file, .env/environment and command line flags
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Resonate-Protocol/resonate-engine/pkg/engine"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/vaughan0/go-ini"
)

// Defaults
const (
	DefaultChannels   = 2
	DefaultSampleRate = 48000
	DefaultBitDepth   = 16
	DefaultPeriodMs   = 10
	DefaultBufferMs   = 500
	DefaultBackend    = "malgo"
	DefaultVolume     = 1.0
	DefaultPort       = 8937
	DefaultDebugLevel = "info"
	DefaultPath       = "/control"
)

// Config holds every setting of the player and the server. Values are
// layered: defaults, then the config file, then the environment, then flags.
type Config struct {
	ConfigFile string `short:"C" long:"config" env:"ENGINE_CONFIG" description:"Path to configuration file"`
	EnvFile    string `long:"envfile" description:"Path to a .env file loaded before reading the environment"`

	Backend    string  `long:"backend" env:"ENGINE_BACKEND" description:"Output backend (malgo, oto, portaudio, null)"`
	Device     string  `long:"device" env:"ENGINE_DEVICE" description:"Playback device name (default device when empty)"`
	Channels   uint32  `long:"channels" env:"ENGINE_CHANNELS" description:"Output channel count"`
	SampleRate uint32  `long:"samplerate" env:"ENGINE_SAMPLE_RATE" description:"Output sample rate in Hz"`
	BitDepth   int     `long:"bitdepth" env:"ENGINE_BIT_DEPTH" description:"Device sample format (16, 24, 32)"`
	PeriodMs   int     `long:"period-ms" env:"ENGINE_PERIOD_MS" description:"Hardware period in milliseconds"`
	BufferMs   int     `long:"buffer-ms" env:"ENGINE_BUFFER_MS" description:"Decode-ahead buffer in milliseconds"`
	Volume     float64 `long:"volume" env:"ENGINE_VOLUME" description:"Initial linear volume"`

	LogFile    string `long:"logfile" env:"ENGINE_LOG_FILE" description:"Rotated log file path (disabled when empty)"`
	DebugLevel string `short:"d" long:"debuglevel" env:"ENGINE_DEBUG_LEVEL" description:"Log level, optionally per subsystem (info,DECD=debug)"`

	Listen    string `long:"listen" env:"ENGINE_LISTEN" description:"Control server listen address"`
	Name      string `long:"name" env:"ENGINE_NAME" description:"Advertised server name (default: hostname)"`
	NoMDNS    bool   `long:"no-mdns" env:"ENGINE_NO_MDNS" description:"Do not advertise the control server"`
	NoMetrics bool   `long:"no-metrics" env:"ENGINE_NO_METRICS" description:"Do not serve Prometheus metrics on /metrics"`

	ListDevices bool `long:"list-devices" description:"List audio devices and exit"`
	NoTUI       bool `long:"no-tui" description:"Disable the TUI and stream logs instead"`
	ShowVersion bool `short:"V" long:"version" description:"Show version and exit"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		ConfigFile: DefaultConfigFile(),
		Backend:    DefaultBackend,
		Channels:   DefaultChannels,
		SampleRate: DefaultSampleRate,
		BitDepth:   DefaultBitDepth,
		PeriodMs:   DefaultPeriodMs,
		BufferMs:   DefaultBufferMs,
		Volume:     DefaultVolume,
		DebugLevel: DefaultDebugLevel,
		Listen:     fmt.Sprintf(":%d", DefaultPort),
	}
}

// DefaultConfigFile returns ~/.resonate-engine/engine.conf
func DefaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "engine.conf"
	}
	return filepath.Join(home, ".resonate-engine", "engine.conf")
}

// Load parses args on top of the config file and environment. The
// remaining positional arguments are returned.
func Load(args []string) (*Config, []string, error) {
	// First pass finds the config and .env files.
	pre := Default()
	preParser := flags.NewParser(&pre, flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, nil, err
	}

	if err := loadEnvFile(pre.EnvFile); err != nil {
		return nil, nil, err
	}
	// Re-read so ENGINE_CONFIG from the .env file is honored.
	pre = Default()
	if _, err := flags.NewParser(&pre, flags.IgnoreUnknown).ParseArgs(args); err != nil {
		return nil, nil, err
	}

	cfg := Default()
	cfg.ConfigFile = pre.ConfigFile
	if err := loadFile(&cfg, pre.ConfigFile, pre.ConfigFile != DefaultConfigFile()); err != nil {
		return nil, nil, err
	}

	parser := flags.NewParser(&cfg, flags.HelpFlag)
	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, rest, nil
}

// loadEnvFile loads a .env file into the process environment. A missing
// default .env is not an error.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("unable to load %s: %w", path, err)
	}
	return nil
}

// loadFile fills cfg from an ini file. A missing file is only an error
// when it was asked for explicitly.
func loadFile(cfg *Config, path string, required bool) error {
	f, err := ini.LoadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("unable to load config file %s: %w", path, err)
	}

	var errs []error
	get := func(s *string, section, field string) {
		if v, ok := f.Get(section, field); ok {
			*s = v
		}
	}
	getInt := func(i *int, section, field string) {
		if v, ok := f.Get(section, field); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("[%s] %s: %v", section, field, err))
				return
			}
			*i = n
		}
	}
	getUint32 := func(u *uint32, section, field string) {
		if v, ok := f.Get(section, field); ok {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("[%s] %s: %v", section, field, err))
				return
			}
			*u = uint32(n)
		}
	}
	getFloat := func(x *float64, section, field string) {
		if v, ok := f.Get(section, field); ok {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("[%s] %s: %v", section, field, err))
				return
			}
			*x = n
		}
	}
	getBool := func(b *bool, section, field string) {
		if v, ok := f.Get(section, field); ok {
			n, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("[%s] %s: %v", section, field, err))
				return
			}
			*b = n
		}
	}

	get(&cfg.Backend, "engine", "backend")
	get(&cfg.Device, "engine", "device")
	getUint32(&cfg.Channels, "engine", "channels")
	getUint32(&cfg.SampleRate, "engine", "samplerate")
	getInt(&cfg.BitDepth, "engine", "bitdepth")
	getInt(&cfg.PeriodMs, "engine", "periodms")
	getInt(&cfg.BufferMs, "engine", "bufferms")
	getFloat(&cfg.Volume, "engine", "volume")

	get(&cfg.LogFile, "log", "logfile")
	get(&cfg.DebugLevel, "log", "debuglevel")

	get(&cfg.Listen, "server", "listen")
	get(&cfg.Name, "server", "name")
	mdns, metrics := !cfg.NoMDNS, !cfg.NoMetrics
	getBool(&mdns, "server", "mdns")
	getBool(&metrics, "server", "metrics")
	cfg.NoMDNS, cfg.NoMetrics = !mdns, !metrics

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the engine settings
func (c *Config) Validate() error {
	if c.Volume < 0 {
		return fmt.Errorf("%w: volume must be >= 0, got %v", engine.ErrConfiguration, c.Volume)
	}
	if c.PeriodMs <= 0 || c.BufferMs <= 0 {
		return fmt.Errorf("%w: period and buffer must be positive", engine.ErrConfiguration)
	}
	if c.BufferMs < c.PeriodMs {
		return fmt.Errorf("%w: buffer (%d ms) shorter than one period (%d ms)",
			engine.ErrConfiguration, c.BufferMs, c.PeriodMs)
	}
	return nil
}

// Engine returns the engine parameters. The caller supplies the backend
// and logger.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Channels:   c.Channels,
		SampleRate: c.SampleRate,
		BitDepth:   c.BitDepth,
		PeriodMs:   c.PeriodMs,
		BufferMs:   c.BufferMs,
		DeviceName: c.Device,
	}
}

// IsHelp reports whether err is go-flags asking for the usage text
func IsHelp(err error) bool {
	var ferr *flags.Error
	return errors.As(err, &ferr) && ferr.Type == flags.ErrHelp
}
