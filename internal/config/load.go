package config

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FlagHolder is anything that can declare command line flags.
type FlagHolder interface {
	Flag(name, help string) *kingpin.FlagClause
}

// Read decodes YAML configuration from r. Unknown keys are an error.
func Read(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, err
	}
	return c, nil
}

// LoadFile reads the configuration file fn. A missing file yields an empty
// configuration when ignoreNotFound is set.
func LoadFile(fn string, ignoreNotFound bool) (Config, error) {
	f, err := os.Open(fn)
	if os.IsNotExist(err) && ignoreNotFound {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	c, err := Read(f)
	if err != nil {
		return Config{}, fmt.Errorf("cannot load configuration file %q: %w", fn, err)
	}
	return c, nil
}

// FromEnv reads GESTURESYNTH_* variables from environ, or from the process
// environment when environ is nil.
func FromEnv(environ map[string]string) (Config, error) {
	var c Config
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// Write encodes c as YAML.
func (c Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// SetupFlags declares a flag for every scalar setting, writing into c.
func (c *Config) SetupFlags(using FlagHolder) {
	using.Flag("addr", "Address the HTTP server listens on.").
		StringVar(&c.Addr)
	using.Flag("static", "Directory with the visualizer's static files.").
		StringVar(&c.StaticDir)
	using.Flag("source", "Where detection frames come from: camera or websocket.").
		EnumVar(&c.Source, SourceCamera, SourceWebsocket)
	using.Flag("camera.id", "Camera device id.").
		IntVar(&c.Camera.ID)
	using.Flag("camera.fps", "Capture frame rate.").
		IntVar(&c.Camera.FPS)
	using.Flag("detector.maxHands", "Maximum number of hands to detect.").
		IntVar(&c.Detector.MaxHands)
	using.Flag("dispatch.interval", "Quiet period before a snapshot reaches the engine.").
		DurationVar(&c.Dispatch.Interval)
	using.Flag("dispatch.maxWait", "Longest a burst of snapshots may delay delivery; negative for no bound.").
		DurationVar(&c.Dispatch.MaxWait)
	using.Flag("engine.kind", "Synthesis engine adapter: memory, remote or process.").
		StringVar(&c.Engine.Kind)
	using.Flag("engine.url", "Websocket URL of a remote engine host.").
		StringVar(&c.Engine.URL)
	using.Flag("engine.command", "Command line of a process engine; repeat for each argument.").
		StringsVar(&c.Engine.Command)
	using.Flag("telemetry.endpoint", "OTLP/HTTP endpoint for traces.").
		StringVar(&c.Telemetry.Endpoint)
	using.Flag("tray", "Show a system tray icon.").
		BoolVar(&c.Tray)
}

// DefaultFile is where the configuration file is looked up when none is
// given.
func DefaultFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gesturesynth", "config.yaml")
	}

	u, err := user.Current()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(u.HomeDir, ".config", "gesturesynth", "config.yaml")
}
