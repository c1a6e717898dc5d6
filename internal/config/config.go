// Package config loads the gesturesynth configuration.
//
// Values are layered, later wins: built-in defaults, the YAML configuration
// file, GESTURESYNTH_* environment variables and finally command line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"dario.cat/mergo"

	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/engine"
	"github.com/ayusman/gesturesynth/internal/route"
)

// Frame sources.
const (
	SourceCamera    = "camera"
	SourceWebsocket = "websocket"
)

// EnvPrefix prefixes every environment variable the configuration reads.
const EnvPrefix = "GESTURESYNTH_"

// Config is the complete application configuration.
type Config struct {
	Addr      string `yaml:"addr,omitempty" env:"ADDR"`
	StaticDir string `yaml:"staticDir,omitempty" env:"STATIC_DIR"`
	// Source selects where detection frames come from: the local camera or
	// the websocket ingest endpoint.
	Source string `yaml:"source,omitempty" env:"SOURCE"`

	Camera    Camera       `yaml:"camera,omitempty" envPrefix:"CAMERA_"`
	Detector  Detector     `yaml:"detector,omitempty" envPrefix:"DETECTOR_"`
	Dispatch  Dispatch     `yaml:"dispatch,omitempty" envPrefix:"DISPATCH_"`
	Engine    Engine       `yaml:"engine,omitempty" envPrefix:"ENGINE_"`
	Routes    []route.Rule `yaml:"routes,omitempty"`
	Telemetry Telemetry    `yaml:"telemetry,omitempty" envPrefix:"TELEMETRY_"`

	Tray bool `yaml:"tray,omitempty" env:"TRAY"`
}

type Camera struct {
	ID  int `yaml:"id,omitempty" env:"ID"`
	FPS int `yaml:"fps,omitempty" env:"FPS"`
}

type Detector struct {
	MaxHands              int     `yaml:"maxHands,omitempty" env:"MAX_HANDS"`
	MinConfidence         float64 `yaml:"minConfidence,omitempty" env:"MIN_CONFIDENCE"`
	MinTrackingConfidence float64 `yaml:"minTrackingConfidence,omitempty" env:"MIN_TRACKING_CONFIDENCE"`
}

type Dispatch struct {
	Interval time.Duration `yaml:"interval,omitempty" env:"INTERVAL"`
	// MaxWait bounds how long a burst may postpone delivery. Negative
	// removes the bound; zero keeps the default.
	MaxWait  time.Duration `yaml:"maxWait,omitempty" env:"MAX_WAIT"`
}

type Engine struct {
	Kind      string   `yaml:"kind,omitempty" env:"KIND"`
	URL       string   `yaml:"url,omitempty" env:"URL"`
	Command   []string `yaml:"command,omitempty" env:"COMMAND" envSeparator:" "`
	QueueSize int      `yaml:"queueSize,omitempty" env:"QUEUE_SIZE"`
}

type Telemetry struct {
	// Endpoint of the OTLP/HTTP trace collector. Empty disables export.
	Endpoint    string `yaml:"endpoint,omitempty" env:"ENDPOINT"`
	ServiceName string `yaml:"serviceName,omitempty" env:"SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := detector.DefaultConfig()
	return Config{
		Addr:      "127.0.0.1:8080",
		StaticDir: "web",
		Source:    SourceCamera,
		Camera: Camera{
			ID:  0,
			FPS: 60,
		},
		Detector: Detector{
			MaxHands:              d.MaxHands,
			MinConfidence:         d.MinConfidence,
			MinTrackingConfidence: d.MinTrackingConf,
		},
		Dispatch: Dispatch{
			Interval: 16 * time.Millisecond,
			MaxWait:  100 * time.Millisecond,
		},
		Engine: Engine{
			Kind:      engine.KindMemory,
			QueueSize: engine.DefaultQueueSize,
		},
		Telemetry: Telemetry{
			ServiceName: "gesturesynth",
		},
	}
}

// Resolve layers the given configurations over the defaults, in order, and
// validates the result. Zero values in a layer leave the value below intact.
func Resolve(layers ...Config) (Config, error) {
	c := Default()
	for _, l := range layers {
		if err := mergo.Merge(&c, l, mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("merge configuration: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	var errs []error

	switch c.Source {
	case SourceCamera, SourceWebsocket:
	default:
		errs = append(errs, fmt.Errorf("source must be %q or %q, got %q", SourceCamera, SourceWebsocket, c.Source))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS))
	}
	if c.Detector.MaxHands < 1 || c.Detector.MaxHands > detector.MaxHands {
		errs = append(errs, fmt.Errorf("detector.maxHands must be between 1 and %d, got %d", detector.MaxHands, c.Detector.MaxHands))
	}
	for name, v := range map[string]float64{
		"detector.minConfidence":         c.Detector.MinConfidence,
		"detector.minTrackingConfidence": c.Detector.MinTrackingConfidence,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", name, v))
		}
	}
	if c.Dispatch.Interval <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.interval must be positive, got %v", c.Dispatch.Interval))
	}

	switch c.Engine.Kind {
	case engine.KindMemory:
	case engine.KindRemote:
		if c.Engine.URL == "" {
			errs = append(errs, errors.New("engine.url is required for a remote engine"))
		}
	case engine.KindProcess:
		if len(c.Engine.Command) == 0 {
			errs = append(errs, errors.New("engine.command is required for a process engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("engine.kind must be %q, %q or %q, got %q",
			engine.KindMemory, engine.KindRemote, engine.KindProcess, c.Engine.Kind))
	}
	if c.Engine.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("engine.queueSize must not be negative, got %d", c.Engine.QueueSize))
	}

	if _, err := c.RouteTable(); err != nil {
		errs = append(errs, fmt.Errorf("routes: %w", err))
	}

	return errors.Join(errs...)
}

// RouteTable returns the configured routes, or the default table when none
// are configured.
func (c Config) RouteTable() (route.Table, error) {
	if len(c.Routes) == 0 {
		return route.DefaultTable(), nil
	}
	return route.NewTable(c.Routes)
}

// EngineConfig returns the engine adapter settings.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		Kind:      c.Engine.Kind,
		URL:       c.Engine.URL,
		Command:   append([]string(nil), c.Engine.Command...),
		QueueSize: c.Engine.QueueSize,
	}
}

// DetectorConfig returns the landmark detector settings.
func (c Config) DetectorConfig() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConfidence,
	}
}

// FrameInterval is the capture period for the configured frame rate.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Camera.FPS)
}
