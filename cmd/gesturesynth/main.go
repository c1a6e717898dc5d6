package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/echocat/slf4g"
	"github.com/echocat/slf4g/native"
	"github.com/echocat/slf4g/native/consumer"
	"github.com/echocat/slf4g/native/facade/value"
	"github.com/echocat/slf4g/native/formatter"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/gesturesynth/internal/app"
	"github.com/ayusman/gesturesynth/internal/capture"
	"github.com/ayusman/gesturesynth/internal/config"
	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/dispatch"
	"github.com/ayusman/gesturesynth/internal/route"
	"github.com/ayusman/gesturesynth/internal/server"
	"github.com/ayusman/gesturesynth/internal/telemetry"
	"github.com/ayusman/gesturesynth/internal/tray"
)

func main() {
	consumer.Default = consumer.NewWriter(os.Stderr)

	lv := value.NewProvider(native.DefaultProvider)
	lv.Consumer.Formatter.Codec = value.MappingFormatterCodec{
		"text": formatter.NewText(),
		"json": formatter.NewJson(),
	}

	var (
		flags      config.Config
		configFile string
	)
	load := func() (config.Config, error) {
		file, err := config.LoadFile(configFile, configFile == config.DefaultFile())
		if err != nil {
			return config.Config{}, err
		}
		fromEnv, err := config.FromEnv(nil)
		if err != nil {
			return config.Config{}, err
		}
		return config.Resolve(file, fromEnv, flags)
	}

	cmd := kingpin.New("gesturesynth", "Turns hand gestures into synthesizer parameters.")
	cmd.Flag("config", "YAML configuration file.").
		Default(config.DefaultFile()).
		StringVar(&configFile)
	flags.SetupFlags(cmd)

	cmd.Command("run", "Track hands and drive the synthesis engine.").
		Default().
		Action(func(*kingpin.ParseContext) error {
			c, err := load()
			if err != nil {
				return err
			}
			return run(c)
		})
	cmd.Command("routes", "Print the effective route table as YAML.").
		Action(func(*kingpin.ParseContext) error {
			c, err := load()
			if err != nil {
				return err
			}
			table, err := c.RouteTable()
			if err != nil {
				return err
			}
			return printRoutes(os.Stdout, table)
		})
	cmd.Command("config", "Print the effective configuration as YAML.").
		Action(func(*kingpin.ParseContext) error {
			c, err := load()
			if err != nil {
				return err
			}
			return c.Write(os.Stdout)
		})

	cmd.Flag("log.level", "").
		SetValue(lv.Level)
	cmd.Flag("log.format", "").
		Default("text").
		SetValue(lv.Consumer.Formatter)
	cmd.Flag("log.color", "").
		Default("auto").
		SetValue(lv.Consumer.Formatter.ColorMode)

	kingpin.MustParse(cmd.Parse(os.Args[1:]))
}

func run(c config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, c.Telemetry.Endpoint, c.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdown(sctx); err != nil {
			log.WithError(err).Warn("Cannot flush telemetry.")
		}
	}()

	table, err := c.RouteTable()
	if err != nil {
		return err
	}

	appConfig := app.Config{
		FrameInterval: c.FrameInterval(),
		Routes:        table,
		Engine:        c.EngineConfig(),
		Dispatch: dispatch.Options{
			Interval: c.Dispatch.Interval,
			MaxWait:  c.Dispatch.MaxWait,
		},
	}
	if c.Source == config.SourceCamera {
		det, err := detector.NewMediaPipeDetector(c.DetectorConfig())
		if err != nil {
			return fmt.Errorf("start detector: %w", err)
		}
		defer func() { _ = det.Close() }()

		appConfig.Camera = capture.New(capture.Config{DeviceID: c.Camera.ID, FPS: c.Camera.FPS})
		appConfig.Detector = det
		appConfig.Preview = capture.NewPreview()
	}

	a := app.New(appConfig)
	srv := server.New(server.Config{
		StaticDir: c.StaticDir,
		Pipeline:  a,
		Preview:   appConfig.Preview,
		Ingest:    c.Source == config.SourceWebsocket,
	})

	serve := func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return a.Run(ctx) })
		g.Go(func() error { return srv.ListenAndServe(ctx, c.Addr) })
		return g.Wait()
	}

	if !c.Tray {
		return serve(ctx)
	}

	var serveErr error
	t := tray.New(a)
	t.OnQuit(func() {
		log.Info("Quit clicked. Going down...")
		cancel()
	})
	t.Run(ctx, func(ctx context.Context) {
		serveErr = serve(ctx)
	})
	return serveErr
}

func printRoutes(w io.Writer, table route.Table) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Routes []route.Rule `yaml:"routes"`
	}{table.Rules()}); err != nil {
		return err
	}
	return enc.Close()
}
