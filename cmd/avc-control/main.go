// Command avc-control is the vehicle's entry point: it wires the sensor
// ingest worker, pose tracker, command loop, driver, and button watcher
// into the thread topology spec.md §5 describes, following the teacher's
// radar.go flag-parsing + signal.NotifyContext + sync.WaitGroup shutdown
// idiom.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sparkfun-avc/control/internal/bus"
	"github.com/sparkfun-avc/control/internal/buttonwatcher"
	"github.com/sparkfun-avc/control/internal/config"
	"github.com/sparkfun-avc/control/internal/control"
	"github.com/sparkfun-avc/control/internal/driver"
	"github.com/sparkfun-avc/control/internal/geo"
	"github.com/sparkfun-avc/control/internal/obslog"
	"github.com/sparkfun-avc/control/internal/pose"
	"github.com/sparkfun-avc/control/internal/sensoringest"
	"github.com/sparkfun-avc/control/internal/sensorserial"
	"github.com/sparkfun-avc/control/internal/telemetry"
	"github.com/sparkfun-avc/control/internal/timeutil"
	"github.com/sparkfun-avc/control/internal/units"
	"github.com/sparkfun-avc/control/internal/version"
	"github.com/sparkfun-avc/control/internal/waypoint"
)

var (
	logPath      = flag.String("log", "", "Path to write logs to (default stderr)")
	verbose      = flag.Bool("verbose", false, "Enable verbose (debug) logging")
	kmlFlag      = flag.String("kml", "", "Waypoint list file to load at startup (name relative to the waypoint directory)")
	maxThrottle  = flag.Float64("max-throttle", -1, "Override the configured max throttle (0-1); -1 keeps the configured value")
	videoPath    = flag.String("video", "", "Path forwarded to an external video-capture process; not implemented here")
	strategyFlag = flag.String("strategy", "extension", "Waypoint strategy: simple, extension, or chase")
	unitsFlag    = flag.String("units", units.MPS, "Speed units for the periodic status log (mps, mph, kmph, kph)")
	configPath   = flag.String("config", config.DefaultConfigPath, "Path to JSON or YAML vehicle configuration file")
	versionFlag  = flag.Bool("version", false, "Print version information and exit")
	versionShort = flag.Bool("v", false, "Print version information and exit (shorthand)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if *versionFlag || *versionShort {
		fmt.Printf("avc-control v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		os.Exit(0)
	}

	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("failed to open log file: %v", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	if err := run(); err != nil {
		log.Printf("startup failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	if !units.IsValid(*unitsFlag) {
		return fmt.Errorf("invalid -units %q: expected one of %s", *unitsFlag, units.GetValidUnitsString())
	}

	cfg, err := config.LoadVehicleConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	b := bus.New()
	producer := telemetry.NewProducer(b)
	// obslog.Bus always calls Logf("%s: %s", level, message); filter on the
	// first argument rather than the literal format string to drop debug
	// lines unless -verbose is set.
	verboseFlag := *verbose
	obslog.SetLogger(func(format string, v ...interface{}) {
		if !verboseFlag && len(v) > 0 {
			if level, ok := v[0].(obslog.Level); ok && level == obslog.Debug {
				return
			}
		}
		log.Printf(format, v...)
	})

	origin := geo.NewOrigin(cfg.GetReferenceLatitudeD(), cfg.GetReferenceLongitudeD())

	portOpts := sensorserial.PortOptions{BaudRate: cfg.GetSerialBaud()}
	port, err := sensorserial.OpenReal(cfg.GetSerialDevice(), portOpts)
	if err != nil {
		return fmt.Errorf("open serial device %s: %w", cfg.GetSerialDevice(), err)
	}
	codec := sensorserial.NewCodec(port)
	compass := sensoringest.NewCompass(cfg.GetMagneticDeclinationD())
	clock := timeutil.RealClock{}
	ingestWorker := sensoringest.NewWorker(codec, producer, compass, clock)

	pwm, err := driver.OpenRPIOPWMSetter(cfg.GetThrottlePin(), cfg.GetSteeringPin())
	if err != nil {
		return fmt.Errorf("open PWM pins: %w", err)
	}
	initialMaxThrottle := cfg.GetMaxThrottle()
	if *maxThrottle >= 0 {
		initialMaxThrottle = *maxThrottle
	}
	veh := driver.New(pwm, cfg.GetThrottlePin(), cfg.GetSteeringPin(), initialMaxThrottle, producer)

	tracker := pose.New(origin, cfg.GetTopSpeedMPS(), cfg.GetMaxTurnRateDPerS(), producer, clock, cfg.GetReverseDeadTime(), cfg.GetReverseTravelRateDPerS())

	gen, err := loadWaypoints(cfg, origin, *kmlFlag, *strategyFlag)
	if err != nil {
		return fmt.Errorf("load waypoints: %w", err)
	}

	loop := control.New(tracker, veh, gen, producer, clock, control.Options{
		TickInterval:        cfg.GetTickInterval(),
		CalibrationDuration: time.Duration(cfg.GetCalibrationSeconds() * float64(time.Second)),
		Calibrator:          ingestWorker,
	})

	buttonPin, err := buttonwatcher.OpenRPIOPinReader(cfg.GetButtonPin())
	if err != nil {
		return fmt.Errorf("open button pin: %w", err)
	}
	watcher := buttonwatcher.New(buttonPin, producer, clock)

	if *videoPath != "" {
		launchVideoCapture(*videoPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ingestWorker.Run(ctx); err != nil {
			log.Printf("sensor ingest worker stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tracker.ConsumeTelemetry(ctx, b)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tracker.Run(ctx, cfg.GetTickInterval())
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.ConsumeCommands(ctx, b)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeWaypointCommands(ctx, b, cfg, origin, *strategyFlag, loop, producer)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runStatusLog(ctx, clock, tracker, loop, *unitsFlag)
	}()

	wg.Wait()
	if err := pwm.Close(); err != nil {
		log.Printf("warning: failed to close PWM pins: %v", err)
	}
	if err := port.Close(); err != nil {
		log.Printf("warning: failed to close serial port: %v", err)
	}
	log.Print("graceful shutdown complete")
	return nil
}

// waypointSetter is consumeWaypointCommands' view of the command loop,
// narrowed to the one capability it needs (*control.Loop satisfies it).
type waypointSetter interface {
	SetWaypoints(gen waypoint.Generator)
}

// consumeWaypointCommands subscribes to the waypoint exchange and, on a
// "load" command, reloads the waypoint file and atomically swaps it into
// the running loop (spec.md §5's waypoint consumer: blocks on the bus,
// replaces the list, resets the index — satisfied here because a freshly
// built generator always starts at index 0).
func consumeWaypointCommands(ctx context.Context, b *bus.Bus, cfg *config.VehicleConfig, origin geo.Origin, strategy string, loop waypointSetter, producer *telemetry.Producer) {
	b.Consume(ctx, telemetry.ExchangeWaypoint, func(payload []byte) {
		var cmd telemetry.WaypointCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			obslog.Bus(producer, obslog.Warn, "waypoint: malformed command: %v", err)
			return
		}
		if cmd.Command != "load" {
			obslog.Bus(producer, obslog.Warn, "waypoint: unrecognized command %q", cmd.Command)
			return
		}
		gen, err := loadWaypoints(cfg, origin, cmd.File, strategy)
		if err != nil {
			obslog.Bus(producer, obslog.Error, "waypoint: load %q: %v", cmd.File, err)
			return
		}
		loop.SetWaypoints(gen)
	})
}

func loadWaypoints(cfg *config.VehicleConfig, origin geo.Origin, kmlFile, strategy string) (waypoint.Generator, error) {
	file := kmlFile
	if file == "" {
		file = cfg.GetWaypointFile()
	}
	var points []waypoint.Point
	if file != "" {
		loader := waypoint.NewFileLoader(cfg.GetWaypointDir())
		pts, err := loader.Load(file, origin)
		if err != nil {
			return nil, err
		}
		points = pts
	}

	switch strategy {
	case "simple":
		return waypoint.NewSimple(points), nil
	case "chase":
		return waypoint.NewChase(points, cfg.GetChaseDistance()), nil
	case "extension", "":
		return waypoint.NewExtension(points), nil
	default:
		return nil, fmt.Errorf("unknown waypoint strategy %q", strategy)
	}
}

// statusLogInterval is how often the running speed/state summary is logged.
const statusLogInterval = 5 * time.Second

// runStatusLog periodically logs the estimated speed (in the operator's
// chosen display units) and command-loop state, echoing the teacher's
// units-aware dashboard display in the vehicle's own log stream.
func runStatusLog(ctx context.Context, clock timeutil.Clock, tracker *pose.Tracker, loop *control.Loop, unit string) {
	ticker := clock.NewTicker(statusLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			speed := units.ConvertSpeed(tracker.EstimatedSpeed(), unit)
			log.Printf("status: state=%s speed=%.2f%s", loop.State(), speed, unit)
		}
	}
}

// launchVideoCapture hands off to an external collaborator process; the
// capture pipeline itself is out of scope (spec.md §1).
func launchVideoCapture(path string) {
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		log.Printf("warning: failed to launch video capture %q: %v", path, err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("video capture process exited: %v", err)
		}
	}()
}
