package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/config"
	"github.com/banshee-data/sensorkit/internal/monitoring"
	"github.com/banshee-data/sensorkit/internal/sensor"
	"github.com/banshee-data/sensorkit/internal/sensor/accumulator"
	"github.com/banshee-data/sensorkit/internal/sensor/detect"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/monitor"
	"github.com/banshee-data/sensorkit/internal/sensor/pulse"
	sensorsignal "github.com/banshee-data/sensorkit/internal/sensor/signal"
	"github.com/banshee-data/sensorkit/internal/sensor/storage/sqlite"
	"github.com/banshee-data/sensorkit/internal/version"
)

var (
	configFile = flag.String("config", "", "Path to sensor configuration JSON (defaults to "+config.DefaultConfigPath+")")
	listen     = flag.String("listen", "", "Monitor HTTP listen address (overrides config)")
	grpcListen = flag.String("grpc-listen", "", "gRPC health listen address (overrides config)")
	dbPath     = flag.String("db", "", "Snapshot database path (overrides config)")
	entities   = flag.Int("entities", 8, "Number of synthetic vehicles to simulate")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

const keepSnapshots = 10

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}
	monitoring.SetDebug(*debug)
	log.Printf("starting %s", version.String())

	var cfg *config.SensorConfig
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadSensorConfig(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.MustLoadDefaultConfig()
	}
	if *entities < 0 {
		log.Fatal("-entities must not be negative")
	}

	accumulator.SetDebugAssertions(cfg.GetDebugAssertions())

	world := entity.NewRegistry()
	sim := newSimulation(world, *entities, cfg.GetRange())

	o := cfg.GetOrigin()
	origin := r3.Vec{X: o[0], Y: o[1], Z: o[2]}
	originFn := func() r3.Vec { return origin }

	filter := sensorsignal.NewFilter()
	filter.EnableTagFilter = cfg.GetEnableTagFilter()
	filter.AllowedTags = cfg.GetAllowedTags()

	s, err := sensor.New(sensor.Config{
		ID:            cfg.GetSensorID(),
		World:         world,
		Origin:        originFn,
		Filter:        filter,
		DetectionMode: sensor.DetectionMode(cfg.GetDetectionMode()),
		Detector: &detect.Sphere{
			World:      world,
			Origin:     originFn,
			Radius:     cfg.GetRange(),
			Detectable: sim.isCollider,
		},
	})
	if err != nil {
		log.Fatalf("failed to create sensor: %v", err)
	}
	sim.sensor = s

	s.Subscribe(sensor.Listener{
		OnDetected:      func(h entity.Handle) { monitoring.Logf("[Sensor] %s detected %s (%s)", s.ID(), h, world.Tag(h)) },
		OnLostDetection: func(h entity.Handle) { monitoring.Logf("[Sensor] %s lost %s", s.ID(), h) },
	})

	snapshotPath := cfg.GetSnapshotDB()
	if *dbPath != "" {
		snapshotPath = *dbPath
	}
	var store *sqlite.SnapshotStore
	if snapshotPath != "" {
		store, err = sqlite.Open(snapshotPath)
		if err != nil {
			log.Fatalf("failed to open snapshot database: %v", err)
		}
		if err := restore(store, s); err != nil {
			store.Close()
			log.Fatalf("failed to restore snapshot: %v", err)
		}
		defer store.Close()
	}

	mode, err := pulse.ParseMode(cfg.GetPulseMode())
	if err != nil {
		log.Fatalf("invalid pulse mode: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(reg)
	metrics.Watch(s)

	var mu sync.Mutex
	routine := pulse.NewRoutine(sim, mode, cfg.GetPulseInterval(), cfg.GetCycleInterval())
	routine.Locker = &mu
	routine.OnPulsed(func(time.Time) { metrics.RecordPulse(s) })

	httpAddr := cfg.GetListen()
	if *listen != "" {
		httpAddr = *listen
	}
	healthAddr := cfg.GetGRPCListen()
	if *grpcListen != "" {
		healthAddr = *grpcListen
	}

	var health *monitor.HealthServer
	if healthAddr != "" {
		health = monitor.NewHealthServer(healthAddr, "sensorkit.Sensor")
		var once sync.Once
		routine.OnPulsed(func(time.Time) { once.Do(func() { health.SetServing(true) }) })
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := routine.Run(ctx); err != nil {
			log.Printf("pulse routine terminated: %v", err)
			stop()
		}
	}()

	if httpAddr != "" {
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address:  httpAddr,
			Sensors:  []*sensor.Sensor{s},
			Locker:   &mu,
			Gatherer: reg,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Start(ctx); err != nil {
				log.Printf("monitor server terminated: %v", err)
				stop()
			}
		}()
	}

	if health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := health.Start(ctx); err != nil {
				log.Printf("health server terminated: %v", err)
				stop()
			}
		}()
	}

	if mode == pulse.Manual {
		log.Printf("pulse mode is manual; pulsing once")
		routine.PulseNow()
	}

	<-ctx.Done()
	wg.Wait()

	if store != nil {
		mu.Lock()
		snap, cycle := s.Export(), s.Cycle()
		mu.Unlock()
		if err := persist(store, s.ID(), cycle, snap); err != nil {
			log.Printf("failed to save snapshot: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
}

// restore rebuilds s from its latest snapshot. A sensor with no snapshot
// starts empty.
func restore(store *sqlite.SnapshotStore, s *sensor.Sensor) error {
	rec, err := store.Latest(context.Background(), s.ID())
	if errors.Is(err, sqlite.ErrSnapshotNotFound) {
		log.Printf("no snapshot for sensor %s, starting empty", s.ID())
		return nil
	}
	if err != nil {
		return err
	}
	s.Rebuild(rec.Snapshot)
	log.Printf("restored snapshot %s for sensor %s: %d detections at cycle %d", rec.ID, s.ID(), s.Count(), s.Cycle())
	return nil
}

func persist(store *sqlite.SnapshotStore, sensorID string, cycle int, snap sensor.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := store.Save(ctx, sensorID, cycle, snap)
	if err != nil {
		return err
	}
	pruned, err := store.Prune(ctx, sensorID, keepSnapshots)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	log.Printf("saved snapshot %s (cycle %d, %d accumulators, %d pruned)", id, cycle, len(snap), pruned)
	return nil
}
