package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/racecar/internal/api"
	"github.com/banshee-data/racecar/internal/behavior"
	"github.com/banshee-data/racecar/internal/config"
	"github.com/banshee-data/racecar/internal/db"
	"github.com/banshee-data/racecar/internal/hardware"
	"github.com/banshee-data/racecar/internal/serialmux"
	"github.com/banshee-data/racecar/internal/timeutil"
	"github.com/banshee-data/racecar/internal/vehicle"
	"github.com/banshee-data/racecar/internal/version"
	"github.com/banshee-data/racecar/internal/vision"
)

var (
	devMode     = flag.Bool("dev", false, "Drive a simulated corridor instead of the serial bridge")
	listen      = flag.String("listen", ":8080", "Listen address")
	port        = flag.String("port", "/dev/ttyACM0", "Serial port of the drive bridge; empty runs without one (ignored in dev mode)")
	baud        = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	configPath  = flag.String("config", config.DefaultConfigPath, "Tuning config JSON")
	dbPath      = flag.String("db", "racecar.db", "Telemetry database path; empty disables recording")
	colorDevice = flag.String("camera", "", "Colour camera device index or stream URL; empty disables it")
	depthDevice = flag.String("depth-camera", "", "Depth camera device index or stream URL")
	startName   = flag.String("start", "", "Initial behavior, overriding the config")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

// cameraDevice turns "0" into a device index and leaves paths alone.
func cameraDevice(s string) interface{} {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func main() {
	flag.Parse()

	if *showVersion {
		log.Print(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	params, err := behavior.ParamsFromTuning(tuning)
	if err != nil {
		log.Fatalf("invalid behavior config: %v", err)
	}
	startKind := tuning.GetStartBehavior()
	if *startName != "" {
		startKind = *startName
	}
	kind, err := behavior.ParseKind(startKind)
	if err != nil {
		log.Fatalf("invalid start behavior: %v", err)
	}

	clock := timeutil.RealClock{}

	var link serialmux.SerialMuxInterface
	switch {
	case *devMode:
		link = serialmux.NewSimulatedSerialMux(20*time.Millisecond, hardware.CorridorLines(60, 60))
	case *port == "":
		log.Print("no drive bridge configured, commands are discarded")
		link = serialmux.NewDisabledSerialMux()
	default:
		opts := serialmux.PortOptions{BaudRate: *baud, ReadTimeout: 500 * time.Millisecond}
		link, err = serialmux.NewRealSerialMux(*port, opts, hardware.StopCommand)
		if err != nil {
			log.Fatalf("failed to open drive bridge: %v", err)
		}
	}
	defer link.Close()

	if err := link.Initialize(); err != nil {
		log.Fatalf("failed to initialize drive bridge: %v", err)
	}
	bridge := hardware.NewBridge(clock, link)

	rig := &hardware.Rig{Bridge: bridge}
	if *colorDevice != "" {
		cam, err := vision.OpenCamera(cameraDevice(*colorDevice))
		if err != nil {
			log.Fatalf("failed to open colour camera: %v", err)
		}
		defer cam.Close()
		markers := vision.NewMarkerDetector()
		defer markers.Close()
		rig.Color = cam
		rig.Markers = markers
	}
	if *depthDevice != "" {
		cam, err := vision.OpenCamera(cameraDevice(*depthDevice))
		if err != nil {
			log.Fatalf("failed to open depth camera: %v", err)
		}
		defer cam.Close()
		rig.Depth = cam
	}

	builder, err := behavior.NewBuilder(clock, vision.Finder{}, params)
	if err != nil {
		log.Fatalf("failed to build behaviors: %v", err)
	}
	start, err := builder.Start(kind)
	if err != nil {
		log.Fatalf("failed to build start behavior: %v", err)
	}

	var (
		database *db.DB
		recorder *db.TelemetryRecorder
		opts     []vehicle.Option
	)
	if *dbPath != "" {
		database, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
		recorder = db.NewTelemetryRecorder(database, clock, 1024, 250*time.Millisecond)
		opts = append(opts, vehicle.WithRecorder(recorder))
	}

	session, err := vehicle.NewSession(clock, rig, bridge, start, vehicle.ConfigFromTuning(tuning), opts...)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	log.Printf("session %s starting in %s (%s)", session.ID(), kind, version.String())

	if database != nil {
		tuningJSON, err := json.Marshal(tuning)
		if err != nil {
			log.Fatalf("failed to encode tuning: %v", err)
		}
		err = database.CreateSession(context.Background(), db.Session{
			ID:            session.ID(),
			StartedAt:     session.StartedAt(),
			StartBehavior: string(kind),
			TuningJSON:    string(tuningJSON),
		})
		if err != nil {
			log.Fatalf("failed to record session: %v", err)
		}
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// serial IO
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := link.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor drive bridge: %v", err)
			stop()
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bridge.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("bridge stopped: %v", err)
		}
		log.Print("bridge routine terminated")
	}()

	if recorder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := recorder.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("telemetry recorder stopped: %v", err)
			}
			log.Printf("telemetry routine terminated: written=%d dropped=%d", recorder.Written(), recorder.Dropped())
		}()
	}

	// control loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := session.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("control loop stopped: %v", err)
		}
		if database != nil {
			if err := database.EndSession(context.Background(), session.ID(), clock.Now()); err != nil {
				log.Printf("failed to close session: %v", err)
			}
		}
		log.Print("control loop terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(session, database, bridge).ServeMux()
		link.AttachAdminRoutes(mux)
		if database != nil {
			if err := database.AttachAdminRoutes(mux); err != nil {
				log.Printf("failed to attach db admin routes: %v", err)
			}
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}
