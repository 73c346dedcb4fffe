package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sensordeck/sensordeck/internal/airquality"
	"github.com/sensordeck/sensordeck/internal/config"
	"github.com/sensordeck/sensordeck/internal/magnet"
	"github.com/sensordeck/sensordeck/internal/payload"
	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/recorder"
	"github.com/sensordeck/sensordeck/internal/sensors"
	"github.com/sensordeck/sensordeck/internal/server"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	opts := plugin.Options{
		CheckInterval:  cfg.Sampling.CheckInterval,
		SampleInterval: cfg.Sampling.SampleInterval,
		MaxStale:       cfg.Sampling.MaxStale,
	}

	var plugins []*plugin.Plugin
	var virtual *sensors.Virtual
	for _, name := range cfg.Sensors.Enabled {
		drv, err := buildDriver(name, cfg)
		if err != nil {
			log.Fatalf("sensor %s: %v", name, err)
		}
		if v, ok := drv.(*sensors.Virtual); ok {
			virtual = v
		}
		plugins = append(plugins, plugin.New(drv, opts))
	}
	if len(plugins) == 0 {
		log.Fatal("no sensors enabled")
	}

	rt := plugin.NewRuntime(plugins...)
	rt.Start()
	log.Println("Monitoring sensors:", len(plugins))
	for _, p := range rt.Plugins() {
		log.Printf("  - %s (background=%v)", p.Name(), p.RequiresBackgroundUpdates())
	}

	var rec *recorder.Recorder
	if cfg.Influx.Enabled {
		rec = recorder.New(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket,
			rt, cfg.Sampling.SampleInterval)
		rec.Start()
	}

	srv := server.New(rt, virtual)
	go srv.BroadcastLoop(cfg.Sampling.SampleInterval)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
	srv.Stop()
	if rec != nil {
		rec.Stop()
	}
	rt.Stop()
	log.Println("Stopped.")
}

// buildDriver maps a configured sensor name to its constructor.
func buildDriver(name string, cfg *config.Config) (plugin.Driver, error) {
	aqCfg := airquality.Config{
		BurnIn:     cfg.AirQuality.BurnIn,
		WindowSize: cfg.AirQuality.WindowSize,
		MinSamples: cfg.AirQuality.MinSamples,
	}
	magCfg := magnet.Config{
		WindowSize:   cfg.Magnet.WindowSize,
		MinSamples:   cfg.Magnet.MinSamples,
		TriggerSigma: cfg.Magnet.TriggerSigma,
		ReleaseSigma: cfg.Magnet.ReleaseSigma,
	}

	switch name {
	case "tmp117":
		return sensors.NewTMP117(cfg.Sensors.I2CBus), nil
	case "veml7700":
		return sensors.NewVEML7700(cfg.Sensors.I2CBus), nil
	case "mmc5983":
		return sensors.NewMMC5983(cfg.Sensors.I2CBus, magCfg)
	case "sths34pf80":
		return sensors.NewSTHS34PF80(cfg.Sensors.I2CBus), nil
	case "max17048":
		return sensors.NewMAX17048(cfg.Sensors.I2CBus), nil
	case "dht22":
		return sensors.NewDHT22(cfg.Sensors.DHT22Pin), nil
	case "sysinfo":
		return sensors.NewSysInfo(), nil
	case "virtual":
		cache := airquality.NewCache(cfg.AirQuality.CachePath, cfg.AirQuality.CacheTTL,
			cfg.AirQuality.MinSamples, cfg.AirQuality.ReadOnly)
		return sensors.NewVirtual(payload.DefaultSchema(), aqCfg, cache, magCfg)
	default:
		return nil, errUnknownSensor(name)
	}
}

type errUnknownSensor string

func (e errUnknownSensor) Error() string { return "unknown sensor " + string(e) }
