// Breeze Core - IR/RF Fan Control Service
//
// This is the main entry point for the Breeze Core daemon. Breeze exposes
// remote-controlled fans (IR/RF, driven by pre-recorded command codes) as
// first-class entities over MQTT and a REST/WebSocket API:
//   - Per-device command profiles (speeds, direction, oscillation)
//   - Optional power sensors to track use of the physical remote
//   - Persistent state restore across restarts
//
// For configuration details, see: configs/config.example.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/breezehub/breeze-core/migrations"

	"github.com/breezehub/breeze-core/internal/api"
	"github.com/breezehub/breeze-core/internal/bridge"
	"github.com/breezehub/breeze-core/internal/controller"
	"github.com/breezehub/breeze-core/internal/fan"
	"github.com/breezehub/breeze-core/internal/infrastructure/config"
	"github.com/breezehub/breeze-core/internal/infrastructure/database"
	"github.com/breezehub/breeze-core/internal/infrastructure/influxdb"
	"github.com/breezehub/breeze-core/internal/infrastructure/logging"
	"github.com/breezehub/breeze-core/internal/infrastructure/mqtt"
	"github.com/breezehub/breeze-core/internal/profile"
)

// Stamped by the release build:
// go build -ldflags "-X main.version=1.2.0 -X main.commit=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "config.yaml"

// healthCheckInterval is how often infrastructure connections are re-verified
// after startup. Failures are logged, not fatal: MQTT and InfluxDB reconnect
// on their own.
const healthCheckInterval = 60 * time.Second

func main() {
	configFlag := flag.String("config", "", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("breeze %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	// SIGINT and SIGTERM both unwind through the context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, getConfigPath(*configFlag)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run wires the whole daemon together and blocks until shutdown. It
// lives apart from main so tests can drive it with their own contexts.
// Components come up in dependency order; the deferred closes unwind in
// reverse, so the bridge announces offline before the MQTT client drops.
func run(ctx context.Context, configPath string) error {
	// The configured logger needs the config, which needs logging for
	// its own failures. Bootstrap with the default.
	log := logging.Default()
	log.Info("starting Breeze Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "fans", len(cfg.Fans))

	log = logging.New(cfg.Logging, version)
	log.Info("logging configured",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing state database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("state database close failed", "error", closeErr)
		}
	}()
	log.Info("database opened", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("schema migrations applied")

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("closing MQTT session")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("MQTT close failed", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connection restored")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT connection lost", "error", err)
	})

	// Telemetry is optional; a nil client disables it throughout.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("flushing telemetry writer")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("InfluxDB close failed", "error", closeErr)
			}
		}()
		log.Info("InfluxDB ready",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("telemetry write failed", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Persistence for fan attributes and state history
	attributeStore := fan.NewSQLiteAttributeStore(db.DB)
	historyRepo := fan.NewSQLiteStateHistoryRepository(db.DB)
	registry := fan.NewRegistry()

	// The bridge needs the registry and the registry's entities need the
	// bridge as their state notifier, so the bridge is created first (against
	// the still-empty registry) and started after the fans are registered.
	fanBridge, err := bridge.New(bridge.Options{
		Registry:   registry,
		MQTTClient: &brokerAdapter{client: mqttClient},
		Sensors:    sensorBindings(cfg.Fans),
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating MQTT bridge: %w", err)
	}

	if err := buildFans(ctx, cfg, registry, fanBridge, buildFanDeps{
		store:   attributeStore,
		history: historyRepo,
		influx:  influxClient,
		mqtt:    mqttClient,
		log:     log,
	}); err != nil {
		return fmt.Errorf("initialising fans: %w", err)
	}
	if registry.Count() == 0 {
		log.Warn("no fans initialised, serving API only")
	}

	if err := fanBridge.Start(); err != nil {
		return fmt.Errorf("starting MQTT bridge: %w", err)
	}
	defer func() {
		log.Info("stopping MQTT bridge")
		fanBridge.Stop()
	}()
	log.Info("MQTT bridge started", "fans", registry.Count())

	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Registry:  registry,
		History:   historyRepo,
		MQTT:      mqttClient,
		Influx:    influxClient,
		Bridge:    fanBridge,
		DB:        db,
		Version:   version,
		Commit:    commit,
		BuildDate: date,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all connections healthy")

	log.Info("startup complete")

	healthTicker := time.NewTicker(healthCheckInterval)
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown requested, unwinding")
			return nil
		case <-healthTicker.C:
			if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
				log.Warn("health check failed", "error", err)
			}
		}
	}
}

// getConfigPath returns the configuration file path. Precedence:
// -config flag, BREEZE_CONFIG environment variable, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("BREEZE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildFanDeps carries the shared collaborators handed to every fan entity.
type buildFanDeps struct {
	store   *fan.SQLiteAttributeStore
	history *fan.SQLiteStateHistoryRepository
	influx  *influxdb.Client
	mqtt    *mqtt.Client
	log     *logging.Logger
}

// buildFans loads each configured fan's device profile, builds its
// controller transport and registers the entity.
//
// A fan whose profile or controller cannot be built is logged and skipped;
// one broken device_code must not take the whole service down. Errors are
// returned only for registry conflicts, which indicate a config bug that
// validation should have caught.
func buildFans(ctx context.Context, cfg *config.Config, registry *fan.Registry, notifier fan.Notifier, deps buildFanDeps) error {
	loader := profile.NewLoader(cfg.Profiles.Dir)

	// A nil interface, not a typed-nil pointer, so entities skip metrics
	// cleanly when InfluxDB is disabled.
	var commandMetrics fan.CommandMetrics
	if deps.influx != nil {
		commandMetrics = deps.influx
	}

	for _, fc := range cfg.Fans {
		prof, err := loader.Load(fc.DeviceCode)
		if err != nil {
			deps.log.Error("loading device profile failed, skipping fan",
				"fan_id", fc.UniqueID,
				"device_code", fc.DeviceCode,
				"error", err,
			)
			continue
		}

		ctrl, err := controller.New(
			prof.SupportedController,
			prof.CommandsEncoding,
			fc.ControllerData,
			fc.DelayDuration(),
			controller.Deps{Publisher: deps.mqtt},
		)
		if err != nil {
			deps.log.Error("creating controller failed, skipping fan",
				"fan_id", fc.UniqueID,
				"controller", prof.SupportedController,
				"error", err,
			)
			continue
		}

		entity, err := fan.New(
			fan.Config{ID: fc.UniqueID, Name: fc.Name, DeviceCode: fc.DeviceCode},
			fan.Deps{
				Profile:    prof,
				Controller: ctrl,
				Store:      deps.store,
				History:    deps.history,
				Notifier:   notifier,
				Metrics:    commandMetrics,
				Logger:     deps.log,
			},
		)
		if err != nil {
			deps.log.Error("creating fan entity failed, skipping fan",
				"fan_id", fc.UniqueID,
				"error", err,
			)
			continue
		}

		if err := entity.Restore(ctx); err != nil {
			deps.log.Warn("restoring fan attributes failed, starting with defaults",
				"fan_id", fc.UniqueID,
				"error", err,
			)
		}

		if err := registry.Add(entity); err != nil {
			return fmt.Errorf("registering fan %s: %w", fc.UniqueID, err)
		}

		deps.log.Info("fan initialised",
			"fan_id", fc.UniqueID,
			"name", fc.Name,
			"device_code", fc.DeviceCode,
			"manufacturer", prof.Manufacturer,
			"speeds", len(prof.Speeds),
			"controller", prof.SupportedController,
		)
	}

	return nil
}

// sensorBindings collects the configured power sensor topics. Bindings for
// fans that later fail to initialise are reported by the bridge at Start.
func sensorBindings(fans []config.FanConfig) []bridge.SensorBinding {
	bindings := make([]bridge.SensorBinding, 0, len(fans))
	for _, fc := range fans {
		if fc.PowerSensorTopic == "" {
			continue
		}
		bindings = append(bindings, bridge.SensorBinding{
			FanID: fc.UniqueID,
			Topic: fc.PowerSensorTopic,
		})
	}
	return bindings
}

// healthCheck probes each infrastructure connection in turn and
// reports the first failure.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// brokerAdapter narrows the infrastructure MQTT client to what the
// bridge needs. The only real work is in Subscribe: bridge handlers
// have no error to return, the client's do.
type brokerAdapter struct {
	client *mqtt.Client
}

func (a *brokerAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

func (a *brokerAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

func (a *brokerAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
