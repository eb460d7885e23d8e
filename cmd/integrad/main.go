// Gray Logic Integra - Satel Integra alarm panel bridge
//
// This is the main entry point for the Integra bridge daemon. It links
// a Satel Integra alarm panel (via its ETHM-1 Ethernet or INT-RS serial
// integration module) to the Gray Logic MQTT bus, journals notable
// events to SQLite, records temperature history in InfluxDB, and serves
// a read-only HTTP/WebSocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-integra/migrations"

	"github.com/nerrad567/gray-logic-integra/internal/api"
	"github.com/nerrad567/gray-logic-integra/internal/bridge"
	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-integra/internal/journal"
	"github.com/nerrad567/gray-logic-integra/internal/satel"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Integra",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Event journal
	journalRepo := journal.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to the panel and start the protocol engine
	panelClient, err := startPanel(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("starting panel client: %w", err)
	}
	defer func() {
		log.Info("closing panel connection")
		if closeErr := panelClient.Close(); closeErr != nil {
			log.Error("error closing panel client", "error", closeErr)
		}
	}()

	// Start the bridge
	panelBridge, err := bridge.NewBridge(bridge.Options{
		Config:  cfg,
		MQTT:    mqttClient,
		Panel:   panelClient,
		Journal: journalRepo,
		History: influxClient,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := panelBridge.Start(); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		panelBridge.Stop()
	}()
	log.Info("bridge started")

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Panel:   panelClient,
		Journal: journalRepo,
		MQTT:    mqttClient,
		DB:      db,
		Version: version,
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
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, bridge, panel client, InfluxDB, MQTT, database.

	log.Info("Gray Logic Integra stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses INTEGRA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("INTEGRA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startPanel opens the configured transport (TCP to an ETHM-1 module,
// or serial to an INT-RS module) and wraps it in the protocol engine.
//
// Parameters:
//   - ctx: Context for the initial connection attempt
//   - cfg: Application configuration
//   - log: Logger instance
//
// Returns:
//   - *satel.Client: Running protocol engine
//   - error: If the transport cannot be opened
func startPanel(ctx context.Context, cfg *config.Config, log *logging.Logger) (*satel.Client, error) {
	var transport satel.Transport

	switch cfg.Panel.Connection {
	case "tcp":
		tcp, err := satel.DialTCP(ctx, satel.TCPConfig{
			Address:           cfg.PanelAddress(),
			ConnectTimeout:    time.Duration(cfg.Panel.TCP.ConnectTimeout) * time.Second,
			ReadTimeout:       time.Duration(cfg.Panel.TCP.ReadTimeout) * time.Second,
			ReconnectInterval: time.Duration(cfg.Panel.TCP.ReconnectInterval) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("dialing panel at %s: %w", cfg.PanelAddress(), err)
		}
		tcp.SetLogger(log)
		transport = tcp
		log.Info("panel connected over TCP", "address", cfg.PanelAddress())

	case "serial":
		serial, err := satel.OpenSerial(satel.SerialConfig{
			Port:     cfg.Panel.Serial.Port,
			BaudRate: cfg.Panel.Serial.BaudRate,
		})
		if err != nil {
			return nil, fmt.Errorf("opening serial port %s: %w", cfg.Panel.Serial.Port, err)
		}
		serial.SetLogger(log)
		transport = serial
		log.Info("panel connected over serial",
			"port", cfg.Panel.Serial.Port,
			"baud_rate", cfg.Panel.Serial.BaudRate,
		)

	default:
		return nil, fmt.Errorf("unknown panel connection type %q", cfg.Panel.Connection)
	}

	client, err := satel.NewClient(satel.Options{
		Transport:       transport,
		Logger:          log,
		QueueSize:       cfg.Panel.QueueSize,
		ResponseTimeout: cfg.GetResponseTimeout(),
	})
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("creating protocol engine: %w", err)
	}
	return client, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
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

	// Panel health is observed continuously by the bridge's health
	// reporter; a panel that is still reconnecting should not block
	// daemon startup.

	return nil
}
