package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-resolver/internal/api"
	"github.com/nerrad567/gray-logic-resolver/internal/appconfig"
	"github.com/nerrad567/gray-logic-resolver/internal/bus"
	"github.com/nerrad567/gray-logic-resolver/internal/directory"
	"github.com/nerrad567/gray-logic-resolver/internal/discovery"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-resolver/internal/inventory"
	"github.com/nerrad567/gray-logic-resolver/internal/metrics"
	"github.com/nerrad567/gray-logic-resolver/internal/resolver"
	"github.com/nerrad567/gray-logic-resolver/internal/schema"
	"github.com/nerrad567/gray-logic-resolver/internal/variables"
	"github.com/nerrad567/gray-logic-resolver/migrations"
)

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown and an error for any startup failure.
func run(ctx context.Context, configPath string) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Gray Logic resolver",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // log file close on exit
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// The schema is loaded before anything touches the network or disk:
	// without fragments the resolver must not start.
	tree, err := schema.Load(cfg.Resolver.SchemaDir)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	log.Info("schema loaded", "dir", cfg.Resolver.SchemaDir, "keys", len(tree))

	db, err := database.Open(ctx, cfg.Database)
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	dir := directory.NewSQLiteDirectory(db.DB)
	dir.SetLogger(log)

	inv := inventory.New()
	inv.SetLogger(log)
	if cfg.Resolver.Persistent {
		inv.EnableMirror(cfg.Resolver.InventoryFile)
		if restoreErr := inv.Restore(); restoreErr != nil {
			log.Warn("inventory mirror unreadable, starting empty", "path", cfg.Resolver.InventoryFile, "error", restoreErr)
		}
	}
	log.Info("inventory ready", "devices", inv.Len(), "mirrored", inv.Mirrored())

	vars := variables.NewStore(cfg.Resolver.VariablesFile)
	vars.SetLogger(log)
	if loadErr := vars.Load(); loadErr != nil {
		log.Warn("variables file unreadable, starting empty", "path", cfg.Resolver.VariablesFile, "error", loadErr)
	}

	appCfg, err := appconfig.Open(cfg.Resolver.ConfigDir)
	if err != nil {
		return fmt.Errorf("opening app config: %w", err)
	}
	controllerUUID, err := resolver.ResolveControllerUUID(cfg.Resolver.UUID, appCfg)
	if err != nil {
		return fmt.Errorf("resolving controller uuid: %w", err)
	}
	log.Info("controller identity", "uuid", controllerUUID)

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
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	m := metrics.New()

	// The status server relays events seen by the reactor. It is created
	// after the resolver it queries, before the reactor starts.
	var statusServer *api.Server
	deps := resolver.Deps{
		Directory: dir,
		Inventory: inv,
		Variables: vars,
		Config:    appCfg,
		Schema:    tree,
		Bus:       &mqttBusAdapter{client: mqttClient},
		Metrics:   m,
		Logger:    log,
		OnEvent: func(ev bus.Event) {
			if statusServer != nil {
				statusServer.Relay(ev)
			}
		},
	}
	if influxClient != nil {
		deps.Recorder = influxClient
	}

	res, err := resolver.New(resolver.Options{
		ControllerUUID:   controllerUUID,
		DiscoverInterval: cfg.DiscoverInterval(),
		SiteName:         cfg.Site.Name,
		Version:          version,
	}, deps)
	if err != nil {
		return fmt.Errorf("creating resolver: %w", err)
	}

	if cfg.API.Enabled {
		statusServer, err = startStatusServer(ctx, cfg, log, res, m, db, mqttClient, influxClient)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := statusServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	reactorDone := make(chan error, 1)
	go func() {
		reactorDone <- res.Run(ctx)
	}()

	if err := res.Attach(ctx); err != nil {
		return fmt.Errorf("attaching resolver to MQTT: %w", err)
	}
	if err := res.Do(ctx, res.SelfAnnounce); err != nil {
		return fmt.Errorf("announcing controller: %w", err)
	}

	scheduler := discovery.New(discovery.Config{
		InitialDelay: cfg.InitialDiscoverInterval(),
		Interval:     cfg.DiscoverInterval(),
		Fire: func(ctx context.Context) error {
			var fireErr error
			if err := res.Do(ctx, func(ctx context.Context) {
				fireErr = res.BroadcastDiscover(ctx)
			}); err != nil {
				return err
			}
			return fireErr
		},
	})
	scheduler.SetLogger(log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := <-reactorDone; err != nil {
		log.Error("resolver reactor failed", "error", err)
	}

	log.Info("Gray Logic resolver stopped")
	return nil
}

// startStatusServer creates and starts the HTTP status server.
func startStatusServer(ctx context.Context, cfg *config.Config, log *logging.Logger, res *resolver.Resolver,
	m *metrics.Metrics, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client,
) (*api.Server, error) {
	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	srv, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Inventory: res,
		Checks:    checks,
		Metrics:   m.Handler(),
		Version:   version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)
	return srv, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
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

// mqttBusAdapter adapts the infrastructure MQTT client to resolver.Bus.
// The resolver's handlers return nothing; the client's return an error.
type mqttBusAdapter struct {
	client *mqtt.Client
}

// Publish implements resolver.Bus.
func (a *mqttBusAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements resolver.Bus.
func (a *mqttBusAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}
