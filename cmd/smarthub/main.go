// Command smarthub runs the smart home hub.
//
// The hub keeps an in-memory registry of homes, rooms and devices, serves
// it over a REST API, samples every device on an interval and takes socket
// commands over MQTT. The database, MQTT and InfluxDB are each optional.
//
// Configuration comes from configs/config.yaml, or the file named by
// SMARTHUB_CONFIG, with SMARTHUB_* environment overrides on top.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/smarthome-hub/migrations"

	"github.com/nerrad567/smarthome-hub/internal/api"
	"github.com/nerrad567/smarthome-hub/internal/audit"
	"github.com/nerrad567/smarthome-hub/internal/control"
	"github.com/nerrad567/smarthome-hub/internal/endpoint"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/broker"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/database"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/influxdb"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/mqtt"
	"github.com/nerrad567/smarthome-hub/internal/registry"
	"github.com/nerrad567/smarthome-hub/internal/telemetry"
)

// Build metadata, overridden with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "smarthub:", err)
		os.Exit(1)
	}
}

// app holds the running components. Each start step pushes its own
// teardown; shutdown runs them newest first.
type app struct {
	cfg *config.Config
	log *logging.Logger

	db       *database.DB
	apiAudit *audit.Recorder
	cmdAudit *audit.Recorder
	shared   *registry.Shared
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	api      *api.Server

	teardown []func()
}

// run starts every component, blocks until ctx is cancelled and then
// shuts them down in reverse order.
//
// Parameters:
//   - ctx: cancelled on SIGINT or SIGTERM
//
// Returns:
//   - error: the first startup failure, or nil after a clean shutdown
func run(ctx context.Context) error {
	boot := logging.Default()
	boot.Info("smart home hub starting", "version", version, "commit", commit, "build_date", date)

	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", path, err)
	}

	a := &app{cfg: cfg, log: logging.New(cfg.Logging, version)}
	a.onShutdown(func() {
		a.log.Close() //nolint:errcheck // Nothing left to report to
	})
	defer a.shutdown()
	a.log.Info("configuration loaded", "path", path, "site", cfg.Site.Name, "log_level", cfg.Logging.Level)

	for _, step := range []struct {
		name  string
		start func(context.Context) error
	}{
		{"database", a.startDatabase},
		{"registry", a.startRegistry},
		{"mqtt", a.startMQTT},
		{"influxdb", a.startInflux},
		{"api", a.startAPI},
		{"telemetry", a.startSampler},
	} {
		if err := step.start(ctx); err != nil {
			return fmt.Errorf("starting %s: %w", step.name, err)
		}
	}

	if err := healthCheck(ctx, a.db, a.mqtt, a.influx, a.api); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	a.log.Info("hub ready", "api", a.api.Addr())

	<-ctx.Done()
	a.log.Info("shutting down")
	return nil
}

// onShutdown registers fn to run at shutdown.
func (a *app) onShutdown(fn func()) {
	a.teardown = append(a.teardown, fn)
}

// closeOnShutdown registers a Close-style teardown that logs its failure.
func (a *app) closeOnShutdown(name string, stop func() error) {
	a.onShutdown(func() {
		a.log.Info("stopping " + name)
		if err := stop(); err != nil {
			a.log.Error("stopping "+name+" failed", "error", err)
		}
	})
}

func (a *app) shutdown() {
	for i := len(a.teardown) - 1; i >= 0; i-- {
		a.teardown[i]()
	}
}

// startDatabase opens SQLite, migrates it and starts the audit recorders.
// With the database disabled both recorders stay nil.
func (a *app) startDatabase(ctx context.Context) error {
	if !a.cfg.Database.Enabled {
		a.log.Info("database disabled, audit trail off")
		return nil
	}

	db, err := database.Open(database.ConfigFrom(a.cfg.Database))
	if err != nil {
		return err
	}
	a.db = db
	a.closeOnShutdown("database", db.Close)

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	schema, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	a.log.Info("database ready", "path", a.cfg.Database.Path, "applied", applied, "schema_version", schema)

	// Recorders outlive the API and the controller so that their last
	// entries are written; they stop on their own context.
	store := audit.NewSQLStore(db)
	a.apiAudit = audit.NewRecorder(store, "api")
	a.cmdAudit = audit.NewRecorder(store, "mqtt")
	auditCtx, stopAudit := context.WithCancel(context.Background())
	for _, rec := range []*audit.Recorder{a.apiAudit, a.cmdAudit} {
		rec.SetLogger(a.log.With("component", "audit"))
		done := make(chan struct{})
		go func() {
			defer close(done)
			rec.Run(auditCtx)
		}()
		a.onShutdown(func() { <-done })
	}
	a.onShutdown(stopAudit)
	return nil
}

func (a *app) startRegistry(context.Context) error {
	hub := registry.NewHub(endpoint.NewConnector(endpoint.Config{ReadTimeout: a.cfg.Devices.ReadTimeout}))
	hub.SetLogger(a.log.With("component", "registry"))
	a.shared = registry.NewShared(hub)
	a.onShutdown(func() {
		a.log.Info("releasing device connections")
		a.shared.Destroy()
	})
	return nil
}

// startMQTT brings up the embedded broker when configured, connects the
// client and subscribes the command controller.
func (a *app) startMQTT(context.Context) error {
	cfg := a.cfg.MQTT
	if !cfg.Enabled {
		a.log.Info("MQTT disabled")
		return nil
	}

	if cfg.Embedded.Enabled {
		b := broker.New(cfg, a.log.Logger)
		if err := b.Start(); err != nil {
			return fmt.Errorf("embedded broker: %w", err)
		}
		a.closeOnShutdown("embedded broker", b.Close)
		addr, _ := b.Addr() //nolint:errcheck // Started above
		a.log.Info("embedded broker listening", "address", addr)
	}

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return err
	}
	a.mqtt = client
	a.closeOnShutdown("MQTT client", client.Close)

	mlog := a.log.With("component", "mqtt")
	client.SetLogger(mlog)
	client.SetOnConnect(func() { mlog.Info("broker connection restored") })
	client.SetOnDisconnect(func(err error) { mlog.Warn("broker connection lost", "error", err) })
	mlog.Info("connected", "broker", cfg.Broker.Address(), "client_id", cfg.Broker.ClientID)

	ctrl := control.New(control.Config{
		Client:   client,
		Shared:   a.shared,
		Recorder: a.cmdAudit,
		QoS:      byte(cfg.QoS), //nolint:gosec // Validated to 0-2
		Timeout:  a.cfg.Devices.ReadTimeout,
	})
	ctrl.SetLogger(a.log.With("component", "control"))
	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("command controller: %w", err)
	}
	a.closeOnShutdown("command controller", ctrl.Stop)
	return nil
}

func (a *app) startInflux(context.Context) error {
	cfg := a.cfg.InfluxDB
	if !cfg.Enabled {
		a.log.Info("InfluxDB disabled")
		return nil
	}

	client, err := influxdb.Connect(cfg)
	if err != nil {
		return err
	}
	a.influx = client
	a.closeOnShutdown("InfluxDB client", client.Close)

	ilog := a.log.With("component", "influxdb")
	client.SetOnError(func(err error) { ilog.Error("batch write failed", "error", err) })
	ilog.Info("connected", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return nil
}

func (a *app) startAPI(ctx context.Context) error {
	deps := api.Deps{
		Config:        a.cfg.API,
		WS:            a.cfg.WebSocket,
		Logger:        a.log.With("component", "api"),
		Shared:        a.shared,
		Recorder:      a.apiAudit,
		DB:            a.db,
		DeviceTimeout: a.cfg.Devices.ReadTimeout,
		Version:       version,
	}
	// A nil *mqtt.Client must not become a non-nil interface.
	if a.mqtt != nil {
		deps.MQTT = a.mqtt
	}

	srv, err := api.New(deps)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	a.api = srv
	a.closeOnShutdown("API server", srv.Close)
	return nil
}

func (a *app) startSampler(ctx context.Context) error {
	interval := a.cfg.Devices.SampleInterval
	if interval <= 0 {
		a.log.Info("telemetry sampling disabled")
		return nil
	}

	sampler := telemetry.NewSampler(telemetry.SamplerConfig{
		Shared:      a.shared,
		Interval:    interval,
		ReadTimeout: a.cfg.Devices.ReadTimeout,
		Sinks:       telemetrySinks(a.mqtt, a.influx, a.api.Stream()),
	})
	sampler.SetLogger(a.log.With("component", "telemetry"))
	sampler.Start(ctx)
	a.onShutdown(sampler.Stop)
	a.log.Info("telemetry sampling started", "interval", interval)
	return nil
}

// configPath is SMARTHUB_CONFIG when set, else defaultConfigPath.
func configPath() string {
	if p := os.Getenv("SMARTHUB_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// telemetrySinks lists the sinks for the enabled outputs. The API reading
// stream is always one of them.
func telemetrySinks(mqttClient *mqtt.Client, influxClient *influxdb.Client, stream telemetry.Sink) []telemetry.Sink {
	sinks := []telemetry.Sink{stream}
	if mqttClient != nil {
		sinks = append(sinks, telemetry.NewMQTTSink(mqttClient))
	}
	if influxClient != nil {
		sinks = append(sinks, telemetry.NewInfluxSink(influxClient))
	}
	return sinks
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck checks the API and each enabled backend. Every failure is
// reported, not just the first.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	type check struct {
		name string
		c    healthChecker
	}
	checks := []check{{"api", apiServer}}
	if db != nil {
		checks = append(checks, check{"database", db})
	}
	if mqttClient != nil {
		checks = append(checks, check{"mqtt", mqttClient})
	}
	if influxClient != nil {
		checks = append(checks, check{"influxdb", influxClient})
	}

	var errs []error
	for _, ch := range checks {
		if err := ch.c.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
		}
	}
	return errors.Join(errs...)
}
