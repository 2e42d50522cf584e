package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/i-bosquet/petconnect-sub002/internal/api"
	"github.com/i-bosquet/petconnect-sub002/internal/auth"
	"github.com/i-bosquet/petconnect-sub002/internal/authz"
	"github.com/i-bosquet/petconnect-sub002/internal/certify"
	"github.com/i-bosquet/petconnect-sub002/internal/config"
	"github.com/i-bosquet/petconnect-sub002/internal/directory"
	"github.com/i-bosquet/petconnect-sub002/internal/eligibility"
	"github.com/i-bosquet/petconnect-sub002/internal/eventsink"
	"github.com/i-bosquet/petconnect-sub002/internal/keystore"
	"github.com/i-bosquet/petconnect-sub002/internal/logger"
	"github.com/i-bosquet/petconnect-sub002/internal/payload"
	"github.com/i-bosquet/petconnect-sub002/internal/records"
	"github.com/i-bosquet/petconnect-sub002/internal/signing"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
	memorystore "github.com/i-bosquet/petconnect-sub002/internal/store/memory"
	postgresstore "github.com/i-bosquet/petconnect-sub002/internal/store/postgres"
	"github.com/i-bosquet/petconnect-sub002/internal/telemetry"
)

const mqttConnectTimeout = 10 * time.Second

type ServerCmd struct {
	Config  string `help:"path to the YAML configuration file" default:"config.yaml" env:"PETCONNECT_CONFIG"`
	Migrate bool   `help:"run database migrations on startup" default:"false" env:"PETCONNECT_MIGRATE"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	// Setup telemetry if enabled
	if cfg.Telemetry.Enabled {
		log.Info().Msg("Telemetry is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.Telemetry.ServiceName, globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create stores based on the configured driver
	var (
		recordStore      store.RecordStore
		certificateStore store.CertificateStore
		petStore         store.PetDirectory
		staffStore       store.StaffDirectory
		clinicStore      store.ClinicDirectory
	)

	switch cfg.Database.Driver {
	case "postgres":
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString: cfg.Database.URL,
			MaxConns:   cfg.Database.MaxConns,
			MinConns:   cfg.Database.MinConns,
		})
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.Migrate {
			if err := postgresstore.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		recordStore = postgresstore.NewRecordStore(pool)
		certificateStore = postgresstore.NewCertificateStore(pool)
		petStore = postgresstore.NewPetStore(pool)
		staffStore = postgresstore.NewStaffStore(pool)
		clinicStore = postgresstore.NewClinicStore(pool)
		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		memRecords := memorystore.NewRecordStore()
		recordStore = memRecords
		certificateStore = memorystore.NewCertificateStore(memRecords)
		petStore = memorystore.NewPetStore()
		staffStore = memorystore.NewStaffStore()
		clinicStore = memorystore.NewClinicStore()
		log.Info().Msg("Using in-memory stores")
	}

	// Pets come from the remote registry when one is configured
	pets := petStore
	if cfg.Registry.BaseURL != "" {
		registry, err := directory.NewClient(directory.Config{
			BaseURL: cfg.Registry.BaseURL,
			APIKey:  cfg.Registry.APIKey,
			Timeout: time.Duration(cfg.Registry.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create registry client: %w", err)
		}
		pets = registry
		log.Info().Str("base_url", cfg.Registry.BaseURL).Msg("Using remote pet registry")
	}

	keys, err := keystore.NewFileStore(cfg.Keystore.Dir)
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}

	events, closeEvents, err := buildEventSink(ctx, log, cfg.Events)
	if err != nil {
		return err
	}
	defer closeEvents()

	signer := signing.NewSigner(keys)
	gate := authz.NewClinicGate()

	recordService := records.NewService(recordStore, pets, staffStore, signer, gate)
	certificateService := certify.NewService(certify.Deps{
		Certificates: certificateStore,
		Records:      recordStore,
		Pets:         pets,
		Staff:        staffStore,
		Clinics:      clinicStore,
		Eligibility:  eligibility.NewValidator(recordStore),
		Payloads:     payload.NewBuilder(pets),
		Signer:       signer,
		Gate:         gate,
		Events:       events,
	})

	publicKey, err := cfg.AuthPublicKeyPEM()
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(publicKey)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	handler := api.New(api.Options{
		Records:      recordService,
		Certificates: certificateService,
		Verifier:     verifier,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	srv := configureHTTPServer(cfg.Server.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Str("addr", cfg.Server.Listen).Msg("Started HTTP server")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	return nil
}

// buildEventSink assembles the configured sinks behind a single async
// publisher. The returned close function drains queued events before
// disconnecting the underlying clients.
func buildEventSink(ctx context.Context, log zerolog.Logger, cfg config.Events) (eventsink.Sink, func(), error) {
	var (
		sinks   []eventsink.Sink
		closers []func()
	)

	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, eventsink.NewLog())

		case config.SinkNop:
			sinks = append(sinks, eventsink.NewNop())

		case config.SinkRedis:
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				runAll(closers)
				return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
			}

			sinks = append(sinks, eventsink.NewRedisSink(client, cfg.Redis.Stream))
			closers = append(closers, func() {
				if err := client.Close(); err != nil {
					log.Error().Err(err).Msg("Failed to close redis client")
				}
			})
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Publishing events to redis")

		case config.SinkMQTT:
			opts := mqtt.NewClientOptions().
				AddBroker(cfg.MQTT.Broker).
				SetClientID(cfg.MQTT.ClientID).
				SetUsername(cfg.MQTT.Username).
				SetPassword(cfg.MQTT.Password)
			client := mqtt.NewClient(opts)

			token := client.Connect()
			if !token.WaitTimeout(mqttConnectTimeout) {
				runAll(closers)
				return nil, nil, fmt.Errorf("timed out connecting to mqtt broker %s", cfg.MQTT.Broker)
			}
			if err := token.Error(); err != nil {
				runAll(closers)
				return nil, nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
			}

			sinks = append(sinks, eventsink.NewMQTTSink(client, cfg.MQTT.Topic))
			closers = append(closers, func() { client.Disconnect(250) })
			log.Info().Str("broker", cfg.MQTT.Broker).Msg("Publishing events to mqtt")
		}
	}

	var next eventsink.Sink = eventsink.NewMulti(sinks...)
	if len(sinks) == 1 {
		next = sinks[0]
	}

	async := eventsink.NewAsyncSink(next, cfg.Buffer)

	return async, func() {
		async.Close()
		runAll(closers)
	}, nil
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
