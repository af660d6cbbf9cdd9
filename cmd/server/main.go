package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okanlawon/pawdispatch/internal/broker"
	natsbroker "github.com/okanlawon/pawdispatch/internal/broker/nats"
	"github.com/okanlawon/pawdispatch/internal/channel"
	"github.com/okanlawon/pawdispatch/internal/config"
	"github.com/okanlawon/pawdispatch/internal/dispatch"
	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/events"
	"github.com/okanlawon/pawdispatch/internal/geo"
	"github.com/okanlawon/pawdispatch/internal/httpclient"
	"github.com/okanlawon/pawdispatch/internal/logging"
	"github.com/okanlawon/pawdispatch/internal/match"
	"github.com/okanlawon/pawdispatch/internal/server"
	"github.com/okanlawon/pawdispatch/internal/store"
	"github.com/okanlawon/pawdispatch/internal/store/memory"
	"github.com/okanlawon/pawdispatch/internal/store/postgres"
	"github.com/okanlawon/pawdispatch/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.Server.LogFile)

	if err := run(context.Background(), cfg); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var (
		clinics  store.ClinicStore
		results  store.DispatchResultStore
		attempts store.DispatchAttemptStore
	)

	if cfg.Server.PostgresURL != "" {
		db, err := postgres.New(ctx, cfg.Server.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		clinics = postgres.NewClinicStore(db)
		results = postgres.NewDispatchResultStore(db)
		attempts = postgres.NewDispatchAttemptStore(db)
		slog.Info("using postgres stores")
	} else {
		clinics = memory.NewClinicStore()
		results = memory.NewDispatchResultStore()
		attempts = memory.NewDispatchAttemptStore()
		slog.Warn("no postgres configured, using in-memory stores")
	}

	var index geo.Index
	if cfg.Server.RedisAddr != "" {
		client, err := geo.NewRedisClient(ctx, cfg.Server.RedisAddr)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		index = geo.NewRedisIndex(client)
		slog.Info("using redis geo index")
	} else {
		index = geo.NewMemoryIndex()
		slog.Warn("no redis configured, using in-memory geo index")
	}

	if cfg.Server.ClinicsFile != "" {
		if err := seedClinics(ctx, cfg.Server.ClinicsFile, clinics); err != nil {
			return fmt.Errorf("seed clinics: %w", err)
		}
	}
	if err := indexClinics(ctx, clinics, index); err != nil {
		return fmt.Errorf("index clinics: %w", err)
	}

	var eventsPublisher broker.Publisher
	if cfg.Server.NATSAddr != "" {
		pub, err := natsbroker.New(ctx, cfg.Server.NATSAddr)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer pub.Close()
		eventsPublisher = pub
		slog.Info("publishing dispatch events to nats")

		if cfg.Monitoring.WebhookURL != "" {
			consumer, err := pub.Consumer(ctx, "dispatch-monitor", dispatch.ResultsSubject)
			if err != nil {
				return fmt.Errorf("create monitor consumer: %w", err)
			}
			forwarder := worker.NewForwarder(
				consumer,
				httpclient.New(15*time.Second),
				cfg.Monitoring.WebhookURL,
				cfg.Monitoring.Secret,
				cfg.Retry,
			)
			go func() {
				if err := forwarder.Start(ctx); err != nil && ctx.Err() == nil {
					slog.Error("monitoring forwarder stopped", slog.Any("error", err))
				}
			}()
			slog.Info("forwarding dispatch outcomes to webhook",
				slog.String("url", cfg.Monitoring.WebhookURL))
		}
	}

	hc := httpclient.New(cfg.Dispatch.SendTimeout + time.Second)
	adapters := []channel.Adapter{
		channel.NewPushAdapter(cfg.Providers.Push, hc),
		channel.NewMessagingAdapter(cfg.Providers.Messaging, hc),
	}
	for _, a := range adapters {
		if !a.IsAvailable() {
			slog.Warn("provider not configured, sends will be simulated",
				slog.String("channel", string(a.Kind())))
		}
	}

	hub := events.NewHub()
	coordinator := dispatch.NewCoordinator(
		cfg.Dispatch,
		match.NewMatcher(index, clinics),
		adapters,
		results,
		attempts,
		hub,
		eventsPublisher,
	)

	srv := server.New(coordinator, results, hub)

	slog.Info("dispatch server listening", slog.String("addr", cfg.Server.ListenAddr))
	return srv.Router().Run(cfg.Server.ListenAddr)
}

// seedClinics loads the clinic roster from a YAML file into the store.
// Existing rows with the same ID are overwritten.
func seedClinics(ctx context.Context, path string, clinics store.ClinicStore) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read clinics file %s: %w", path, err)
	}

	var seed []struct {
		ID              string  `yaml:"id"`
		Name            string  `yaml:"name"`
		Latitude        float64 `yaml:"latitude"`
		Longitude       float64 `yaml:"longitude"`
		Partner         bool    `yaml:"partner"`
		PushToken       string  `yaml:"push_token"`
		MessagingNumber string  `yaml:"messaging_number"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse clinics file %s: %w", path, err)
	}

	for _, s := range seed {
		c := &domain.Clinic{
			ID:              s.ID,
			Name:            s.Name,
			Latitude:        s.Latitude,
			Longitude:       s.Longitude,
			Partner:         s.Partner,
			PushToken:       s.PushToken,
			MessagingNumber: s.MessagingNumber,
		}
		if err := clinics.Upsert(ctx, c); err != nil {
			return fmt.Errorf("upsert clinic %s: %w", c.ID, err)
		}
	}

	slog.Info("seeded clinics", slog.Int("count", len(seed)))
	return nil
}

// indexClinics registers every stored clinic location with the spatial index.
func indexClinics(ctx context.Context, clinics store.ClinicStore, index geo.Index) error {
	all, err := clinics.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		if err := index.Add(ctx, c.ID, c.Latitude, c.Longitude); err != nil {
			return fmt.Errorf("index clinic %s: %w", c.ID, err)
		}
	}
	slog.Info("indexed clinic locations", slog.Int("count", len(all)))
	return nil
}
