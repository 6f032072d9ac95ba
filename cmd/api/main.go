package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/samirrijal/evacguide/internal/adapters/catalog"
	"github.com/samirrijal/evacguide/internal/adapters/http"
	natsadapter "github.com/samirrijal/evacguide/internal/adapters/nats"
	"github.com/samirrijal/evacguide/internal/adapters/postgres"
	"github.com/samirrijal/evacguide/internal/adapters/shelterapi"
	"github.com/samirrijal/evacguide/internal/adapters/source"
	"github.com/samirrijal/evacguide/internal/adapters/tmap"
	"github.com/samirrijal/evacguide/internal/adapters/valkey"
	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/hazard"
	"github.com/samirrijal/evacguide/internal/core/ports"
	"github.com/samirrijal/evacguide/internal/core/usecases"
	"github.com/samirrijal/evacguide/internal/pkg/config"
	"github.com/samirrijal/evacguide/internal/pkg/logging"
	"github.com/samirrijal/evacguide/internal/pkg/telemetry"
)

// Wildfire timelines are uploaded as request bodies.
const bodyLimit = 64 << 20

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("evacguide-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.CollectorAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	deps := &http.Dependencies{}

	// Shelter catalog
	var shelterCatalog ports.ShelterCatalog
	switch cfg.Shelters.Catalog {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		go db.ReportPoolStats(ctx, 15*time.Second)
		shelterCatalog = postgres.NewShelterRepo(db)
		deps.DB = db
	default:
		file, err := catalog.LoadFile(cfg.Shelters.CatalogPath)
		if err != nil {
			log.Fatalf("shelter catalog: %v", err)
		}
		slog.Info("shelter catalog loaded", "path", cfg.Shelters.CatalogPath, "shelters", file.Len())
		shelterCatalog = file
	}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(cfg.Valkey.Addr, "evacguide:")
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
			deps.Cache = vc
		}
	}

	// NATS
	var events ports.EventPublisher
	var subscriber *natsadapter.Subscriber
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}

		if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL); err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			subscriber = sub
		}

		// Raw connection for the WebSocket relay
		if conn, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer conn.Close()
			deps.NATS = conn
		}
	}

	// Providers
	var routing ports.RoutingProvider
	if cfg.Routing.TmapAppKey != "" {
		routing = tmap.NewClient(cfg.Routing.TmapAppKey, cfg.Routing.TmapBaseURL)
	} else {
		slog.Warn("routing provider key not set, routes will be estimated")
	}
	var shelterProvider ports.ShelterProvider
	if cfg.Shelters.ProviderURL != "" {
		shelterProvider = shelterapi.NewClient(cfg.Shelters.ProviderURL, cfg.Shelters.ProviderKey)
	}

	// Use cases
	hazards := hazard.NewStore()
	deps.Hazards = usecases.NewHazardService(hazards, events, cfg.Hazard.DefaultVertexCount)
	deps.Shelters = usecases.NewShelterService(shelterCatalog, shelterProvider, cache, hazards, usecases.ShelterOptions{
		ProviderCacheTTL:     cfg.Shelters.ProviderCacheTTL,
		ProviderMaxDistanceM: cfg.Shelters.ProviderMaxDistanceM,
		CatalogMaxDistanceM:  cfg.Shelters.CatalogMaxDistanceM,
	})
	deps.Routes = usecases.NewRouteService(routing, usecases.RouteOptions{
		ProviderTimeout: cfg.Routing.ProviderTimeout,
		CacheEnabled:    cfg.Routing.CacheEnabled,
	})
	hostname, _ := os.Hostname()
	deps.Wildfire = usecases.NewWildfireService(cfg.Wildfire.FrameInterval(), events, hostname)
	defer deps.Wildfire.Close()

	timelineSource := source.NewReader()
	if cfg.Wildfire.SourcePath != "" {
		raw, err := timelineSource.FetchTimeline(ctx, cfg.Wildfire.SourcePath)
		if err == nil {
			_, err = deps.Wildfire.Load(ctx, bytes.NewReader(raw))
		}
		if err != nil {
			slog.Warn("initial wildfire timeline not loaded", "location", cfg.Wildfire.SourcePath, "error", err)
		}
	}

	if subscriber != nil {
		err := subscriber.SubscribeHazardZones(ctx, func(_ context.Context, zone *domain.HazardZone) error {
			if deps.Hazards.Adopt(zone) {
				slog.Info("hazard zone adopted", "zone_id", zone.ID)
			}
			return nil
		})
		if err != nil {
			slog.Warn("hazard subscription failed", "error", err)
		}
		err = subscriber.SubscribeTimelineIngested(ctx, func(ctx context.Context, ev *domain.TimelineIngested) error {
			summary, err := deps.Wildfire.LoadIngested(ctx, timelineSource, ev)
			if err != nil {
				return err
			}
			slog.Info("ingested wildfire timeline loaded", "location", ev.Location, "frames", summary.Frames)
			return nil
		})
		if err != nil {
			slog.Warn("timeline subscription failed", "error", err)
		}
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    bodyLimit,
		AppName:      "EvacGuide API",
	})

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
