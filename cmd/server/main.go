package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/MKhiriev/go-offline-sync/internal/backend"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/handler"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/server"
	"github.com/MKhiriev/go-offline-sync/internal/service"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("offline-sync-server")
	cfg, err := config.GetServerConfig(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if buildVersion != "N/A" {
		cfg.Version = buildVersion
	}

	log.Debug().
		Str("address", cfg.HTTPAddress).
		Str("catalog", cfg.CatalogPath).
		Dur("request_timeout", cfg.RequestTimeout).
		Msg("received configs")

	ledger := backend.NewLedger(log)
	if cfg.CatalogPath != "" {
		catalog, err := backend.LoadCatalog(afero.NewOsFs(), cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Msg("error loading catalog")
		}
		ledger.Seed(catalog)
		log.Info().
			Int("pois", len(catalog.POIs)).
			Int("rewards", len(catalog.Rewards)).
			Int("media", len(catalog.Media)).
			Msg("ledger seeded")
	}

	services, err := service.NewServices(ledger, *cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	handlers, err := handler.NewHandlers(services, *cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	srv, err := server.NewServer(handlers, *cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	if err = srv.RunServer(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
