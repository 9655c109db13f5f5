package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Vinay1094/kirana-store-automation/config"
	httpDelivery "github.com/Vinay1094/kirana-store-automation/internal/delivery/http"
	"github.com/Vinay1094/kirana-store-automation/internal/infrastructure/cache"
	"github.com/Vinay1094/kirana-store-automation/internal/infrastructure/store"
	"github.com/Vinay1094/kirana-store-automation/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg.Log)
	logger.Info().
		Str("env", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("store", cfg.Store.Path).
		Msg("starting kirana-store-automation v1.0.0")

	// Initialize infrastructure dependencies
	inventory, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer inventory.Close()

	memoryCache := cache.NewMemoryCache()

	// Initialize usecase layer
	orderService := usecase.NewOrderService(memoryCache, usecase.OrderServiceConfig{
		Resolver: usecase.ResolverConfig{
			HighThreshold: cfg.Matching.HighThreshold,
			LowThreshold:  cfg.Matching.LowThreshold,
			BlendWeight:   cfg.Matching.BlendWeight,
		},
		SubstituteLimit: cfg.Matching.SubstituteLimit,
		CacheTTL:        cfg.Cache.TTL,
		Debug:           cfg.Matching.Debug,
	})

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(inventory, inventory, orderService, cfg.Identity.Name)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("server listening")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
