package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goran-ethernal/ReputationIndexor/internal/common"
	intconfig "github.com/goran-ethernal/ReputationIndexor/internal/config"
	"github.com/goran-ethernal/ReputationIndexor/internal/db"
	"github.com/goran-ethernal/ReputationIndexor/internal/events"
	"github.com/goran-ethernal/ReputationIndexor/internal/feed"
	"github.com/goran-ethernal/ReputationIndexor/internal/ingest"
	"github.com/goran-ethernal/ReputationIndexor/internal/logger"
	"github.com/goran-ethernal/ReputationIndexor/internal/metrics"
	"github.com/goran-ethernal/ReputationIndexor/internal/rpc"
	"github.com/goran-ethernal/ReputationIndexor/internal/store"
	storemig "github.com/goran-ethernal/ReputationIndexor/internal/store/migrations"
	"github.com/goran-ethernal/ReputationIndexor/pkg/api"
	"github.com/goran-ethernal/ReputationIndexor/pkg/config"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repindexor",
	Short: "ReputationIndexor - On-chain activity reputation indexer",
	Long: `ReputationIndexor consumes domain registry, wallet factory, USDC and
ERC-4337 EntryPoint events from an Ethereum RPC endpoint, maintains per-address
activity aggregates and derives a bounded reputation score with a full
score-over-time history, served over a REST API.`,
	Version: version,
	RunE:    runIndexer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON schema",
	Long:  `Print a JSON schema describing the configuration file format, usable for editor completion and validation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := jsonschema.Reflector{ExpandedStruct: true}
		schema := reflector.Reflect(&config.Config{})

		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	configCmd.AddCommand(configSchemaCmd)
	rootCmd.AddCommand(configCmd)
}

// ingestStatus adapts the driver's state for the API health endpoint.
type ingestStatus struct {
	driver *ingest.Driver
}

func (s ingestStatus) State() string {
	return string(s.driver.State())
}

func runIndexer(cmd *cobra.Command, args []string) error {
	cfg, err := intconfig.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var logCfg logger.Config
	if cfg.Logging != nil {
		logCfg = cfg.Logging
	}
	componentLogger := func(component string) *logger.Logger {
		return logger.NewComponentLoggerFromConfig(component, logCfg)
	}

	log := componentLogger(common.ComponentIngest)

	// Shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Connecting to Ethereum node...")
	ethClient, err := rpc.NewClient(ctx, cfg.Feed.RPCURL, cfg.Feed.Retry)
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer ethClient.Close()
	log.Infof("Connected to Ethereum node: %s", cfg.Feed.RPCURL)

	var metricsServer *metrics.Server
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(ctx); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("Metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	log.Info("Running database migrations...")
	if err := storemig.RunMigrations(cfg.DB.Path); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer database.Close()

	dbMaintenance := db.NewMaintenanceCoordinator(
		cfg.DB.Path,
		database,
		cfg.DB.Maintenance,
		componentLogger(common.ComponentMaintenance),
	)
	if err := dbMaintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database maintenance: %w", err)
	}
	defer func() {
		if err := dbMaintenance.Stop(); err != nil {
			log.Warnf("Failed to stop database maintenance: %v", err)
		}
	}()

	entityStore := store.New(database, componentLogger(common.ComponentStore), dbMaintenance)

	decoder := events.NewDecoder(
		ethcommon.HexToAddress(cfg.Feed.Contracts.Registry),
		ethcommon.HexToAddress(cfg.Feed.Contracts.WalletFactory),
		ethcommon.HexToAddress(cfg.Feed.Contracts.Token),
		cfg.Feed.Contracts.EntryPointAddress(),
	)

	// Resume from the committed cursor; the driver skips the already
	// committed events of a partially processed block.
	cursor, err := entityStore.GetCursor()
	if err != nil {
		return fmt.Errorf("failed to load ingest cursor: %w", err)
	}
	startBlock := cfg.Feed.StartBlock
	if cursor.LastBlock > 0 {
		startBlock = cursor.LastBlock
	}

	eventFeed, err := feed.NewLogFeed(
		cfg.Feed,
		ethClient,
		decoder,
		startBlock,
		componentLogger(common.ComponentFeed),
	)
	if err != nil {
		return fmt.Errorf("failed to create event feed: %w", err)
	}

	driver := ingest.New(
		eventFeed,
		entityStore,
		cfg.Feed.Contracts.EntryPointAddress(),
		cfg.Scoring,
		cfg.Ingest,
		componentLogger(common.ComponentIngest),
	)

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.API != nil && cfg.API.Enabled {
		apiServer := api.NewServer(
			cfg.API,
			entityStore,
			ingestStatus{driver: driver},
			componentLogger(common.ComponentAPI),
		)
		group.Go(func() error {
			return apiServer.Start(groupCtx)
		})
	}

	group.Go(func() error {
		return driver.Run(groupCtx)
	})

	log.Info("Starting ReputationIndexor...")

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("ReputationIndexor stopped successfully")
	return nil
}
