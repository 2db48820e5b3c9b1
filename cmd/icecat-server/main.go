package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gear6io/icecat/server"
	"github.com/gear6io/icecat/server/config"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "icecat-server",
	Short: "Iceberg REST catalog server",
	Long: `icecat-server serves an Apache Iceberg REST catalog: namespaces, tables
and atomic, optimistically-concurrent table metadata commits backed by a
sqlite catalog store and a local warehouse directory.`,
	RunE: runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.LoadDefaultConfig()
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := config.SetupLogger(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-srv.Err():
		if err != nil {
			logger.Error().Err(err).Msg("Server failed")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	logger.Info().Msg("Server stopped gracefully")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
