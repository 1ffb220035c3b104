package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/recorddb/internal/logger"
	"github.com/marmos91/recorddb/internal/server"
	"github.com/marmos91/recorddb/pkg/config"
	"github.com/marmos91/recorddb/pkg/store"
)

func main() {
	// Configuration flags
	configPath := flag.String("config", "", "Path to config file (default: search XDG config dir)")
	logLevel := flag.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")

	// Overrides for the most common settings, matching the config file
	filePath := flag.String("f", "", "Path to the store file (overrides config)")
	port := flag.Int("p", 0, "Port to listen on (overrides config)")
	newFile := flag.Bool("n", false, "Create a new store file (fails if it exists)")

	// Offline operations: mutate or print the store without serving
	addString := flag.String("a", "", "Add a record (\"name-address-hours\") and exit")
	list := flag.Bool("l", false, "List all records and exit")
	remove := flag.Bool("r", false, "Remove the last record and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags take precedence over file and environment.
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *filePath != "" {
		cfg.Store.Type = "file"
		cfg.Store.File["path"] = *filePath
	}

	logger.SetLevel(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := config.CreateStoreBackend(ctx, &cfg.Store, *newFile)
	if err != nil {
		logger.Error("Failed to open store: %v", err)
		os.Exit(1)
	}
	defer backend.Close()

	table, err := backend.Load(ctx)
	if err != nil {
		logger.Error("Failed to load store: %v", err)
		os.Exit(1)
	}

	// Offline mode: apply the requested operations and exit without
	// starting the server.
	if *addString != "" || *list || *remove {
		if err := runOffline(ctx, backend, table, *addString, *list, *remove); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	runServer(ctx, cancel, cfg, backend, table)
}

// runOffline applies store operations directly, the same path the
// protocol handlers use, and persists the result.
func runOffline(ctx context.Context, backend store.Backend, table *store.Table, addString string, list, remove bool) error {
	dirty := false

	if addString != "" {
		rec, err := store.ParseAddString(addString)
		if err != nil {
			return fmt.Errorf("failed to add record: %w", err)
		}
		if err := table.Append(rec); err != nil {
			return fmt.Errorf("failed to add record: %w", err)
		}
		dirty = true
	}

	if remove {
		if err := table.RemoveLast(); err != nil {
			return fmt.Errorf("failed to remove record: %w", err)
		}
		dirty = true
	}

	if list {
		printRecords(table)
	}

	if dirty {
		if err := backend.Save(ctx, table); err != nil {
			return fmt.Errorf("failed to save store: %w", err)
		}
	}
	return nil
}

func printRecords(table *store.Table) {
	for i, rec := range table.Records() {
		fmt.Printf("Employee %d\n", i)
		fmt.Printf("\tName: %s\n", rec.Name)
		fmt.Printf("\tAddress: %s\n", rec.Address)
		fmt.Printf("\tHours: %d\n", rec.Hours)
	}
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, backend store.Backend, table *store.Table) {
	srv := server.New(server.Config{
		Port:        cfg.Server.Port,
		MaxClients:  cfg.Server.MaxClients,
		PollTimeout: cfg.Server.PollTimeout,
	}, table)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on port %d. Press Ctrl+C to stop.", cfg.Server.Port)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
	}

	// Persist whatever the sessions mutated before exiting.
	if err := backend.Save(context.Background(), table); err != nil {
		logger.Error("Failed to save store on shutdown: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
