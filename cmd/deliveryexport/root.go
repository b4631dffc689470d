/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/suparena/deliverystore"
	"github.com/suparena/deliverystore/config"
	"github.com/suparena/deliverystore/datastore/ddb"
	"github.com/suparena/deliverystore/directory"
	"github.com/suparena/deliverystore/directory/graph"
	"github.com/suparena/deliverystore/localization"
	"github.com/suparena/deliverystore/logging"
	"github.com/suparena/deliverystore/registry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	LogLevel string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// runtime is everything a command needs to talk to the stores.
type runtime struct {
	cfg       *config.Config
	stores    *deliverystore.Stores
	directory directory.BatchLookup
	localizer localization.Localizer
	logger    logging.Logger
}

// opener builds the runtime for a command invocation.
type opener func(ctx context.Context, opts *RootOptions) (*runtime, error)

// NewRootCommand creates the root command of the deliveryexport CLI.
func NewRootCommand(open opener) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "deliveryexport",
		Short: "Read and export notification delivery records",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error); overrides LOG_LEVEL")

	cmd.AddCommand(NewRecipientsCommand(opts, open))
	cmd.AddCommand(NewPendingCommand(opts, open))
	cmd.AddCommand(NewExportCommand(opts, open))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// openRuntime wires the stores, directory and localizer from the environment.
func openRuntime(ctx context.Context, opts *RootOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger := logging.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(level),
	})))

	if cfg.TablesFile != "" {
		data, err := os.ReadFile(cfg.TablesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read tables file: %w", err)
		}
		if err := registry.LoadKeyTemplates(data); err != nil {
			return nil, err
		}
	}

	factory := deliverystore.MemoryTables()
	if cfg.Backend == config.BackendDynamoDB {
		client, err := ddb.NewDynamoDBClient(cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		factory = deliverystore.DynamoDBTables(client, cfg.TablePrefix)
	}

	stores, err := deliverystore.Open(ctx, factory, logger)
	if err != nil {
		return nil, err
	}

	localizer, err := localization.Load(cfg.Locale)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:       cfg,
		stores:    stores,
		directory: graph.New(cfg.DirectoryBaseURL),
		localizer: localizer,
		logger:    logger,
	}, nil
}

// writeJSON writes v indented.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
