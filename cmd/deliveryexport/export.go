/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/suparena/deliverystore/export"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions, open opener) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <users|teams> <notification-id>",
		Short: "Export the delivery report of a notification as CSV",
		Long: `Export the delivery report of a notification as CSV.

Without --out the report is written to export-<kind>-<id>-<uuid>.csv in the
working directory. Use --out - for standard output.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"users", "teams"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, notificationID := args[0], args[1]
			if kind != "users" && kind != "teams" {
				return fmt.Errorf("invalid export kind %q: must be users or teams", kind)
			}

			rt, err := open(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			facade, err := export.NewFacade(export.Dependencies{
				SentNotifications: rt.stores.SentNotifications,
				Teams:             rt.stores.Teams,
				Users:             rt.stores.Users,
				UserTypes:         rt.stores.UserTypes,
				Directory:         rt.directory,
				Localizer:         rt.localizer,
			}, export.WithGroupSize(rt.cfg.DirectoryBatchSize), export.WithLogger(rt.logger))
			if err != nil {
				return err
			}

			write := func(w io.Writer) (int, error) {
				return writeReport(cmd, rt, facade, kind, notificationID, w)
			}

			if out == "-" {
				_, err := write(cmd.OutOrStdout())
				return err
			}
			path := out
			if path == "" {
				path = fmt.Sprintf("export-%s-%s-%s.csv", kind, notificationID, uuid.NewString())
			}
			n, err := writeFile(path, write)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (- for stdout)")
	return cmd
}

// createFile opens the report destination.
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// writeFile writes a report to path. A failed close fails the export.
func writeFile(path string, write func(io.Writer) (int, error)) (n int, err error) {
	f, err := createFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func writeReport(cmd *cobra.Command, rt *runtime, facade *export.Facade, kind, notificationID string, w io.Writer) (int, error) {
	if kind == "teams" {
		stream, err := facade.TeamStream(notificationID)
		if err != nil {
			return 0, err
		}
		return export.WriteTeams(cmd.Context(), w, rt.localizer, stream)
	}

	stream, err := facade.UserStream(notificationID)
	if err != nil {
		return 0, err
	}
	n, err := export.WriteUsers(cmd.Context(), w, rt.localizer, stream)
	if err != nil {
		return n, err
	}
	if stream.Forbidden() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: directory access denied, user details are redacted")
	}
	return n, nil
}
