/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/suparena/deliverystore/notification"
	"github.com/suparena/deliverystore/recipients"
	"github.com/suparena/deliverystore/storagemodels"
)

// recipientsOutput is the JSON form of a recipients read.
type recipientsOutput struct {
	Count      int                             `json:"count"`
	Token      string                          `json:"token,omitempty"`
	Recipients []notification.SentNotification `json:"recipients"`
}

// NewRecipientsCommand creates the recipients command.
func NewRecipientsCommand(rootOpts *RootOptions, open opener) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "recipients <notification-id>",
		Short: "Read one bounded chunk of a notification's recipients",
		Long: `Read the recipients of a notification, up to the configured ceiling.

The printed token resumes the read; pass it back with --token to fetch the
next chunk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			reader := recipients.NewReader(rt.stores.SentNotifications,
				recipients.WithPageSize(rt.cfg.RecipientsPageSize),
				recipients.WithMaxResultSize(rt.cfg.RecipientsMaxResultSize),
				recipients.WithLogger(rt.logger),
			)

			var res recipients.Result
			if token == "" {
				res, err = reader.ReadRecipients(cmd.Context(), args[0])
			} else {
				var t *storagemodels.ContinuationToken
				if t, err = storagemodels.DecodeContinuationToken(token); err != nil {
					return err
				}
				res, err = reader.ReadRecipientsByToken(cmd.Context(), args[0], t)
			}
			if err != nil {
				return err
			}

			next, err := res.Token.Encode()
			if err != nil {
				return err
			}
			return printRecipients(cmd.OutOrStdout(), rootOpts.Format, res.Recipients, next)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "continuation token from a previous read")
	return cmd
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions, open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "pending <notification-id>",
		Short: "List recipients that have no conversation yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			pending, err := recipients.NewReader(rt.stores.SentNotifications).ReadPendingRecipients(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecipients(cmd.OutOrStdout(), rootOpts.Format, pending, "")
		},
	}
}

func printRecipients(w io.Writer, format string, list []notification.SentNotification, token string) error {
	if list == nil {
		list = []notification.SentNotification{}
	}
	if format == "json" {
		return writeJSON(w, recipientsOutput{Count: len(list), Token: token, Recipients: list})
	}

	for _, r := range list {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", r.RowKey, r.DeliveryStatus); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "recipients: %d\n", len(list)); err != nil {
		return err
	}
	if token != "" {
		_, err := fmt.Fprintf(w, "token: %s\n", token)
		return err
	}
	return nil
}
