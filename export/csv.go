/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"

	"github.com/suparena/deliverystore/localization"
)

// WriteUsers writes a header and every row of the stream as CSV, flushing
// after each page. It returns the number of rows written.
func WriteUsers(ctx context.Context, w io.Writer, l localization.Localizer, stream *UserStream) (int, error) {
	header := []string{
		l.Localize("ColumnUserId"),
		l.Localize("ColumnUserName"),
		l.Localize("ColumnUserPrincipalName"),
		l.Localize("ColumnUserType"),
		l.Localize("ColumnDeliveryStatus"),
		l.Localize("ColumnStatusReason"),
	}
	return writeCSV(w, header, stream.Pages(ctx), func(r UserRow) []string {
		return []string{r.ID, r.Name, r.UPN, r.UserType, r.DeliveryStatus, r.StatusReason}
	})
}

// WriteTeams writes a header and every row of the stream as CSV, flushing
// after each page. It returns the number of rows written.
func WriteTeams(ctx context.Context, w io.Writer, l localization.Localizer, stream *TeamStream) (int, error) {
	header := []string{
		l.Localize("ColumnTeamId"),
		l.Localize("ColumnTeamName"),
		l.Localize("ColumnDeliveryStatus"),
		l.Localize("ColumnStatusReason"),
	}
	return writeCSV(w, header, stream.Pages(ctx), func(r TeamRow) []string {
		return []string{r.ID, r.Name, r.DeliveryStatus, r.StatusReason}
	})
}

func writeCSV[R any](w io.Writer, header []string, pages iter.Seq2[[]R, error], record func(R) []string) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	written := 0
	for page, err := range pages {
		if err != nil {
			cw.Flush()
			return written, err
		}
		for _, row := range page {
			if err := cw.Write(record(row)); err != nil {
				return written, fmt.Errorf("failed to write row: %w", err)
			}
			written++
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return written, fmt.Errorf("failed to flush rows: %w", err)
		}
	}

	cw.Flush()
	return written, cw.Error()
}
