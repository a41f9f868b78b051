package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/schema"
)

func writeStoreStatus(status schema.StoreStatus, cfg *contract.Config) error {
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	return dispatch(cfg, status, []string{"backend", "table", "rows"},
		func(w *csv.Writer) error {
			for _, table := range tables {
				rec := []string{status.Backend, table, strconv.FormatInt(status.TableSizes[table], 10)}
				if err := w.Write(rec); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
			return nil
		},
		func(w io.Writer) error {
			if _, err := fmt.Fprintf(w, "Store Backend: %s\n", status.Backend); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "Connected: %t\n", status.Connected); err != nil {
				return err
			}
			if !status.Connected {
				return nil
			}
			if !status.LastCommitTime.IsZero() {
				if _, err := fmt.Fprintf(w, "Newest Commit: %s\n", status.LastCommitTime.Format("2006-01-02 15:04:05")); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintln(w, "Table Sizes:"); err != nil {
				return err
			}
			for _, table := range tables {
				if _, err := fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table]); err != nil {
					return err
				}
			}
			return nil
		})
}
